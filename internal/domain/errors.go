package domain

import (
	"errors"
	"fmt"
)

// 错误分类（对外稳定的 kind 字符串）。
const (
	// ErrKindAccessDenied 表示目录/文件不可读：跳过、记录、不致命。
	ErrKindAccessDenied = "access_denied"
	// ErrKindSourceVanished 表示文件在扫描与拷贝之间消失：跳过、记录、不致命。
	ErrKindSourceVanished = "source_vanished"
	// ErrKindDestWrite 表示目标写入失败（磁盘满/路径过长等）。
	// 单文件级别不致命；目标根本身不可写则整批立即失败。
	ErrKindDestWrite = "dest_write_failed"
	// ErrKindInvalidConfig 表示配置非法（例如目标在源内部）：立即失败，不做任何写入。
	ErrKindInvalidConfig = "invalid_configuration"
	// ErrKindBusy 表示已有 scan/copy 在运行：新请求直接失败，不排队。
	ErrKindBusy = "busy"
	// ErrKindNoScan 表示尚未扫描就尝试 copy。
	ErrKindNoScan = "no_scan"
)

// OpError 是操作级的结构化错误（带稳定 kind，便于上层映射展示）。
type OpError struct {
	Kind string
	Path string
	Err  error
}

func (e *OpError) Error() string {
	switch {
	case e.Path != "" && e.Err != nil:
		return fmt.Sprintf("%s：%q：%v", e.Kind, e.Path, e.Err)
	case e.Path != "":
		return fmt.Sprintf("%s：%q", e.Kind, e.Path)
	case e.Err != nil:
		return fmt.Sprintf("%s：%v", e.Kind, e.Err)
	default:
		return e.Kind
	}
}

func (e *OpError) Unwrap() error { return e.Err }

// ErrKind 从 error 中提取 kind；若不是 *OpError 则返回空串。
func ErrKind(err error) string {
	var e *OpError
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

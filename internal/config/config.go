// Package config 负责 photopull.json 的读取与 CLI 参数合并。
// 排除列表跨进程的持久化属于这一层（核心不做自动持久化）。
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/TErenberger/PhotoPuller/internal/domain"
	"github.com/TErenberger/PhotoPuller/internal/infra/fsx"
)

// FileName 是配置文件名（在工作目录下查找）。
const FileName = "photopull.json"

const (
	// ErrCodeInvalid 表示配置文件无法读取/解析，或字段不合法。
	ErrCodeInvalid = "config_invalid"
	// ErrCodeMissingSource 表示 CLI 与配置文件都未提供源目录。
	ErrCodeMissingSource = "config_missing_source"
	// ErrCodeMissingDest 表示 CLI 与配置文件都未提供目标目录。
	ErrCodeMissingDest = "config_missing_destination"
)

// CLIArgs 是 CLI 暴露的入口参数，保留“是否显式指定”的信息以实现覆盖优先级。
type CLIArgs struct {
	Source      string
	Destination string

	Photos bool
	Videos bool
	PDFs   bool
	// TypesSet 表示 CLI 至少显式指定了一种类型（未指定时默认全选）。
	TypesSet bool

	OrganizeBy    string
	OrganizeBySet bool

	DryRun    bool
	DryRunSet bool

	Exclude []string

	SeedDest    bool
	SeedDestSet bool

	ExifDates    bool
	ExifDatesSet bool
}

// FileConfig 对应 photopull.json 的解析结构。
type FileConfig struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`

	Photos *bool `json:"photos"`
	Videos *bool `json:"videos"`
	PDFs   *bool `json:"pdfs"`

	OrganizeBy string `json:"organize_by"`
	DryRun     *bool  `json:"dry_run"`

	ExcludeDirs []string `json:"exclude_dirs"`

	SeedDestination bool `json:"seed_destination"`
	ExifDates       bool `json:"exif_dates"`
}

// Effective 是合并并规范化后的最终配置（实现层直接消费）。
type Effective struct {
	Source      string
	Destination string

	Filters    domain.TypeFilters
	OrganizeBy domain.LayoutMode
	DryRun     bool

	ExcludeDirs []string

	SeedDest  bool
	ExifDates bool
}

// Error 是配置阶段的结构化错误（带 error_code）。
type Error struct {
	Code string
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch e.Code {
	case ErrCodeMissingSource:
		return fmt.Sprintf("%s：未提供源目录（--source 或配置文件 source 字段）", e.Code)
	case ErrCodeMissingDest:
		return fmt.Sprintf("%s：未提供目标目录（--destination 或配置文件 destination 字段）", e.Code)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s：配置 %q 无效：%v", e.Code, e.Path, e.Err)
		}
		return fmt.Sprintf("%s：配置 %q 无效", e.Code, e.Path)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Code 从 error 中提取 error_code；若不是 *Error 则返回空串。
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// LoadEffective 读取 <cwd>/photopull.json（可选，不存在不报错），并与 CLI 参数合并。
//
// 覆盖优先级（固定）：
// - source/destination：CLI > config
// - 类型过滤：CLI 显式指定任一类型 > config > 默认全选
// - organize_by：CLI > config > 默认 date
// - dry_run / seed_destination / exif_dates：CLI > config > 默认 false
// - exclude：CLI 的 --exclude 追加到 config 的 exclude_dirs 之后（并集）
func LoadEffective(cwd string, cli CLIArgs) (Effective, error) {
	cfgPath := filepath.Join(cwd, FileName)
	fc, _, err := readFileConfig(cfgPath)
	if err != nil {
		return Effective{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}
	return merge(cwd, cli, fc, cfgPath)
}

func merge(cwd string, cli CLIArgs, fc FileConfig, cfgPath string) (Effective, error) {
	source := strings.TrimSpace(cli.Source)
	if source == "" {
		source = strings.TrimSpace(fc.Source)
	}
	if source == "" {
		return Effective{}, &Error{Code: ErrCodeMissingSource, Path: cfgPath}
	}

	dest := strings.TrimSpace(cli.Destination)
	if dest == "" {
		dest = strings.TrimSpace(fc.Destination)
	}
	if dest == "" {
		return Effective{}, &Error{Code: ErrCodeMissingDest, Path: cfgPath}
	}

	var filters domain.TypeFilters
	switch {
	case cli.TypesSet:
		filters = domain.TypeFilters{Photos: cli.Photos, Videos: cli.Videos, PDFs: cli.PDFs}
	case fc.Photos != nil || fc.Videos != nil || fc.PDFs != nil:
		filters = domain.TypeFilters{
			Photos: fc.Photos != nil && *fc.Photos,
			Videos: fc.Videos != nil && *fc.Videos,
			PDFs:   fc.PDFs != nil && *fc.PDFs,
		}
	default:
		// 未指定任何类型：默认全选（与原始 CLI 行为一致）。
		filters = domain.TypeFilters{Photos: true, Videos: true, PDFs: true}
	}
	if !filters.Any() {
		return Effective{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: fmt.Errorf("至少要选择一种文件类型")}
	}

	organizeBy := domain.LayoutDate
	if cli.OrganizeBySet {
		organizeBy = domain.LayoutMode(cli.OrganizeBy)
	} else if strings.TrimSpace(fc.OrganizeBy) != "" {
		organizeBy = domain.LayoutMode(fc.OrganizeBy)
	}
	if !domain.ValidLayout(organizeBy) {
		return Effective{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: fmt.Errorf("organize_by 只能是 date 或 source，实际是 %q", organizeBy)}
	}

	dryRun := false
	if cli.DryRunSet {
		dryRun = cli.DryRun
	} else if fc.DryRun != nil {
		dryRun = *fc.DryRun
	}

	seedDest := fc.SeedDestination
	if cli.SeedDestSet {
		seedDest = cli.SeedDest
	}
	exifDates := fc.ExifDates
	if cli.ExifDatesSet {
		exifDates = cli.ExifDates
	}

	excl := make([]string, 0, len(fc.ExcludeDirs)+len(cli.Exclude))
	excl = append(excl, fc.ExcludeDirs...)
	excl = append(excl, cli.Exclude...)

	return Effective{
		Source:      absCleanFrom(cwd, source),
		Destination: absCleanFrom(cwd, dest),
		Filters:     filters,
		OrganizeBy:  organizeBy,
		DryRun:      dryRun,
		ExcludeDirs: excl,
		SeedDest:    seedDest,
		ExifDates:   exifDates,
	}, nil
}

// LoadExclusions 只读取 <cwd>/photopull.json 的 exclude_dirs（文件不存在返回空列表）。
func LoadExclusions(cwd string) ([]string, error) {
	cfgPath := filepath.Join(cwd, FileName)
	fc, _, err := readFileConfig(cfgPath)
	if err != nil {
		return nil, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}
	return fc.ExcludeDirs, nil
}

// SaveExclusions 把排除列表写回 <cwd>/photopull.json（保留其他字段；文件不存在则创建）。
func SaveExclusions(cwd string, dirs []string) error {
	cfgPath := filepath.Join(cwd, FileName)
	fc, _, err := readFileConfig(cfgPath)
	if err != nil {
		return &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}
	fc.ExcludeDirs = append([]string(nil), dirs...)

	b, err := json.MarshalIndent(fc, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	return fsx.WriteFileAtomicReplace(cwd, FileName, b)
}

// absCleanFrom 以 base 为基准，把 p 变为 clean + absolute。
func absCleanFrom(base, p string) string {
	p = filepath.Clean(strings.TrimSpace(p))
	if p == "" {
		return ""
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Clean(filepath.Join(base, p))
}

// readFileConfig 读取并解析 JSON 配置文件。
// 返回值 exists 表示该文件是否存在（不存在不算错误）。
func readFileConfig(path string) (fc FileConfig, exists bool, err error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, false, nil
		}
		return FileConfig{}, false, err
	}
	if err := json.Unmarshal(b, &fc); err != nil {
		return FileConfig{}, true, err
	}
	return fc, true, nil
}

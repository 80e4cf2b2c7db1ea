// Package fsx 提供拷贝与原子写入原语。
package fsx

import (
	"io"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/TErenberger/PhotoPuller/internal/domain"
)

// 通过可替换的函数指针，让测试能稳定模拟 rename 失败。
var renameFunc = os.Rename

// ByteProgressFunc 报告单文件拷贝的字节级进度（拷贝速率单位 MB/s）。
// 约 100ms 触发一次，最后一块必触发。
type ByteProgressFunc func(copied, total int64, rateMBps float64)

const (
	copyChunkSize        = 1 << 20 // 1 MB
	byteProgressInterval = 100 * time.Millisecond
)

// CopyFile 把 src 拷贝为 dst（在 dst 同目录写临时文件，成功后 rename 就位）。
//
// 语义：
// - 失败不留半成品：临时文件在任何错误路径上都会被清理
// - 拷贝完成后把 dst 的修改时间设成 src 的修改时间（精度受目标文件系统限制）
// - 返回拷贝的字节数
func CopyFile(src, dst string, progress ByteProgressFunc) (int64, error) {
	sf, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer sf.Close()

	fi, err := sf.Stat()
	if err != nil {
		return 0, err
	}
	total := fi.Size()

	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(dst)+".tmp-*")
	if err != nil {
		return 0, err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	var copied int64
	buf := make([]byte, copyChunkSize)
	started := time.Now()
	lastUpdate := started

	for {
		n, rerr := sf.Read(buf)
		if n > 0 {
			if _, werr := tmp.Write(buf[:n]); werr != nil {
				return copied, werr
			}
			copied += int64(n)

			if progress != nil {
				now := time.Now()
				if now.Sub(lastUpdate) >= byteProgressInterval || copied == total {
					elapsed := now.Sub(started).Seconds()
					rate := 0.0
					if elapsed > 0 {
						rate = float64(copied) / (1 << 20) / elapsed
					}
					progress(copied, total, rate)
					lastUpdate = now
				}
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return copied, rerr
		}
	}

	if err := tmp.Chmod(0o644); err != nil {
		return copied, err
	}
	if err := tmp.Sync(); err != nil {
		return copied, err
	}
	if err := tmp.Close(); err != nil {
		return copied, err
	}

	if err := renameFunc(tmpName, dst); err != nil {
		return copied, err
	}

	// 保留源的修改时间（round-trip 契约）。
	if err := os.Chtimes(dst, fi.ModTime(), fi.ModTime()); err != nil {
		return copied, err
	}

	_ = syncDirBestEffort(dir)
	return copied, nil
}

// WriteFileAtomicReplace 在 dir 下原子写入 name（临时文件 + rename；覆盖同名文件）。
// 用于 config/report 等允许覆盖的内部文件。
func WriteFileAtomicReplace(dir, name string, data []byte) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	dst := filepath.Join(dir, name)
	tmp, err := os.CreateTemp(dir, "."+name+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		return err
	}
	if err := tmp.Chmod(0o644); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := renameFunc(tmpName, dst); err != nil {
		return err
	}
	_ = syncDirBestEffort(dir)
	return nil
}

// ClassifyErrKind 把文件系统错误映射为稳定的错误分类。
// srcSide 表示错误发生在读源文件一侧（决定 not-exist 映射为 source_vanished 还是 dest_write_failed）。
func ClassifyErrKind(err error, srcSide bool) string {
	switch {
	case err == nil:
		return ""
	case os.IsPermission(err):
		return domain.ErrKindAccessDenied
	case os.IsNotExist(err) && srcSide:
		return domain.ErrKindSourceVanished
	default:
		return domain.ErrKindDestWrite
	}
}

// ProbeWritable 检查 dir 是否可写：创建并删除一个探针文件。
// 用于整批开始前的目标根预检（根本身不可写必须立即失败）。
func ProbeWritable(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, ".probe-*")
	if err != nil {
		return err
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(name)
}

func syncDirBestEffort(dir string) error {
	// Windows 上目录 Sync 的语义与支持情况不稳定，这里直接跳过。
	if runtime.GOOS == "windows" {
		return nil
	}
	f, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Sync()
}

package main

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/TErenberger/PhotoPuller/internal/domain"
)

// progressUI 是交互终端的进度输出。
//
// 设计目标：
// - 所有过程信息写到 stderr，不污染 stdout 的 JSON 输出契约
// - 回调驱动：核心只按有界频率发快照，CLI 决定如何展示
// - 非 TTY 或 --quiet：进度完全静默（结果仍然走 stdout）
type progressUI struct {
	w       io.Writer
	enabled bool

	mu        sync.Mutex
	startedAt time.Time
	// 单文件字节进度是否正在占用当前行（需要 \r 覆盖或换行收尾）。
	lineOpen bool
}

func newProgressUI(f *os.File, quiet bool) *progressUI {
	return &progressUI{
		w:       f,
		enabled: !quiet && isTerminal(f),
	}
}

// printf 输出一行过程信息（仅在进度开启时）。
func (p *progressUI) printf(format string, args ...any) {
	if !p.enabled {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closeLineLocked()
	fmt.Fprintf(p.w, format, args...)
}

func (p *progressUI) onScanProgress(currentPath string, s domain.ScanStats) {
	if !p.enabled {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.startedAt.IsZero() {
		p.startedAt = time.Now()
	}
	p.closeLineLocked()
	fmt.Fprintf(p.w, "扫描中: seen=%d found=%d excluded=%d %s\n",
		s.TotalScanned, s.TotalFiles, s.Excluded, truncatePath(currentPath, 80))
}

func (p *progressUI) scanDone(s domain.ScanStats) {
	if !p.enabled {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closeLineLocked()
	note := ""
	if s.Cancelled {
		note = "（已取消，部分结果）"
	}
	fmt.Fprintf(p.w, "扫描完成%s: found=%d (photos=%d videos=%d pdfs=%d) excluded=%d bytes=%s (%s)\n",
		note, s.TotalFiles, s.Found.Photos, s.Found.Videos, s.Found.PDFs,
		s.Excluded, formatBytes(s.TotalBytes), formatShortDuration(s.FinishedAt.Sub(s.StartedAt)))
}

func (p *progressUI) onCopyProgress(currentPath string, s domain.CopyStats, status string) {
	if !p.enabled {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closeLineLocked()
	fmt.Fprintf(p.w, "[%d/%d] %s %s\n", s.Copied+s.Duplicates+s.Skipped+s.Failed, s.Total,
		copyStatusLabel(status), truncatePath(currentPath, 80))
}

// onFileProgress 在同一行刷新单文件的字节进度（核心已做 100ms 节流）。
func (p *progressUI) onFileProgress(copied, total int64, rateMBps float64) {
	if !p.enabled {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.w, "\r  %s / %s (%.1f MB/s)   ", formatBytes(copied), formatBytes(total), rateMBps)
	p.lineOpen = copied < total
	if copied >= total {
		fmt.Fprint(p.w, "\r")
	}
}

func (p *progressUI) copyDone(s domain.CopyStats) {
	if !p.enabled {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closeLineLocked()
	note := ""
	if s.DryRun {
		note = "（dry-run，未写入任何文件）"
	}
	if s.Cancelled {
		note += "（已取消，部分结果）"
	}
	fmt.Fprintf(p.w, "拷贝完成%s: copied=%d duplicates=%d skipped=%d failed=%d bytes=%s (%s)\n",
		note, s.Copied, s.Duplicates, s.Skipped, s.Failed,
		formatBytes(s.BytesCopied), formatShortDuration(s.FinishedAt.Sub(s.StartedAt)))
}

// closeLineLocked 收尾被 \r 占用的进度行，避免后续输出叠在同一行上。
func (p *progressUI) closeLineLocked() {
	if p.lineOpen {
		fmt.Fprintln(p.w)
		p.lineOpen = false
	}
}

func copyStatusLabel(status string) string {
	switch status {
	case domain.CopyStatusCopied:
		return "COPY"
	case domain.CopyStatusWouldCopy:
		return "WOULD"
	case domain.CopyStatusDuplicate:
		return "DUP"
	case domain.CopyStatusSkipped:
		return "SKIP"
	case domain.CopyStatusError:
		return "FAIL"
	default:
		return status
	}
}

func stdoutIsTTY() bool {
	return isTerminal(os.Stdout)
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func truncatePath(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	if max <= 1 {
		return s[len(s)-max:]
	}
	// 路径截断保留尾部（文件名比前缀更有辨识度）。
	return "…" + s[len(s)-max+1:]
}

func formatShortDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

// formatBytes 输出人类可读的字节数（二进制单位）。
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}

// Package copier 按 Inventory 顺序把文件拷贝到目标目录：
// 逐文件做惰性哈希去重、目的路径组织与冲突消歧，单文件失败降级为统计项，绝不中断整批。
package copier

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/TErenberger/PhotoPuller/internal/dedup"
	"github.com/TErenberger/PhotoPuller/internal/domain"
	"github.com/TErenberger/PhotoPuller/internal/infra/fsx"
	"github.com/TErenberger/PhotoPuller/internal/organize"
)

// ProgressFunc 是 copy 的有界频率进度回调：当前文件、统计快照（值拷贝）与该文件的结果状态。
type ProgressFunc func(currentPath string, stats domain.CopyStats, status string)

const (
	defaultProgressEvery    = 50
	defaultProgressInterval = 200 * time.Millisecond
)

var errDestInsideSource = errors.New("目标目录不能等于源目录或位于源目录内部")

// Options 控制一次 copy run。
type Options struct {
	DestRoot string
	Mode     domain.LayoutMode
	DryRun   bool

	// Registry 为空时使用全新登记表。传入上次 run 的登记表可实现幂等重试：
	// 已确认拷贝过的文件第二次全部变为 duplicate-skip。
	Registry *dedup.Registry

	// ExifDates 透传给 Organizer（date 布局的照片优先 EXIF 拍摄时间）。
	ExifDates bool

	Progress     ProgressFunc
	FileProgress fsx.ByteProgressFunc

	ProgressEvery    int
	ProgressInterval time.Duration
}

// Run 执行拷贝。
//
// 批级前置校验（任一失败都在做任何拷贝之前立即返回错误）：
// - 目标根等于源根或嵌套在源根内部 → invalid_configuration
// - 布局取值非法 → invalid_configuration
// - 目标根不可写（非 dry-run）→ dest_write_failed
//
// 单文件错误（权限、源消失、磁盘满等）只累积进 CopyStats.Failures，继续下一个文件。
// ctx 取消在文件之间检查（不会打断单个文件的拷贝），返回部分统计且不报错。
func Run(ctx context.Context, inv domain.Inventory, opts Options) (domain.CopyStats, error) {
	started := time.Now()

	if !domain.ValidLayout(opts.Mode) {
		return domain.CopyStats{}, &domain.OpError{Kind: domain.ErrKindInvalidConfig, Path: string(opts.Mode), Err: errors.New("organize 方式只能是 date 或 source")}
	}

	destRoot, err := filepath.Abs(filepath.Clean(opts.DestRoot))
	if err != nil {
		return domain.CopyStats{}, &domain.OpError{Kind: domain.ErrKindInvalidConfig, Path: opts.DestRoot, Err: err}
	}
	if isSameOrUnder(destRoot, inv.Root) {
		return domain.CopyStats{}, &domain.OpError{Kind: domain.ErrKindInvalidConfig, Path: destRoot, Err: errDestInsideSource}
	}

	if !opts.DryRun {
		if err := fsx.ProbeWritable(destRoot); err != nil {
			return domain.CopyStats{}, &domain.OpError{Kind: domain.ErrKindDestWrite, Path: destRoot, Err: err}
		}
	}

	reg := opts.Registry
	if reg == nil {
		reg = dedup.NewRegistry()
	}

	org := organize.Organizer{
		Mode:       opts.Mode,
		SourceRoot: inv.Root,
		ExifDates:  opts.ExifDates,
	}

	stats := domain.CopyStats{
		RunID:       uuid.NewString(),
		Destination: destRoot,
		Layout:      opts.Mode,
		DryRun:      opts.DryRun,
		StartedAt:   started,
	}

	every := opts.ProgressEvery
	if every <= 0 {
		every = defaultProgressEvery
	}
	interval := opts.ProgressInterval
	if interval <= 0 {
		interval = defaultProgressInterval
	}
	lastProgress := time.Now()
	sinceProgress := 0

	// dry-run 也要对“同目录多个待拷文件”消歧：planned 记录本次 run 内已分配的目标名。
	planned := make(map[string]struct{})

	emit := func(path, status string, force bool) {
		if opts.Progress == nil {
			return
		}
		sinceProgress++
		if !force && sinceProgress < every && time.Since(lastProgress) < interval {
			return
		}
		opts.Progress(path, stats, status)
		sinceProgress = 0
		lastProgress = time.Now()
	}

	for i := range inv.Files {
		if ctx.Err() != nil {
			stats.Cancelled = true
			break
		}

		rec := inv.Files[i]
		stats.Total++

		// 惰性哈希：只有真正成为拷贝候选的文件才读内容。
		hash, herr := reg.HashFile(rec.AbsPath)
		if herr != nil {
			fail(&stats, rec.AbsPath, fsx.ClassifyErrKind(herr, true), herr)
			emit(rec.AbsPath, domain.CopyStatusError, false)
			continue
		}

		// 登记表命中：与文件名/路径无关，内容相同即重复。
		if _, dup := reg.Lookup(hash); dup {
			stats.Duplicates++
			emit(rec.AbsPath, domain.CopyStatusDuplicate, false)
			continue
		}

		rel := org.DestinationFor(rec)
		target, existsSame, rerr := resolveTarget(destRoot, rel, hash, reg, planned)
		if rerr != nil {
			fail(&stats, rec.AbsPath, fsx.ClassifyErrKind(rerr, false), rerr)
			emit(rec.AbsPath, domain.CopyStatusError, false)
			continue
		}
		if existsSame {
			// 目标位置已有同内容文件：按 skipped 记账并登记哈希，
			// 后续相同内容的源文件会变为 duplicate。
			reg.Mark(hash, target)
			stats.Skipped++
			emit(rec.AbsPath, domain.CopyStatusSkipped, false)
			continue
		}
		planned[target] = struct{}{}

		if opts.DryRun {
			// dry-run：记账与真实 run 完全一致，但零文件系统写入。
			reg.Mark(hash, target)
			stats.Copied++
			stats.CopiedBy.Add(rec.Category)
			stats.BytesCopied += rec.Size
			emit(rec.AbsPath, domain.CopyStatusWouldCopy, false)
			continue
		}

		n, cerr := fsx.CopyFile(rec.AbsPath, target, opts.FileProgress)
		if cerr != nil {
			fail(&stats, rec.AbsPath, fsx.ClassifyErrKind(cerr, os.IsNotExist(cerr)), cerr)
			emit(rec.AbsPath, domain.CopyStatusError, false)
			continue
		}

		reg.Mark(hash, target)
		stats.Copied++
		stats.CopiedBy.Add(rec.Category)
		stats.BytesCopied += n
		emit(rec.AbsPath, domain.CopyStatusCopied, false)
	}

	stats.FinishedAt = time.Now()
	stats.Finalize()
	return stats, nil
}

// resolveTarget 把相对目的路径落到具体文件：
// - 目标不存在且本次 run 未规划 → 直接使用
// - 目标已存在且内容与源相同 → existsSame=true（调用方按 skipped 处理）
// - 目标已存在但内容不同（或名字已被本次 run 占用）→ 追加数字消歧后缀再试
func resolveTarget(destRoot, rel, srcHash string, reg *dedup.Registry, planned map[string]struct{}) (target string, existsSame bool, err error) {
	base := filepath.Join(destRoot, rel)
	cand := base
	for n := 1; ; n++ {
		if _, taken := planned[cand]; !taken {
			fi, serr := os.Lstat(cand)
			if serr != nil {
				if os.IsNotExist(serr) {
					return cand, false, nil
				}
				return "", false, serr
			}
			if fi.Mode().IsRegular() {
				dh, herr := reg.HashFile(cand)
				if herr == nil && dh == srcHash {
					return cand, true, nil
				}
			}
		}
		cand = filepath.Join(filepath.Dir(base), organize.NumberedName(filepath.Base(base), n))
	}
}

func fail(stats *domain.CopyStats, path, kind string, err error) {
	stats.Failed++
	stats.Failures = append(stats.Failures, domain.Failure{
		Path: path,
		Kind: kind,
		Msg:  err.Error(),
	})
}

func isSameOrUnder(path, base string) bool {
	if base == "" {
		return false
	}
	p := filepath.Clean(path)
	b := filepath.Clean(base)
	if p == b {
		return true
	}
	return strings.HasPrefix(p, b+string(filepath.Separator))
}

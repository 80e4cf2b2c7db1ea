// Package scan 深度优先遍历源目录，产出匹配文件的有序 Inventory 与扫描统计。
package scan

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/TErenberger/PhotoPuller/internal/classify"
	"github.com/TErenberger/PhotoPuller/internal/domain"
	"github.com/TErenberger/PhotoPuller/internal/exclude"
)

// ProgressFunc 是有界频率的进度回调：参数是当前路径与统计快照（值拷贝，不可变）。
// 不是每个文件触发一次：按条目数或时间间隔节流，避免淹没调用方。
type ProgressFunc func(currentPath string, stats domain.ScanStats)

// 进度节流的默认值。
const (
	defaultProgressEvery    = 200
	defaultProgressInterval = 200 * time.Millisecond
)

var (
	errAtLeastOneType = errors.New("至少要选择一种文件类型（photos/videos/pdfs）")
	errRootNotDir     = errors.New("扫描根不存在或不是目录")
)

// Options 控制一次扫描。
type Options struct {
	Filters    domain.TypeFilters
	Exclusions *exclude.Set
	Progress   ProgressFunc

	// ProgressEvery/ProgressInterval 控制进度回调的节流（零值用默认）。
	ProgressEvery    int
	ProgressInterval time.Duration
}

// Run 扫描 root 子树。
//
// 规则（硬约束）：
// - 目录在下降之前先做排除判断：被排除的子树整体剪掉，里面的文件永远不会被打开或分类
// - 不跟随符号链接（避免环）
// - 单个目录不可读只记录 SkippedDirs 并继续兄弟节点，绝不中断整次扫描
// - 扫描阶段只做 stat，不读文件内容（哈希推迟到 copy 阶段）
// - ctx 取消：在文件系统条目之间检查；取消后干净返回已完成的部分统计（Cancelled=true，不报错）
func Run(ctx context.Context, root string, opts Options) (domain.Inventory, domain.ScanStats, error) {
	started := time.Now()

	if !opts.Filters.Any() {
		return domain.Inventory{}, domain.ScanStats{}, &domain.OpError{
			Kind: domain.ErrKindInvalidConfig,
			Err:  errAtLeastOneType,
		}
	}

	root, err := filepath.Abs(filepath.Clean(root))
	if err != nil {
		return domain.Inventory{}, domain.ScanStats{}, &domain.OpError{Kind: domain.ErrKindInvalidConfig, Path: root, Err: err}
	}
	if fi, serr := os.Stat(root); serr != nil || !fi.IsDir() {
		return domain.Inventory{}, domain.ScanStats{}, &domain.OpError{Kind: domain.ErrKindInvalidConfig, Path: root, Err: errRootNotDir}
	}

	stats := domain.ScanStats{
		RunID:     uuid.NewString(),
		Root:      root,
		StartedAt: started,
	}

	excl := opts.Exclusions
	if excl == nil {
		excl = exclude.NewSet()
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

	files := make([]domain.FileRecord, 0, 128)

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, werr error) error {
		if ctx.Err() != nil {
			stats.Cancelled = true
			return fs.SkipAll
		}

		if werr != nil {
			// 不可进入的目录：记录后继续兄弟节点。
			stats.SkippedDirs = append(stats.SkippedDirs, domain.Failure{
				Path: path,
				Kind: domain.ErrKindAccessDenied,
				Msg:  werr.Error(),
			})
			return nil
		}

		rel, rerr := filepath.Rel(root, path)
		if rerr != nil {
			return nil
		}

		if d.IsDir() {
			if rel == "." {
				return nil
			}
			if excl.IsExcluded(path, rel) {
				return filepath.SkipDir
			}
			return nil
		}

		// 符号链接不跟随，也不作为候选文件。
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}

		stats.TotalScanned++
		sinceProgress++
		if opts.Progress != nil && (sinceProgress >= every || time.Since(lastProgress) >= interval) {
			opts.Progress(path, stats)
			sinceProgress = 0
			lastProgress = time.Now()
		}

		// 排除优先于分类：被排除的文件不进入分类流程。
		if excl.IsExcluded(path, rel) {
			stats.Excluded++
			return nil
		}

		info, ierr := d.Info()
		if ierr != nil {
			stats.SkippedDirs = append(stats.SkippedDirs, domain.Failure{
				Path: path,
				Kind: domain.ErrKindAccessDenied,
				Msg:  ierr.Error(),
			})
			return nil
		}

		res := classify.File(path, info.Size())
		if !opts.Filters.Allows(res.Category) {
			return nil
		}
		// 零字节与疑似缩略图（<1KB）不纳入结果。
		if info.Size() == 0 || res.LikelyThumbnail {
			stats.Excluded++
			return nil
		}

		name := d.Name()
		files = append(files, domain.FileRecord{
			AbsPath:  path,
			RelPath:  rel,
			Base:     strings.TrimSuffix(name, filepath.Ext(name)),
			Ext:      strings.ToLower(filepath.Ext(name)),
			Category: res.Category,
			Size:     info.Size(),
			ModTime:  info.ModTime(),
		})
		stats.Found.Add(res.Category)
		stats.TotalBytes += info.Size()
		return nil
	})
	if walkErr != nil {
		return domain.Inventory{}, domain.ScanStats{}, &domain.OpError{Kind: domain.ErrKindAccessDenied, Path: root, Err: walkErr}
	}

	// 强制稳定输出，避免不同平台/文件系统行为差异带来的不确定性。
	sort.Slice(files, func(i, j int) bool { return files[i].RelPath < files[j].RelPath })

	stats.FinishedAt = time.Now()
	stats.Finalize()

	return domain.Inventory{
		Root:    root,
		Filters: opts.Filters,
		Files:   files,
	}, stats, nil
}

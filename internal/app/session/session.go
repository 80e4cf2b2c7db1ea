// Package session 是核心对外的同步门面：scan / copy / 统计查询 / 排除集合管理。
// 对应关系：扫描产出的 Inventory 保留在会话内，供随后的 copy 使用。
package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/TErenberger/PhotoPuller/internal/app/copier"
	"github.com/TErenberger/PhotoPuller/internal/dedup"
	"github.com/TErenberger/PhotoPuller/internal/domain"
	"github.com/TErenberger/PhotoPuller/internal/exclude"
	"github.com/TErenberger/PhotoPuller/internal/infra/fsx"
	"github.com/TErenberger/PhotoPuller/internal/scan"
)

var (
	errBusy   = errors.New("已有 scan/copy 在运行；请求不排队，直接失败")
	errNoScan = errors.New("尚未扫描；先调用 Scan")
)

// Session 持有一次扫描的 Inventory、最近的统计快照与进程级排除集合。
//
// 并发契约：
// - 同一时刻最多一个 scan 或 copy 在运行；新请求返回 busy 错误而不是排队
// - Scan/CopyFiles 是同步调用；需要响应式 UI 的调用方自己放到 goroutine 里，
//   并通过进度回调拿增量（回调参数都是不可变快照）
// - 统计查询随时可用：运行中返回尽力而为的即时快照，结束后返回最终快照
type Session struct {
	running atomic.Bool

	mu       sync.Mutex
	excl     *exclude.Set
	inv      *domain.Inventory
	lastScan *domain.ScanStats
	lastCopy *domain.CopyStats

	// lastRegistry 保留上次 copy run 的登记表，供 Resume 重试时复用：
	// 已确认拷贝过的文件在重试中全部变为 duplicate-skip。
	lastRegistry *dedup.Registry
}

// New 创建空会话。
func New() *Session {
	return &Session{excl: exclude.NewSet()}
}

// Exclusions 暴露排除集合（供 CLI 从配置装载/持久化）。
func (s *Session) Exclusions() *exclude.Set { return s.excl }

// AddExclusion 加入排除目录，并立即从已有 Inventory 中过滤掉命中的记录
// （不重新扫描磁盘）。重复加入是 no-op。
func (s *Session) AddExclusion(path string) {
	s.excl.Add(path)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inv == nil {
		return
	}
	kept := s.inv.Files[:0]
	for _, f := range s.inv.Files {
		if !s.excl.UserExcluded(f.AbsPath) {
			kept = append(kept, f)
		}
	}
	s.inv.Files = kept
}

// RemoveExclusion 移除排除目录。已被过滤掉的记录不会恢复：下次扫描生效。
func (s *Session) RemoveExclusion(path string) { s.excl.Remove(path) }

// ClearExclusions 清空用户排除集合（下次扫描生效）。
func (s *Session) ClearExclusions() { s.excl.Clear() }

// Scan 扫描 root，保留 Inventory 供随后的 CopyFiles 使用，返回最终统计。
// 进度回调的统计参数同时也会更新到会话的即时快照（ScanStats 查询可见）。
func (s *Session) Scan(ctx context.Context, root string, filters domain.TypeFilters, progress scan.ProgressFunc) (domain.ScanStats, error) {
	if !s.running.CompareAndSwap(false, true) {
		return domain.ScanStats{}, &domain.OpError{Kind: domain.ErrKindBusy, Err: errBusy}
	}
	defer s.running.Store(false)

	inner := func(path string, st domain.ScanStats) {
		s.mu.Lock()
		snap := st
		s.lastScan = &snap
		s.mu.Unlock()
		if progress != nil {
			progress(path, st)
		}
	}

	inv, stats, err := scan.Run(ctx, root, scan.Options{
		Filters:    filters,
		Exclusions: s.excl,
		Progress:   inner,
	})
	if err != nil {
		return domain.ScanStats{}, err
	}

	s.mu.Lock()
	s.inv = &inv
	s.lastScan = &stats
	s.lastRegistry = nil // 新扫描后上次 copy 的登记表不再适用
	s.mu.Unlock()
	return stats, nil
}

// ScanStats 返回最近一次扫描的统计快照；从未扫描过时 ok=false。
func (s *Session) ScanStats() (domain.ScanStats, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastScan == nil {
		return domain.ScanStats{}, false
	}
	return *s.lastScan, true
}

// CopyOptions 控制一次 copy run。
type CopyOptions struct {
	DryRun bool

	// SeedDest 为 true 时先遍历目标目录、预登记已有内容的哈希
	// （跨 run 去重；默认关闭，登记表仅在本次 run 内有效）。
	SeedDest bool

	// Resume 为 true 时复用上次 copy run 的登记表（部分失败后的幂等重试）。
	Resume bool

	// ExifDates 开启 date 布局照片的 EXIF 拍摄时间优先。
	ExifDates bool

	Progress     copier.ProgressFunc
	FileProgress fsx.ByteProgressFunc
}

// CopyFiles 把保留的 Inventory 拷贝到 dest，返回最终统计。
func (s *Session) CopyFiles(ctx context.Context, dest string, mode domain.LayoutMode, opts CopyOptions) (domain.CopyStats, error) {
	if !s.running.CompareAndSwap(false, true) {
		return domain.CopyStats{}, &domain.OpError{Kind: domain.ErrKindBusy, Err: errBusy}
	}
	defer s.running.Store(false)

	s.mu.Lock()
	if s.inv == nil {
		s.mu.Unlock()
		return domain.CopyStats{}, &domain.OpError{Kind: domain.ErrKindNoScan, Err: errNoScan}
	}
	inv := *s.inv
	reg := s.lastRegistry
	s.mu.Unlock()

	if !opts.Resume || reg == nil {
		reg = dedup.NewRegistry()
	}
	if opts.SeedDest && !opts.Resume {
		if _, err := reg.SeedFromTree(ctx, dest); err != nil {
			return domain.CopyStats{}, &domain.OpError{Kind: domain.ErrKindAccessDenied, Path: dest, Err: err}
		}
	}

	inner := func(path string, st domain.CopyStats, status string) {
		s.mu.Lock()
		snap := st
		s.lastCopy = &snap
		s.mu.Unlock()
		if opts.Progress != nil {
			opts.Progress(path, st, status)
		}
	}

	stats, err := copier.Run(ctx, inv, copier.Options{
		DestRoot:     dest,
		Mode:         mode,
		DryRun:       opts.DryRun,
		Registry:     reg,
		ExifDates:    opts.ExifDates,
		Progress:     inner,
		FileProgress: opts.FileProgress,
	})
	if err != nil {
		return domain.CopyStats{}, err
	}

	s.mu.Lock()
	s.lastCopy = &stats
	if !opts.DryRun {
		s.lastRegistry = reg
	}
	s.mu.Unlock()
	return stats, nil
}

// CopyStats 返回最近一次 copy 的统计快照；从未 copy 过时 ok=false。
func (s *Session) CopyStats() (domain.CopyStats, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastCopy == nil {
		return domain.CopyStats{}, false
	}
	return *s.lastCopy, true
}

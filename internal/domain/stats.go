package domain

import "time"

// Failure 记录一次单文件/单目录级别的失败（路径 + 错误分类）。
type Failure struct {
	Path string `json:"path"`
	Kind string `json:"kind"`
	Msg  string `json:"msg"`
}

// CategoryCounts 是按类别的计数。
type CategoryCounts struct {
	Photos int `json:"photos"`
	Videos int `json:"videos"`
	PDFs   int `json:"pdfs"`
}

// Add 给对应类别加一（other 不计数）。
func (c *CategoryCounts) Add(cat Category) {
	switch cat {
	case CategoryPhoto:
		c.Photos++
	case CategoryVideo:
		c.Videos++
	case CategoryPDF:
		c.PDFs++
	}
}

// Total 返回三类之和。
func (c CategoryCounts) Total() int { return c.Photos + c.Videos + c.PDFs }

// ScanStats 是一次扫描的统计快照（每次扫描整体替换，不做累积）。
type ScanStats struct {
	RunID string `json:"run_id"`
	Root  string `json:"root"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Cancelled  bool      `json:"cancelled"`

	// TotalScanned 是被访问的文件条目数（含被过滤掉的）。
	TotalScanned int64          `json:"total_scanned"`
	Found        CategoryCounts `json:"found"`
	TotalFiles   int            `json:"total_files"`
	TotalBytes   int64          `json:"total_bytes"`
	Excluded     int            `json:"excluded"`

	// SkippedDirs 记录无法进入的目录（权限等）；单个目录失败不会中断扫描。
	SkippedDirs []Failure `json:"skipped_dirs"`
}

// Finalize 统一时间为 UTC 并补齐派生字段，保证 JSON 输出稳定。
func (s *ScanStats) Finalize() {
	s.StartedAt = s.StartedAt.UTC()
	s.FinishedAt = s.FinishedAt.UTC()
	s.TotalFiles = s.Found.Total()
	if s.SkippedDirs == nil {
		s.SkippedDirs = []Failure{}
	}
}

// 单文件 copy 结果（progress 回调里的 status 取值）。
const (
	CopyStatusCopied    = "copied"
	CopyStatusWouldCopy = "would_copy"
	CopyStatusDuplicate = "duplicate"
	CopyStatusSkipped   = "skipped"
	CopyStatusError     = "error"
)

// CopyStats 是一次 copy run 的统计快照。
//
// 计数语义：
// - Copied：实际拷贝（dry-run 时为“将会拷贝”）
// - Duplicates：内容哈希命中登记表，跳过
// - Skipped：目标位置已存在同内容文件，跳过
// - Failed：单文件失败（不会中断整批）
type CopyStats struct {
	RunID       string     `json:"run_id"`
	Destination string     `json:"destination"`
	Layout      LayoutMode `json:"layout"`
	DryRun      bool       `json:"dry_run"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Cancelled  bool      `json:"cancelled"`

	Total      int            `json:"total"`
	Copied     int            `json:"copied"`
	CopiedBy   CategoryCounts `json:"copied_by_category"`
	Duplicates int            `json:"duplicates"`
	Skipped    int            `json:"skipped"`
	Failed     int            `json:"failed"`

	BytesCopied int64 `json:"bytes_copied"`

	Failures []Failure `json:"failures"`
}

// Finalize 统一时间为 UTC 并保证切片字段非 nil（JSON 输出稳定）。
func (c *CopyStats) Finalize() {
	c.StartedAt = c.StartedAt.UTC()
	c.FinishedAt = c.FinishedAt.UTC()
	if c.Failures == nil {
		c.Failures = []Failure{}
	}
}

package domain

import "time"

// Category 是文件的类别（由扩展名决定，创建后不再变化）。
type Category string

const (
	CategoryPhoto Category = "photo"
	CategoryVideo Category = "video"
	CategoryPDF   Category = "pdf"
	CategoryOther Category = "other"
)

// LayoutMode 是目标目录的组织方式。
type LayoutMode string

const (
	// LayoutDate 按修改时间组织：<类别>/<年>/<月>/。
	LayoutDate LayoutMode = "date"
	// LayoutSource 按来源根目录组织：<类别>/<来源标识>/。
	LayoutSource LayoutMode = "source"
)

// ValidLayout 校验 layout 取值。
func ValidLayout(m LayoutMode) bool {
	return m == LayoutDate || m == LayoutSource
}

// FileRecord 描述一次扫描得到的候选文件（只做 stat，不读内容）。
//
// 不变量（实现必须遵守）：
// - AbsPath 必须是 clean + absolute
// - Category 由扩展名决定，创建后不可变
// - 扫描阶段不计算内容哈希；哈希由 dedup 在 copy 阶段惰性计算
type FileRecord struct {
	AbsPath  string
	RelPath  string
	Base     string // 不含扩展名的文件名
	Ext      string // ".jpg"（小写）
	Category Category
	Size     int64
	ModTime  time.Time
}

// TypeFilters 表示扫描包含哪些类别。
type TypeFilters struct {
	Photos bool
	Videos bool
	PDFs   bool
}

// Any 判断是否至少选择了一个类别。
func (f TypeFilters) Any() bool {
	return f.Photos || f.Videos || f.PDFs
}

// Allows 判断类别是否在过滤范围内。未知类别（other）永远不包含。
func (f TypeFilters) Allows(c Category) bool {
	switch c {
	case CategoryPhoto:
		return f.Photos
	case CategoryVideo:
		return f.Videos
	case CategoryPDF:
		return f.PDFs
	default:
		return false
	}
}

// Inventory 是一次扫描的有序结果，整体随重新扫描被替换（不做增量合并）。
type Inventory struct {
	Root    string
	Filters TypeFilters
	Files   []FileRecord
}

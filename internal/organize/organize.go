// Package organize 把文件记录映射为目标目录下的相对路径。
// 映射是确定性的：相同的 (记录, 布局, 目标根) 永远得到相同的子路径。
package organize

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/TErenberger/PhotoPuller/internal/domain"
)

// 类别对应的目标子目录。
const (
	folderPhotos    = "Photos"
	folderVideos    = "Videos"
	folderPDFs      = "PDFs"
	folderMedia     = "Media"
	folderDownloads = "Downloads"
)

// Organizer 计算目标相对路径。
type Organizer struct {
	Mode domain.LayoutMode

	// SourceRoot 是扫描根，source 布局用它派生来源标识。
	SourceRoot string

	// ExifDates 开启后，date 布局对照片优先使用 EXIF 拍摄时间（读不到则退回修改时间）。
	// 默认关闭：默认契约是修改时间。
	ExifDates bool
}

// DestinationFor 返回 rec 在目标根下的相对路径。规则按顺序，先命中先生效：
// 1. 源路径任一组件（大小写不敏感）等于 "downloads" → Downloads/<文件名>，无视布局
// 2. date 布局 → <类别目录>/<年>/<两位月>/<文件名>
// 3. source 布局 → <类别目录>/<来源标识>/<文件名>
func (o Organizer) DestinationFor(rec domain.FileRecord) string {
	name := filepath.Base(rec.AbsPath)

	if FromDownloads(rec.AbsPath) {
		return filepath.Join(folderDownloads, name)
	}

	folder := CategoryFolder(rec.Category)

	if o.Mode == domain.LayoutDate {
		ts := o.timestampFor(rec)
		return filepath.Join(folder, fmt.Sprintf("%d", ts.Year()), fmt.Sprintf("%02d", int(ts.Month())), name)
	}

	return filepath.Join(folder, SourceIdentifier(o.SourceRoot), name)
}

// CategoryFolder 返回类别对应的目标子目录名。
func CategoryFolder(c domain.Category) string {
	switch c {
	case domain.CategoryPhoto:
		return folderPhotos
	case domain.CategoryVideo:
		return folderVideos
	case domain.CategoryPDF:
		return folderPDFs
	default:
		return folderMedia
	}
}

// FromDownloads 判断路径是否来自某个 "downloads" 目录（按组件精确匹配，大小写不敏感）。
func FromDownloads(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if strings.EqualFold(part, folderDownloads) {
			return true
		}
	}
	return false
}

// SourceIdentifier 从扫描根派生稳定的短标识：盘符（"C:" → "C"）或根目录名。
func SourceIdentifier(root string) string {
	root = filepath.Clean(strings.TrimSpace(root))
	if root == "" || root == "." {
		return "Unknown"
	}
	if vol := filepath.VolumeName(root); vol != "" {
		return strings.TrimSuffix(vol, ":")
	}
	base := filepath.Base(root)
	if base == string(filepath.Separator) || base == "/" || base == "." {
		return "Root"
	}
	return base
}

func (o Organizer) timestampFor(rec domain.FileRecord) time.Time {
	if o.ExifDates && rec.Category == domain.CategoryPhoto {
		if ts, ok := exifTime(rec.AbsPath); ok {
			return ts
		}
	}
	return rec.ModTime
}

// NumberedName 返回第 n 个消歧名（n>=1）：base_n.ext。
// 调用方（copy 阶段）在自己的循环里递增 n，直到落到一个未占用且内容不同的名字。
func NumberedName(name string, n int) string {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	return fmt.Sprintf("%s_%d%s", stem, n, ext)
}

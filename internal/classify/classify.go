// Package classify 把文件路径/大小映射为类别（photo/video/pdf/other）。
// 纯函数：除调用方已知的 size 外不做任何 I/O。
package classify

import (
	"path/filepath"
	"strings"

	"github.com/TErenberger/PhotoPuller/internal/domain"
)

// ThumbnailMaxBytes 以下的文件视为疑似缩略图/图标，即使扩展名匹配也不纳入结果。
const ThumbnailMaxBytes = 1024

var photoExts = map[string]struct{}{
	".jpg": {}, ".jpeg": {}, ".png": {}, ".gif": {},
	".webp": {}, ".heic": {}, ".heif": {},
}

var videoExts = map[string]struct{}{
	".mp4": {}, ".avi": {}, ".mov": {}, ".wmv": {}, ".flv": {}, ".mkv": {}, ".webm": {},
	".m4v": {}, ".mpg": {}, ".mpeg": {}, ".3gp": {}, ".3g2": {}, ".asf": {}, ".rm": {},
	".rmvb": {}, ".vob": {}, ".ts": {}, ".mts": {}, ".m2ts": {},
}

// Result 是一次分类的结果。
type Result struct {
	Category domain.Category
	// LikelyThumbnail 标记体积过小的文件（<1KB），扫描阶段会排除。
	LikelyThumbnail bool
}

// File 根据扩展名（大小写不敏感）与大小对文件分类。
// 未知扩展名归为 other；other 永远不会被扫描纳入。
func File(path string, size int64) Result {
	return Result{
		Category:        CategoryForExt(filepath.Ext(path)),
		LikelyThumbnail: size < ThumbnailMaxBytes,
	}
}

// CategoryForExt 返回扩展名对应的类别。ext 可以带或不带前导 '.'。
func CategoryForExt(ext string) domain.Category {
	ext = strings.ToLower(ext)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	if _, ok := photoExts[ext]; ok {
		return domain.CategoryPhoto
	}
	if _, ok := videoExts[ext]; ok {
		return domain.CategoryVideo
	}
	if ext == ".pdf" {
		return domain.CategoryPDF
	}
	return domain.CategoryOther
}

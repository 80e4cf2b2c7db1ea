package organize

import (
	"os"
	"time"

	"github.com/rwcarlsen/goexif/exif"
)

// exifTime 尝试读取照片的 EXIF 拍摄时间（DateTimeOriginal，退化到 DateTime）。
// 任何失败都返回 ok=false，由调用方退回修改时间。
func exifTime(path string) (time.Time, bool) {
	f, err := os.Open(path)
	if err != nil {
		return time.Time{}, false
	}
	defer f.Close()

	x, err := exif.Decode(f)
	if err != nil {
		return time.Time{}, false
	}
	ts, err := x.DateTime()
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}

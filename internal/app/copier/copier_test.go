package copier

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/TErenberger/PhotoPuller/internal/dedup"
	"github.com/TErenberger/PhotoPuller/internal/domain"
	"github.com/TErenberger/PhotoPuller/internal/scan"
)

func scanAll(t *testing.T, root string) domain.Inventory {
	t.Helper()
	inv, _, err := scan.Run(context.Background(), root, scan.Options{
		Filters: domain.TypeFilters{Photos: true, Videos: true, PDFs: true},
	})
	if err != nil {
		t.Fatalf("扫描失败：%v", err)
	}
	return inv
}

func write(t *testing.T, path string, content []byte, mod time.Time) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("创建目录失败：%v", err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("写入文件失败：%v", err)
	}
	if !mod.IsZero() {
		if err := os.Chtimes(path, mod, mod); err != nil {
			t.Fatalf("设置修改时间失败：%v", err)
		}
	}
}

func bigJPG(tag byte) []byte {
	b := make([]byte, 2048)
	for i := range b {
		b[i] = tag
	}
	return b
}

func TestRun_DownloadsOverrideAndDuplicate(t *testing.T) {
	src := t.TempDir()
	dest := t.TempDir()
	mod := time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)

	// 两个内容完全相同的文件，其一来自 Downloads。
	content := bigJPG('a')
	write(t, filepath.Join(src, "Downloads", "img1.jpg"), content, mod)
	write(t, filepath.Join(src, "Photos", "2024", "img1.jpg"), content, mod)

	stats, err := Run(context.Background(), scanAll(t, src), Options{
		DestRoot: dest,
		Mode:     domain.LayoutDate,
	})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if stats.Copied != 1 || stats.Duplicates != 1 {
		t.Fatalf("期望 1 copied + 1 duplicate，实际 %+v", stats)
	}
	// Downloads 特例无视布局。
	if _, err := os.Stat(filepath.Join(dest, "Downloads", "img1.jpg")); err != nil {
		t.Fatalf("期望 Dest/Downloads/img1.jpg 存在：%v", err)
	}
	if _, err := os.Stat(filepath.Join(dest, "Photos", "2024", "03", "img1.jpg")); !os.IsNotExist(err) {
		t.Fatalf("重复文件不应再次落盘")
	}
}

func TestRun_DateLayoutAndModTimeRoundTrip(t *testing.T) {
	src := t.TempDir()
	dest := t.TempDir()
	mod := time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)
	write(t, filepath.Join(src, "pics", "img.jpg"), bigJPG('b'), mod)

	stats, err := Run(context.Background(), scanAll(t, src), Options{
		DestRoot: dest,
		Mode:     domain.LayoutDate,
	})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if stats.Copied != 1 || stats.CopiedBy.Photos != 1 {
		t.Fatalf("统计不正确：%+v", stats)
	}

	target := filepath.Join(dest, "Photos", "2024", "03", "img.jpg")
	fi, err := os.Stat(target)
	if err != nil {
		t.Fatalf("目标缺失：%v", err)
	}
	if !fi.ModTime().Truncate(time.Second).Equal(mod) {
		t.Fatalf("修改时间未保留：期望 %v，实际 %v", mod, fi.ModTime())
	}
}

func TestRun_DestInsideSourceRejected(t *testing.T) {
	src := t.TempDir()
	write(t, filepath.Join(src, "img.jpg"), bigJPG('c'), time.Time{})
	inv := scanAll(t, src)

	for _, dest := range []string{src, filepath.Join(src, "backup")} {
		_, err := Run(context.Background(), inv, Options{DestRoot: dest, Mode: domain.LayoutDate})
		if domain.ErrKind(err) != domain.ErrKindInvalidConfig {
			t.Fatalf("dest=%q：期望 invalid_configuration，实际 %v", dest, err)
		}
		// 零文件落盘。
		if entries, _ := os.ReadDir(filepath.Join(src, "backup")); len(entries) != 0 {
			t.Fatalf("不应有任何写入")
		}
	}
}

func TestRun_DestRootUnwritableFailsBeforeAnyCopy(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root 不受权限位约束，造不出不可写目录")
	}
	src := t.TempDir()
	dest := t.TempDir()
	write(t, filepath.Join(src, "img.jpg"), bigJPG('w'), time.Time{})

	if err := os.Chmod(dest, 0o555); err != nil {
		t.Fatalf("设置只读失败：%v", err)
	}
	t.Cleanup(func() { _ = os.Chmod(dest, 0o755) })

	// 目标根本身不可写：整批在任何拷贝之前立即失败。
	_, err := Run(context.Background(), scanAll(t, src), Options{
		DestRoot: dest,
		Mode:     domain.LayoutDate,
	})
	if domain.ErrKind(err) != domain.ErrKindDestWrite {
		t.Fatalf("期望 dest_write_failed，实际 %v", err)
	}

	entries, rerr := os.ReadDir(dest)
	if rerr != nil {
		t.Fatalf("读取目标目录失败：%v", rerr)
	}
	if len(entries) != 0 {
		t.Fatalf("失败前不应有任何写入，目标目录却有 %d 个条目", len(entries))
	}
}

func TestRun_InvalidLayoutRejected(t *testing.T) {
	src := t.TempDir()
	write(t, filepath.Join(src, "img.jpg"), bigJPG('d'), time.Time{})
	_, err := Run(context.Background(), scanAll(t, src), Options{
		DestRoot: t.TempDir(),
		Mode:     domain.LayoutMode("alphabetical"),
	})
	if domain.ErrKind(err) != domain.ErrKindInvalidConfig {
		t.Fatalf("期望 invalid_configuration，实际 %v", err)
	}
}

func TestRun_DryRunParityAndZeroWrites(t *testing.T) {
	src := t.TempDir()
	dest := filepath.Join(t.TempDir(), "dest")
	mod := time.Date(2023, 7, 1, 0, 0, 0, 0, time.UTC)

	content := bigJPG('e')
	write(t, filepath.Join(src, "a", "one.jpg"), content, mod)
	write(t, filepath.Join(src, "b", "two.jpg"), content, mod) // 重复内容
	write(t, filepath.Join(src, "c", "three.mp4"), bigJPG('f'), mod)

	inv := scanAll(t, src)

	dry, err := Run(context.Background(), inv, Options{DestRoot: dest, Mode: domain.LayoutDate, DryRun: true})
	if err != nil {
		t.Fatalf("dry-run 失败：%v", err)
	}
	// dry-run 零写入：目标根连目录都不应被创建。
	if _, err := os.Stat(dest); !os.IsNotExist(err) {
		t.Fatalf("dry-run 不应创建目标目录")
	}

	real, err := Run(context.Background(), inv, Options{DestRoot: dest, Mode: domain.LayoutDate})
	if err != nil {
		t.Fatalf("真实 run 失败：%v", err)
	}

	// 计数完全一致。
	if dry.Copied != real.Copied || dry.Duplicates != real.Duplicates ||
		dry.Skipped != real.Skipped || dry.Failed != real.Failed ||
		dry.CopiedBy != real.CopiedBy {
		t.Fatalf("dry-run 与真实 run 计数不一致：dry=%+v real=%+v", dry, real)
	}
	if dry.Copied != 2 || dry.Duplicates != 1 {
		t.Fatalf("期望 2 copied + 1 duplicate，实际 %+v", dry)
	}
}

func TestRun_IdempotentWithSharedRegistry(t *testing.T) {
	src := t.TempDir()
	dest := t.TempDir()
	write(t, filepath.Join(src, "a.jpg"), bigJPG('g'), time.Time{})
	write(t, filepath.Join(src, "b.mp4"), bigJPG('h'), time.Time{})

	inv := scanAll(t, src)
	reg := dedup.NewRegistry()

	first, err := Run(context.Background(), inv, Options{DestRoot: dest, Mode: domain.LayoutSource, Registry: reg})
	if err != nil {
		t.Fatalf("第一次 run 失败：%v", err)
	}
	if first.Copied != 2 {
		t.Fatalf("期望 2 copied，实际 %+v", first)
	}

	// 带着上次的登记表重跑：第二次零新增拷贝，全部 duplicate-skip。
	second, err := Run(context.Background(), inv, Options{DestRoot: dest, Mode: domain.LayoutSource, Registry: reg})
	if err != nil {
		t.Fatalf("第二次 run 失败：%v", err)
	}
	if second.Copied != 0 || second.Duplicates != 2 {
		t.Fatalf("期望 0 copied + 2 duplicates，实际 %+v", second)
	}
}

func TestRun_CollisionDisambiguatedByNumber(t *testing.T) {
	src := t.TempDir()
	dest := t.TempDir()

	// 目标位置已有同名但内容不同的文件。
	write(t, filepath.Join(src, "Downloads", "img.jpg"), bigJPG('i'), time.Time{})
	write(t, filepath.Join(dest, "Downloads", "img.jpg"), bigJPG('j'), time.Time{})

	stats, err := Run(context.Background(), scanAll(t, src), Options{DestRoot: dest, Mode: domain.LayoutDate})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if stats.Copied != 1 {
		t.Fatalf("期望 1 copied，实际 %+v", stats)
	}
	if _, err := os.Stat(filepath.Join(dest, "Downloads", "img_1.jpg")); err != nil {
		t.Fatalf("期望消歧名 img_1.jpg：%v", err)
	}
}

func TestRun_ExistingIdenticalAtDestSkipped(t *testing.T) {
	src := t.TempDir()
	dest := t.TempDir()

	content := bigJPG('k')
	write(t, filepath.Join(src, "Downloads", "img.jpg"), content, time.Time{})
	write(t, filepath.Join(dest, "Downloads", "img.jpg"), content, time.Time{})

	stats, err := Run(context.Background(), scanAll(t, src), Options{DestRoot: dest, Mode: domain.LayoutDate})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if stats.Copied != 0 || stats.Skipped != 1 {
		t.Fatalf("期望 0 copied + 1 skipped，实际 %+v", stats)
	}
	if _, err := os.Stat(filepath.Join(dest, "Downloads", "img_1.jpg")); !os.IsNotExist(err) {
		t.Fatalf("同内容不应产生消歧拷贝")
	}
}

func TestRun_PerFileFailureDoesNotAbortBatch(t *testing.T) {
	src := t.TempDir()
	dest := t.TempDir()

	write(t, filepath.Join(src, "a_gone.jpg"), bigJPG('l'), time.Time{})
	write(t, filepath.Join(src, "b_ok.jpg"), bigJPG('m'), time.Time{})

	inv := scanAll(t, src)
	// 扫描后、拷贝前源文件消失。
	if err := os.Remove(filepath.Join(src, "a_gone.jpg")); err != nil {
		t.Fatalf("删除失败：%v", err)
	}

	stats, err := Run(context.Background(), inv, Options{DestRoot: dest, Mode: domain.LayoutSource})
	if err != nil {
		t.Fatalf("单文件失败不应中断整批：%v", err)
	}
	if stats.Copied != 1 || stats.Failed != 1 {
		t.Fatalf("期望 1 copied + 1 failed，实际 %+v", stats)
	}
	if len(stats.Failures) != 1 || stats.Failures[0].Kind != domain.ErrKindSourceVanished {
		t.Fatalf("期望 source_vanished 失败记录，实际 %+v", stats.Failures)
	}
}

func TestRun_SeededRegistrySuppressesExistingContent(t *testing.T) {
	src := t.TempDir()
	dest := t.TempDir()

	content := bigJPG('n')
	write(t, filepath.Join(src, "pics", "img.jpg"), content, time.Time{})
	write(t, filepath.Join(dest, "Photos", "old", "renamed.jpg"), content, time.Time{})

	reg := dedup.NewRegistry()
	if _, err := reg.SeedFromTree(context.Background(), dest); err != nil {
		t.Fatalf("种子失败：%v", err)
	}

	stats, err := Run(context.Background(), scanAll(t, src), Options{DestRoot: dest, Mode: domain.LayoutSource, Registry: reg})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if stats.Copied != 0 || stats.Duplicates != 1 {
		t.Fatalf("期望 0 copied + 1 duplicate，实际 %+v", stats)
	}
}

func TestRun_CancelledBetweenFiles(t *testing.T) {
	src := t.TempDir()
	write(t, filepath.Join(src, "a.jpg"), bigJPG('o'), time.Time{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	stats, err := Run(ctx, scanAll(t, src), Options{DestRoot: t.TempDir(), Mode: domain.LayoutDate})
	if err != nil {
		t.Fatalf("取消不应报错：%v", err)
	}
	if !stats.Cancelled || stats.Copied != 0 {
		t.Fatalf("期望 Cancelled=true 零拷贝，实际 %+v", stats)
	}
}

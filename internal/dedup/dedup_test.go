package dedup

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestRegistry_HashFile_SameContentSameHash(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.jpg")
	b := filepath.Join(dir, "sub", "b.jpg")
	write(t, a, "identical-bytes")
	write(t, b, "identical-bytes")

	r := NewRegistry()
	ha, err := r.HashFile(a)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	hb, err := r.HashFile(b)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	// 重复判定只看内容，与文件名/路径无关。
	if ha != hb {
		t.Fatalf("相同内容应得到相同哈希：%q vs %q", ha, hb)
	}

	c := filepath.Join(dir, "c.jpg")
	write(t, c, "different-bytes")
	hc, err := r.HashFile(c)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if hc == ha {
		t.Fatalf("不同内容不应得到相同哈希")
	}
}

func TestRegistry_MarkLookup(t *testing.T) {
	r := NewRegistry()
	if _, ok := r.Lookup("deadbeef"); ok {
		t.Fatalf("空登记表不应命中")
	}
	r.Mark("deadbeef", "/src/a.jpg")
	r.Mark("deadbeef", "/src/b.jpg") // 保留首个路径
	p, ok := r.Lookup("deadbeef")
	if !ok || p != "/src/a.jpg" {
		t.Fatalf("期望命中 /src/a.jpg，实际 %q ok=%v", p, ok)
	}
	if r.Len() != 1 {
		t.Fatalf("期望 1 条，实际 %d", r.Len())
	}
}

func TestRegistry_HashFile_MissingFile(t *testing.T) {
	r := NewRegistry()
	if _, err := r.HashFile(filepath.Join(t.TempDir(), "absent.jpg")); err == nil {
		t.Fatalf("不存在的文件应报错")
	}
}

func TestRegistry_SeedFromTree(t *testing.T) {
	dest := t.TempDir()
	write(t, filepath.Join(dest, "Photos", "2024", "03", "img.jpg"), "already-there")
	write(t, filepath.Join(dest, "Downloads", "other.jpg"), "something-else")

	r := NewRegistry()
	n, err := r.SeedFromTree(context.Background(), dest)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if n != 2 || r.Len() != 2 {
		t.Fatalf("期望登记 2 条，实际 n=%d len=%d", n, r.Len())
	}

	// 种子生效：相同内容的新源文件应被判为重复。
	src := filepath.Join(t.TempDir(), "img_copy.jpg")
	write(t, src, "already-there")
	h, err := r.HashFile(src)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if _, ok := r.Lookup(h); !ok {
		t.Fatalf("种子后的相同内容应命中登记表")
	}
}

func write(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("创建目录失败：%v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("写入文件失败：%v", err)
	}
}

package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/TErenberger/PhotoPuller/internal/domain"
)

func TestLoadEffective_NoConfigFile_CLIOnly(t *testing.T) {
	cwd := t.TempDir()
	eff, err := LoadEffective(cwd, CLIArgs{Source: "/src", Destination: "/dst"})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	// 未指定类型：默认全选。
	if !(eff.Filters.Photos && eff.Filters.Videos && eff.Filters.PDFs) {
		t.Fatalf("期望默认全选，实际 %+v", eff.Filters)
	}
	if eff.OrganizeBy != domain.LayoutDate {
		t.Fatalf("期望默认 date，实际 %q", eff.OrganizeBy)
	}
	if eff.DryRun {
		t.Fatalf("期望默认非 dry-run")
	}
}

func TestLoadEffective_MissingSourceOrDest(t *testing.T) {
	cwd := t.TempDir()
	if _, err := LoadEffective(cwd, CLIArgs{Destination: "/dst"}); Code(err) != ErrCodeMissingSource {
		t.Fatalf("期望 %s，实际 %v", ErrCodeMissingSource, err)
	}
	if _, err := LoadEffective(cwd, CLIArgs{Source: "/src"}); Code(err) != ErrCodeMissingDest {
		t.Fatalf("期望 %s，实际 %v", ErrCodeMissingDest, err)
	}
}

func TestLoadEffective_CLIOverridesConfig(t *testing.T) {
	cwd := t.TempDir()
	writeConfig(t, cwd, map[string]any{
		"source":      "/cfg/src",
		"destination": "/cfg/dst",
		"organize_by": "source",
		"photos":      true,
		"videos":      false,
		"pdfs":        false,
		"dry_run":     true,
	})

	eff, err := LoadEffective(cwd, CLIArgs{
		Source:        "/cli/src",
		OrganizeBy:    "date",
		OrganizeBySet: true,
		DryRun:        false,
		DryRunSet:     true,
	})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.Source != "/cli/src" {
		t.Fatalf("CLI source 应覆盖配置：%q", eff.Source)
	}
	if eff.Destination != "/cfg/dst" {
		t.Fatalf("未覆盖的字段来自配置：%q", eff.Destination)
	}
	if eff.OrganizeBy != domain.LayoutDate {
		t.Fatalf("CLI organize_by 应覆盖配置")
	}
	// --dry-run=false 必须能覆盖配置里的 dry_run=true。
	if eff.DryRun {
		t.Fatalf("CLI dry_run=false 应覆盖配置")
	}
	if !eff.Filters.Photos || eff.Filters.Videos || eff.Filters.PDFs {
		t.Fatalf("类型过滤应来自配置：%+v", eff.Filters)
	}
}

func TestLoadEffective_InvalidOrganizeBy(t *testing.T) {
	cwd := t.TempDir()
	writeConfig(t, cwd, map[string]any{
		"source": "/s", "destination": "/d", "organize_by": "alphabetical",
	})
	if _, err := LoadEffective(cwd, CLIArgs{}); Code(err) != ErrCodeInvalid {
		t.Fatalf("期望 config_invalid，实际 %v", err)
	}
}

func TestLoadEffective_ExcludeUnion(t *testing.T) {
	cwd := t.TempDir()
	writeConfig(t, cwd, map[string]any{
		"source": "/s", "destination": "/d",
		"exclude_dirs": []string{"/a"},
	})
	eff, err := LoadEffective(cwd, CLIArgs{Exclude: []string{"/b"}})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if !reflect.DeepEqual(eff.ExcludeDirs, []string{"/a", "/b"}) {
		t.Fatalf("期望并集 [/a /b]，实际 %v", eff.ExcludeDirs)
	}
}

func TestSaveExclusions_RoundTrip(t *testing.T) {
	cwd := t.TempDir()
	writeConfig(t, cwd, map[string]any{
		"source": "/s", "destination": "/d", "organize_by": "source",
	})

	if err := SaveExclusions(cwd, []string{"/private", "/tmp-stuff"}); err != nil {
		t.Fatalf("保存失败：%v", err)
	}

	eff, err := LoadEffective(cwd, CLIArgs{})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if !reflect.DeepEqual(eff.ExcludeDirs, []string{"/private", "/tmp-stuff"}) {
		t.Fatalf("排除列表未持久化：%v", eff.ExcludeDirs)
	}
	// 其余字段保留。
	if eff.OrganizeBy != domain.LayoutSource {
		t.Fatalf("其他字段应保留：%q", eff.OrganizeBy)
	}
}

func writeConfig(t *testing.T, cwd string, m map[string]any) {
	t.Helper()
	b, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("marshal 失败：%v", err)
	}
	if err := os.WriteFile(filepath.Join(cwd, FileName), b, 0o644); err != nil {
		t.Fatalf("写入配置失败：%v", err)
	}
}

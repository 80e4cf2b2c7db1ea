// Package exclude 维护目录排除规则：内置的系统/缓存/临时目录规则（不可移除），
// 加上用户的前缀排除集合（可增删清空）。
package exclude

import (
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// 内置排除的路径组件（命中即排除整棵子树）。
// 匹配方式与原始行为一致：组件包含任一 token（大小写不敏感）。
var builtinTokens = []string{
	"windows", "program files", "program files (x86)", "programdata",
	"appdata", "temp", "tmp", "$recycle.bin", "system volume information",
	"pagefile.sys", "hiberfil.sys", "swapfile.sys", "recovery",
	"perflogs", "msocache", "intel", "amd", "nvidia",
	"internet explorer", "microsoft edge", "chrome", "firefox",
	"opera", "safari", "cache", "cookies", "history",
	"temporary internet files", "content.ie5", "local settings",
	"application data", "roaming", "local", "node_modules",
}

// 按文件名排除的缩略图数据库。
var thumbnailNames = map[string]struct{}{
	"thumbs.db":   {},
	"ehthumbs.db": {},
}

// BuiltinExcluded 判断相对扫描根的路径是否命中内置规则。
//
// 只看根以下的组件：扫描根自身的位置（例如測試里的临时目录）不应让整棵树被排除。
// 规则：
// - 任一组件包含内置 token（大小写不敏感）
// - 任一组件以 '.' 开头（隐藏目录/文件）
// - 文件名是缩略图数据库（thumbs.db / ehthumbs.db）
func BuiltinExcluded(rel string) bool {
	if rel == "" || rel == "." {
		return false
	}
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		if part == "" || part == "." {
			continue
		}
		lower := strings.ToLower(part)
		if _, ok := thumbnailNames[lower]; ok {
			return true
		}
		if strings.HasPrefix(part, ".") {
			return true
		}
		for _, tok := range builtinTokens {
			if strings.Contains(lower, tok) {
				return true
			}
		}
	}
	return false
}

// Set 是用户排除集合（进程级、可变、显式传入 Scanner，而非环境全局）。
//
// 约定：扫描进行中不保证增删生效到当前这次扫描；调用方负责串行化。
type Set struct {
	mu sync.RWMutex
	// normalized(clean+小写) → 原始 clean 路径
	user map[string]string
}

// NewSet 创建空的排除集合。
func NewSet() *Set {
	return &Set{user: make(map[string]string)}
}

// Add 加入一个排除目录。重复加入是 no-op。
func (s *Set) Add(folder string) {
	folder = filepath.Clean(strings.TrimSpace(folder))
	if folder == "" || folder == "." {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user[normalize(folder)] = folder
}

// Remove 移除一个排除目录。移除不存在的目录是 no-op。
func (s *Set) Remove(folder string) {
	folder = filepath.Clean(strings.TrimSpace(folder))
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.user, normalize(folder))
}

// Clear 清空用户排除集合。
func (s *Set) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = make(map[string]string)
}

// List 返回排序后的排除目录（原始形式）。
func (s *Set) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.user))
	for _, v := range s.user {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// Len 返回用户排除条目数。
func (s *Set) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.user)
}

// IsExcluded 判断路径是否被排除：内置规则（按 rel 组件）或用户前缀（按 abs，大小写不敏感）。
// 排除优先于包含：命中即排除，与类别过滤无关。
func (s *Set) IsExcluded(abs, rel string) bool {
	if BuiltinExcluded(rel) {
		return true
	}
	return s.UserExcluded(abs)
}

// UserExcluded 只检查用户排除前缀。
func (s *Set) UserExcluded(abs string) bool {
	p := normalize(filepath.Clean(abs))
	s.mu.RLock()
	defer s.mu.RUnlock()
	for base := range s.user {
		if isUnder(p, base) {
			return true
		}
	}
	return false
}

// normalize 生成用于比较的形态（大小写折叠；大小写敏感文件系统上可能误伤，
// 但与原始行为保持一致，排除宁可多不可少）。
func normalize(p string) string {
	return strings.ToLower(filepath.ToSlash(p))
}

func isUnder(path, base string) bool {
	if path == base {
		return true
	}
	return strings.HasPrefix(path, base+"/")
}

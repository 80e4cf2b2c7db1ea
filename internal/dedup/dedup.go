// Package dedup 提供基于内容哈希的重复检测：每次 copy run 一个登记表，运行结束即丢弃。
package dedup

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// Registry 登记本次 copy run 已处理文件的内容哈希。
//
// 约束：
// - 哈希是惰性的：只有进入 copy 候选阶段的文件才会被读取（被过滤/排除的树永远不产生哈希成本）
// - 使用 MD5（128 位）做整文件摘要；哈希碰撞按真重复处理，这是文档化的已接受风险
// - 登记表不持久化；跨 run 的去重需要调用方用 SeedFromTree 预先登记目标目录
type Registry struct {
	mu sync.Mutex
	// hash → 首个登记该内容的路径
	byHash map[string]string
	// absPath → hash（同一 run 内避免重复读取同一文件）
	byPath map[string]string
}

// NewRegistry 创建空登记表。
func NewRegistry() *Registry {
	return &Registry{
		byHash: make(map[string]string),
		byPath: make(map[string]string),
	}
}

// HashFile 计算（或取缓存的）整文件 MD5，十六进制小写。
func (r *Registry) HashFile(path string) (string, error) {
	r.mu.Lock()
	if h, ok := r.byPath[path]; ok {
		r.mu.Unlock()
		return h, nil
	}
	r.mu.Unlock()

	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	sum := hex.EncodeToString(h.Sum(nil))

	r.mu.Lock()
	r.byPath[path] = sum
	r.mu.Unlock()
	return sum, nil
}

// Lookup 查询哈希是否已登记；命中时返回首个登记路径。
func (r *Registry) Lookup(hash string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byHash[hash]
	return p, ok
}

// Mark 登记一个哈希（重复 Mark 保留首个路径）。
func (r *Registry) Mark(hash, path string) {
	if hash == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byHash[hash]; !ok {
		r.byHash[hash] = path
	}
}

// Len 返回已登记的哈希数。
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byHash)
}

// SeedFromTree 遍历 root 下的普通文件并登记其内容哈希，用于对“目标目录已有内容”
// 做跨 run 的去重。不可读的文件直接跳过（种子是尽力而为）。
// 返回成功登记的文件数。
func (r *Registry) SeedFromTree(ctx context.Context, root string) (int, error) {
	seeded := 0
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, werr error) error {
		if ctx.Err() != nil {
			return fs.SkipAll
		}
		if werr != nil {
			return nil
		}
		if d.IsDir() || d.Type()&fs.ModeSymlink != 0 {
			return nil
		}
		h, herr := r.HashFile(path)
		if herr != nil {
			return nil
		}
		r.Mark(h, path)
		seeded++
		return nil
	})
	if err != nil {
		return seeded, err
	}
	return seeded, nil
}

// Package storage 负责照片字节的落盘与对象存储。
// 拍照产生的字节先进入本地暂存区（staged:// 引用），
// 提交时才上传为持久对象并换取公开 URL。
package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/FleetLink/FleetLink/internal/common/logger"
)

// BlobStore 持久对象存储
type BlobStore interface {
	// Upload 上传字节，返回可入库的持久引用（公开 URL）。
	Upload(ctx context.Context, path string, data []byte) (string, error)
	// Remove 按引用删除对象，尽力而为，返回首个错误。
	Remove(ctx context.Context, refs []string) error
}

// StagedScheme 暂存引用前缀
const StagedScheme = "staged://"

// IsStagedRef 判断引用是否指向暂存区
func IsStagedRef(ref string) bool {
	return strings.HasPrefix(ref, StagedScheme)
}

// ---------------- 本地磁盘对象存储（开发环境） ----------------

// LocalStore 本地磁盘实现：文件写入 dir，引用为 baseURL/path。
type LocalStore struct {
	dir     string
	baseURL string
}

// NewLocalStore 创建本地对象存储
func NewLocalStore(dir, baseURL string) (*LocalStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("local store dir is empty")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create local store dir: %w", err)
	}
	return &LocalStore{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Upload 落盘并返回公开 URL
func (s *LocalStore) Upload(ctx context.Context, path string, data []byte) (string, error) {
	if s == nil {
		return "", fmt.Errorf("local store is not initialized")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	path = strings.TrimLeft(filepath.ToSlash(path), "/")
	if path == "" {
		return "", fmt.Errorf("object path is empty")
	}

	full := filepath.Join(s.dir, filepath.FromSlash(path))
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return "", fmt.Errorf("failed to create object dir: %w", err)
	}
	if err := os.WriteFile(full, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write object %s: %w", path, err)
	}
	return s.baseURL + "/" + path, nil
}

// Remove 按 URL 删除本地对象
func (s *LocalStore) Remove(ctx context.Context, refs []string) error {
	if s == nil {
		return fmt.Errorf("local store is not initialized")
	}
	var firstErr error
	for _, ref := range refs {
		if !strings.HasPrefix(ref, s.baseURL+"/") {
			continue
		}
		rel := strings.TrimPrefix(ref, s.baseURL+"/")
		full := filepath.Join(s.dir, filepath.FromSlash(rel))
		if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
			if firstErr == nil {
				firstErr = fmt.Errorf("failed to remove object %s: %w", rel, err)
			}
		}
	}
	return firstErr
}

// ---------------- 暂存区 ----------------

// Staging 拍照暂存区：字节落在本地目录，引用为 staged://<uuid>。
// 会话放弃（进程重启、超时）留下的文件由 Sweep 回收。
type Staging struct {
	mu  sync.Mutex
	dir string
}

// NewStaging 创建暂存区
func NewStaging(dir string) (*Staging, error) {
	if dir == "" {
		return nil, fmt.Errorf("staging dir is empty")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create staging dir: %w", err)
	}
	return &Staging{dir: dir}, nil
}

// Put 写入暂存文件，返回 staged:// 引用。
func (s *Staging) Put(data []byte) (string, error) {
	if s == nil {
		return "", fmt.Errorf("staging is not initialized")
	}
	id := uuid.NewString()
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.WriteFile(filepath.Join(s.dir, id), data, 0644); err != nil {
		return "", fmt.Errorf("failed to stage photo: %w", err)
	}
	return StagedScheme + id, nil
}

// Get 读取暂存文件
func (s *Staging) Get(ref string) ([]byte, error) {
	if s == nil {
		return nil, fmt.Errorf("staging is not initialized")
	}
	id, err := s.idFromRef(ref)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(s.dir, id))
	if err != nil {
		return nil, fmt.Errorf("failed to read staged photo %s: %w", ref, err)
	}
	return data, nil
}

// Delete 删除暂存文件，文件不存在不算错误。
func (s *Staging) Delete(ref string) error {
	if s == nil {
		return fmt.Errorf("staging is not initialized")
	}
	id, err := s.idFromRef(ref)
	if err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(s.dir, id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete staged photo %s: %w", ref, err)
	}
	return nil
}

// Sweep 回收超过 maxAge 的暂存文件，返回回收数量。
func (s *Staging) Sweep(maxAge time.Duration) (int, error) {
	if s == nil {
		return 0, fmt.Errorf("staging is not initialized")
	}
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read staging dir: %w", err)
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, e.Name())); err != nil {
			logger.Get().Warnf("staging sweep: failed to remove %s: %v", e.Name(), err)
			continue
		}
		removed++
	}
	return removed, nil
}

func (s *Staging) idFromRef(ref string) (string, error) {
	if !IsStagedRef(ref) {
		return "", fmt.Errorf("not a staged reference: %s", ref)
	}
	id := strings.TrimPrefix(ref, StagedScheme)
	// 防目录穿越
	if id == "" || strings.ContainsAny(id, "/\\.") {
		return "", fmt.Errorf("invalid staged reference: %s", ref)
	}
	return id, nil
}

// Package photo 负责照片从拍摄暂存到持久化的流水线。
package photo

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/FleetLink/FleetLink/internal/common/logger"
	"github.com/FleetLink/FleetLink/internal/common/middleware"
	"github.com/FleetLink/FleetLink/internal/storage"
)

// ErrPhotoUpload 上传失败（整个提交应当中止）
var ErrPhotoUpload = errors.New("photo upload failed")

// Pipeline 照片流水线：暂存 → 上传 → 持久引用。
type Pipeline struct {
	staging *storage.Staging
	store   storage.BlobStore
	breaker *middleware.CircuitBreaker
}

// NewPipeline 创建照片流水线
func NewPipeline(staging *storage.Staging, store storage.BlobStore) *Pipeline {
	return &Pipeline{
		staging: staging,
		store:   store,
		breaker: middleware.NewCircuitBreaker(5, 30*time.Second),
	}
}

// Stage 暂存拍摄字节，返回 staged:// 临时引用。
func (p *Pipeline) Stage(data []byte) (string, error) {
	if p == nil || p.staging == nil {
		return "", fmt.Errorf("photo pipeline is not initialized")
	}
	if len(data) == 0 {
		return "", fmt.Errorf("photo data is empty")
	}
	return p.staging.Put(data)
}

// IsTransient 判断引用是否还未持久化
func (p *Pipeline) IsTransient(ref string) bool {
	return storage.IsStagedRef(ref)
}

// Persist 把一个检查项的照片列表逐张持久化：
// 暂存引用读出字节、上传、替换为持久 URL；已持久的引用原样保留。
// 顺序处理，任一上传失败立即返回 ErrPhotoUpload。
// 成功上传后的暂存文件即刻清理。
func (p *Pipeline) Persist(ctx context.Context, actor, itemID string, photos []string) ([]string, error) {
	if p == nil || p.store == nil {
		return nil, fmt.Errorf("photo pipeline is not initialized")
	}

	out := make([]string, 0, len(photos))
	for _, ref := range photos {
		if !storage.IsStagedRef(ref) {
			out = append(out, ref)
			continue
		}

		data, err := p.staging.Get(ref)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPhotoUpload, err)
		}

		objectPath := fmt.Sprintf("%s/%s/%d_%04d.jpg", actor, itemID, time.Now().UnixNano(), rand.Intn(10000))
		var durable string
		err = p.breaker.Execute(func() error {
			var uploadErr error
			durable, uploadErr = p.store.Upload(ctx, objectPath, data)
			return uploadErr
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPhotoUpload, err)
		}

		if delErr := p.staging.Delete(ref); delErr != nil {
			logger.Get().Warnf("failed to clean staged photo %s: %v", ref, delErr)
		}
		out = append(out, durable)
	}
	return out, nil
}

// RemoveDurable 尽力删除持久对象（编辑路径替换旧照片时），
// 失败只记日志，不影响调用方。
func (p *Pipeline) RemoveDurable(ctx context.Context, refs []string) {
	if p == nil || p.store == nil || len(refs) == 0 {
		return
	}
	durable := make([]string, 0, len(refs))
	for _, ref := range refs {
		if ref == "" || storage.IsStagedRef(ref) {
			continue
		}
		durable = append(durable, ref)
	}
	if len(durable) == 0 {
		return
	}
	if err := p.store.Remove(ctx, durable); err != nil {
		logger.Get().Warnf("failed to remove %d replaced photos: %v", len(durable), err)
	}
}

// DiscardStaged 丢弃一个暂存引用（用户删除未提交的照片）
func (p *Pipeline) DiscardStaged(ref string) {
	if p == nil || p.staging == nil || !storage.IsStagedRef(ref) {
		return
	}
	if err := p.staging.Delete(ref); err != nil {
		logger.Get().Warnf("failed to discard staged photo %s: %v", ref, err)
	}
}

// HasTransient 判断照片列表里是否还有未持久化的引用
func HasTransient(photos []string) bool {
	for _, ref := range photos {
		if strings.HasPrefix(ref, storage.StagedScheme) {
			return true
		}
	}
	return false
}

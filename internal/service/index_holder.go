package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"propguru-go/internal/repository"
	"propguru-go/internal/retrieval"
	"propguru-go/pkg/embedding"
	"propguru-go/pkg/log"
)

// IndexHolder 持有当前生效的检索索引。
// 目录导入完成后调用 Invalidate；下一次查询从目录数据源重建一个新索引，再整体替换，
// 正在使用旧索引的查询不受影响。
type IndexHolder struct {
	embedder embedding.Client
	source   repository.ListingRepository

	current atomic.Pointer[retrieval.Index]
	stale   atomic.Bool
	// rebuildMu 保证同一时刻只有一个重建
	rebuildMu sync.Mutex
}

// NewIndexHolder 创建 IndexHolder，首次查询时构建索引。
func NewIndexHolder(embedder embedding.Client, source repository.ListingRepository) *IndexHolder {
	h := &IndexHolder{embedder: embedder, source: source}
	h.stale.Store(true)
	return h
}

// Invalidate 标记索引已过期。
func (h *IndexHolder) Invalidate() {
	h.stale.Store(true)
	log.Info("[IndexHolder] 索引已标记为过期")
}

// Current 返回当前索引，必要时重建。
// 重建失败但已有旧索引时继续使用旧索引；没有任何索引时返回错误。
func (h *IndexHolder) Current(ctx context.Context) (*retrieval.Index, error) {
	if idx := h.current.Load(); idx != nil && !h.stale.Load() {
		return idx, nil
	}

	h.rebuildMu.Lock()
	defer h.rebuildMu.Unlock()

	// 等锁期间可能已被其他请求重建
	if idx := h.current.Load(); idx != nil && !h.stale.Load() {
		return idx, nil
	}

	// 先清除过期标记：重建期间再次 Invalidate 会重新置位，下次查询会再重建
	h.stale.Store(false)
	idx, err := h.rebuild(ctx)
	if err != nil {
		h.stale.Store(true)
		if old := h.current.Load(); old != nil {
			log.Warnf("[IndexHolder] 重建索引失败，继续使用旧索引 (%d 条): %v", old.Len(), err)
			return old, nil
		}
		return nil, err
	}
	h.current.Store(idx)
	return idx, nil
}

func (h *IndexHolder) rebuild(ctx context.Context) (*retrieval.Index, error) {
	records, err := h.source.ListRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list catalog records: %w", err)
	}
	idx := retrieval.NewIndex(h.embedder)
	if err := idx.Add(ctx, records); err != nil {
		return nil, fmt.Errorf("failed to build retrieval index: %w", err)
	}
	log.Infof("[IndexHolder] 检索索引重建完成, 记录数: %d", idx.Len())
	return idx, nil
}

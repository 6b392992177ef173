package retrieval

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"propguru-go/internal/model"
	"propguru-go/pkg/embedding"
	"propguru-go/pkg/log"
)

// ErrPairingMismatch 表示向量数量与记录数量不一致，属于不变量被破坏，整批放弃。
var ErrPairingMismatch = errors.New("retrieval: embedding count does not match record count")

// entry 把记录和它的向量放在一起，二者不可能错位。
type entry struct {
	record model.Record
	vector []float32
}

// Hit 是一条原始检索命中，Position 为插入顺序。
type Hit struct {
	Position   int
	Record     model.Record
	Similarity float64
}

// Index 是进程内的检索索引，读多写少。
// Add/Clear 持写锁，查询持读锁，查询不会看到写了一半的数据。
type Index struct {
	mu       sync.RWMutex
	embedder embedding.Client
	entries  []entry
}

// NewIndex 创建空索引。索引与查询必须使用同一个 embedder。
func NewIndex(embedder embedding.Client) *Index {
	return &Index{embedder: embedder}
}

// Add 投影并向量化一批记录后追加到索引。
// 向量化在加锁之前完成；任一步失败则整批不提交。
func (x *Index) Add(ctx context.Context, records []model.Record) error {
	if len(records) == 0 {
		return nil
	}

	texts := make([]string, 0, len(records))
	positions := make([]int, 0, len(records))
	for i, r := range records {
		text := Project(r)
		if text == "" {
			continue
		}
		texts = append(texts, text)
		positions = append(positions, i)
	}

	// 空投影没有信号，直接用零向量
	vectors := make([][]float32, len(records))
	for i := range vectors {
		vectors[i] = make([]float32, x.embedder.Dimensions())
	}
	if len(texts) > 0 {
		embedded, err := x.embedder.CreateEmbeddings(ctx, texts)
		if err != nil {
			return fmt.Errorf("embed %d records: %w", len(texts), err)
		}
		if len(embedded) != len(texts) {
			log.Errorf("[Index] 向量数量与记录数量不一致, records: %d, vectors: %d", len(texts), len(embedded))
			return fmt.Errorf("%w: %d records, %d vectors", ErrPairingMismatch, len(texts), len(embedded))
		}
		for i, pos := range positions {
			vectors[pos] = embedded[i]
		}
	}

	batch := make([]entry, len(records))
	for i, r := range records {
		batch[i] = entry{record: r, vector: vectors[i]}
	}

	x.mu.Lock()
	x.entries = append(x.entries, batch...)
	x.mu.Unlock()
	log.Infof("[Index] 已添加 %d 条记录", len(batch))
	return nil
}

// Clear 清空索引。
func (x *Index) Clear() {
	x.mu.Lock()
	x.entries = nil
	x.mu.Unlock()
}

// Len 返回索引中的记录数。
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.entries)
}

// embedQuery 向量化查询文本，空白查询直接返回零向量。
func (x *Index) embedQuery(ctx context.Context, query string) ([]float32, error) {
	if strings.TrimSpace(query) == "" {
		return make([]float32, x.embedder.Dimensions()), nil
	}
	qv, err := x.embedder.CreateEmbedding(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	return qv, nil
}

// snapshot 在读锁内取出当前全部条目。条目写入后不再修改，Add 只在末尾追加，
// 所以锁外读取快照是安全的。
func (x *Index) snapshot() []entry {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.entries[:len(x.entries):len(x.entries)]
}

// score 计算查询与同一份快照中每条记录的原始余弦相似度，按插入顺序返回。
// 索引为空时不调用 embedder，直接返回空结果。
func (x *Index) score(ctx context.Context, query string) ([]Hit, error) {
	entries := x.snapshot()
	if len(entries) == 0 {
		return []Hit{}, nil
	}
	qv, err := x.embedQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	hits := make([]Hit, len(entries))
	for i, e := range entries {
		hits[i] = Hit{Position: i, Record: e.record, Similarity: Cosine(qv, e.vector)}
	}
	return hits, nil
}

// Search 返回原始相似度最高的 topK 条命中，同分按插入顺序。
func (x *Index) Search(ctx context.Context, query string, topK int) ([]Hit, error) {
	if topK <= 0 {
		return []Hit{}, nil
	}
	hits, err := x.score(ctx, query)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Similarity > hits[j].Similarity
	})
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

// Cosine 计算余弦相似度。长度不一致或任一向量范数为 0 时返回 0；负值截断为 0。
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if sim < 0 {
		return 0
	}
	return sim
}

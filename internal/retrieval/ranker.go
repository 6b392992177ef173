package retrieval

import (
	"context"
	"sort"
	"strings"

	"propguru-go/internal/lexicon"
	"propguru-go/internal/model"
	"propguru-go/pkg/log"
)

// 加权系数，按固定顺序相乘，可叠加。
const (
	BoostTypeExact     = 2.5
	BoostTypeSubstring = 1.5
	BoostLocationMatch = 2.0
	BoostLocationQuery = 2.3
)

// Ranker 在原始余弦相似度之上叠加类型和地点加权，再做 top_k 与阈值过滤。
type Ranker struct {
	lex       *lexicon.Lexicon
	threshold float64
}

// NewRanker 创建排序器，threshold 来自配置 retrieval.similarity_threshold。
func NewRanker(lex *lexicon.Lexicon, threshold float64) *Ranker {
	return &Ranker{lex: lex, threshold: threshold}
}

// Rank 对索引中的全部记录打分排序。
// 结果按加权后的分数降序（同分保持插入顺序），先截取 topK，再丢弃低于阈值的记录。
// 空索引或 topK <= 0 返回空结果而不是错误。
func (r *Ranker) Rank(ctx context.Context, index *Index, query string, f lexicon.Features, topK int) ([]model.RankedResult, error) {
	if topK <= 0 {
		return []model.RankedResult{}, nil
	}

	hits, err := index.score(ctx, query)
	if err != nil {
		log.Errorf("[Ranker] 查询向量化失败, query: %q, error: %v", query, err)
		return nil, err
	}
	if len(hits) == 0 {
		return []model.RankedResult{}, nil
	}
	for i := range hits {
		hits[i].Similarity = r.Boost(hits[i].Similarity, hits[i].Record, query, f)
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Similarity > hits[j].Similarity
	})
	if len(hits) > topK {
		hits = hits[:topK]
	}

	results := make([]model.RankedResult, 0, len(hits))
	for _, h := range hits {
		if h.Similarity < r.threshold {
			continue
		}
		results = append(results, model.RankedResult{Record: h.Record, SimilarityScore: h.Similarity})
	}
	log.Infof("[Ranker] 查询 %q 命中 %d 条记录 (top_k: %d, threshold: %.2f)", query, len(results), topK, r.threshold)
	return results, nil
}

// Boost 按固定顺序对一条记录的相似度施加加权。每个系数都 >= 1，加权只会提高分数。
func (r *Ranker) Boost(sim float64, rec model.Record, query string, f lexicon.Features) float64 {
	lowerQuery := strings.ToLower(query)

	if recType, ok := rec.Get(model.AttrType); ok {
		canonical, valid := r.lex.CanonicalType(recType)
		switch {
		case f.Type != nil && valid && canonical == f.Type.Key:
			sim *= BoostTypeExact
		case strings.Contains(lowerQuery, strings.ToLower(recType)):
			sim *= BoostTypeSubstring
		}
	}

	if loc, ok := rec.Get(model.AttrLocation); ok {
		switch {
		case f.Location != nil && f.Location.FoundIn(loc):
			sim *= BoostLocationMatch
		case strings.Contains(lowerQuery, strings.ToLower(loc)):
			sim *= BoostLocationQuery
		}
	}
	return sim
}

package retrieval

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"propguru-go/internal/lexicon"
	"propguru-go/internal/model"
	"propguru-go/pkg/embedding"
)

// fakeEmbedder 按文本返回预设向量，未预设的文本返回 fallback。
type fakeEmbedder struct {
	vectors  map[string][]float32
	fallback []float32
	err      error
	drop     int
}

func (f *fakeEmbedder) Dimensions() int { return len(f.fallback) }

func (f *fakeEmbedder) CreateEmbedding(ctx context.Context, text string) ([]float32, error) {
	vs, err := f.CreateEmbeddings(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vs[0], nil
}

func (f *fakeEmbedder) CreateEmbeddings(_ context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, 0, len(texts))
	for _, t := range texts {
		if v, ok := f.vectors[t]; ok {
			out = append(out, v)
			continue
		}
		out = append(out, f.fallback)
	}
	return out[:len(out)-f.drop], nil
}

func rec(id string, attrs map[model.Attribute]string) model.Record {
	return model.NewRecord(id, attrs)
}

func TestProject_WeightsAndOrder(t *testing.T) {
	r := rec("1", map[model.Attribute]string{
		model.AttrType:     "condo",
		model.AttrLocation: "Sukhumvit",
		model.AttrPrice:    "3,500,000",
		model.AttrStation:  "BTS Asok",
		model.AttrMall:     model.AbsentSentinel,
	})
	assert.Equal(t, "condo condo condo Sukhumvit Sukhumvit BTS Asok 3,500,000", Project(r))
}

func TestProject_EveryAttributeCounts(t *testing.T) {
	priceOnly := rec("1", map[model.Attribute]string{model.AttrPrice: "3,500,000"})
	require.False(t, priceOnly.IsEmpty())
	assert.Equal(t, "3,500,000", Project(priceOnly))

	imageOnly := rec("2", map[model.Attribute]string{model.AttrImage: "https://img.example/1.jpg"})
	assert.Equal(t, "https://img.example/1.jpg", Project(imageOnly))

	for _, a := range []model.Attribute{
		model.AttrType, model.AttrProject, model.AttrPrice, model.AttrStatus, model.AttrImage, model.AttrLocation,
		model.AttrSchool, model.AttrStation, model.AttrMall, model.AttrHospital, model.AttrAirport,
	} {
		r := rec(string(a), map[model.Attribute]string{a: "x"})
		assert.NotEmpty(t, Project(r), "attribute %s", a)
	}
}

func TestProject_AbsentAttributes(t *testing.T) {
	assert.Equal(t, "", Project(rec("1", nil)))
	assert.Equal(t, "", Project(rec("2", map[model.Attribute]string{model.AttrType: "ไม่มี"})))

	p := Project(rec("3", map[model.Attribute]string{model.AttrProject: "The Base", model.AttrSchool: "ไม่มี"}))
	assert.Equal(t, "The Base", p)
	assert.NotContains(t, p, model.AbsentSentinel)
}

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, Cosine([]float32{1, 2}, []float32{2, 4}), 1e-9)
	assert.Equal(t, 0.0, Cosine([]float32{0, 0}, []float32{1, 1}))
	assert.Equal(t, 0.0, Cosine([]float32{1, 0}, []float32{-1, 0}), "negative similarity is clamped")
	assert.Equal(t, 0.0, Cosine([]float32{1}, []float32{1, 0}))
	assert.Equal(t, 0.0, Cosine(nil, nil))
}

func TestIndex_AddIsAtomicOnEmbedderFailure(t *testing.T) {
	emb := &fakeEmbedder{fallback: []float32{1, 0}}
	idx := NewIndex(emb)
	require.NoError(t, idx.Add(context.Background(), []model.Record{rec("1", map[model.Attribute]string{model.AttrType: "condo"})}))

	emb.err = errors.New("backend down")
	err := idx.Add(context.Background(), []model.Record{
		rec("2", map[model.Attribute]string{model.AttrType: "house"}),
		rec("3", map[model.Attribute]string{model.AttrType: "land"}),
	})
	require.Error(t, err)
	assert.Equal(t, 1, idx.Len())
}

func TestIndex_PairingMismatchCommitsNothing(t *testing.T) {
	emb := &fakeEmbedder{fallback: []float32{1, 0}, drop: 1}
	idx := NewIndex(emb)
	err := idx.Add(context.Background(), []model.Record{
		rec("1", map[model.Attribute]string{model.AttrType: "condo"}),
		rec("2", map[model.Attribute]string{model.AttrType: "house"}),
	})
	assert.ErrorIs(t, err, ErrPairingMismatch)
	assert.Equal(t, 0, idx.Len())
}

func TestIndex_EmptyProjectionGetsZeroVector(t *testing.T) {
	emb := &fakeEmbedder{fallback: []float32{1, 0}}
	idx := NewIndex(emb)
	require.NoError(t, idx.Add(context.Background(), []model.Record{rec("empty", nil)}))

	hits, err := idx.Search(context.Background(), "anything", 3)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, 0.0, hits[0].Similarity)
}

func TestIndex_SearchBoundsAndClear(t *testing.T) {
	idx := NewIndex(embedding.NewHashClient(16))
	hits, err := idx.Search(context.Background(), "condo near BTS", 5)
	require.NoError(t, err)
	assert.Empty(t, hits)

	var records []model.Record
	for i := 0; i < 10; i++ {
		records = append(records, rec(fmt.Sprint(i), map[model.Attribute]string{model.AttrProject: fmt.Sprintf("project %d", i)}))
	}
	require.NoError(t, idx.Add(context.Background(), records))
	assert.Equal(t, 10, idx.Len())

	for _, k := range []int{-1, 0, 1, 3, 10, 50} {
		hits, err := idx.Search(context.Background(), "project", k)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(hits), max(k, 0))
	}

	idx.Clear()
	assert.Equal(t, 0, idx.Len())
	hits, err = idx.Search(context.Background(), "project", 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestRank_ScenarioBothBoostsApply(t *testing.T) {
	hash := embedding.NewHashClient(16)
	idx := NewIndex(hash)
	r := rec("1", map[model.Attribute]string{
		model.AttrType:     "condo",
		model.AttrLocation: "Sukhumvit",
		model.AttrPrice:    "3,500,000",
	})
	require.NoError(t, idx.Add(context.Background(), []model.Record{r}))

	query := "condo Sukhumvit"
	f := lexicon.Default().Extract(query)
	require.NotNil(t, f.Type)
	require.NotNil(t, f.Location)
	assert.Equal(t, "condo", f.Type.Key)
	assert.Equal(t, "Sukhumvit", f.Location.Name)

	results, err := NewRanker(lexicon.Default(), 0).Rank(context.Background(), idx, query, f, 5)
	require.NoError(t, err)
	require.Len(t, results, 1)

	qv, _ := hash.CreateEmbedding(context.Background(), query)
	rv, _ := hash.CreateEmbedding(context.Background(), Project(r))
	base := Cosine(qv, rv)
	require.Greater(t, base, 0.0)
	assert.InDelta(t, base*BoostTypeExact*BoostLocationMatch, results[0].SimilarityScore, 1e-9)
}

func TestRank_EmptyIndexAndNonPositiveTopK(t *testing.T) {
	idx := NewIndex(embedding.NewHashClient(16))
	ranker := NewRanker(lexicon.Default(), 0.1)
	f := lexicon.Default().Extract("condo near BTS")

	results, err := ranker.Rank(context.Background(), idx, "condo near BTS", f, 5)
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)

	require.NoError(t, idx.Add(context.Background(), []model.Record{rec("1", map[model.Attribute]string{model.AttrType: "condo"})}))
	results, err = ranker.Rank(context.Background(), idx, "condo", f, 0)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestRank_EmptyIndexSkipsEmbedder(t *testing.T) {
	idx := NewIndex(&fakeEmbedder{fallback: []float32{1, 0}, err: errors.New("backend down")})
	results, err := NewRanker(lexicon.Default(), 0).Rank(context.Background(), idx, "condo", lexicon.Features{}, 5)
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestIndex_ScoreUsesOneSnapshot(t *testing.T) {
	idx := NewIndex(&fakeEmbedder{fallback: []float32{1, 0}})
	require.NoError(t, idx.Add(context.Background(), []model.Record{rec("1", map[model.Attribute]string{model.AttrType: "condo"})}))

	snap := idx.snapshot()
	require.NoError(t, idx.Add(context.Background(), []model.Record{rec("2", map[model.Attribute]string{model.AttrType: "land"})}))
	require.Len(t, snap, 1)
	assert.Equal(t, "1", snap[0].record.ID)

	hits, err := idx.score(context.Background(), "condo")
	require.NoError(t, err)
	assert.Len(t, hits, 2)
}

func TestRank_ThresholdFiltersLowScores(t *testing.T) {
	emb := &fakeEmbedder{
		fallback: []float32{0, 1},
		vectors: map[string][]float32{
			"q":     {1, 0},
			"x x x": {1, 0},
		},
	}
	idx := NewIndex(emb)
	require.NoError(t, idx.Add(context.Background(), []model.Record{
		rec("high", map[model.Attribute]string{model.AttrType: "x"}),
		rec("low", map[model.Attribute]string{model.AttrType: "y"}),
	}))

	results, err := NewRanker(lexicon.Default(), 0.5).Rank(context.Background(), idx, "q", lexicon.Features{}, 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "high", results[0].Record.ID)
	for _, r := range results {
		assert.GreaterOrEqual(t, r.SimilarityScore, 0.5)
	}
}

func TestRank_TiesKeepInsertionOrder(t *testing.T) {
	emb := &fakeEmbedder{fallback: []float32{1, 1}}
	idx := NewIndex(emb)
	var records []model.Record
	for i := 0; i < 6; i++ {
		records = append(records, rec(fmt.Sprintf("r%d", i), map[model.Attribute]string{model.AttrProject: fmt.Sprintf("p%d", i)}))
	}
	require.NoError(t, idx.Add(context.Background(), records))

	results, err := NewRanker(lexicon.Default(), 0).Rank(context.Background(), idx, "q", lexicon.Features{}, 4)
	require.NoError(t, err)
	require.Len(t, results, 4)
	for i, r := range results {
		assert.Equal(t, fmt.Sprintf("r%d", i), r.Record.ID)
	}
}

func TestBoost_Rules(t *testing.T) {
	ranker := NewRanker(lexicon.Default(), 0)
	lex := lexicon.Default()

	cases := []struct {
		name   string
		record model.Record
		query  string
		want   float64
	}{
		{
			name:   "thai type maps to canonical",
			record: rec("1", map[model.Attribute]string{model.AttrType: "คอนโด"}),
			query:  "condo please",
			want:   BoostTypeExact,
		},
		{
			name:   "non-whitelisted type found in query",
			record: rec("2", map[model.Attribute]string{model.AttrType: "Penthouse"}),
			query:  "penthouse in the city",
			want:   BoostTypeSubstring,
		},
		{
			name:   "record location found in query",
			record: rec("3", map[model.Attribute]string{model.AttrLocation: "Bang Sue"}),
			query:  "somewhere near bang sue",
			want:   BoostLocationQuery,
		},
		{
			name:   "gazetteer alias inside record location",
			record: rec("4", map[model.Attribute]string{model.AttrLocation: "ถนนสุขุมวิท 24"}),
			query:  "sukhumvit",
			want:   BoostLocationMatch,
		},
		{
			name:   "no match",
			record: rec("5", map[model.Attribute]string{model.AttrType: "land", model.AttrLocation: "Chiang Mai"}),
			query:  "condo sukhumvit",
			want:   1,
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := ranker.Boost(1, c.record, c.query, lex.Extract(c.query))
			assert.InDelta(t, c.want, got, 1e-9)
		})
	}
}

func TestBoost_NeverLowersScore(t *testing.T) {
	ranker := NewRanker(lexicon.Default(), 0)
	records := []model.Record{
		rec("1", map[model.Attribute]string{model.AttrType: "condo", model.AttrLocation: "Sukhumvit"}),
		rec("2", map[model.Attribute]string{model.AttrType: "house", model.AttrLocation: "Silom"}),
		rec("3", nil),
	}
	queries := []string{"condo Sukhumvit", "house", "", "บ้านเดี่ยว สีลม"}
	for _, q := range queries {
		f := lexicon.Default().Extract(q)
		for _, r := range records {
			for _, sim := range []float64{0, 0.1, 0.5, 1} {
				assert.GreaterOrEqual(t, ranker.Boost(sim, r, q, f), sim)
			}
		}
	}
}

func TestRank_ConcurrentReadsDuringAdd(t *testing.T) {
	idx := NewIndex(embedding.NewHashClient(16))
	ranker := NewRanker(lexicon.Default(), 0)

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				r := rec(fmt.Sprintf("%d-%d", w, i), map[model.Attribute]string{
					model.AttrType:     "condo",
					model.AttrLocation: strings.Repeat("x", i+1),
				})
				assert.NoError(t, idx.Add(context.Background(), []model.Record{r}))
			}
		}(w)
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				results, err := ranker.Rank(context.Background(), idx, "condo", lexicon.Features{}, 3)
				assert.NoError(t, err)
				assert.LessOrEqual(t, len(results), 3)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 80, idx.Len())
}

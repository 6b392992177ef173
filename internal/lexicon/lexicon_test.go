package lexicon

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"propguru-go/internal/model"
)

func TestExtractType(t *testing.T) {
	l := Default()
	cases := []struct {
		query string
		want  string
		ok    bool
	}{
		{"condo Sukhumvit", "condo", true},
		{"อยากได้คอนโดใกล้ BTS", "condo", true},
		{"Looking for a TOWNHOUSE near the lake", "townhome", true},
		{"บ้านเดี่ยว ลาดพร้าว", "house", true},
		{"shophouse for rent", "commercial", true},
		{"moving to thailand soon", "", false},
		{"", "", false},
	}
	for _, c := range cases {
		got, ok := l.ExtractType(c.query)
		assert.Equal(t, c.ok, ok, c.query)
		assert.Equal(t, c.want, got.Key, c.query)
	}
}

func TestExtractLocation(t *testing.T) {
	l := Default()

	p, ok := l.ExtractLocation("condo Sukhumvit")
	require.True(t, ok)
	assert.Equal(t, "Sukhumvit", p.Name)

	p, ok = l.ExtractLocation("คอนโดแถวทองหล่อ")
	require.True(t, ok)
	assert.Equal(t, "Thonglor", p.Name)

	p, ok = l.ExtractLocation("near rama ix please")
	require.True(t, ok)
	assert.Equal(t, "Rama 9", p.Name)

	_, ok = l.ExtractLocation("going on a safari")
	assert.False(t, ok, "alias should match whole words only")
}

func TestExtract_Features(t *testing.T) {
	f := Default().Extract("condo Sukhumvit")
	require.NotNil(t, f.Type)
	require.NotNil(t, f.Location)
	assert.Equal(t, "condo", f.Type.Key)
	assert.Equal(t, "Sukhumvit", f.Location.Name)

	f = Default().Extract("hello")
	assert.Nil(t, f.Type)
	assert.Nil(t, f.Location)
}

func TestCanonicalType(t *testing.T) {
	l := Default()
	cases := [][2]string{
		{"condo", "condo"},
		{"Condo", "condo"},
		{"คอนโด", "condo"},
		{"ทาวน์โฮม", "townhome"},
		{"บ้านเดี่ยว", "house"},
	}
	for _, c := range cases {
		got, ok := l.CanonicalType(c[0])
		assert.True(t, ok, c[0])
		assert.Equal(t, c[1], got, c[0])
	}
	for _, v := range []string{"castle", ""} {
		_, ok := l.CanonicalType(v)
		assert.False(t, ok, v)
	}
}

func TestPlace_FoundIn(t *testing.T) {
	p := Place{Name: "Sukhumvit", Aliases: []string{"สุขุมวิท"}}
	assert.True(t, p.FoundIn("SUKHUMVIT 24, Khlong Toei"))
	assert.True(t, p.FoundIn("ถนนสุขุมวิท"))
	assert.False(t, p.FoundIn("Silom"))
}

func TestClassify_Priority(t *testing.T) {
	l := Default()
	cases := []struct {
		query string
		lang  model.Language
		want  model.Sentiment
	}{
		{"I love this but I am worried about the flood", model.LangEnglish, model.SentimentPositive},
		{"terrible service, I need help", model.LangEnglish, model.SentimentNegative},
		{"I am worried about flooding", model.LangEnglish, model.SentimentConcerned},
		{"urgent, I need a place", model.LangEnglish, model.SentimentNeedy},
		{"interested in a condo", model.LangEnglish, model.SentimentInterested},
		{"condo Sukhumvit", model.LangEnglish, model.SentimentNeutral},
		{"กังวลเรื่องน้ำท่วม", model.LangThai, model.SentimentConcerned},
		{"สนใจคอนโด", model.LangThai, model.SentimentInterested},
		{"", model.LangThai, model.SentimentNeutral},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, l.Classify(c.query, c.lang), c.query)
	}
}

func TestClassify_UsesLanguageKeywords(t *testing.T) {
	// 英文关键词不参与泰文分类
	assert.Equal(t, model.SentimentNeutral, Default().Classify("I love it", model.LangThai))
}

func TestAnalyzeInterests(t *testing.T) {
	got := Default().AnalyzeInterests([]string{
		"condo in Sukhumvit with a pool",
		"คอนโดสุขุมวิท งบ 3 ล้าน",
		"maybe a townhouse near Bang Na",
	})

	assert.Equal(t, []string{"Sukhumvit", "Bang Na"}, got[InterestLocation])
	assert.Equal(t, []string{"condo", "townhome"}, got[InterestPropertyType])
	assert.Equal(t, []string{"ล้าน", "งบ"}, got[InterestPriceRange])
	assert.Equal(t, []string{"pool"}, got[InterestFeatures])
}

func TestAnalyzeInterests_Empty(t *testing.T) {
	got := Default().AnalyzeInterests(nil)
	assert.Len(t, got, 4)
	for _, v := range got {
		assert.Empty(t, v)
	}
}

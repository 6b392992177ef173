package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRecord_DropsAbsentValues(t *testing.T) {
	r := NewRecord("r1", map[Attribute]string{
		AttrType:     "คอนโด",
		AttrLocation: "  Sukhumvit ",
		AttrSchool:   AbsentSentinel,
		AttrMall:     "",
		AttrAirport:  "N/A",
	})

	assert.True(t, r.Has(AttrType))
	assert.Equal(t, "Sukhumvit", r.Value(AttrLocation))
	for _, a := range []Attribute{AttrSchool, AttrMall, AttrAirport} {
		_, ok := r.Get(a)
		assert.False(t, ok, "attribute %s should be absent", a)
	}
	assert.Len(t, r.Attributes(), 2)
}

func TestRecord_JSONKeepsOnlyPresentAttributes(t *testing.T) {
	r := NewRecord("r1", map[Attribute]string{AttrType: "condo", AttrMall: "ไม่มี"})
	data, err := json.Marshal(RankedResult{Record: r, SimilarityScore: 0.5})
	require.NoError(t, err)
	assert.NotContains(t, string(data), "mall")

	var back RankedResult
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, "r1", back.Record.ID)
	assert.Equal(t, "condo", back.Record.Value(AttrType))
	assert.InDelta(t, 0.5, back.SimilarityScore, 1e-9)
}

func TestListing_ToRecordSkipsNullColumns(t *testing.T) {
	l := NewListing("up-1", map[Attribute]string{
		AttrType:    "condo",
		AttrPrice:   "3,500,000",
		AttrStation: "ไม่มี",
	})
	l.ID = 42

	assert.Nil(t, l.Station)
	r := l.ToRecord()
	assert.Equal(t, "listing-42", r.ID)
	assert.Equal(t, "3,500,000", r.Value(AttrPrice))
	assert.False(t, r.Has(AttrStation))
}

func TestParseStyleAndLanguage(t *testing.T) {
	assert.Equal(t, StyleCasual, ParseStyle(" Casual "))
	assert.Equal(t, StyleFormal, ParseStyle("sarcastic"))
	assert.Equal(t, StyleFormal, ParseStyle(""))

	assert.Equal(t, LangEnglish, ParseLanguage("english"))
	assert.Equal(t, LangThai, ParseLanguage("thai"))
	assert.Equal(t, LangThai, ParseLanguage("fr"))
}

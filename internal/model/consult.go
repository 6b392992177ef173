package model

import "strings"

// Style 是咨询语气。
type Style string

const (
	StyleFormal       Style = "formal"
	StyleCasual       Style = "casual"
	StyleFriendly     Style = "friendly"
	StyleProfessional Style = "professional"
)

// Styles 按固定顺序列出所有支持的语气。
var Styles = []Style{StyleFormal, StyleCasual, StyleFriendly, StyleProfessional}

// StyleLabels 是各语气的泰文名称，供前端展示。
var StyleLabels = map[Style]string{
	StyleFormal:       "ทางการ",
	StyleCasual:       "ทั่วไป",
	StyleFriendly:     "เป็นกันเอง",
	StyleProfessional: "มืออาชีพ",
}

// ParseStyle 解析语气，未知值回退到 formal，从不报错。
func ParseStyle(s string) Style {
	st := Style(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := StyleLabels[st]; ok {
		return st
	}
	return StyleFormal
}

// Language 是回复语言，只有两种取值。
type Language string

const (
	// LangThai 是主语言。
	LangThai    Language = "th"
	LangEnglish Language = "en"
)

// ParseLanguage 解析语言，不支持的值回退到主语言。
func ParseLanguage(s string) Language {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "en", "eng", "english":
		return LangEnglish
	default:
		return LangThai
	}
}

// Sentiment 是查询的情绪类别。
type Sentiment string

const (
	SentimentPositive   Sentiment = "positive"
	SentimentNegative   Sentiment = "negative"
	SentimentConcerned  Sentiment = "concerned"
	SentimentNeedy      Sentiment = "needy"
	SentimentInterested Sentiment = "interested"
	SentimentNeutral    Sentiment = "neutral"
)

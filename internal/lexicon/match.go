package lexicon

import (
	"strings"
	"unicode"
)

// normalize 小写化，并把标点等分隔符替换为单个空格。
// 泰文的元音符号、声调符号属于 Mark 类别，必须保留。
func normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	space := true
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r) {
			b.WriteRune(r)
			space = false
			continue
		}
		if !space {
			b.WriteByte(' ')
			space = true
		}
	}
	return strings.TrimSpace(b.String())
}

// padded 返回两端带空格的归一化文本，便于整词匹配。
func padded(s string) string {
	return " " + normalize(s) + " "
}

func hasThai(s string) bool {
	for _, r := range s {
		if unicode.Is(unicode.Thai, r) {
			return true
		}
	}
	return false
}

// containsTerm 在已 padded 的文本中查找关键词。
// 拉丁文字按整词匹配（"land" 不应命中 "thailand"）；泰文没有词间空格，只能按子串匹配。
func containsTerm(paddedText, term string) bool {
	t := normalize(term)
	if t == "" {
		return false
	}
	if hasThai(t) {
		return strings.Contains(paddedText, t)
	}
	return strings.Contains(paddedText, " "+t+" ")
}

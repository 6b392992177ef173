package lexicon

import "propguru-go/internal/model"

// Classify 按 SentimentOrder 的优先级检测查询情绪。
// 这是优先级列表而不是多标签：同时包含多个类别的关键词时只返回优先级最高的一个。
func (l *Lexicon) Classify(query string, lang model.Language) model.Sentiment {
	text := padded(query)
	for _, s := range SentimentOrder {
		for _, kw := range l.Keywords(Category(s), lang) {
			if containsTerm(text, kw) {
				return s
			}
		}
	}
	return model.SentimentNeutral
}

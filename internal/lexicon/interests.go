package lexicon

import "propguru-go/internal/model"

// 兴趣分析的类别名，与接口返回的 JSON 键一致。
const (
	InterestLocation     = "location"
	InterestPropertyType = "property_type"
	InterestPriceRange   = "price_range"
	InterestFeatures     = "features"
)

// AnalyzeInterests 统计用户历史提问中出现过的地点、物业类型、价格和设施关键词。
// 地点与类型返回规范名称，价格与设施返回命中的原词；每个类别内去重并保持首次出现的顺序。
func (l *Lexicon) AnalyzeInterests(queries []string) map[string][]string {
	interests := map[string][]string{
		InterestLocation:     {},
		InterestPropertyType: {},
		InterestPriceRange:   {},
		InterestFeatures:     {},
	}
	seen := make(map[string]map[string]struct{}, len(interests))
	add := func(category, term string) {
		if seen[category] == nil {
			seen[category] = make(map[string]struct{})
		}
		if _, ok := seen[category][term]; ok {
			return
		}
		seen[category][term] = struct{}{}
		interests[category] = append(interests[category], term)
	}

	for _, q := range queries {
		text := padded(q)
		for _, p := range l.places {
			for _, a := range append([]string{p.Name}, p.Aliases...) {
				if containsTerm(text, a) {
					add(InterestLocation, p.Name)
					break
				}
			}
		}
		for _, t := range l.types {
			for _, term := range append([]string{t.Key}, t.Terms...) {
				if containsTerm(text, term) {
					add(InterestPropertyType, t.Key)
					break
				}
			}
		}
		for _, lang := range []model.Language{model.LangThai, model.LangEnglish} {
			for _, kw := range l.Keywords(CategoryPriceRange, lang) {
				if containsTerm(text, kw) {
					add(InterestPriceRange, kw)
				}
			}
			for _, kw := range l.Keywords(CategoryFeatures, lang) {
				if containsTerm(text, kw) {
					add(InterestFeatures, kw)
				}
			}
		}
	}
	return interests
}

package lexicon

// Features 是从查询中抽取的结构化信号，nil 表示未检测到。
type Features struct {
	Type     *PropertyType
	Location *Place
}

// Extract 同时抽取物业类型与地点。
func (l *Lexicon) Extract(query string) Features {
	var f Features
	if t, ok := l.ExtractType(query); ok {
		f.Type = &t
	}
	if p, ok := l.ExtractLocation(query); ok {
		f.Location = &p
	}
	return f
}

// ExtractType 按 typeOrder 依次检查各类型的同义词，第一个命中的类型胜出。
func (l *Lexicon) ExtractType(query string) (PropertyType, bool) {
	text := padded(query)
	for _, t := range l.types {
		if containsTerm(text, t.Key) {
			return t, true
		}
		for _, term := range t.Terms {
			if containsTerm(text, term) {
				return t, true
			}
		}
	}
	return PropertyType{}, false
}

// ExtractLocation 在查询中按整词查找地名词典中的地点。
func (l *Lexicon) ExtractLocation(query string) (Place, bool) {
	text := padded(query)
	for _, p := range l.places {
		if containsTerm(text, p.Name) {
			return p, true
		}
		for _, a := range p.Aliases {
			if containsTerm(text, a) {
				return p, true
			}
		}
	}
	return Place{}, false
}

// CanonicalType 把记录里的类型值映射到规范类型。
// 值必须与某个同义词完全一致（忽略大小写与标点），ok 为 false 表示不在白名单中。
func (l *Lexicon) CanonicalType(value string) (string, bool) {
	key, ok := l.typeIndex[normalize(value)]
	return key, ok
}

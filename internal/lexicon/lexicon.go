// Package lexicon 维护查询理解所需的关键词表。
//
// 所有关键词放在同一张表里：category → language → keywords。
// 情绪分类、物业类型抽取、地点抽取和兴趣分析都只是按不同的类别顺序查这张表。
package lexicon

import (
	"strings"

	"propguru-go/internal/model"
)

// Category 是关键词表的类别键。
type Category string

const (
	typePrefix  = "type:"
	placePrefix = "place:"

	CategoryPriceRange Category = "price_range"
	CategoryFeatures   Category = "features"
)

// Table 是关键词表。
type Table map[Category]map[model.Language][]string

// SentimentOrder 是情绪类别的优先级顺序，先命中者胜出。
var SentimentOrder = []model.Sentiment{
	model.SentimentPositive,
	model.SentimentNegative,
	model.SentimentConcerned,
	model.SentimentNeedy,
	model.SentimentInterested,
}

// typeOrder 是物业类型的匹配顺序。各类型的同义词并不互斥（泛称 "บ้าน"/"house"
// 会出现在很多描述里），因此顺序固定：具体类型在前，宽泛类型在后。
var typeOrder = []string{"condo", "townhome", "house", "apartment", "land", "commercial"}

// placeOrder 是地名词典的匹配顺序。
var placeOrder = []string{
	"Sukhumvit", "Asok", "Thonglor", "Ekkamai", "On Nut", "Bang Na",
	"Silom", "Sathorn", "Ratchada", "Rama 9", "Lat Phrao", "Ramkhamhaeng",
	"Phaya Thai", "Ari", "Chatuchak", "Nonthaburi",
}

var defaultTable = Table{
	Category(model.SentimentPositive): {
		model.LangThai:    {"ชอบ", "ดีมาก", "สวย", "ประทับใจ", "เยี่ยม", "ถูกใจ"},
		model.LangEnglish: {"love", "great", "perfect", "excellent", "happy", "wonderful", "amazing", "awesome", "nice"},
	},
	Category(model.SentimentNegative): {
		model.LangThai:    {"แย่", "ผิดหวัง", "โกรธ", "เสียใจ", "ห่วย", "แพงเกินไป"},
		model.LangEnglish: {"bad", "hate", "terrible", "disappointed", "awful", "angry", "worst", "too expensive"},
	},
	Category(model.SentimentConcerned): {
		model.LangThai:    {"กังวล", "เป็นห่วง", "กลัว", "ไม่แน่ใจ", "ปลอดภัย", "น้ำท่วม"},
		model.LangEnglish: {"worried", "worry", "concerned", "afraid", "risk", "safe", "unsure", "flood"},
	},
	Category(model.SentimentNeedy): {
		model.LangThai:    {"ต้องการ", "ด่วน", "จำเป็น", "ช่วย", "รีบ"},
		model.LangEnglish: {"need", "urgent", "asap", "must", "immediately", "help"},
	},
	Category(model.SentimentInterested): {
		model.LangThai:    {"สนใจ", "อยาก", "มองหา", "กำลังหา", "แนะนำ"},
		model.LangEnglish: {"interested", "looking for", "want", "searching", "recommend", "curious"},
	},

	typePrefix + "condo": {
		model.LangThai:    {"คอนโด", "คอนโดมิเนียม"},
		model.LangEnglish: {"condo", "condominium"},
	},
	typePrefix + "townhome": {
		model.LangThai:    {"ทาวน์โฮม", "ทาวน์เฮาส์"},
		model.LangEnglish: {"townhome", "townhouse", "town home"},
	},
	typePrefix + "house": {
		model.LangThai:    {"บ้านเดี่ยว", "บ้าน"},
		model.LangEnglish: {"detached house", "single house", "house", "villa"},
	},
	typePrefix + "apartment": {
		model.LangThai:    {"อพาร์ทเม้นท์", "อพาร์ตเมนต์"},
		model.LangEnglish: {"apartment", "flat"},
	},
	typePrefix + "land": {
		model.LangThai:    {"ที่ดิน"},
		model.LangEnglish: {"land", "plot"},
	},
	typePrefix + "commercial": {
		model.LangThai:    {"อาคารพาณิชย์", "ตึกแถว"},
		model.LangEnglish: {"commercial", "shophouse", "office"},
	},

	placePrefix + "Sukhumvit":    {model.LangThai: {"สุขุมวิท"}, model.LangEnglish: {"sukhumvit"}},
	placePrefix + "Asok":         {model.LangThai: {"อโศก"}, model.LangEnglish: {"asok", "asoke"}},
	placePrefix + "Thonglor":     {model.LangThai: {"ทองหล่อ"}, model.LangEnglish: {"thonglor", "thong lo"}},
	placePrefix + "Ekkamai":      {model.LangThai: {"เอกมัย"}, model.LangEnglish: {"ekkamai"}},
	placePrefix + "On Nut":       {model.LangThai: {"อ่อนนุช"}, model.LangEnglish: {"on nut", "onnut"}},
	placePrefix + "Bang Na":      {model.LangThai: {"บางนา"}, model.LangEnglish: {"bang na", "bangna"}},
	placePrefix + "Silom":        {model.LangThai: {"สีลม"}, model.LangEnglish: {"silom"}},
	placePrefix + "Sathorn":      {model.LangThai: {"สาทร"}, model.LangEnglish: {"sathorn", "sathon"}},
	placePrefix + "Ratchada":     {model.LangThai: {"รัชดา"}, model.LangEnglish: {"ratchada", "ratchadaphisek"}},
	placePrefix + "Rama 9":       {model.LangThai: {"พระราม 9"}, model.LangEnglish: {"rama 9", "rama ix"}},
	placePrefix + "Lat Phrao":    {model.LangThai: {"ลาดพร้าว"}, model.LangEnglish: {"lat phrao", "ladprao"}},
	placePrefix + "Ramkhamhaeng": {model.LangThai: {"รามคำแหง"}, model.LangEnglish: {"ramkhamhaeng"}},
	placePrefix + "Phaya Thai":   {model.LangThai: {"พญาไท"}, model.LangEnglish: {"phaya thai"}},
	placePrefix + "Ari":          {model.LangThai: {"อารีย์"}, model.LangEnglish: {"ari"}},
	placePrefix + "Chatuchak":    {model.LangThai: {"จตุจักร"}, model.LangEnglish: {"chatuchak"}},
	placePrefix + "Nonthaburi":   {model.LangThai: {"นนทบุรี"}, model.LangEnglish: {"nonthaburi"}},

	CategoryPriceRange: {
		model.LangThai:    {"ล้าน", "แสน", "ราคา", "งบ", "บาท"},
		model.LangEnglish: {"million", "budget", "price", "baht", "thb"},
	},
	CategoryFeatures: {
		model.LangThai:    {"สระว่ายน้ำ", "ฟิตเนส", "รปภ", "ที่จอดรถ", "ห้องนอน", "ห้องน้ำ", "ตารางวา", "ตารางเมตร"},
		model.LangEnglish: {"pool", "gym", "fitness", "security", "parking", "bedroom", "bathroom", "sqm"},
	},
}

// Lexicon 是只读的关键词表，构建后可被多个 goroutine 并发使用。
type Lexicon struct {
	table  Table
	types  []PropertyType
	places []Place
	// typeIndex: 归一化后的同义词 → 规范类型
	typeIndex map[string]string
}

// PropertyType 是一个规范物业类型及其全部同义词。
type PropertyType struct {
	Key   string
	Terms []string
}

// Place 是地名词典中的一个地点。
type Place struct {
	Name    string
	Aliases []string
}

// FoundIn 判断地点（名称或任一别名）是否作为子串出现在 text 中，忽略大小写。
func (p Place) FoundIn(text string) bool {
	lower := strings.ToLower(text)
	if strings.Contains(lower, strings.ToLower(p.Name)) {
		return true
	}
	for _, a := range p.Aliases {
		if strings.Contains(lower, strings.ToLower(a)) {
			return true
		}
	}
	return false
}

var std = New(defaultTable)

// Default 返回内置词表。
func Default() *Lexicon {
	return std
}

// New 基于给定的表构建 Lexicon。
func New(table Table) *Lexicon {
	l := &Lexicon{table: table, typeIndex: make(map[string]string)}
	for _, key := range typeOrder {
		terms := l.allLanguages(Category(typePrefix + key))
		if len(terms) == 0 {
			continue
		}
		l.types = append(l.types, PropertyType{Key: key, Terms: terms})
		l.typeIndex[normalize(key)] = key
		for _, t := range terms {
			l.typeIndex[normalize(t)] = key
		}
	}
	for _, name := range placeOrder {
		aliases := l.allLanguages(Category(placePrefix + name))
		if len(aliases) == 0 {
			continue
		}
		l.places = append(l.places, Place{Name: name, Aliases: aliases})
	}
	return l
}

// Keywords 返回某类别在某语言下的关键词。
func (l *Lexicon) Keywords(c Category, lang model.Language) []string {
	return l.table[c][lang]
}

// allLanguages 先主语言后次语言，拼接一个类别的关键词。
func (l *Lexicon) allLanguages(c Category) []string {
	var out []string
	for _, lang := range []model.Language{model.LangThai, model.LangEnglish} {
		out = append(out, l.table[c][lang]...)
	}
	return out
}

// Types 按匹配顺序返回所有规范物业类型。
func (l *Lexicon) Types() []PropertyType {
	return l.types
}

// Places 按匹配顺序返回地名词典。
func (l *Lexicon) Places() []Place {
	return l.places
}

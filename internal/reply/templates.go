// Package reply 负责把检索结果变成回复文本：模板引擎、可选的大模型生成，以及保证回复非空的降级链。
package reply

import (
	"fmt"
	"strings"

	"propguru-go/internal/model"
)

// bundle 是某个语气在某种语言下的一组模板。
// intro 和 noResults 中的 %s 为用户原始查询。
type bundle struct {
	intro     string
	outro     string
	noResults string
	apology   string
}

var templates = map[model.Style]map[model.Language]bundle{
	model.StyleFormal: {
		model.LangThai: {
			intro:     "สำหรับคำถามเกี่ยวกับ '%s' ทางเรามีข้อมูลอสังหาริมทรัพย์ที่น่าสนใจดังนี้:\n\n",
			outro:     "\n\nท่านสนใจทรัพย์สินรายการใดเป็นพิเศษหรือไม่ ทางเรายินดีให้ข้อมูลเพิ่มเติมครับ",
			noResults: "ขออภัยครับ ทางเราไม่พบข้อมูลอสังหาริมทรัพย์ที่ตรงกับคำถาม '%s' กรุณาลองใช้คำค้นหาอื่น หรือติดต่อเจ้าหน้าที่เพื่อขอข้อมูลเพิ่มเติม",
			apology:   "ขออภัยครับ เกิดข้อผิดพลาดในการประมวลผลคำตอบ กรุณาลองใหม่อีกครั้ง",
		},
		model.LangEnglish: {
			intro:     "Regarding your question about '%s', we have the following properties of interest:\n\n",
			outro:     "\n\nIs there any property you are particularly interested in? We would be glad to provide more information.",
			noResults: "We apologize, we could not find any property matching '%s'. Please try different keywords or contact our staff for more information.",
			apology:   "We apologize, an error occurred while preparing the answer. Please try again.",
		},
	},
	model.StyleCasual: {
		model.LangThai: {
			intro:     "เกี่ยวกับ '%s' ที่คุณถามมา เรามีตัวเลือกเหล่านี้นะ:\n\n",
			outro:     "\n\nสนใจตัวไหนเป็นพิเศษมั้ย จะได้บอกรายละเอียดเพิ่มเติมให้",
			noResults: "เราไม่เจอข้อมูลที่คุณถามเกี่ยวกับ '%s' ลองถามใหม่ด้วยคำอื่นได้นะ หรือจะติดต่อเจ้าหน้าที่ก็ได้ครับ",
			apology:   "โทษที ตอนนี้ระบบตอบไม่ได้ ลองใหม่อีกทีนะ",
		},
		model.LangEnglish: {
			intro:     "About '%s' you asked, here are some options:\n\n",
			outro:     "\n\nLike any of these? Tell me and I'll share more details.",
			noResults: "Couldn't find anything for '%s'. Try asking another way, or reach out to our staff.",
			apology:   "Sorry, something went wrong on our side. Try again in a bit.",
		},
	},
	model.StyleFriendly: {
		model.LangThai: {
			intro:     "สำหรับ '%s' ที่คุณสนใจ มีตัวเลือกน่าสนใจเหล่านี้เลยค่ะ:\n\n",
			outro:     "\n\nชอบตัวไหนเป็นพิเศษบ้างคะ บอกได้เลยนะ เดี๋ยวเราช่วยดูข้อมูลเพิ่มให้ค่ะ",
			noResults: "โอ้! ดูเหมือนว่าเรายังไม่มีข้อมูลเกี่ยวกับ '%s' เลย ลองถามใหม่แบบอื่นไหมคะ หรือจะคุยกับพนักงานของเราโดยตรงก็ได้นะคะ",
			apology:   "ขอโทษนะคะ ตอนนี้ระบบมีปัญหานิดหน่อย ลองถามใหม่อีกครั้งได้เลยค่ะ",
		},
		model.LangEnglish: {
			intro:     "For '%s' that you're interested in, here are some lovely options:\n\n",
			outro:     "\n\nWhich one do you like best? Just let me know and I'll find more details for you!",
			noResults: "Oh! Looks like we don't have anything about '%s' yet. Want to try asking another way, or chat with our team directly?",
			apology:   "Oops, sorry! Something went wrong on our end. Please ask me again.",
		},
	},
	model.StyleProfessional: {
		model.LangThai: {
			intro:     "ตามที่คุณสอบถามเกี่ยวกับ '%s' ผมได้คัดสรรอสังหาริมทรัพย์ที่ตรงกับความต้องการของคุณดังนี้:\n\n",
			outro:     "\n\nหากคุณสนใจอสังหาริมทรัพย์รายการใดเป็นพิเศษ ผมสามารถให้ข้อมูลเชิงลึกและจัดการดูพื้นที่จริงให้ได้ครับ",
			noResults: "ผมขอแจ้งว่าไม่พบข้อมูลอสังหาริมทรัพย์ที่ตรงตามเงื่อนไข '%s' ในระบบ ผมแนะนำให้ปรับเปลี่ยนคำค้นหา หรือหากต้องการความช่วยเหลือเพิ่มเติม สามารถติดต่อทีมงานมืออาชีพของเราได้ครับ",
			apology:   "ผมขออภัย ระบบไม่สามารถจัดเตรียมคำตอบได้ในขณะนี้ กรุณาลองใหม่อีกครั้งครับ",
		},
		model.LangEnglish: {
			intro:     "Following your inquiry about '%s', I have selected the properties that match your requirements:\n\n",
			outro:     "\n\nIf any of these properties interests you, I can provide in-depth information and arrange a site visit.",
			noResults: "I must inform you that no property matching '%s' was found in our system. I recommend adjusting your search terms, or contacting our professional team for further assistance.",
			apology:   "I apologize, the system is unable to prepare an answer at the moment. Please try again.",
		},
	},
}

// empathy 是按情绪类别拼接在 intro 前面的共情短语，neutral 没有短语。
var empathy = map[model.Sentiment]map[model.Language]string{
	model.SentimentPositive: {
		model.LangThai:    "ดีใจที่คุณชอบนะครับ ",
		model.LangEnglish: "Glad to hear that! ",
	},
	model.SentimentNegative: {
		model.LangThai:    "ขออภัยที่ทำให้ไม่สบายใจครับ ",
		model.LangEnglish: "Sorry to hear about that. ",
	},
	model.SentimentConcerned: {
		model.LangThai:    "เข้าใจความกังวลของคุณครับ ",
		model.LangEnglish: "I understand your concern. ",
	},
	model.SentimentNeedy: {
		model.LangThai:    "เรายินดีช่วยเหลือคุณครับ ",
		model.LangEnglish: "We're here to help. ",
	},
	model.SentimentInterested: {
		model.LangThai:    "ยินดีที่คุณสนใจครับ ",
		model.LangEnglish: "Great that you're interested! ",
	},
}

// 列表行中的固定用语。
var listingWords = map[model.Language]struct {
	price, currency, near, separator string
}{
	model.LangThai:    {price: "ราคา", currency: "บาท", near: "ใกล้", separator: ", "},
	model.LangEnglish: {price: "price", currency: "THB", near: "near ", separator: ", "},
}

// bundleFor 取模板；未知语气回退 formal，不支持的语言回退主语言。
func bundleFor(style model.Style, lang model.Language) bundle {
	byLang, ok := templates[style]
	if !ok {
		byLang = templates[model.StyleFormal]
	}
	b, ok := byLang[lang]
	if !ok {
		b = byLang[model.LangThai]
	}
	return b
}

func languageOf(lang model.Language) model.Language {
	if _, ok := listingWords[lang]; ok {
		return lang
	}
	return model.LangThai
}

// Engine 是模板引擎，无状态，可并发使用。
type Engine struct{}

// NewEngine 创建模板引擎。
func NewEngine() *Engine {
	return &Engine{}
}

// Render 渲染完整回复：共情短语 + intro + 每条房源一行 + outro。
// 没有结果时使用无结果模板，只带查询文本。
func (e *Engine) Render(style model.Style, lang model.Language, query string, sentiment model.Sentiment, results []model.RankedResult) string {
	if len(results) == 0 {
		return e.NoResults(style, lang, query)
	}
	b := bundleFor(style, lang)

	var sb strings.Builder
	sb.WriteString(Empathy(sentiment, lang))
	fmt.Fprintf(&sb, b.intro, query)
	sb.WriteString(ListingLines(lang, results))
	sb.WriteString(b.outro)
	return sb.String()
}

// NoResults 渲染无结果模板。
func (e *Engine) NoResults(style model.Style, lang model.Language, query string) string {
	return fmt.Sprintf(bundleFor(style, lang).noResults, query)
}

// Empathy 返回情绪对应的共情短语，neutral 或未知情绪返回空串。
func Empathy(sentiment model.Sentiment, lang model.Language) string {
	return empathy[sentiment][languageOf(lang)]
}

// Apology 返回兜底的致歉文本，不依赖任何外部资源。
func Apology(style model.Style, lang model.Language) string {
	return bundleFor(style, lang).apology
}

// ListingLines 把结果渲染成编号列表，每条一行。
func ListingLines(lang model.Language, results []model.RankedResult) string {
	lines := make([]string, len(results))
	for i, r := range results {
		lines[i] = ListingLine(lang, i+1, r.Record)
	}
	return strings.Join(lines, "\n")
}

// ListingLine 渲染单条房源："{序号}. 类型 项目 价格 (状态) 周边设施"。缺失字段整体省略。
func ListingLine(lang model.Language, n int, r model.Record) string {
	w := listingWords[languageOf(lang)]
	parts := []string{fmt.Sprintf("%d.", n)}
	if v, ok := r.Get(model.AttrType); ok {
		parts = append(parts, v)
	}
	if v, ok := r.Get(model.AttrProject); ok {
		parts = append(parts, v)
	}
	if v, ok := r.Get(model.AttrPrice); ok {
		parts = append(parts, w.price, v, w.currency)
	}
	if v, ok := r.Get(model.AttrStatus); ok {
		parts = append(parts, "("+v+")")
	}
	var nearby []string
	for _, a := range model.NearbyAttributes {
		if v, ok := r.Get(a); ok {
			nearby = append(nearby, w.near+v)
		}
	}
	if len(nearby) > 0 {
		parts = append(parts, strings.Join(nearby, w.separator))
	}
	return strings.Join(parts, " ")
}

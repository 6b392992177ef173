// Package model 包含了应用的数据模型定义。
package model

import (
	"encoding/json"
	"strings"
)

// Attribute 是目录记录中的字段名（规范化后的键，与上传文件的表头无关）。
type Attribute string

const (
	AttrType     Attribute = "type"
	AttrProject  Attribute = "project"
	AttrPrice    Attribute = "price"
	AttrStatus   Attribute = "status"
	AttrImage    Attribute = "image"
	AttrLocation Attribute = "location"
	AttrSchool   Attribute = "school"
	AttrStation  Attribute = "station"
	AttrMall     Attribute = "mall"
	AttrHospital Attribute = "hospital"
	AttrAirport  Attribute = "airport"
)

// NearbyAttributes 是周边设施字段，顺序即展示顺序。
var NearbyAttributes = []Attribute{AttrSchool, AttrStation, AttrMall, AttrHospital, AttrAirport}

// AbsentSentinel 是目录文件中表示“无”的占位值。
const AbsentSentinel = "ไม่มี"

var absentValues = map[string]struct{}{
	"":             {},
	AbsentSentinel: {},
	"none":         {},
	"null":         {},
	"nan":          {},
	"n/a":          {},
	"-":            {},
}

// IsAbsentValue 判断单元格的原始值是否表示字段缺失。
// 占位值只在序列化边界（文件解析、数据库）出现，进入 Record 之后统一表示为“不存在”。
func IsAbsentValue(raw string) bool {
	_, ok := absentValues[strings.ToLower(strings.TrimSpace(raw))]
	return ok
}

// Record 代表一条目录记录（一条房源）。创建后不可变。
type Record struct {
	ID    string
	attrs map[Attribute]string
}

// NewRecord 创建记录，空白值和占位值会被当作缺失字段丢弃。
func NewRecord(id string, attrs map[Attribute]string) Record {
	clean := make(map[Attribute]string, len(attrs))
	for k, v := range attrs {
		if IsAbsentValue(v) {
			continue
		}
		clean[k] = strings.TrimSpace(v)
	}
	return Record{ID: id, attrs: clean}
}

// Get 返回字段值以及字段是否存在。
func (r Record) Get(a Attribute) (string, bool) {
	v, ok := r.attrs[a]
	return v, ok
}

// Value 返回字段值，缺失时为空字符串。
func (r Record) Value(a Attribute) string {
	return r.attrs[a]
}

// Has 判断字段是否存在。
func (r Record) Has(a Attribute) bool {
	_, ok := r.attrs[a]
	return ok
}

// IsEmpty 当记录没有任何存在的字段时返回 true。
func (r Record) IsEmpty() bool {
	return len(r.attrs) == 0
}

// Attributes 返回字段的拷贝。
func (r Record) Attributes() map[Attribute]string {
	out := make(map[Attribute]string, len(r.attrs))
	for k, v := range r.attrs {
		out[k] = v
	}
	return out
}

type recordJSON struct {
	ID         string               `json:"id"`
	Attributes map[Attribute]string `json:"attributes"`
}

// MarshalJSON 只输出存在的字段。
func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(recordJSON{ID: r.ID, Attributes: r.attrs})
}

// UnmarshalJSON 实现 json.Unmarshaler，对话历史从 Redis 读回时使用。
func (r *Record) UnmarshalJSON(data []byte) error {
	var raw recordJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = NewRecord(raw.ID, raw.Attributes)
	return nil
}

// RankedResult 是一条检索结果：记录加上本次查询计算出的相似度，不回写到记录上。
type RankedResult struct {
	Record          Record  `json:"record"`
	SimilarityScore float64 `json:"similarity_score"`
}

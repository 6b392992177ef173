// Package retrieval 实现目录记录的向量检索：文本投影、成对存储的索引以及带加权的排序。
package retrieval

import (
	"strings"

	"propguru-go/internal/model"
)

type weightedAttribute struct {
	attr   model.Attribute
	weight int
}

// projection 决定参与向量化的字段及其重复次数。
// 类型和地点重复多次，使向量更偏向这两个维度，与排序阶段的加权一致。
// 价格和图片排在最后，保证只有这两个字段的记录也有非空投影。
var projection = []weightedAttribute{
	{model.AttrType, 3},
	{model.AttrProject, 1},
	{model.AttrStatus, 1},
	{model.AttrLocation, 2},
	{model.AttrSchool, 1},
	{model.AttrStation, 1},
	{model.AttrMall, 1},
	{model.AttrHospital, 1},
	{model.AttrAirport, 1},
	{model.AttrPrice, 1},
	{model.AttrImage, 1},
}

// Project 把记录渲染成用于向量化的文本。确定性的纯函数。
// 缺失字段直接跳过，只有所有字段都缺失时才返回空串。
// 不在白名单中的类型值同样保留，只是排序时得不到精确类型加权。
func Project(r model.Record) string {
	var tokens []string
	for _, wa := range projection {
		v, ok := r.Get(wa.attr)
		if !ok {
			continue
		}
		for i := 0; i < wa.weight; i++ {
			tokens = append(tokens, v)
		}
	}
	return strings.Join(tokens, " ")
}

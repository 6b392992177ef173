package model

import (
	"strconv"
	"time"
)

// Listing 对应于数据库中的 property_listings 表。
// 可空列用指针表示，NULL 即字段缺失。
type Listing struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UploadID     string    `gorm:"type:varchar(64);not null;index" json:"uploadId"`
	PropertyType *string   `gorm:"type:varchar(100)" json:"propertyType"`
	Project      *string   `gorm:"type:varchar(255)" json:"project"`
	Price        *string   `gorm:"type:varchar(64)" json:"price"`
	Status       *string   `gorm:"type:varchar(64)" json:"status"`
	Image        *string   `gorm:"type:varchar(512)" json:"image"`
	Location     *string   `gorm:"type:varchar(255)" json:"location"`
	School       *string   `gorm:"type:varchar(255)" json:"school"`
	Station      *string   `gorm:"type:varchar(255)" json:"station"`
	Mall         *string   `gorm:"type:varchar(255)" json:"mall"`
	Hospital     *string   `gorm:"type:varchar(255)" json:"hospital"`
	Airport      *string   `gorm:"type:varchar(255)" json:"airport"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (Listing) TableName() string {
	return "property_listings"
}

func (l *Listing) columns() map[Attribute]**string {
	return map[Attribute]**string{
		AttrType:     &l.PropertyType,
		AttrProject:  &l.Project,
		AttrPrice:    &l.Price,
		AttrStatus:   &l.Status,
		AttrImage:    &l.Image,
		AttrLocation: &l.Location,
		AttrSchool:   &l.School,
		AttrStation:  &l.Station,
		AttrMall:     &l.Mall,
		AttrHospital: &l.Hospital,
		AttrAirport:  &l.Airport,
	}
}

// ToRecord 把数据库行转换成检索用的 Record。
func (l Listing) ToRecord() Record {
	attrs := make(map[Attribute]string)
	for attr, col := range l.columns() {
		if *col != nil {
			attrs[attr] = **col
		}
	}
	return NewRecord(ListingRecordID(l.ID), attrs)
}

// NewListing 根据解析后的字段创建数据库行，缺失字段保存为 NULL。
func NewListing(uploadID string, attrs map[Attribute]string) *Listing {
	l := &Listing{UploadID: uploadID}
	for attr, col := range l.columns() {
		v, ok := attrs[attr]
		if !ok || IsAbsentValue(v) {
			continue
		}
		value := v
		*col = &value
	}
	return l
}

// ListingRecordID 生成记录 ID。
func ListingRecordID(id uint) string {
	return "listing-" + strconv.FormatUint(uint64(id), 10)
}

// ListingDocument 是镜像到 Elasticsearch 的房源文档。
type ListingDocument struct {
	ListingID    uint     `json:"listing_id"`
	UploadID     string   `json:"upload_id"`
	PropertyType string   `json:"property_type,omitempty"`
	Project      string   `json:"project,omitempty"`
	Price        string   `json:"price,omitempty"`
	Status       string   `json:"status,omitempty"`
	Location     string   `json:"location,omitempty"`
	Nearby       []string `json:"nearby,omitempty"`
}

// NewListingDocument 由 Record 构建 ES 文档，只带存在的字段。
func NewListingDocument(listingID uint, uploadID string, r Record) ListingDocument {
	doc := ListingDocument{
		ListingID:    listingID,
		UploadID:     uploadID,
		PropertyType: r.Value(AttrType),
		Project:      r.Value(AttrProject),
		Price:        r.Value(AttrPrice),
		Status:       r.Value(AttrStatus),
		Location:     r.Value(AttrLocation),
	}
	for _, a := range NearbyAttributes {
		if v, ok := r.Get(a); ok {
			doc.Nearby = append(doc.Nearby, v)
		}
	}
	return doc
}

// ListingSearchHit 是关键词检索的一条命中。
type ListingSearchHit struct {
	Listing ListingDocument `json:"listing"`
	Score   float64         `json:"score"`
}

// Package model 定义了与数据库表对应的 Go 结构体。
package model

import "time"

const (
	UploadStatusPending  = 0
	UploadStatusIngested = 1
	UploadStatusFailed   = 2
)

// CatalogUpload 定义了 catalog_uploads 表的 ORM 模型。
// 它记录了每个上传的房源目录文件及其导入状态。
type CatalogUpload struct {
	ID           string     `gorm:"type:varchar(64);primaryKey" json:"id"`
	FileName     string     `gorm:"type:varchar(255);not null" json:"fileName"`
	ObjectName   string     `gorm:"type:varchar(512);not null" json:"objectName"`
	TotalSize    int64      `gorm:"not null" json:"totalSize"`
	Status       int        `gorm:"type:tinyint;not null;default:0" json:"status"` // 0: pending, 1: ingested, 2: failed
	RecordCount  int        `gorm:"not null;default:0" json:"recordCount"`
	ErrorMessage string     `gorm:"type:text" json:"errorMessage"`
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"createdAt"`
	IngestedAt   *time.Time `gorm:"default:null" json:"ingestedAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (CatalogUpload) TableName() string {
	return "catalog_uploads"
}

// CatalogUploadDTO 是返回给前端的上传状态，附带原始文件的临时下载地址。
type CatalogUploadDTO struct {
	CatalogUpload
	DownloadURL string `json:"downloadUrl,omitempty"`
}

package repository

import (
	"context"

	"gorm.io/gorm"

	"propguru-go/internal/model"
)

// ListingRepository 定义了对 property_listings 表的数据操作接口，也是检索索引的目录来源。
type ListingRepository interface {
	ListRecords(ctx context.Context) ([]model.Record, error)
	BatchCreate(ctx context.Context, listings []*model.Listing) error
	DeleteByUploadID(ctx context.Context, uploadID string) error
}

type listingRepository struct {
	db *gorm.DB
}

// NewListingRepository 创建一个新的 ListingRepository 实例。
func NewListingRepository(db *gorm.DB) ListingRepository {
	return &listingRepository{db: db}
}

// ListRecords 按主键顺序读出全部房源，转换为检索用的 Record。
func (r *listingRepository) ListRecords(ctx context.Context) ([]model.Record, error) {
	var listings []model.Listing
	if err := r.db.WithContext(ctx).Order("id asc").Find(&listings).Error; err != nil {
		return nil, err
	}
	records := make([]model.Record, 0, len(listings))
	for _, l := range listings {
		records = append(records, l.ToRecord())
	}
	return records, nil
}

// BatchCreate 批量创建房源记录，创建后 listings 中的 ID 会被回填。
func (r *listingRepository) BatchCreate(ctx context.Context, listings []*model.Listing) error {
	if len(listings) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(listings, 100).Error // 每100条记录一批
}

// DeleteByUploadID 删除某次上传导入的全部房源，用于重新导入。
func (r *listingRepository) DeleteByUploadID(ctx context.Context, uploadID string) error {
	return r.db.WithContext(ctx).Where("upload_id = ?", uploadID).Delete(&model.Listing{}).Error
}

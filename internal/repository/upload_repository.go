// Package repository 定义了与数据库进行数据交换的接口和实现。
package repository

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"

	"propguru-go/internal/model"
)

// UploadRepository 接口定义了目录文件上传相关的数据持久化操作。
type UploadRepository interface {
	Create(ctx context.Context, record *model.CatalogUpload) error
	Get(ctx context.Context, id string) (*model.CatalogUpload, error)
	List(ctx context.Context) ([]model.CatalogUpload, error)
	MarkIngested(ctx context.Context, id string, recordCount int) error
	MarkFailed(ctx context.Context, id string, reason string) error

	// 导入重试计数 (Redis)
	IncrIngestAttempts(ctx context.Context, id string) (int64, error)
	ClearIngestAttempts(ctx context.Context, id string) error
}

// uploadRepository 是 UploadRepository 接口的 GORM+Redis 实现。
type uploadRepository struct {
	db          *gorm.DB
	redisClient *redis.Client
}

// NewUploadRepository 创建一个新的 UploadRepository 实例。
func NewUploadRepository(db *gorm.DB, redisClient *redis.Client) UploadRepository {
	return &uploadRepository{db: db, redisClient: redisClient}
}

func ingestAttemptsKey(id string) string {
	return "catalog:ingest:attempts:" + id
}

// Create 在数据库中创建一条上传记录。
func (r *uploadRepository) Create(ctx context.Context, record *model.CatalogUpload) error {
	return r.db.WithContext(ctx).Create(record).Error
}

// Get 根据上传 ID 查询记录，不存在时返回 gorm.ErrRecordNotFound。
func (r *uploadRepository) Get(ctx context.Context, id string) (*model.CatalogUpload, error) {
	var record model.CatalogUpload
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// List 按创建时间倒序列出所有上传记录。
func (r *uploadRepository) List(ctx context.Context) ([]model.CatalogUpload, error) {
	var records []model.CatalogUpload
	err := r.db.WithContext(ctx).Order("created_at desc").Find(&records).Error
	return records, err
}

// MarkIngested 标记导入成功并记录房源数量。
func (r *uploadRepository) MarkIngested(ctx context.Context, id string, recordCount int) error {
	now := time.Now()
	return r.db.WithContext(ctx).Model(&model.CatalogUpload{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":        model.UploadStatusIngested,
		"record_count":  recordCount,
		"error_message": "",
		"ingested_at":   &now,
	}).Error
}

// MarkFailed 标记导入失败。
func (r *uploadRepository) MarkFailed(ctx context.Context, id string, reason string) error {
	return r.db.WithContext(ctx).Model(&model.CatalogUpload{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":        model.UploadStatusFailed,
		"error_message": reason,
	}).Error
}

// IncrIngestAttempts 增加导入尝试次数并返回当前值，计数一天后过期。
func (r *uploadRepository) IncrIngestAttempts(ctx context.Context, id string) (int64, error) {
	key := ingestAttemptsKey(id)
	n, err := r.redisClient.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if n == 1 {
		r.redisClient.Expire(ctx, key, 24*time.Hour)
	}
	return n, nil
}

// ClearIngestAttempts 删除导入尝试计数。
func (r *uploadRepository) ClearIngestAttempts(ctx context.Context, id string) error {
	return r.redisClient.Del(ctx, ingestAttemptsKey(id)).Err()
}

// Package service 包含了应用的业务逻辑层。
package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"propguru-go/internal/model"
	"propguru-go/internal/pipeline"
	"propguru-go/internal/repository"
	"propguru-go/pkg/log"
	"propguru-go/pkg/storage"
	"propguru-go/pkg/tasks"
)

// ErrFileTooLarge 表示目录文件超过大小限制。
var ErrFileTooLarge = errors.New("catalog file exceeds the size limit")

const downloadURLExpiry = time.Hour

// TaskProducer 把导入任务投递到消息队列。
type TaskProducer func(ctx context.Context, task tasks.CatalogIngestTask) error

// UploadService 接口定义了目录文件上传相关的业务操作。
type UploadService interface {
	// Upload 同步校验文件格式，保存原始文件并投递导入任务。
	// 格式错误（扩展名、缺列）直接返回，可用 pipeline.IsFormatError 判断。
	Upload(ctx context.Context, fileName string, data []byte) (*model.CatalogUpload, error)
	GetUpload(ctx context.Context, id string) (*model.CatalogUploadDTO, error)
	ListUploads(ctx context.Context) ([]model.CatalogUpload, error)
}

type uploadService struct {
	store      storage.ObjectStore
	uploadRepo repository.UploadRepository
	produce    TaskProducer
	maxBytes   int64
}

// NewUploadService 创建一个新的 UploadService 实例。maxBytes <= 0 表示不限制大小。
func NewUploadService(store storage.ObjectStore, uploadRepo repository.UploadRepository, produce TaskProducer, maxBytes int64) UploadService {
	return &uploadService{
		store:      store,
		uploadRepo: uploadRepo,
		produce:    produce,
		maxBytes:   maxBytes,
	}
}

func (s *uploadService) Upload(ctx context.Context, fileName string, data []byte) (*model.CatalogUpload, error) {
	fileName = filepath.Base(strings.TrimSpace(fileName))
	log.Infof("[UploadService] 收到目录文件, FileName: %s, 大小: %d字节", fileName, len(data))

	if !pipeline.SupportedFile(fileName) {
		return nil, pipeline.ErrUnsupportedFormat
	}
	if s.maxBytes > 0 && int64(len(data)) > s.maxBytes {
		return nil, ErrFileTooLarge
	}

	// 1. 同步校验表头，格式错误立即返回给用户
	rows, err := pipeline.ParseCatalog(fileName, bytes.NewReader(data))
	if err != nil {
		log.Warnf("[UploadService] 目录文件校验失败, FileName: %s, Error: %v", fileName, err)
		return nil, err
	}
	log.Infof("[UploadService] 目录文件校验通过, 有效行数: %d", len(rows))

	// 2. 保存原始文件到 MinIO
	id := uuid.New().String()
	objectName := fmt.Sprintf("catalogs/%s/%s", id, fileName)
	if err := s.store.Put(ctx, objectName, bytes.NewReader(data), int64(len(data)), contentType(fileName)); err != nil {
		log.Errorf("[UploadService] 上传文件到MinIO失败, Object: %s, Error: %v", objectName, err)
		return nil, fmt.Errorf("failed to store catalog file: %w", err)
	}

	// 3. 记录上传
	record := &model.CatalogUpload{
		ID:         id,
		FileName:   fileName,
		ObjectName: objectName,
		TotalSize:  int64(len(data)),
		Status:     model.UploadStatusPending,
	}
	if err := s.uploadRepo.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to create upload record: %w", err)
	}

	// 4. 投递导入任务
	task := tasks.CatalogIngestTask{UploadID: id, ObjectName: objectName, FileName: fileName}
	if err := s.produce(ctx, task); err != nil {
		log.Errorf("[UploadService] 发送导入任务到Kafka失败, UploadID: %s, Error: %v", id, err)
		if markErr := s.uploadRepo.MarkFailed(ctx, id, err.Error()); markErr != nil {
			log.Errorf("[UploadService] 标记上传失败状态出错, UploadID: %s, Error: %v", id, markErr)
		}
		return nil, fmt.Errorf("failed to enqueue ingest task: %w", err)
	}
	log.Infof("[UploadService] 导入任务已发送, UploadID: %s", id)
	return record, nil
}

func (s *uploadService) GetUpload(ctx context.Context, id string) (*model.CatalogUploadDTO, error) {
	record, err := s.uploadRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := &model.CatalogUploadDTO{CatalogUpload: *record}
	url, err := s.store.PresignedURL(ctx, record.ObjectName, downloadURLExpiry)
	if err != nil {
		log.Warnf("[UploadService] 生成下载链接失败, Object: %s, Error: %v", record.ObjectName, err)
	} else {
		dto.DownloadURL = url
	}
	return dto, nil
}

func (s *uploadService) ListUploads(ctx context.Context) ([]model.CatalogUpload, error) {
	return s.uploadRepo.List(ctx)
}

func contentType(fileName string) string {
	if strings.EqualFold(filepath.Ext(fileName), ".xlsx") {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv"
}

// Package pipeline 定义了目录文件导入的核心流程。
package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"propguru-go/internal/model"
	"propguru-go/internal/repository"
	"propguru-go/pkg/log"
	"propguru-go/pkg/storage"
	"propguru-go/pkg/tasks"
)

// ListingMirror 是房源的检索镜像（Elasticsearch），写入失败不影响导入结果。
type ListingMirror interface {
	Index(ctx context.Context, doc model.ListingDocument) error
	DeleteUpload(ctx context.Context, uploadID string) error
}

// Processor 封装了目录导入的所有依赖和逻辑。
type Processor struct {
	store       storage.ObjectStore
	uploadRepo  repository.UploadRepository
	listingRepo repository.ListingRepository
	mirror      ListingMirror
	onIngested  func()
}

// NewProcessor 创建一个新的 Processor 实例。
// onIngested 在导入成功后调用，用于让检索索引失效；mirror 可以为 nil。
func NewProcessor(
	store storage.ObjectStore,
	uploadRepo repository.UploadRepository,
	listingRepo repository.ListingRepository,
	mirror ListingMirror,
	onIngested func(),
) *Processor {
	return &Processor{
		store:       store,
		uploadRepo:  uploadRepo,
		listingRepo: listingRepo,
		mirror:      mirror,
		onIngested:  onIngested,
	}
}

// Process 是目录导入的主函数。
// 文件格式错误属于永久失败：标记上传失败后返回 nil，不再重试。
func (p *Processor) Process(ctx context.Context, task tasks.CatalogIngestTask) error {
	log.Infof("[Processor] 开始处理目录文件, UploadID: %s, FileName: %s", task.UploadID, task.FileName)

	// 1. 从 MinIO 下载文件
	log.Infof("[Processor] 步骤1: 从MinIO下载文件, Object: %s", task.ObjectName)
	object, err := p.store.Get(ctx, task.ObjectName)
	if err != nil {
		log.Errorf("[Processor] 从MinIO下载文件失败, Object: %s, Error: %v", task.ObjectName, err)
		return p.fail(ctx, task, fmt.Errorf("从 MinIO 下载文件失败: %w", err))
	}
	defer object.Close()

	buf := new(bytes.Buffer)
	size, err := buf.ReadFrom(object)
	if err != nil {
		log.Errorf("[Processor] 读取MinIO对象流失败, Error: %v", err)
		return p.fail(ctx, task, fmt.Errorf("读取MinIO对象流失败: %w", err))
	}
	log.Infof("[Processor] 步骤1: 文件下载成功, 大小: %d字节", size)

	// 2. 解析 CSV / XLSX
	log.Info("[Processor] 步骤2: 解析目录文件")
	rows, err := ParseCatalog(task.FileName, bytes.NewReader(buf.Bytes()))
	if err != nil {
		log.Warnf("[Processor] 目录文件格式错误, FileName: %s, Error: %v", task.FileName, err)
		if markErr := p.uploadRepo.MarkFailed(ctx, task.UploadID, err.Error()); markErr != nil {
			log.Errorf("[Processor] 标记上传失败状态出错, UploadID: %s, Error: %v", task.UploadID, markErr)
		}
		return nil
	}
	if len(rows) == 0 {
		log.Warnf("[Processor] 目录文件没有任何有效行, FileName: %s", task.FileName)
	}
	log.Infof("[Processor] 步骤2: 解析完成, 共 %d 行", len(rows))

	// 3. 写入 MySQL。重试时先清理该上传已有的房源（幂等）
	if err := p.listingRepo.DeleteByUploadID(ctx, task.UploadID); err != nil {
		log.Warnf("[Processor] 清理旧房源记录失败 (upload_id=%s): %v", task.UploadID, err)
	}
	listings := make([]*model.Listing, 0, len(rows))
	for _, attrs := range rows {
		listings = append(listings, model.NewListing(task.UploadID, attrs))
	}
	if err := p.listingRepo.BatchCreate(ctx, listings); err != nil {
		log.Errorf("[Processor] 步骤3: 批量保存房源失败, Error: %v", err)
		return p.fail(ctx, task, fmt.Errorf("批量保存房源失败: %w", err))
	}
	log.Infof("[Processor] 步骤3: 成功保存 %d 条房源", len(listings))

	// 4. 镜像到 Elasticsearch，失败只记录日志
	if p.mirror != nil {
		p.mirrorListings(ctx, task.UploadID, listings)
	}

	// 5. 更新状态并让检索索引失效
	if err := p.uploadRepo.MarkIngested(ctx, task.UploadID, len(listings)); err != nil {
		log.Errorf("[Processor] 更新上传状态失败, UploadID: %s, Error: %v", task.UploadID, err)
	}
	if p.onIngested != nil {
		p.onIngested()
	}

	log.Infof("[Processor] 目录导入成功完成, UploadID: %s", task.UploadID)
	return nil
}

func (p *Processor) mirrorListings(ctx context.Context, uploadID string, listings []*model.Listing) {
	if err := p.mirror.DeleteUpload(ctx, uploadID); err != nil {
		log.Warnf("[Processor] 清理ES旧文档失败 (upload_id=%s): %v", uploadID, err)
	}
	failed := 0
	for _, l := range listings {
		doc := model.NewListingDocument(l.ID, uploadID, l.ToRecord())
		if err := p.mirror.Index(ctx, doc); err != nil {
			failed++
			log.Warnf("[Processor] 房源 %d 写入Elasticsearch失败: %v", l.ID, err)
		}
	}
	if failed > 0 {
		log.Warnf("[Processor] 步骤4: %d/%d 条房源未能写入Elasticsearch", failed, len(listings))
		return
	}
	log.Infof("[Processor] 步骤4: %d 条房源已写入Elasticsearch", len(listings))
}

// fail 记录失败原因并返回原错误，让 Kafka 重试。
func (p *Processor) fail(ctx context.Context, task tasks.CatalogIngestTask, err error) error {
	if markErr := p.uploadRepo.MarkFailed(ctx, task.UploadID, err.Error()); markErr != nil {
		log.Errorf("[Processor] 标记上传失败状态出错, UploadID: %s, Error: %v", task.UploadID, markErr)
	}
	return err
}

// IsFormatError 判断错误是否为目录文件格式错误（可直接返回给用户）。
func IsFormatError(err error) bool {
	var missing *MissingColumnsError
	return errors.Is(err, ErrUnsupportedFormat) || errors.As(err, &missing)
}

// Package kafka 提供了与 Kafka 消息队列交互的功能。
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/segmentio/kafka-go"

	"propguru-go/internal/config"
	"propguru-go/pkg/log"
	"propguru-go/pkg/tasks"
)

// MaxAttempts 是同一导入任务的最大尝试次数，达到后提交 offset 不再重试。
const MaxAttempts = 3

// TaskProcessor defines the interface for any service that can process a task.
// This decouples the Kafka consumer from the concrete pipeline implementation.
type TaskProcessor interface {
	Process(ctx context.Context, task tasks.CatalogIngestTask) error
}

// AttemptTracker 记录任务失败次数。
type AttemptTracker interface {
	IncrIngestAttempts(ctx context.Context, id string) (int64, error)
	ClearIngestAttempts(ctx context.Context, id string) error
}

var producer *kafka.Writer

func brokers(cfg config.KafkaConfig) []string {
	return strings.Split(cfg.Brokers, ",")
}

// InitProducer 初始化 Kafka 生产者。
func InitProducer(cfg config.KafkaConfig) {
	producer = &kafka.Writer{
		Addr:     kafka.TCP(brokers(cfg)...),
		Topic:    cfg.Topic,
		Balancer: &kafka.LeastBytes{},
	}
	log.Info("Kafka 生产者初始化成功")
}

// ProduceCatalogTask 发送一个目录导入任务到 Kafka，以 upload id 作为消息 key。
func ProduceCatalogTask(ctx context.Context, task tasks.CatalogIngestTask) error {
	if producer == nil {
		return errors.New("kafka producer is not initialized")
	}
	taskBytes, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return producer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(task.UploadID),
		Value: taskBytes,
	})
}

// CloseProducer 关闭生产者。
func CloseProducer() error {
	if producer == nil {
		return nil
	}
	return producer.Close()
}

// StartConsumer 启动一个 Kafka 消费者来处理目录导入任务，ctx 取消后退出。
func StartConsumer(ctx context.Context, cfg config.KafkaConfig, processor TaskProcessor, tracker AttemptTracker) {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers(cfg),
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: 10e3, // 10KB
		MaxBytes: 10e6, // 10MB
	})

	log.Infof("Kafka 消费者已启动，正在监听主题 '%s'", cfg.Topic)

	for {
		m, err := r.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() == nil {
				log.Error("从 Kafka 读取消息失败", err)
			}
			break
		}

		log.Infof("收到 Kafka 消息: offset %d", m.Offset)
		if HandleMessage(ctx, m.Value, processor, tracker) {
			if err := r.CommitMessages(ctx, m); err != nil {
				log.Errorf("提交 Kafka 消息 offset 失败: %v", err)
			}
		}
	}

	if err := r.Close(); err != nil {
		log.Errorf("关闭 Kafka 消费者失败: %v", err)
	}
}

// HandleMessage 处理一条消息并返回是否应提交 offset。
// 格式错误与处理成功都提交；失败时未达到 MaxAttempts 不提交，让 Kafka 重投。
func HandleMessage(ctx context.Context, value []byte, processor TaskProcessor, tracker AttemptTracker) bool {
	var task tasks.CatalogIngestTask
	if err := json.Unmarshal(value, &task); err != nil || task.UploadID == "" {
		log.Errorf("无法解析 Kafka 消息: %v, value: %s", err, string(value))
		// 消息格式错误，直接提交，避免阻塞队列
		return true
	}

	log.Infof("开始处理目录导入任务: UploadID=%s, FileName=%s", task.UploadID, task.FileName)
	if err := processor.Process(ctx, task); err != nil {
		log.Errorf("处理目录导入任务失败: UploadID=%s, Error: %v", task.UploadID, err)
		attempts, incErr := tracker.IncrIngestAttempts(ctx, task.UploadID)
		if incErr != nil {
			// Redis 异常时保守处理：不提交 offset，让 Kafka 重试
			return false
		}
		if attempts >= MaxAttempts {
			log.Errorf("目录导入任务多次失败(>=%d)，提交 offset 终止重试: UploadID=%s", MaxAttempts, task.UploadID)
			return true
		}
		return false
	}

	log.Infof("目录导入任务处理成功: UploadID=%s", task.UploadID)
	_ = tracker.ClearIngestAttempts(ctx, task.UploadID)
	return true
}

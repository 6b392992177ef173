// Package config 负责加载和管理应用程序的配置。
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// 全局配置变量，存储从配置文件加载的所有设置。
var Conf Config

// Config 是整个应用程序的配置结构体，与 config.yaml 文件结构对应。
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Log           LogConfig           `mapstructure:"log"`
	Kafka         KafkaConfig         `mapstructure:"kafka"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	MinIO         MinIOConfig         `mapstructure:"minio"`
	Embedding     EmbeddingConfig     `mapstructure:"embedding"`
	LLM           LLMConfig           `mapstructure:"llm"`
	Retrieval     RetrievalConfig     `mapstructure:"retrieval"`
	Chat          ChatConfig          `mapstructure:"chat"`
}

// ServerConfig 存储服务器相关的配置。
type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
	// MaxUploadMB 限制目录文件上传大小
	MaxUploadMB int64 `mapstructure:"max_upload_mb"`
}

// DatabaseConfig 存储所有数据库连接的配置。
type DatabaseConfig struct {
	MySQL MySQLConfig `mapstructure:"mysql"`
	Redis RedisConfig `mapstructure:"redis"`
}

// MySQLConfig 存储 MySQL 数据库的配置。
type MySQLConfig struct {
	DSN string `mapstructure:"dsn"`
}

// RedisConfig 存储 Redis 的配置。
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// LogConfig 存储日志相关的配置。
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// KafkaConfig 存储 Kafka 相关的配置。
type KafkaConfig struct {
	Brokers string `mapstructure:"brokers"`
	Topic   string `mapstructure:"topic"`
	GroupID string `mapstructure:"group_id"`
}

// ElasticsearchConfig 存储 Elasticsearch 相关的配置。
type ElasticsearchConfig struct {
	Addresses string `mapstructure:"addresses"`
	Username  string `mapstructure:"username"`
	Password  string `mapstructure:"password"`
	IndexName string `mapstructure:"index_name"`
}

// MinIOConfig 存储 MinIO 对象存储的配置。
type MinIOConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	BucketName      string `mapstructure:"bucket_name"`
}

// EmbeddingConfig 存储 Embedding 相关的配置。
// Provider 为 "hash" 时使用确定性的哈希向量，不依赖外部模型；为 "openai" 时调用兼容接口。
type EmbeddingConfig struct {
	Provider          string  `mapstructure:"provider"`
	APIKey            string  `mapstructure:"api_key"`
	BaseURL           string  `mapstructure:"base_url"`
	Model             string  `mapstructure:"model"`
	Dimensions        int     `mapstructure:"dimensions"`
	BatchSize         int     `mapstructure:"batch_size"`
	TimeoutSeconds    int     `mapstructure:"timeout_seconds"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
}

// LLMConfig 存储大语言模型相关的配置。
type LLMConfig struct {
	Enabled        bool                `mapstructure:"enabled"`
	APIKey         string              `mapstructure:"api_key"`
	BaseURL        string              `mapstructure:"base_url"`
	Model          string              `mapstructure:"model"`
	TimeoutSeconds int                 `mapstructure:"timeout_seconds"`
	Generation     LLMGenerationConfig `mapstructure:"generation"`
	Prompt         LLMPromptConfig     `mapstructure:"prompt"`
}

// LLMGenerationConfig 配置生成相关参数（可选）。
type LLMGenerationConfig struct {
	Temperature float64 `mapstructure:"temperature"`
	TopP        float64 `mapstructure:"top_p"`
	MaxTokens   int     `mapstructure:"max_tokens"`
}

// LLMPromptConfig 配置系统提示与上下文包裹格式（可选）。
type LLMPromptConfig struct {
	Rules    string `mapstructure:"rules"`
	RefStart string `mapstructure:"ref_start"`
	RefEnd   string `mapstructure:"ref_end"`
}

// RetrievalConfig 控制检索排序。相似度阈值随部署调整（观测值 0.1 ~ 0.8）。
type RetrievalConfig struct {
	TopK                int     `mapstructure:"top_k"`
	SimilarityThreshold float64 `mapstructure:"similarity_threshold"`
}

// ChatConfig 控制对话默认值与生成超时。
type ChatConfig struct {
	DefaultStyle             string `mapstructure:"default_style"`
	DefaultLanguage          string `mapstructure:"default_language"`
	HistoryTTLHours          int    `mapstructure:"history_ttl_hours"`
	GenerationTimeoutSeconds int    `mapstructure:"generation_timeout_seconds"`
}

// setDefaults 为可选配置项设置默认值，保证缺省配置文件也能启动。
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8000")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.max_upload_mb", 5)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("kafka.topic", "catalog-ingest")
	v.SetDefault("kafka.group_id", "propguru-go-consumer")
	v.SetDefault("elasticsearch.index_name", "property_listings")
	v.SetDefault("embedding.provider", "hash")
	v.SetDefault("embedding.dimensions", 16)
	v.SetDefault("embedding.batch_size", 32)
	v.SetDefault("embedding.timeout_seconds", 10)
	v.SetDefault("llm.timeout_seconds", 20)
	v.SetDefault("retrieval.top_k", 5)
	v.SetDefault("retrieval.similarity_threshold", 0.1)
	v.SetDefault("chat.default_style", "formal")
	v.SetDefault("chat.default_language", "th")
	v.SetDefault("chat.history_ttl_hours", 24*7)
	v.SetDefault("chat.generation_timeout_seconds", 20)
}

// Init 初始化配置加载，从指定的路径读取 YAML 文件并解析到 Conf 变量中。
func Init(configPath string) {
	if err := Load(configPath, &Conf); err != nil {
		panic(err)
	}
}

// Load 读取指定 YAML 文件到 out，供 Init 与测试共用。
func Load(configPath string, out *Config) error {
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("读取配置文件失败: %w", err)
	}
	if err := v.Unmarshal(out); err != nil {
		return fmt.Errorf("无法将配置解析到结构体中: %w", err)
	}
	return nil
}

// Package main 是应用程序的入口点。
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"propguru-go/internal/config"
	"propguru-go/internal/handler"
	"propguru-go/internal/lexicon"
	"propguru-go/internal/middleware"
	"propguru-go/internal/pipeline"
	"propguru-go/internal/reply"
	"propguru-go/internal/repository"
	"propguru-go/internal/retrieval"
	"propguru-go/internal/service"
	"propguru-go/pkg/database"
	"propguru-go/pkg/embedding"
	"propguru-go/pkg/es"
	"propguru-go/pkg/kafka"
	"propguru-go/pkg/llm"
	"propguru-go/pkg/log"
	"propguru-go/pkg/storage"
)

func main() {
	// 1. 初始化配置
	config.Init("./configs/config.yaml")
	cfg := config.Conf

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync() // 确保在程序退出时刷新所有缓冲的日志条目
	log.Info("日志记录器初始化成功")

	// 3. 初始化数据库、Redis、对象存储、Elasticsearch 和 Kafka
	database.InitMySQL(cfg.Database.MySQL.DSN)
	database.InitRedis(cfg.Database.Redis.Addr, cfg.Database.Redis.Password, cfg.Database.Redis.DB)
	storage.InitMinIO(cfg.MinIO)
	if err := es.InitES(cfg.Elasticsearch); err != nil {
		log.Errorf("es 初始化失败 %s", err)
		return
	}
	kafka.InitProducer(cfg.Kafka)
	defer func() {
		if err := kafka.CloseProducer(); err != nil {
			log.Errorf("关闭 Kafka 生产者失败: %v", err)
		}
	}()

	// 4. 初始化 Repository
	historyTTL := time.Duration(cfg.Chat.HistoryTTLHours) * time.Hour
	conversationRepo := repository.NewConversationRepository(database.RDB, historyTTL)
	listingRepo := repository.NewListingRepository(database.DB)
	uploadRepo := repository.NewUploadRepository(database.DB, database.RDB)
	objectStore := storage.NewObjectStore(storage.MinioClient, cfg.MinIO.BucketName)

	// 5. 检索与回复核心
	embeddingClient, err := embedding.NewClient(cfg.Embedding)
	if err != nil {
		log.Fatal("初始化 Embedding 客户端失败", err)
	}
	lex := lexicon.Default()
	indexHolder := service.NewIndexHolder(embeddingClient, listingRepo)
	ranker := retrieval.NewRanker(lex, cfg.Retrieval.SimilarityThreshold)
	chain := buildReplyChain(cfg)

	// 6. 初始化 Service (依赖注入)
	chatService := service.NewChatService(indexHolder, lex, ranker, chain, conversationRepo, cfg.Retrieval.TopK, cfg.Chat)
	conversationService := service.NewConversationService(conversationRepo, lex)
	maxUploadBytes := cfg.Server.MaxUploadMB << 20
	uploadService := service.NewUploadService(objectStore, uploadRepo, kafka.ProduceCatalogTask, maxUploadBytes)
	searchService := service.NewSearchService(es.ESClient, cfg.Elasticsearch.IndexName)

	// 7. 初始化目录导入管道并启动后台 Kafka 消费者
	processor := pipeline.NewProcessor(
		objectStore,
		uploadRepo,
		listingRepo,
		es.NewListingMirror(es.ESClient, cfg.Elasticsearch.IndexName),
		indexHolder.Invalidate,
	)
	consumerCtx, stopConsumer := context.WithCancel(context.Background())
	consumerDone := make(chan struct{})
	go func() {
		defer close(consumerDone)
		kafka.StartConsumer(consumerCtx, cfg.Kafka, processor, uploadRepo)
	}()

	// 8. 设置 Gin 模式并创建路由引擎
	gin.SetMode(cfg.Server.Mode)
	r := gin.New() // 使用 New() 创建一个不带默认中间件的引擎
	// 添加我们自定义的日志中间件和 Gin 的 Recovery 中间件
	r.Use(middleware.RequestLogger(), gin.Recovery())
	r.MaxMultipartMemory = maxUploadBytes

	// 9. 注册路由
	chatHandler := handler.NewChatHandler(chatService)
	conversationHandler := handler.NewConversationHandler(conversationService)
	uploadHandler := handler.NewUploadHandler(uploadService, maxUploadBytes)
	searchHandler := handler.NewSearchHandler(searchService)

	apiV1 := r.Group("/api/v1")
	{
		apiV1.GET("/styles", chatHandler.ListStyles)

		chat := apiV1.Group("/chat")
		{
			chat.POST("", chatHandler.Chat)
			chat.GET("/rooms/:roomId", conversationHandler.GetRoom)
			chat.GET("/rooms/:roomId/interests", conversationHandler.GetInterests)
		}

		catalog := apiV1.Group("/catalog")
		{
			catalog.POST("/upload", uploadHandler.Upload)
			catalog.GET("/uploads", uploadHandler.ListUploads)
			catalog.GET("/uploads/:id", uploadHandler.GetUpload)
		}

		apiV1.GET("/listings/search", searchHandler.SearchListings)
	}
	// Chat 路由 (WebSocket)
	r.GET("/chat/ws", chatHandler.Handle)

	// 启动 HTTP 服务器并实现优雅停机
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		log.Infof("服务启动于 %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP 服务监听失败: %s\n", err)
		}
	}()

	// 等待中断信号以实现优雅停机
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("接收到停机信号，正在关闭服务...")

	// 设置一个5秒的超时上下文
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// 关闭 HTTP 服务器
	if err := srv.Shutdown(ctx); err != nil {
		log.Errorf("HTTP 服务器关闭失败: %v", err)
	}

	// 停止 Kafka 消费者，等待当前任务结束
	stopConsumer()
	select {
	case <-consumerDone:
	case <-ctx.Done():
		log.Warnf("等待 Kafka 消费者退出超时")
	}
	log.Info("服务已优雅关闭")
}

// buildReplyChain 根据配置组装回复降级链。
// 启用大模型时：大模型 → 模板；否则：模板 → 纯列表。两者最后都有固定致歉文本兜底。
func buildReplyChain(cfg config.Config) *reply.Chain {
	engine := reply.NewEngine()
	timeout := time.Duration(cfg.Chat.GenerationTimeoutSeconds) * time.Second
	if cfg.LLM.Enabled {
		log.Infof("回复生成使用大模型: %s", cfg.LLM.Model)
		primary := reply.NewLLMGenerator(llm.NewClient(cfg.LLM), cfg.LLM.Prompt)
		return reply.NewChain(primary, reply.NewTemplateGenerator(engine), timeout)
	}
	log.Info("回复生成使用模板引擎")
	return reply.NewChain(reply.NewTemplateGenerator(engine), reply.NewPlainGenerator(engine), timeout)
}

// Package service 包含了应用的业务逻辑层。
package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"propguru-go/internal/config"
	"propguru-go/internal/lexicon"
	"propguru-go/internal/model"
	"propguru-go/internal/reply"
	"propguru-go/internal/repository"
	"propguru-go/internal/retrieval"
	"propguru-go/pkg/llm"
	"propguru-go/pkg/log"
)

// 保存对话使用独立的超时，请求被取消也要把已生成的答案写进去
const saveTurnsTimeout = 5 * time.Second

// ChatRequest 是一次咨询请求。Style、Language、RoomID 均可为空。
type ChatRequest struct {
	Query    string `json:"query" binding:"required"`
	Style    string `json:"style"`
	Language string `json:"language"`
	RoomID   string `json:"chat_room_id"`
}

// IndexProvider 提供当前生效的检索索引。
type IndexProvider interface {
	Current(ctx context.Context) (*retrieval.Index, error)
}

// ChatService 定义了咨询对话的接口。两个方法都不返回错误：
// 检索失败降级为零结果，生成失败走降级链，保存失败只记录日志。
type ChatService interface {
	Respond(ctx context.Context, req ChatRequest) model.ChatReply
	// StreamRespond 与 Respond 相同，但支持流式输出的生成器会把分块写给 w。
	StreamRespond(ctx context.Context, req ChatRequest, w llm.MessageWriter) model.ChatReply
}

type chatService struct {
	indexes          IndexProvider
	lex              *lexicon.Lexicon
	ranker           *retrieval.Ranker
	chain            *reply.Chain
	conversationRepo repository.ConversationRepository
	topK             int
	defaults         config.ChatConfig
	now              func() time.Time
}

// NewChatService 创建一个新的 ChatService 实例。
func NewChatService(
	indexes IndexProvider,
	lex *lexicon.Lexicon,
	ranker *retrieval.Ranker,
	chain *reply.Chain,
	conversationRepo repository.ConversationRepository,
	topK int,
	defaults config.ChatConfig,
) ChatService {
	return &chatService{
		indexes:          indexes,
		lex:              lex,
		ranker:           ranker,
		chain:            chain,
		conversationRepo: conversationRepo,
		topK:             topK,
		defaults:         defaults,
		now:              time.Now,
	}
}

// NewRoomID 生成新的聊天室 ID。
func NewRoomID() string {
	return "room_" + uuid.New().String()
}

func (s *chatService) Respond(ctx context.Context, req ChatRequest) model.ChatReply {
	return s.respond(ctx, req, nil)
}

func (s *chatService) StreamRespond(ctx context.Context, req ChatRequest, w llm.MessageWriter) model.ChatReply {
	return s.respond(ctx, req, w)
}

func (s *chatService) respond(ctx context.Context, req ChatRequest, stream llm.MessageWriter) model.ChatReply {
	style := model.ParseStyle(firstNonBlank(req.Style, s.defaults.DefaultStyle))
	lang := model.ParseLanguage(firstNonBlank(req.Language, s.defaults.DefaultLanguage))
	roomID := strings.TrimSpace(req.RoomID)
	if roomID == "" {
		roomID = NewRoomID()
		log.Infof("[ChatService] 创建新聊天室: %s", roomID)
	}
	log.Infof("[ChatService] 收到查询, room: %s, style: %s, language: %s, query: %q", roomID, style, lang, req.Query)

	// 1. 查询理解：特征抽取与情绪分类互不依赖
	features := s.lex.Extract(req.Query)
	sentiment := s.lex.Classify(req.Query, lang)

	// 2. 检索排序，失败降级为零结果
	results := s.retrieve(ctx, req.Query, features)

	// 3. 生成回复
	outcome := s.chain.Run(ctx, reply.Request{
		Query:     req.Query,
		Style:     style,
		Language:  lang,
		Sentiment: sentiment,
		Results:   results,
		Stream:    stream,
	})
	log.Infof("[ChatService] 回复生成完成, room: %s, state: %s, results: %d", roomID, outcome.State, len(results))

	// 4. 保存对话
	s.saveTurns(roomID, req.Query, outcome.Text, results)

	return model.ChatReply{
		Text:       outcome.Text,
		RoomID:     roomID,
		Properties: results,
		Sentiment:  sentiment,
		Style:      style,
		Language:   lang,
	}
}

func (s *chatService) retrieve(ctx context.Context, query string, features lexicon.Features) []model.RankedResult {
	idx, err := s.indexes.Current(ctx)
	if err != nil {
		log.Errorf("[ChatService] 获取检索索引失败，按零结果处理, query: %q, error: %v", query, err)
		return []model.RankedResult{}
	}
	results, err := s.ranker.Rank(ctx, idx, query, features, s.topK)
	if err != nil {
		log.Errorf("[ChatService] 检索排序失败，按零结果处理, query: %q, error: %v", query, err)
		return []model.RankedResult{}
	}
	return results
}

func (s *chatService) saveTurns(roomID, query, answer string, results []model.RankedResult) {
	ctx, cancel := context.WithTimeout(context.Background(), saveTurnsTimeout)
	defer cancel()

	now := s.now()
	turns := []model.ChatTurn{
		{Role: model.RoleUser, Content: query, Timestamp: now},
		{Role: model.RoleAssistant, Content: answer, Timestamp: now, Properties: results},
	}
	if err := s.conversationRepo.AppendTurns(ctx, roomID, turns); err != nil {
		log.Errorf("[ChatService] 保存对话失败, room: %s, error: %v", roomID, err)
	}
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

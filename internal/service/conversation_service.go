// Package service 包含了应用的业务逻辑层。
package service

import (
	"context"

	"propguru-go/internal/lexicon"
	"propguru-go/internal/model"
	"propguru-go/internal/repository"
)

// ConversationService 定义了对话记录查询的接口。
type ConversationService interface {
	// GetHistory 返回聊天室元数据与全部轮次；聊天室不存在时返回 repository.ErrRoomNotFound。
	GetHistory(ctx context.Context, roomID string) (*model.ChatHistory, error)
	// GetInterests 分析聊天室内用户提问涉及的地点、类型、价格与设施关键词。
	GetInterests(ctx context.Context, roomID string) (*model.UserInterests, error)
}

type conversationService struct {
	repo repository.ConversationRepository
	lex  *lexicon.Lexicon
}

// NewConversationService 创建一个新的 ConversationService。
func NewConversationService(repo repository.ConversationRepository, lex *lexicon.Lexicon) ConversationService {
	return &conversationService{repo: repo, lex: lex}
}

func (s *conversationService) GetHistory(ctx context.Context, roomID string) (*model.ChatHistory, error) {
	room, err := s.repo.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	turns, err := s.repo.GetTurns(ctx, roomID)
	if err != nil {
		return nil, err
	}
	return &model.ChatHistory{Room: room, Turns: turns}, nil
}

func (s *conversationService) GetInterests(ctx context.Context, roomID string) (*model.UserInterests, error) {
	if _, err := s.repo.GetRoom(ctx, roomID); err != nil {
		return nil, err
	}
	turns, err := s.repo.GetTurns(ctx, roomID)
	if err != nil {
		return nil, err
	}

	var queries []string
	for _, t := range turns {
		if t.Role == model.RoleUser {
			queries = append(queries, t.Content)
		}
	}
	return &model.UserInterests{
		RoomID:     roomID,
		Interests:  s.lex.AnalyzeInterests(queries),
		QueryCount: len(queries),
	}, nil
}

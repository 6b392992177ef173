// Package repository 提供了数据访问层的实现。
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"propguru-go/internal/model"
)

// ErrRoomNotFound 表示聊天室不存在（或已过期）。
var ErrRoomNotFound = errors.New("chat room not found")

const (
	fieldCreatedAt     = "created_at"
	fieldUpdatedAt     = "updated_at"
	fieldMessageCount  = "message_count"
	fieldLastUser      = "last_user_message"
	fieldLastAssistant = "last_assistant_message"
)

// ConversationRepository 定义了聊天室对话记录的操作接口。
type ConversationRepository interface {
	// AppendTurns 追加对话轮次。聊天室不存在时自动创建；重复追加不去重。
	AppendTurns(ctx context.Context, roomID string, turns []model.ChatTurn) error
	// GetTurns 按写入顺序返回所有轮次，聊天室不存在时返回空列表。
	GetTurns(ctx context.Context, roomID string) ([]model.ChatTurn, error)
	GetRoom(ctx context.Context, roomID string) (*model.ChatRoom, error)
}

type redisConversationRepository struct {
	redisClient *redis.Client
	ttl         time.Duration
}

// NewConversationRepository 创建一个新的 ConversationRepository 实例。ttl <= 0 时不过期。
func NewConversationRepository(redisClient *redis.Client, ttl time.Duration) ConversationRepository {
	return &redisConversationRepository{redisClient: redisClient, ttl: ttl}
}

func turnsKey(roomID string) string {
	return fmt.Sprintf("chatroom:%s:turns", roomID)
}

func metaKey(roomID string) string {
	return fmt.Sprintf("chatroom:%s:meta", roomID)
}

// AppendTurns 在一个事务里写入轮次列表和聊天室元数据。
func (r *redisConversationRepository) AppendTurns(ctx context.Context, roomID string, turns []model.ChatTurn) error {
	if len(turns) == 0 {
		return nil
	}

	values := make([]interface{}, 0, len(turns))
	var lastUser, lastAssistant []byte
	for _, t := range turns {
		data, err := json.Marshal(t)
		if err != nil {
			return fmt.Errorf("failed to marshal chat turn: %w", err)
		}
		values = append(values, data)
		switch t.Role {
		case model.RoleUser:
			lastUser = data
		case model.RoleAssistant:
			lastAssistant = data
		}
	}

	now := time.Now().Format(time.RFC3339Nano)
	meta := []interface{}{fieldUpdatedAt, now}
	if lastUser != nil {
		meta = append(meta, fieldLastUser, lastUser)
	}
	if lastAssistant != nil {
		meta = append(meta, fieldLastAssistant, lastAssistant)
	}

	_, err := r.redisClient.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, turnsKey(roomID), values...)
		pipe.HSetNX(ctx, metaKey(roomID), fieldCreatedAt, now)
		pipe.HSet(ctx, metaKey(roomID), meta...)
		pipe.HIncrBy(ctx, metaKey(roomID), fieldMessageCount, int64(len(turns)))
		if r.ttl > 0 {
			pipe.Expire(ctx, turnsKey(roomID), r.ttl)
			pipe.Expire(ctx, metaKey(roomID), r.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to append chat turns: %w", err)
	}
	return nil
}

// GetTurns 从 Redis 获取聊天室的全部轮次。
func (r *redisConversationRepository) GetTurns(ctx context.Context, roomID string) ([]model.ChatTurn, error) {
	raw, err := r.redisClient.LRange(ctx, turnsKey(roomID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get chat turns: %w", err)
	}
	turns := make([]model.ChatTurn, 0, len(raw))
	for _, item := range raw {
		var t model.ChatTurn
		if err := json.Unmarshal([]byte(item), &t); err != nil {
			return nil, fmt.Errorf("failed to unmarshal chat turn: %w", err)
		}
		turns = append(turns, t)
	}
	return turns, nil
}

// GetRoom 读取聊天室元数据。
func (r *redisConversationRepository) GetRoom(ctx context.Context, roomID string) (*model.ChatRoom, error) {
	fields, err := r.redisClient.HGetAll(ctx, metaKey(roomID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get chat room: %w", err)
	}
	if len(fields) == 0 {
		return nil, ErrRoomNotFound
	}

	room := &model.ChatRoom{ID: roomID}
	room.CreatedAt, _ = time.Parse(time.RFC3339Nano, fields[fieldCreatedAt])
	room.UpdatedAt, _ = time.Parse(time.RFC3339Nano, fields[fieldUpdatedAt])
	room.MessageCount, _ = strconv.ParseInt(fields[fieldMessageCount], 10, 64)
	if room.LastUserMessage, err = decodeTurn(fields[fieldLastUser]); err != nil {
		return nil, err
	}
	if room.LastAssistantMessage, err = decodeTurn(fields[fieldLastAssistant]); err != nil {
		return nil, err
	}
	return room, nil
}

func decodeTurn(raw string) (*model.ChatTurn, error) {
	if raw == "" {
		return nil, nil
	}
	var t model.ChatTurn
	if err := json.Unmarshal([]byte(raw), &t); err != nil {
		return nil, fmt.Errorf("failed to unmarshal chat turn: %w", err)
	}
	return &t, nil
}

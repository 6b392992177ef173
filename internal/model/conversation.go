package model

import "time"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatTurn 代表存储在 Redis 中的单条对话消息。
type ChatTurn struct {
	Role       string         `json:"role"` // "user" 或 "assistant"
	Content    string         `json:"content"`
	Timestamp  time.Time      `json:"timestamp"`
	Properties []RankedResult `json:"properties,omitempty"`
}

// ChatRoom 是聊天室的元数据，turns 单独存放。
type ChatRoom struct {
	ID                   string    `json:"chatRoomId"`
	CreatedAt            time.Time `json:"createdAt"`
	UpdatedAt            time.Time `json:"updatedAt"`
	MessageCount         int64     `json:"messageCount"`
	LastUserMessage      *ChatTurn `json:"lastUserMessage"`
	LastAssistantMessage *ChatTurn `json:"lastAssistantMessage"`
}

// ChatReply 是 Respond 的返回值。
type ChatReply struct {
	Text       string         `json:"response"`
	RoomID     string         `json:"chat_room_id"`
	Properties []RankedResult `json:"properties"`
	Sentiment  Sentiment      `json:"sentiment"`
	Style      Style          `json:"style"`
	Language   Language       `json:"language"`
}

// UserInterests 是对聊天室中用户提问的关键词分析结果。
type UserInterests struct {
	RoomID     string              `json:"chatRoomId"`
	Interests  map[string][]string `json:"interests"`
	QueryCount int                 `json:"queryCount"`
}

// ChatHistory 是聊天室元数据加上按顺序排列的全部轮次。
type ChatHistory struct {
	Room  *ChatRoom  `json:"room"`
	Turns []ChatTurn `json:"messages"`
}

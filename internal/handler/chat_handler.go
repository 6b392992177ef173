// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"propguru-go/internal/model"
	"propguru-go/internal/service"
	"propguru-go/pkg/log"
)

var (
	upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return true // 允许所有来源
		},
	}
)

// ChatHandler 负责处理咨询请求，支持普通 HTTP 与 WebSocket 流式两种方式。
type ChatHandler struct {
	chatService service.ChatService
}

// NewChatHandler 创建一个新的 ChatHandler。
func NewChatHandler(chatService service.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

// Chat 处理 POST /api/v1/chat。
func (h *ChatHandler) Chat(c *gin.Context) {
	var req service.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Query) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "query 不能为空", "data": nil})
		return
	}

	resp := h.chatService.Respond(c.Request.Context(), req)
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": resp})
}

// ListStyles 返回所有支持的咨询语气。
func (h *ChatHandler) ListStyles(c *gin.Context) {
	styles := make([]gin.H, 0, len(model.Styles))
	for _, s := range model.Styles {
		styles = append(styles, gin.H{"value": s, "label": model.StyleLabels[s]})
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": styles})
}

// Handle 处理一个 WebSocket 连接。每条消息是一个 JSON 请求（或纯文本查询），
// 回复以 {"chunk": ...} 分块下发，最后发送一条 completion 消息，携带最终文本和房源。
func (h *ChatHandler) Handle(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("WebSocket 升级失败", err)
		return
	}
	defer conn.Close()
	log.Infof("WebSocket 连接已建立, remote: %s", conn.RemoteAddr())

	// 同一连接上的后续查询默认沿用第一次分配的聊天室
	var roomID string
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			log.Warnf("从 WebSocket 读取消息失败: %v", err)
			return
		}
		req, ok := parseSocketRequest(message)
		if !ok {
			b, _ := json.Marshal(map[string]string{"error": "query 不能为空"})
			if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
				return
			}
			continue
		}
		if req.RoomID == "" {
			req.RoomID = roomID
		}

		writer := &chunkWriter{conn: conn}
		resp := h.chatService.StreamRespond(c.Request.Context(), req, writer)
		roomID = resp.RoomID
		if err := writer.finish(resp); err != nil {
			log.Warnf("写入 WebSocket 完成消息失败: %v", err)
			return
		}
	}
}

func parseSocketRequest(message []byte) (service.ChatRequest, bool) {
	var req service.ChatRequest
	trimmed := strings.TrimSpace(string(message))
	if strings.HasPrefix(trimmed, "{") {
		if err := json.Unmarshal([]byte(trimmed), &req); err != nil {
			return req, false
		}
	} else {
		req.Query = trimmed
	}
	return req, strings.TrimSpace(req.Query) != ""
}

// chunkWriter 把降级链转发的分块包装成 JSON 写到连接上。
// 只有最终胜出的那次生成的分块会到达这里；finish 之后的写入一律丢弃。
type chunkWriter struct {
	mu       sync.Mutex
	conn     *websocket.Conn
	streamed bool
	closed   bool
}

// WriteMessage 满足 llm.MessageWriter 接口。
func (w *chunkWriter) WriteMessage(messageType int, data []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.streamed = true
	b, _ := json.Marshal(map[string]string{"chunk": string(data)})
	return w.conn.WriteMessage(messageType, b)
}

// finish 没有流式分块时补发整段文本，然后发送完成通知。
func (w *chunkWriter) finish(resp model.ChatReply) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true

	if !w.streamed {
		b, _ := json.Marshal(map[string]string{"chunk": resp.Text})
		if err := w.conn.WriteMessage(websocket.TextMessage, b); err != nil {
			return err
		}
	}
	now := time.Now()
	notif := map[string]interface{}{
		"type":         "completion",
		"status":       "finished",
		"message":      "响应已完成",
		"response":     resp.Text,
		"chat_room_id": resp.RoomID,
		"properties":   resp.Properties,
		"sentiment":    resp.Sentiment,
		"timestamp":    now.UnixMilli(),
		"date":         now.Format("2006-01-02T15:04:05"),
	}
	b, _ := json.Marshal(notif)
	return w.conn.WriteMessage(websocket.TextMessage, b)
}

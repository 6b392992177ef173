// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"propguru-go/internal/repository"
	"propguru-go/internal/service"
	"propguru-go/pkg/log"
)

// ConversationHandler 处理与聊天室记录相关的 API 请求。
type ConversationHandler struct {
	service service.ConversationService
}

// NewConversationHandler 创建一个新的 ConversationHandler。
func NewConversationHandler(service service.ConversationService) *ConversationHandler {
	return &ConversationHandler{service: service}
}

// GetRoom 处理 GET /api/v1/chat/rooms/:roomId。
func (h *ConversationHandler) GetRoom(c *gin.Context) {
	roomID := c.Param("roomId")
	history, err := h.service.GetHistory(c.Request.Context(), roomID)
	if err != nil {
		respondRoomError(c, roomID, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": history})
}

// GetInterests 处理 GET /api/v1/chat/rooms/:roomId/interests。
func (h *ConversationHandler) GetInterests(c *gin.Context) {
	roomID := c.Param("roomId")
	interests, err := h.service.GetInterests(c.Request.Context(), roomID)
	if err != nil {
		respondRoomError(c, roomID, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": interests})
}

func respondRoomError(c *gin.Context, roomID string, err error) {
	if errors.Is(err, repository.ErrRoomNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"code": http.StatusNotFound, "message": "聊天室不存在", "data": nil})
		return
	}
	log.Errorf("获取聊天室 %s 失败: %v", roomID, err)
	c.JSON(http.StatusInternalServerError, gin.H{
		"code":    http.StatusInternalServerError,
		"message": "Failed to retrieve chat room",
		"data":    nil,
	})
}

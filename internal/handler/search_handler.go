package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"propguru-go/internal/service"
	"propguru-go/pkg/log"
)

// SearchHandler 结构体定义了房源关键词检索的处理器。
type SearchHandler struct {
	searchService service.SearchService
}

// NewSearchHandler 创建一个新的 SearchHandler 实例。
func NewSearchHandler(searchService service.SearchService) *SearchHandler {
	return &SearchHandler{
		searchService: searchService,
	}
}

// SearchListings 处理 GET /api/v1/listings/search?query=&type=&size=。
func (h *SearchHandler) SearchListings(c *gin.Context) {
	query := c.Query("query")
	log.Infof("[SearchHandler] 收到房源检索请求, query: %s", query)

	if query == "" {
		log.Warnf("[SearchHandler] 搜索请求失败: query 参数为空")
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的查询参数"})
		return
	}
	size, err := strconv.Atoi(c.DefaultQuery("size", "10"))
	if err != nil || size <= 0 {
		size = 10
	}

	results, err := h.searchService.SearchListings(c.Request.Context(), query, c.Query("type"), size)
	if err != nil {
		log.Errorf("[SearchHandler] 房源检索服务返回错误, error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "搜索失败"})
		return
	}

	log.Infof("[SearchHandler] 房源检索成功, query: '%s', 返回 %d 条结果", query, len(results))
	c.JSON(http.StatusOK, gin.H{"code": 200, "data": results, "message": "success"})
}

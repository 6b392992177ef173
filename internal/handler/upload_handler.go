// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"propguru-go/internal/pipeline"
	"propguru-go/internal/service"
	"propguru-go/pkg/log"
)

// UploadHandler 负责处理目录文件上传相关的 API 请求。
type UploadHandler struct {
	uploadService service.UploadService
	maxBytes      int64
}

// NewUploadHandler 创建一个新的 UploadHandler 实例。
func NewUploadHandler(uploadService service.UploadService, maxBytes int64) *UploadHandler {
	return &UploadHandler{uploadService: uploadService, maxBytes: maxBytes}
}

// Upload 处理 POST /api/v1/catalog/upload（multipart 字段 "file"）。
func (h *UploadHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "未能获取上传的文件"})
		return
	}
	if h.maxBytes > 0 && fileHeader.Size > h.maxBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"code": http.StatusRequestEntityTooLarge, "message": service.ErrFileTooLarge.Error()})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "无法读取上传的文件"})
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "无法读取上传的文件"})
		return
	}

	record, err := h.uploadService.Upload(c.Request.Context(), fileHeader.Filename, data)
	switch {
	case err == nil:
	case pipeline.IsFormatError(err):
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": err.Error()})
		return
	case errors.Is(err, service.ErrFileTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"code": http.StatusRequestEntityTooLarge, "message": err.Error()})
		return
	default:
		log.Error("Upload: failed to upload catalog", err)
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "目录上传失败: " + err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"code":    http.StatusAccepted,
		"message": "文件上传成功，导入任务已发送到 Kafka",
		"data":    record,
	})
}

// GetUpload 处理 GET /api/v1/catalog/uploads/:id。
func (h *UploadHandler) GetUpload(c *gin.Context) {
	dto, err := h.uploadService.GetUpload(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"code": http.StatusNotFound, "message": "未找到上传记录"})
			return
		}
		log.Error("GetUpload: failed", err)
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "获取上传状态失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "获取上传状态成功", "data": dto})
}

// ListUploads 处理 GET /api/v1/catalog/uploads。
func (h *UploadHandler) ListUploads(c *gin.Context) {
	records, err := h.uploadService.ListUploads(c.Request.Context())
	if err != nil {
		log.Error("ListUploads: failed", err)
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "获取上传列表失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": records})
}

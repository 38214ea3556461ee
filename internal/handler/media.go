package handler

import (
	"net/http"

	"messenger/internal/service"
	"messenger/pkg/logger"

	"github.com/gin-gonic/gin"
)

type MediaHandler struct {
	mediaService service.MediaService
	log          logger.Logger
}

func NewMediaHandler(mediaService service.MediaService, log logger.Logger) *MediaHandler {
	return &MediaHandler{
		mediaService: mediaService,
		log:          log,
	}
}

// Upload принимает файл и возвращает URL. В сообщение попадает только URL.
func (h *MediaHandler) Upload(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	defer file.Close()

	url, err := h.mediaService.Store(c.Request.Context(), header.Filename, file)
	if err != nil {
		h.log.Error("Failed to store upload", "error", err, "filename", header.Filename)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store file"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"url": url})
}

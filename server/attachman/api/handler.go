package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"task_server/server/attachman/domain"
	"task_server/server/attachman/service"
	commonauth "task_server/server/common/auth"
	"task_server/server/common/middleware"
	"task_server/server/common/transport/httpresp"
)

// Transport-layer safety caps, distinct from the task-level cumulative
// quota the service enforces.
const (
	maxFilesPerRequest = 10
	maxFileSizeBytes   = 50 * 1024 * 1024
)

type Handler struct {
	attachments *service.AttachmentService
	auth        *commonauth.Service
	readyCheck  func(context.Context) error
}

func NewHandler(attachments *service.AttachmentService, auth *commonauth.Service, readyCheck func(context.Context) error) *Handler {
	return &Handler{attachments: attachments, auth: auth, readyCheck: readyCheck}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.ready)
	r.GET("/health/live", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/health/ready", h.ready)

	api := r.Group("/api/v1")
	api.Use(middleware.AuthRequired(h.auth))
	{
		api.POST("/tasks/:taskID/attachments", h.upload)
		api.GET("/tasks/:taskID/attachments", h.list)
		api.GET("/tasks/:taskID/attachments/:attachmentID/download", h.download)
		api.PATCH("/tasks/:taskID/attachments/:attachmentID", h.rename)
		api.DELETE("/tasks/:taskID/attachments/:attachmentID", h.remove)
		api.DELETE("/tasks/:taskID/attachments", h.removeAll)
		api.POST("/tasks/:taskID/attachments/copy", h.copyAll)
	}
}

func (h *Handler) ready(c *gin.Context) {
	if h.readyCheck != nil {
		if err := h.readyCheck(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) upload(c *gin.Context) {
	userID, err := actorFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, httpresp.NewErrorResponse(httpresp.ErrUnauthorized))
		return
	}
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, httpresp.NewErrorResponse(err.Error()))
		return
	}
	headers := form.File["files"]
	if len(headers) > maxFilesPerRequest {
		c.JSON(http.StatusBadRequest, httpresp.NewErrorResponse(httpresp.ErrTooManyFiles))
		return
	}

	files := make([]domain.FileUpload, 0, len(headers))
	for _, fh := range headers {
		if fh.Size > maxFileSizeBytes {
			c.JSON(http.StatusBadRequest, httpresp.NewErrorResponse(httpresp.ErrFileTooLarge))
			return
		}
		f, err := fh.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, httpresp.NewErrorResponse(err.Error()))
			return
		}
		data, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			c.JSON(http.StatusBadRequest, httpresp.NewErrorResponse(err.Error()))
			return
		}
		files = append(files, domain.FileUpload{
			OriginalName: fh.Filename,
			MediaType:    fh.Header.Get("Content-Type"),
			SizeBytes:    fh.Size,
			Bytes:        data,
		})
	}

	result, err := h.attachments.Upload(c.Request.Context(), c.Param("taskID"), files, userID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h *Handler) list(c *gin.Context) {
	result, err := h.attachments.Get(c.Request.Context(), c.Param("taskID"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) download(c *gin.Context) {
	rc, att, err := h.attachments.Download(c.Request.Context(), c.Param("taskID"), c.Param("attachmentID"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	defer rc.Close()
	c.DataFromReader(http.StatusOK, att.FileSize, att.FileType, rc, map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", att.FileName),
	})
}

func (h *Handler) rename(c *gin.Context) {
	var req struct {
		FileName string `json:"file_name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpresp.NewErrorResponse(err.Error()))
		return
	}
	att, err := h.attachments.Rename(c.Request.Context(), c.Param("taskID"), c.Param("attachmentID"), req.FileName)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, att)
}

func (h *Handler) remove(c *gin.Context) {
	userID, err := actorFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, httpresp.NewErrorResponse(httpresp.ErrUnauthorized))
		return
	}
	if err := h.attachments.Delete(c.Request.Context(), c.Param("taskID"), c.Param("attachmentID"), userID); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpresp.NewMessageResponse("attachment deleted"))
}

func (h *Handler) removeAll(c *gin.Context) {
	if err := h.attachments.DeleteAllForTask(c.Request.Context(), c.Param("taskID")); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpresp.NewOKResponse())
}

func (h *Handler) copyAll(c *gin.Context) {
	userID, err := actorFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, httpresp.NewErrorResponse(httpresp.ErrUnauthorized))
		return
	}
	var req struct {
		DestinationTaskID string `json:"destination_task_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpresp.NewErrorResponse(err.Error()))
		return
	}
	result, err := h.attachments.CopyAllForTask(c.Request.Context(), c.Param("taskID"), req.DestinationTaskID, userID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h *Handler) writeError(c *gin.Context, err error) {
	var quotaErr *domain.QuotaExceededError
	var formatErr *domain.InvalidFormatError
	switch {
	case errors.Is(err, domain.ErrTaskNotFound),
		errors.Is(err, domain.ErrAttachmentNotFound),
		errors.Is(err, domain.ErrObjectNotFound):
		c.JSON(http.StatusNotFound, httpresp.NewErrorResponse(err.Error()))
	case errors.Is(err, domain.ErrForbidden):
		c.JSON(http.StatusForbidden, httpresp.NewErrorResponse(httpresp.ErrForbidden))
	case errors.As(err, &quotaErr):
		c.JSON(http.StatusRequestEntityTooLarge, httpresp.NewQuotaErrorResponse(err.Error(), quotaErr.CurrentSize, quotaErr.AttemptedSize))
	case errors.As(err, &formatErr), errors.Is(err, domain.ErrEmptyBatch):
		c.JSON(http.StatusBadRequest, httpresp.NewErrorResponse(err.Error()))
	default:
		c.JSON(http.StatusInternalServerError, httpresp.NewErrorResponse(err.Error()))
	}
}

func actorFromContext(c *gin.Context) (string, error) {
	rawUserID, ok := c.Get("auth_user_id")
	if !ok {
		return "", http.ErrNoCookie
	}
	userID, ok := rawUserID.(string)
	if !ok || userID == "" {
		return "", http.ErrNoCookie
	}
	return userID, nil
}

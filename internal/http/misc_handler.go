package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"vmforge/internal/email"
)

// MiscHandler agrupa health check y formulario de contacto.
type MiscHandler struct {
	logger *zap.Logger
	sender email.Sender
}

func NewMiscHandler(logger *zap.Logger, sender email.Sender) *MiscHandler {
	return &MiscHandler{
		logger: logger,
		sender: sender,
	}
}

// Health maneja GET /api/health.
func (h *MiscHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"message": "service running",
	})
}

// Contact maneja POST /api/contact. El reenvío por correo es best-effort.
func (h *MiscHandler) Contact(c *gin.Context) {
	var req struct {
		Name    string `json:"name" binding:"required"`
		Email   string `json:"email" binding:"required,email"`
		Message string `json:"message" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid contact request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	h.logger.Info("contact message received",
		zap.String("name", req.Name),
		zap.String("email", req.Email),
	)

	if h.sender != nil {
		if err := h.sender.SendContactMessage(c.Request.Context(), req.Name, req.Email, req.Message); err != nil {
			h.logger.Warn("contact forward failed", zap.Error(err))
		}
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

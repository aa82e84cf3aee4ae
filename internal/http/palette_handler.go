package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"emotion-diary/internal/domain"
)

// PaletteManager resuelve y actualiza la paleta de un usuario.
type PaletteManager interface {
	Resolve(ctx context.Context, userID string) domain.Palette
	Update(ctx context.Context, userID string, update domain.StoredPalette) (domain.Palette, error)
}

type PaletteHandler struct {
	logger   *zap.Logger
	palettes PaletteManager
}

func NewPaletteHandler(logger *zap.Logger, palettes PaletteManager) *PaletteHandler {
	return &PaletteHandler{logger: logger, palettes: palettes}
}

// GetPalette maneja GET /users/:uid/palette.
func (h *PaletteHandler) GetPalette(c *gin.Context) {
	userID := strings.TrimSpace(c.Param("uid"))
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if !authorizeUser(c, userID) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"uid": userID, "palette": h.palettes.Resolve(c.Request.Context(), userID)})
}

// PutPalette maneja PUT /users/:uid/palette. Los roles omitidos conservan su valor.
func (h *PaletteHandler) PutPalette(c *gin.Context) {
	userID := strings.TrimSpace(c.Param("uid"))
	var req struct {
		Bright    *string `json:"bright"`
		Energetic *string `json:"energetic"`
		Dark      *string `json:"dark"`
		Calm      *string `json:"calm"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || userID == "" {
		h.logger.Warn("invalid palette request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if !authorizeUser(c, userID) {
		return
	}

	palette, err := h.palettes.Update(c.Request.Context(), userID, domain.StoredPalette{
		UserID:    userID,
		Bright:    req.Bright,
		Energetic: req.Energetic,
		Dark:      req.Dark,
		Calm:      req.Calm,
	})
	if err != nil {
		if errors.Is(err, domain.ErrColorEmpty) || errors.Is(err, domain.ErrColorInvalidFormat) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("update palette failed", zap.String("uid", userID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update palette"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"uid": userID, "palette": palette})
}

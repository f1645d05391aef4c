package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-ticketing/internal/model"
)

// LogoStore keeps the single site logo.
type LogoStore interface {
	Get(ctx context.Context) (*model.Logo, error)
	Replace(ctx context.Context, l *model.Logo) error
	Delete(ctx context.Context) error
}

type LogoHandler struct {
	Logos LogoStore
}

func NewLogoHandler(s LogoStore) *LogoHandler { return &LogoHandler{Logos: s} }

type logoReq struct {
	Name      string `json:"name"`
	ImageData string `json:"imageData"`
	Type      string `json:"type"`
}

func (h *LogoHandler) Get(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	l, err := h.Logos.Get(ctx)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, l)
}

// Upload replaces any existing logo.
func (h *LogoHandler) Upload(c echo.Context) error {
	var req logoReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if strings.TrimSpace(req.ImageData) == "" {
		return badRequest(c, "imageData is required")
	}
	l := model.Logo{Name: strings.TrimSpace(req.Name), ImageData: req.ImageData, Type: req.Type}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Logos.Replace(ctx, &l); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, l)
}

func (h *LogoHandler) Delete(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Logos.Delete(ctx); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-ticketing/internal/model"
)

// AdvertisementStore is the banner persistence.
type AdvertisementStore interface {
	List(ctx context.Context) ([]model.Advertisement, error)
	ListActive(ctx context.Context) ([]model.Advertisement, error)
	GetByID(ctx context.Context, id string) (*model.Advertisement, error)
	Create(ctx context.Context, ad *model.Advertisement) error
	CreateBatch(ctx context.Context, ads []model.Advertisement) ([]model.Advertisement, error)
	Update(ctx context.Context, ad *model.Advertisement) error
	Delete(ctx context.Context, id string) error
	DeleteAll(ctx context.Context) error
	Reorder(ctx context.Context, ids []string) error
}

// AdvertisementHandler serves /api/advertisements.
type AdvertisementHandler struct {
	Ads AdvertisementStore
}

func NewAdvertisementHandler(s AdvertisementStore) *AdvertisementHandler {
	return &AdvertisementHandler{Ads: s}
}

type adReq struct {
	Name         string  `json:"name"`
	ImageData    *string `json:"imageData"`
	Type         string  `json:"type"`
	Size         string  `json:"size"`
	DisplayOrder *int    `json:"displayOrder"`
	Active       *bool   `json:"active"`
}

// toModel builds a new advertisement. Active defaults to true.
func (r adReq) toModel() model.Advertisement {
	ad := model.Advertisement{Name: strings.TrimSpace(r.Name), Type: r.Type, Size: r.Size, Active: true}
	if r.ImageData != nil {
		ad.ImageData = *r.ImageData
	}
	if r.DisplayOrder != nil {
		ad.DisplayOrder = *r.DisplayOrder
	}
	if r.Active != nil {
		ad.Active = *r.Active
	}
	return ad
}

func (h *AdvertisementHandler) List(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	out, err := h.Ads.List(ctx)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AdvertisementHandler) ListActive(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	out, err := h.Ads.ListActive(ctx)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AdvertisementHandler) Get(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	ad, err := h.Ads.GetByID(ctx, c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, ad)
}

func (h *AdvertisementHandler) Create(c echo.Context) error {
	var req adReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if req.ImageData == nil || *req.ImageData == "" {
		return badRequest(c, "imageData is required")
	}
	ad := req.toModel()
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Ads.Create(ctx, &ad); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, ad)
}

// CreateBatch stores several advertisements after the existing ones.
func (h *AdvertisementHandler) CreateBatch(c echo.Context) error {
	var reqs []adReq
	if err := c.Bind(&reqs); err != nil {
		return badRequest(c, "invalid body")
	}
	if len(reqs) == 0 {
		return badRequest(c, "at least one advertisement is required")
	}
	ads := make([]model.Advertisement, 0, len(reqs))
	for _, r := range reqs {
		ads = append(ads, r.toModel())
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	out, err := h.Ads.CreateBatch(ctx, ads)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *AdvertisementHandler) Update(c echo.Context) error {
	var req adReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	ad, err := h.Ads.GetByID(ctx, c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	setIfNotEmpty(&ad.Name, req.Name)
	setIfNotEmpty(&ad.Type, req.Type)
	setIfNotEmpty(&ad.Size, req.Size)
	if req.ImageData != nil {
		ad.ImageData = *req.ImageData
	}
	if req.DisplayOrder != nil {
		ad.DisplayOrder = *req.DisplayOrder
	}
	if req.Active != nil {
		ad.Active = *req.Active
	}
	if err := h.Ads.Update(ctx, ad); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, ad)
}

func (h *AdvertisementHandler) Delete(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Ads.Delete(ctx, c.Param("id")); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *AdvertisementHandler) DeleteAll(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Ads.DeleteAll(ctx); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Reorder takes the ids in their new order and returns the reordered list.
func (h *AdvertisementHandler) Reorder(c echo.Context) error {
	var ids []string
	if err := c.Bind(&ids); err != nil {
		return badRequest(c, "body must be an array of ids")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Ads.Reorder(ctx, ids); err != nil {
		return writeError(c, err)
	}
	out, err := h.Ads.List(ctx)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

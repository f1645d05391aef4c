package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-ticketing/internal/model"
	"github.com/iliyamo/event-ticketing/internal/repository"
	"github.com/iliyamo/event-ticketing/internal/utils"
)

// UserHandler serves /api/users.
type UserHandler struct {
	Users      UserStore
	BcryptCost int
}

func NewUserHandler(u UserStore, bcryptCost int) *UserHandler {
	return &UserHandler{Users: u, BcryptCost: bcryptCost}
}

type userReq struct {
	Name        string  `json:"name"`
	Email       string  `json:"email"`
	Password    string  `json:"password"`
	Role        string  `json:"role"`
	AvatarImage *string `json:"avatarImage"`
}

type changePasswordReq struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type resetPasswordReq struct {
	Email       string `json:"email"`
	NewPassword string `json:"newPassword"`
}

func (h *UserHandler) List(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	out, err := h.Users.List(ctx)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *UserHandler) Get(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	u, err := h.Users.GetByID(ctx, c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, u)
}

func (h *UserHandler) GetByEmail(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	u, err := h.Users.GetByEmail(ctx, c.Param("email"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, u)
}

func (h *UserHandler) Search(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	out, err := h.Users.SearchByName(ctx, c.QueryParam("name"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// Create adds a user with any role (admin only).
func (h *UserHandler) Create(c echo.Context) error {
	var req userReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return badRequest(c, "email/password required")
	}
	role := model.RoleCustomer
	if req.Role != "" {
		r, ok := model.NormalizeRole(req.Role)
		if !ok {
			return badRequest(c, "role must be ADMIN, ORGANIZER or CUSTOMER")
		}
		role = r
	}
	u := model.User{Name: strings.TrimSpace(req.Name), Email: req.Email, Role: role}
	if req.AvatarImage != nil {
		u.AvatarImage = *req.AvatarImage
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Users.Create(ctx, &u, req.Password, h.BcryptCost); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, u)
}

// Update applies a partial update. A non-empty password is re-hashed.
func (h *UserHandler) Update(c echo.Context) error {
	var req userReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Users.GetByID(ctx, c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	setIfNotEmpty(&u.Name, req.Name)
	setIfNotEmpty(&u.Email, req.Email)
	if req.Role != "" {
		r, ok := model.NormalizeRole(req.Role)
		if !ok {
			return badRequest(c, "role must be ADMIN, ORGANIZER or CUSTOMER")
		}
		u.Role = r
	}
	if req.AvatarImage != nil {
		u.AvatarImage = *req.AvatarImage
	}
	if err := h.Users.Update(ctx, &u); err != nil {
		return writeError(c, err)
	}
	if req.Password != "" {
		hash, err := utils.HashPassword(req.Password, h.BcryptCost)
		if err != nil {
			return writeError(c, err)
		}
		if err := h.Users.UpdatePassword(ctx, u.ID, hash); err != nil {
			return writeError(c, err)
		}
	}
	return c.JSON(http.StatusOK, u)
}

func (h *UserHandler) Delete(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Users.Delete(ctx, c.Param("id")); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ChangePassword lets the authenticated user replace their password after
// proving the current one.
func (h *UserHandler) ChangePassword(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	var req changePasswordReq
	if err := c.Bind(&req); err != nil || req.NewPassword == "" {
		return badRequest(c, "currentPassword and newPassword required")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		return writeError(c, err)
	}
	if !utils.VerifyPassword(u.PasswordHash, req.CurrentPassword) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "current password is incorrect"})
	}
	hash, err := utils.HashPassword(req.NewPassword, h.BcryptCost)
	if err != nil {
		return writeError(c, err)
	}
	if err := h.Users.UpdatePassword(ctx, uid, hash); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "password updated"})
}

// ResetPassword sets a new password for the user with the given email.
func (h *UserHandler) ResetPassword(c echo.Context) error {
	var req resetPasswordReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Email) == "" || req.NewPassword == "" {
		return badRequest(c, "email and newPassword required")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return writeError(c, err)
	}
	hash, err := utils.HashPassword(req.NewPassword, h.BcryptCost)
	if err != nil {
		return writeError(c, err)
	}
	if err := h.Users.UpdatePassword(ctx, u.ID, hash); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "password reset"})
}

package handler

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/charlene/kitchen-api/internal/dto"
	"github.com/charlene/kitchen-api/internal/media"
	"github.com/charlene/kitchen-api/internal/middleware"
	"github.com/charlene/kitchen-api/internal/service"
)

type AuthHandler struct {
	authService *service.AuthService
	uploader    media.Uploader
	log         *slog.Logger
}

func NewAuthHandler(authService *service.AuthService, uploader media.Uploader, log *slog.Logger) *AuthHandler {
	return &AuthHandler{authService: authService, uploader: uploader, log: log}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	resp, err := h.authService.Register(c.Request.Context(), req)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	created(c, "registration successful", resp)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	resp, err := h.authService.Login(c.Request.Context(), req)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	ok(c, "login successful", resp)
}

func (h *AuthHandler) Me(c *gin.Context) {
	ok(c, "", middleware.CurrentUser(c))
}

func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	var req dto.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	user, err := h.authService.UpdateProfile(c.Request.Context(), middleware.CurrentUser(c).ID, req)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	ok(c, "profile updated", user)
}

func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req dto.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	err := h.authService.ChangePassword(c.Request.Context(), middleware.CurrentUser(c).ID, req.CurrentPassword, req.NewPassword)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	ok(c, "password changed", nil)
}

func (h *AuthHandler) UploadAvatar(c *gin.Context) {
	fh, err := c.FormFile("avatar")
	if err != nil {
		badRequest(c, "avatar file is required")
		return
	}
	if err := media.CheckUpload(fh, media.MaxAvatarSize); err != nil {
		badRequest(c, err.Error())
		return
	}

	f, err := fh.Open()
	if err != nil {
		fail(c, h.log, err)
		return
	}
	defer f.Close()

	img, err := h.uploader.UploadAvatar(c.Request.Context(), f)
	if err != nil {
		fail(c, h.log, err)
		return
	}

	previous, err := h.authService.SetAvatar(c.Request.Context(), middleware.CurrentUser(c).ID, img.URL, img.PublicID)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	if previous != "" {
		if err := h.uploader.Delete(c.Request.Context(), previous); err != nil {
			h.log.Warn("delete previous avatar", "public_id", previous, "error", err)
		}
	}

	ok(c, "avatar updated", dto.UploadResponse{URL: img.URL, PublicID: img.PublicID})
}

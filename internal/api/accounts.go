package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"campus/internal/account"
	"campus/internal/auth"
	"campus/internal/media"
)

func (h *Handler) register(c *gin.Context) {
	var in account.Registration
	if !bind(c, &in) {
		return
	}
	out, err := h.Accounts.Register(c.Request.Context(), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

func (h *Handler) login(c *gin.Context) {
	var in account.Credentials
	if !bind(c, &in) {
		return
	}
	pair, err := h.Accounts.Login(c.Request.Context(), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"refresh": pair.RefreshToken, "access": pair.AccessToken})
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

func (h *Handler) refresh(c *gin.Context) {
	var in refreshRequest
	if !bind(c, &in) {
		return
	}
	if in.Refresh == "" {
		c.JSON(http.StatusBadRequest, gin.H{"refresh": "This field is required."})
		return
	}
	access, err := h.Accounts.Refresh(c.Request.Context(), in.Refresh)
	if errors.Is(err, account.ErrInvalidRefresh) {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": msgTokenNotValid, "code": "token_not_valid"})
		return
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"access": access})
}

// logout answers 400 for any unusable token, including a missing or malformed body.
func (h *Handler) logout(c *gin.Context) {
	var in refreshRequest
	if err := c.ShouldBindJSON(&in); err != nil || in.Refresh == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgInvalidRefresh})
		return
	}
	if err := h.Accounts.Logout(c.Request.Context(), in.Refresh); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusResetContent, gin.H{"detail": msgLoggedOut})
}

func (h *Handler) getProfile(c *gin.Context) {
	p, err := h.Accounts.Profile(c.Request.Context(), auth.UserID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) updateProfile(c *gin.Context) {
	var in account.ProfileUpdate
	if !bind(c, &in) {
		return
	}
	p, err := h.Accounts.UpdateProfile(c.Request.Context(), auth.UserID(c), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// uploadProfileImage stores the multipart "image" file and points the caller's profile at it.
func (h *Handler) uploadProfileImage(c *gin.Context) {
	url, ok := h.upload(c, "image", "profiles", true)
	if !ok {
		return
	}
	p, err := h.Accounts.UpdateProfile(c.Request.Context(), auth.UserID(c), account.ProfileUpdate{Image: &url})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// upload stores the multipart file in field under folder and returns its URL.
// A missing file yields "" unless required is set.
func (h *Handler) upload(c *gin.Context, field, folder string, required bool) (string, bool) {
	fh, err := c.FormFile(field)
	if err != nil {
		if !required {
			return "", true
		}
		c.JSON(http.StatusBadRequest, gin.H{field: "No file was submitted."})
		return "", false
	}
	body, err := fh.Open()
	if err != nil {
		h.fail(c, err)
		return "", false
	}
	defer body.Close()
	f := media.File{Name: fh.Filename, Size: fh.Size, Body: body}
	if err := media.CheckImage(field, &f); err != nil {
		h.fail(c, err)
		return "", false
	}

	url, err := h.Media.Upload(c.Request.Context(), folder, f)
	if err != nil {
		h.fail(c, err)
		return "", false
	}
	return url, true
}

package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"campus/internal/auth"
	"campus/internal/notify"
)

func (h *Handler) registerDevice(c *gin.Context) {
	var in notify.DeviceInput
	if !bind(c, &in) {
		return
	}
	d, err := h.Devices.Register(c.Request.Context(), auth.UserID(c), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, d)
}

func (h *Handler) unregisterDevice(c *gin.Context) {
	var in struct {
		Token string `json:"token"`
	}
	if !bind(c, &in) {
		return
	}
	if err := h.Devices.Unregister(c.Request.Context(), auth.UserID(c), in.Token); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

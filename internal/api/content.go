package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"campus/internal/auth"
	"campus/internal/event"
	"campus/internal/notice"
	"campus/internal/routine"
)

// bindContent decodes a JSON or multipart body. A multipart image in field is uploaded and passed to setImage.
func (h *Handler) bindContent(c *gin.Context, v any, field, folder string, setImage func(url string)) bool {
	if c.ContentType() != "multipart/form-data" {
		return bind(c, v)
	}
	if err := c.ShouldBind(v); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgMalformedBody})
		return false
	}
	url, ok := h.upload(c, field, folder, false)
	if !ok {
		return false
	}
	if url != "" {
		setImage(url)
	}
	return true
}

func (h *Handler) listNotices(c *gin.Context) {
	limit, offset := 0, 0
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if v := c.Query("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			offset = parsed
		}
	}
	notices, err := h.Notices.List(c.Request.Context(), c.Query("query"), limit, offset)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, notices)
}

func (h *Handler) getNotice(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	n, err := h.Notices.Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, n)
}

func (h *Handler) createNotice(c *gin.Context) {
	var in notice.Input
	if !h.bindContent(c, &in, "featured_image", "notices", func(url string) { in.FeaturedImage = url }) {
		return
	}
	n, err := h.Notices.Create(c.Request.Context(), auth.UserID(c), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, n)
}

func (h *Handler) updateNotice(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var in notice.Input
	if !h.bindContent(c, &in, "featured_image", "notices", func(url string) { in.FeaturedImage = url }) {
		return
	}
	n, err := h.Notices.Update(c.Request.Context(), id, in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, n)
}

func (h *Handler) patchNotice(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var in notice.Patch
	if !bind(c, &in) {
		return
	}
	n, err := h.Notices.Patch(c.Request.Context(), id, in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, n)
}

func (h *Handler) deleteNotice(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	if err := h.Notices.Delete(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) listRoutines(c *gin.Context) {
	f := routine.Filter{Day: c.Query("day")}
	if v := c.Query("semester"); v != "" {
		sem, err := strconv.Atoi(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"semester": "Enter a whole number."})
			return
		}
		f.Semester = &sem
	}
	routines, err := h.Routines.List(c.Request.Context(), f)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, routines)
}

func (h *Handler) getRoutine(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	r, err := h.Routines.Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

func (h *Handler) createRoutine(c *gin.Context) {
	var in routine.Input
	if !bind(c, &in) {
		return
	}
	r, err := h.Routines.Create(c.Request.Context(), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, r)
}

func (h *Handler) updateRoutine(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var in routine.Input
	if !bind(c, &in) {
		return
	}
	r, err := h.Routines.Update(c.Request.Context(), id, in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

func (h *Handler) patchRoutine(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var in routine.Patch
	if !bind(c, &in) {
		return
	}
	r, err := h.Routines.Patch(c.Request.Context(), id, in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

func (h *Handler) deleteRoutine(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	if err := h.Routines.Delete(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) listEvents(c *gin.Context) {
	events, err := h.Events.List(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, events)
}

func (h *Handler) getEvent(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	e, err := h.Events.Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

func (h *Handler) createEvent(c *gin.Context) {
	var in event.Input
	if !h.bindContent(c, &in, "image", "events", func(url string) { in.Image = url }) {
		return
	}
	e, err := h.Events.Create(c.Request.Context(), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, e)
}

func (h *Handler) updateEvent(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var in event.Input
	if !h.bindContent(c, &in, "image", "events", func(url string) { in.Image = url }) {
		return
	}
	e, err := h.Events.Update(c.Request.Context(), id, in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

func (h *Handler) patchEvent(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var in event.Patch
	if !bind(c, &in) {
		return
	}
	e, err := h.Events.Patch(c.Request.Context(), id, in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

func (h *Handler) deleteEvent(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	if err := h.Events.Delete(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"campus/internal/account"
)

func (h *Handler) listUsers(c *gin.Context) {
	users, err := h.Admin.ListUsers(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

func (h *Handler) getUser(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	u, err := h.Admin.GetUser(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h *Handler) createUser(c *gin.Context) {
	var in account.NewUser
	if !bind(c, &in) {
		return
	}
	u, err := h.Admin.CreateUser(c.Request.Context(), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, u)
}

// updateUser serves PUT and PATCH. Absent fields are left unchanged.
func (h *Handler) updateUser(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var in account.UserUpdate
	if !bind(c, &in) {
		return
	}
	u, err := h.Admin.UpdateUser(c.Request.Context(), id, in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h *Handler) deleteUser(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	if err := h.Admin.DeleteUser(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) listGroups(c *gin.Context) {
	groups, err := h.Admin.ListGroups(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, groups)
}

func (h *Handler) getGroup(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	g, err := h.Admin.GetGroup(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, g)
}

func (h *Handler) createGroup(c *gin.Context) {
	var in account.GroupInput
	if !bind(c, &in) {
		return
	}
	g, err := h.Admin.CreateGroup(c.Request.Context(), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, g)
}

func (h *Handler) updateGroup(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var in account.GroupInput
	if !bind(c, &in) {
		return
	}
	g, err := h.Admin.UpdateGroup(c.Request.Context(), id, in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, g)
}

func (h *Handler) deleteGroup(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	if err := h.Admin.DeleteGroup(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) listAdmissions(c *gin.Context) {
	rows, err := h.Admin.ListAdmissions(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (h *Handler) getAdmission(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	a, err := h.Admin.GetAdmission(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

func (h *Handler) createAdmission(c *gin.Context) {
	var in account.AdmissionInput
	if !bind(c, &in) {
		return
	}
	a, err := h.Admin.CreateAdmission(c.Request.Context(), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, a)
}

func (h *Handler) updateAdmission(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var in account.AdmissionInput
	if !bind(c, &in) {
		return
	}
	a, err := h.Admin.UpdateAdmission(c.Request.Context(), id, in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

// patchAdmission decodes the body over the stored row so absent fields keep their values.
func (h *Handler) patchAdmission(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	cur, err := h.Admin.GetAdmission(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	in := account.AdmissionInput{
		Name:      cur.Name,
		Email:     cur.Email,
		RollNo:    cur.RollNo,
		Semester:  cur.Semester,
		Dob:       cur.Dob,
		Address:   cur.Address,
		Shift:     cur.Shift,
		Programme: cur.Programme,
		Contact:   cur.Contact,
	}
	if !bind(c, &in) {
		return
	}
	a, err := h.Admin.UpdateAdmission(c.Request.Context(), id, in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

func (h *Handler) deleteAdmission(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	if err := h.Admin.DeleteAdmission(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

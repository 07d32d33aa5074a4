package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(tokens *Tokens) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", Authenticate(tokens), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": UserID(c)})
	})
	r.GET("/admin", Authenticate(tokens), RequireStaff(nil), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

type staffTable map[int64]bool

func (s staffTable) IsActiveStaff(_ context.Context, id int64) (bool, error) {
	if id == 99 {
		return false, errors.New("db down")
	}
	return s[id], nil
}

func TestRequireStaffRechecksAccount(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tokens := NewTokens("secret", "campus-api", time.Minute, time.Hour)
	r := gin.New()
	r.GET("/admin", Authenticate(tokens), RequireStaff(staffTable{1: true, 2: false}), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	tests := []struct {
		name string
		id   int64
		role string
		want int
	}{
		{"active staff", 1, RoleStaff, http.StatusNoContent},
		{"demoted since token issued", 2, RoleStaff, http.StatusForbidden},
		{"unknown account", 5, RoleStaff, http.StatusForbidden},
		{"student token", 1, RoleStudent, http.StatusForbidden},
		{"lookup failure", 99, RoleStaff, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pair, err := tokens.Issue(tt.id, tt.role)
			require.NoError(t, err)
			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestAuthenticate(t *testing.T) {
	tokens := NewTokens("secret", "campus-api", time.Minute, time.Hour)
	r := newTestRouter(tokens)
	student, err := tokens.Issue(3, RoleStudent)
	require.NoError(t, err)
	staff, err := tokens.Issue(1, RoleStaff)
	require.NoError(t, err)

	tests := []struct {
		name   string
		path   string
		header string
		want   int
	}{
		{name: "missing header", path: "/me", want: http.StatusUnauthorized},
		{name: "not bearer", path: "/me", header: "Basic abc", want: http.StatusUnauthorized},
		{name: "refresh token refused", path: "/me", header: "Bearer " + student.RefreshToken, want: http.StatusUnauthorized},
		{name: "access token", path: "/me", header: "Bearer " + student.AccessToken, want: http.StatusOK},
		{name: "student on admin route", path: "/admin", header: "Bearer " + student.AccessToken, want: http.StatusForbidden},
		{name: "staff on admin route", path: "/admin", header: "bearer " + staff.AccessToken, want: http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestUserIDAnonymous(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Equal(t, int64(0), UserID(c))
}

package auth

import (
	"context"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const claimsKey = "claims"

// Authenticate enforces bearer access tokens signed with HS256.
func Authenticate(tokens *Tokens) gin.HandlerFunc {
	return func(c *gin.Context) {
		authz := c.GetHeader("Authorization")
		if authz == "" || !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication credentials were not provided."})
			return
		}
		tokenStr := strings.TrimSpace(authz[len("bearer "):])
		claims, err := tokens.Parse(tokenStr, TypeAccess)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Given token not valid for any token type"})
			return
		}
		if _, err := claims.UserID(); err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Given token not valid for any token type"})
			return
		}
		c.Set(claimsKey, claims)
		c.Next()
	}
}

// StaffLookup reports whether an account is active staff right now.
type StaffLookup interface {
	IsActiveStaff(ctx context.Context, userID int64) (bool, error)
}

// RequireStaff lets only staff accounts through. It must run after Authenticate.
// With a non-nil lookup the account itself is checked too, so a demoted or
// deactivated account is refused while its access token is still valid.
func RequireStaff(lookup StaffLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := ClaimsFrom(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication credentials were not provided."})
			return
		}
		if !claims.IsStaff() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "You do not have permission to perform this action."})
			return
		}
		if lookup != nil {
			id, _ := claims.UserID()
			staff, err := lookup.IsActiveStaff(c.Request.Context(), id)
			if err != nil {
				log.Printf("staff lookup for user %d failed: %v", id, err)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
				return
			}
			if !staff {
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "You do not have permission to perform this action."})
				return
			}
		}
		c.Next()
	}
}

// ClaimsFrom returns the claims stored by Authenticate.
func ClaimsFrom(c *gin.Context) (Claims, bool) {
	v, ok := c.Get(claimsKey)
	if !ok {
		return Claims{}, false
	}
	claims, ok := v.(Claims)
	return claims, ok
}

// UserID returns the authenticated account id, or 0 when the request is anonymous.
func UserID(c *gin.Context) int64 {
	claims, ok := ClaimsFrom(c)
	if !ok {
		return 0
	}
	id, _ := claims.UserID()
	return id
}

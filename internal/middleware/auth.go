package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"welfare/internal/auth"
)

const claimsKey = "staffClaims"

// RequireStaff rejects requests without a valid staff bearer token and stores
// the claims on the context.
func RequireStaff(tokens *auth.TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		claims, err := tokens.Parse(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}

		c.Set(claimsKey, claims)
		c.Next()
	}
}

// RequirePermission rejects staff whose role does not grant permission.
// It must run after RequireStaff.
func RequirePermission(permission auth.Permission) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := StaffClaims(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "not signed in"})
			return
		}
		if !auth.Allowed(claims.Role, permission) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "role " + string(claims.Role) + " may not " + string(permission)})
			return
		}
		c.Next()
	}
}

// StaffClaims returns the claims stored by RequireStaff.
func StaffClaims(c *gin.Context) (*auth.Claims, bool) {
	v, ok := c.Get(claimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*auth.Claims)
	return claims, ok
}

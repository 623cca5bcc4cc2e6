package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/perpusda/sipus/internal/entity"
	"github.com/perpusda/sipus/internal/scope"
)

const scopeKey = "scope"

type Claims struct {
	Role   string `json:"role"`
	RoomID string `json:"room_id,omitempty"`
	jwt.RegisteredClaims
}

type AuthMiddleware struct {
	secret string
}

func NewAuthMiddleware(secret string) *AuthMiddleware {
	if secret == "" {
		secret = "12345"
	}
	return &AuthMiddleware{secret: secret}
}

// RequireAuth validates the bearer token and stores the resolved identity
// scope on the request context.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := ""
		authHeader := c.GetHeader("Authorization")

		if authHeader != "" {
			parts := strings.Split(authHeader, " ")
			if len(parts) == 2 && parts[0] == "Bearer" {
				tokenString = parts[1]
			}
		}

		if tokenString == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authorization required"})
			c.Abort()
			return
		}

		token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(m.secret), nil
		})
		if err != nil || !token.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			c.Abort()
			return
		}

		claims, ok := token.Claims.(*Claims)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token claims"})
			c.Abort()
			return
		}

		userID, err := uuid.Parse(claims.Subject)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token subject"})
			c.Abort()
			return
		}

		sc := scope.Scope{
			UserID: userID,
			Role:   claims.Role,
		}
		if claims.RoomID != "" {
			if roomID, err := uuid.Parse(claims.RoomID); err == nil {
				sc.RoomID = &roomID
			}
		}

		c.Set(scopeKey, sc)
		c.Set("user_id", claims.Subject)
		c.Next()
	}
}

// RequireSuperAdmin gates routes reserved for the super admin.
func (m *AuthMiddleware) RequireSuperAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		sc, ok := GetScope(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
			c.Abort()
			return
		}
		if sc.Role != entity.RoleSuperAdmin {
			c.JSON(http.StatusForbidden, gin.H{"error": "super admin access required"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// GetScope returns the identity scope stored by RequireAuth.
func GetScope(c *gin.Context) (scope.Scope, bool) {
	v, exists := c.Get(scopeKey)
	if !exists {
		return scope.Scope{}, false
	}
	sc, ok := v.(scope.Scope)
	return sc, ok
}

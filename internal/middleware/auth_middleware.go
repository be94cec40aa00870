package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/Dhoini/Donation-platform/pkg/logger"
	"github.com/Dhoini/Donation-platform/pkg/res"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// ContextKey тип для ключей контекста во избежание коллизий.
type ContextKey string

const (
	// ContextDonorIDKey ключ для хранения ID жертвователя в контексте запроса.
	ContextDonorIDKey ContextKey = "donorID"
	authHeaderPrefix             = "Bearer "
)

// TokenClaims полезная нагрузка токена доступа.
type TokenClaims struct {
	Scope string `json:"scope"`
	jwt.RegisteredClaims
}

// JWTMiddleware проверяет токены доступа на защищенных маршрутах.
type JWTMiddleware struct {
	secret []byte
	log    *logger.Logger
}

// NewJWTMiddleware создает новый экземпляр JWTMiddleware.
func NewJWTMiddleware(secret string, log *logger.Logger) *JWTMiddleware {
	return &JWTMiddleware{
		secret: []byte(secret),
		log:    log,
	}
}

// RequireAuth возвращает gin.HandlerFunc, требующий валидный токен доступа.
func (m *JWTMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			m.handleAuthError(c, "Missing authorization token")
			return
		}

		tokenString := strings.TrimPrefix(authHeader, authHeaderPrefix)
		claims := &TokenClaims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return m.secret, nil
		})
		if err != nil || !token.Valid {
			m.handleAuthError(c, "Token validation failed")
			return
		}

		if claims.Scope != "access" {
			m.handleAuthError(c, "Insufficient token permissions")
			return
		}

		donorID := claims.Subject
		if donorID == "" {
			m.handleAuthError(c, "Donor ID (sub) missing in token")
			return
		}

		c.Set(string(ContextDonorIDKey), donorID)
		m.log.Debugw("Donor authenticated", "donorID", donorID)
		c.Next()
	}
}

func (m *JWTMiddleware) handleAuthError(c *gin.Context, message string) {
	m.log.Warnw("Authentication failed", "path", c.Request.URL.Path, "error", message)
	res.JsonResponse(c.Writer, res.ErrorResponse{
		Error:     message,
		ErrorCode: http.StatusUnauthorized,
	}, http.StatusUnauthorized)
	c.Abort()
}

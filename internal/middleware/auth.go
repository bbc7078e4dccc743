package middleware

import (
	"crypto/subtle"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/codyseavey/sorcery-tracker/internal/models"
)

// userKey is the gin context key UserAuth stores the resolved user under.
const userKey = "user"

// bearerToken extracts the token from "Authorization: Bearer <token>". On
// failure it returns the error code and message to send back.
func bearerToken(c *gin.Context) (token, code, message string) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", "AUTH_REQUIRED", "Authorization header required"
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", "AUTH_INVALID_FORMAT", "Invalid authorization format. Use: Bearer <token>"
	}
	return strings.TrimSpace(parts[1]), "", ""
}

// AdminKeyAuth returns middleware that requires the admin key for access.
// An empty key disables the check (local development).
func AdminKeyAuth(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if key == "" {
			c.Next()
			return
		}

		provided, code, message := bearerToken(c)
		if code != "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": message, "code": code})
			return
		}

		// Constant-time comparison to prevent timing attacks
		if subtle.ConstantTimeCompare([]byte(provided), []byte(key)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid admin key",
				"code":  "AUTH_INVALID_KEY",
			})
			return
		}

		c.Next()
	}
}

// UserAuth resolves the bearer token to a user and stores it on the context.
// Every owner-scoped route sits behind it.
func UserAuth(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, status, body := lookupUser(c, db)
		if user == nil {
			c.AbortWithStatusJSON(status, body)
			return
		}
		c.Set(userKey, user)
		c.Next()
	}
}

func lookupUser(c *gin.Context, db *gorm.DB) (*models.User, int, gin.H) {
	token, code, message := bearerToken(c)
	if code != "" {
		return nil, http.StatusUnauthorized, gin.H{"error": message, "code": code}
	}

	var user models.User
	err := db.Where("api_token = ?", token).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, http.StatusUnauthorized, gin.H{"error": "Invalid API token", "code": "AUTH_INVALID_TOKEN"}
	}
	if err != nil {
		log.Printf("Auth: user lookup failed: %v", err)
		return nil, http.StatusInternalServerError, gin.H{"error": "Failed to verify token"}
	}
	return &user, http.StatusOK, nil
}

// CurrentUser returns the user UserAuth stored on the context, or nil.
func CurrentUser(c *gin.Context) *models.User {
	v, ok := c.Get(userKey)
	if !ok {
		return nil
	}
	user, _ := v.(*models.User)
	return user
}

// SetUser stores a user on the context the way UserAuth does.
func SetUser(c *gin.Context, user *models.User) {
	c.Set(userKey, user)
}

// VerifyToken reports whether the presented API token belongs to a user.
// Used by clients to check that a stored token is still valid.
func VerifyToken(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, status, body := lookupUser(c, db)
		if user == nil {
			body["valid"] = false
			c.JSON(status, body)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"valid": true,
			"user":  gin.H{"id": user.ID, "name": user.Name},
		})
	}
}

// AuthStatus is a public endpoint describing which auth checks are active.
func AuthStatus(adminKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"auth_enabled":       true,
			"admin_auth_enabled": adminKey != "",
		})
	}
}

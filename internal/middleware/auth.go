package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/charlene/kitchen-api/internal/apperr"
	"github.com/charlene/kitchen-api/internal/dto"
	"github.com/charlene/kitchen-api/internal/model"
	"github.com/charlene/kitchen-api/internal/repository"
)

const userKey = "currentUser"

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, dto.Envelope{Success: false, Message: message})
}

// RequireAuth verifies the bearer token, loads the account it names and
// stores it in the request context. Disabled accounts are rejected even
// when their token is otherwise valid.
func RequireAuth(userRepo repository.UserRepository, secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			abortUnauthorized(c, "authentication required")
			return
		}

		userID, err := parseToken(header[7:], secret)
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				abortUnauthorized(c, apperr.ErrTokenExpired.Error())
				return
			}
			abortUnauthorized(c, apperr.ErrTokenMalformed.Error())
			return
		}

		user, err := userRepo.GetByID(c.Request.Context(), userID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, dto.Envelope{Success: false, Message: "internal server error"})
			return
		}
		if user == nil {
			abortUnauthorized(c, apperr.ErrTokenMalformed.Error())
			return
		}
		if !user.IsActive {
			abortUnauthorized(c, apperr.ErrAccountDisabled.Error())
			return
		}

		c.Set(userKey, user)
		c.Next()
	}
}

// OptionalAuth loads the user when a valid token is present and proceeds
// anonymously otherwise.
func OptionalAuth(userRepo repository.UserRepository, secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if strings.HasPrefix(header, "Bearer ") {
			if userID, err := parseToken(header[7:], secret); err == nil {
				if user, err := userRepo.GetByID(c.Request.Context(), userID); err == nil && user != nil && user.IsActive {
					c.Set(userKey, user)
				}
			}
		}
		c.Next()
	}
}

// RequireAdmin must run after RequireAuth.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil || !user.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, dto.Envelope{Success: false, Message: apperr.ErrForbidden.Error()})
			return
		}
		c.Next()
	}
}

func parseToken(raw, secret string) (primitive.ObjectID, error) {
	token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil {
		return primitive.NilObjectID, err
	}
	if !token.Valid {
		return primitive.NilObjectID, jwt.ErrTokenMalformed
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return primitive.NilObjectID, jwt.ErrTokenInvalidClaims
	}
	sub, _ := claims["sub"].(string)
	userID, err := primitive.ObjectIDFromHex(sub)
	if err != nil {
		return primitive.NilObjectID, jwt.ErrTokenInvalidClaims
	}
	return userID, nil
}

// CurrentUser returns the authenticated user, or nil on anonymous
// requests.
func CurrentUser(c *gin.Context) *model.User {
	v, _ := c.Get(userKey)
	user, _ := v.(*model.User)
	return user
}

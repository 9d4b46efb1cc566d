package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"backoffice/internal/model"
	"backoffice/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const callerKey = contextKey("caller")

// Claims carried by back-office access tokens.
type Claims struct {
	Role     string `json:"role"`
	BranchID string `json:"branch_id,omitempty"`
	jwt.RegisteredClaims
}

// IssueToken signs an access token for the caller.
func IssueToken(secret []byte, caller model.Caller, ttl time.Duration) (string, error) {
	claims := Claims{
		Role: caller.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   caller.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}
	if caller.BranchID != nil {
		claims.BranchID = caller.BranchID.String()
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// ParseCaller validates the token and resolves the caller it identifies.
func ParseCaller(secret []byte, tokenString string) (model.Caller, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return secret, nil
	})
	if err != nil {
		return model.Caller{}, err
	}
	if !token.Valid {
		return model.Caller{}, errors.New("token is not valid")
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return model.Caller{}, errors.New("token subject is not a valid id")
	}
	caller := model.Caller{UserID: userID, Role: claims.Role}
	if claims.BranchID != "" {
		branchID, err := uuid.Parse(claims.BranchID)
		if err != nil {
			return model.Caller{}, errors.New("token branch_id is not a valid id")
		}
		caller.BranchID = &branchID
	}
	return caller, nil
}

// Authenticate resolves the caller from the access_token cookie or the Bearer header.
func Authenticate(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, cookieErr := c.Cookie("access_token")
		if cookieErr != nil || tokenString == "" {
			authHeader := c.GetHeader("Authorization")
			if authHeader == "" {
				c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Authorization is missing"))
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid authorization format. Expected 'Bearer <token>'"))
				return
			}
			tokenString = parts[1]
		}

		caller, err := ParseCaller(secret, tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid token: "+err.Error()))
			return
		}

		SetCaller(c, caller)
		setLogger(c, GetLoggerFromContext(c).With(
			slog.String("user_id", caller.UserID.String()),
			slog.String("role", caller.Role),
		))

		c.Next()
	}
}

// RequireRole rejects callers whose role is not in allowedRoles.
func RequireRole(allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := CallerFromContext(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Authorization is missing"))
			return
		}
		if !caller.HasRole(allowedRoles...) {
			c.AbortWithStatusJSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Access denied: insufficient permissions"))
			return
		}
		c.Next()
	}
}

// SetCaller stores the caller on both the gin and the request context.
func SetCaller(c *gin.Context, caller model.Caller) {
	c.Set(string(callerKey), caller)
	c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), callerKey, caller))
}

// CallerFromContext returns the authenticated caller.
func CallerFromContext(c *gin.Context) (model.Caller, bool) {
	if v, exists := c.Get(string(callerKey)); exists {
		if caller, ok := v.(model.Caller); ok {
			return caller, true
		}
	}
	return CallerFromCtx(c.Request.Context())
}

func CallerFromCtx(ctx context.Context) (model.Caller, bool) {
	caller, ok := ctx.Value(callerKey).(model.Caller)
	return caller, ok
}

package httpkit

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"hiring_assistant_backend/platform/config"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	// ContextSessionIDKey is the gin context key for the token's session id.
	ContextSessionIDKey = "sessionID"

	tokenTypeSession = "session"

	errMissingToken = "missing token"
	errInvalidToken = "invalid token"
)

var errTokenInvalid = errors.New(errInvalidToken)

// IssueSessionToken signs a token that authorizes calls for one session.
func IssueSessionToken(cfg config.TokenConfig, sessionID string, now time.Time) (string, time.Time, error) {
	expiresAt := now.Add(cfg.GetSessionTokenTTL())
	claims := jwt.MapClaims{
		"sub":  sessionID,
		"type": tokenTypeSession,
		"iat":  now.Unix(),
		"exp":  expiresAt.Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.GetSessionTokenSecret()))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// ParseSessionToken validates rawToken and returns its session id.
func ParseSessionToken(cfg config.TokenConfig, rawToken string) (string, error) {
	parsed, err := jwt.Parse(rawToken, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return []byte(cfg.GetSessionTokenSecret()), nil
	})
	if err != nil || !parsed.Valid {
		return "", errTokenInvalid
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return "", errTokenInvalid
	}
	if tokenType, _ := claims["type"].(string); tokenType != tokenTypeSession {
		return "", errTokenInvalid
	}
	sessionID, _ := claims["sub"].(string)
	if strings.TrimSpace(sessionID) == "" {
		return "", errTokenInvalid
	}
	return sessionID, nil
}

// SessionTokenRequired rejects requests whose bearer token was not issued
// for the session named by the :id path parameter.
func SessionTokenRequired(cfg config.TokenConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		rawToken, ok := extractBearerToken(c.GetHeader("Authorization"))
		if !ok {
			abortUnauthorized(c, errMissingToken)
			return
		}

		sessionID, err := ParseSessionToken(cfg, rawToken)
		if err != nil || sessionID != c.Param("id") {
			abortUnauthorized(c, errInvalidToken)
			return
		}

		c.Set(ContextSessionIDKey, sessionID)
		c.Next()
	}
}

func extractBearerToken(authHeader string) (string, bool) {
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}

	rawToken := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if rawToken == "" {
		return "", false
	}

	return rawToken, true
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: message})
}

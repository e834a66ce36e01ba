package middleware

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	apperrors "spendwise/internal/errors"
	"spendwise/internal/models"
	"spendwise/internal/permissions"
	"spendwise/internal/uuid"
)

const (
	tokenIssuer = "spendwise-api"

	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// Context keys set by AuthMiddleware.
const (
	ContextUserID = "userID"
	ContextEmail  = "email"
	ContextRole   = "role"
)

var errInvalidToken = errors.New("invalid token")

// JWTClaims represents the claims in the JWT
type JWTClaims struct {
	UserID    string      `json:"user_id"`
	Email     string      `json:"email"`
	Role      models.Role `json:"role"`
	TokenType string      `json:"token_type"`
	jwt.RegisteredClaims
}

// TokenManager issues and verifies HS256 access and refresh tokens.
type TokenManager struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewTokenManager creates a TokenManager signing with secret.
func NewTokenManager(secret string, accessTTL, refreshTTL time.Duration) *TokenManager {
	return &TokenManager{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// AccessTTL is the lifetime of issued access tokens.
func (m *TokenManager) AccessTTL() time.Duration { return m.accessTTL }

// GenerateAccessToken generates a short-lived JWT access token for a user.
func (m *TokenManager) GenerateAccessToken(user *models.User) (string, error) {
	return m.sign(user, tokenTypeAccess, m.accessTTL)
}

// GenerateRefreshToken generates a long-lived JWT refresh token for a user.
func (m *TokenManager) GenerateRefreshToken(user *models.User) (string, error) {
	return m.sign(user, tokenTypeRefresh, m.refreshTTL)
}

func (m *TokenManager) sign(user *models.User, tokenType string, ttl time.Duration) (string, error) {
	now := m.now()
	claims := &JWTClaims{
		UserID:    user.ID,
		Email:     user.Email,
		Role:      user.Role,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
			Subject:   user.ID,
			ID:        uuid.New(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// ValidateAccessToken parses an access token. Refresh tokens are rejected.
func (m *TokenManager) ValidateAccessToken(tokenString string) (*JWTClaims, error) {
	return m.parse(tokenString, tokenTypeAccess)
}

// ValidateRefreshToken parses and validates a refresh token JWT.
// Returns the claims if valid, or an error if the token is invalid,
// expired, or not a refresh token.
func (m *TokenManager) ValidateRefreshToken(tokenString string) (*JWTClaims, error) {
	return m.parse(tokenString, tokenTypeRefresh)
}

func (m *TokenManager) parse(tokenString, tokenType string) (*JWTClaims, error) {
	claims := &JWTClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithIssuer(tokenIssuer), jwt.WithTimeFunc(m.now))
	if err != nil || !token.Valid {
		return nil, errInvalidToken
	}
	if claims.TokenType != tokenType || claims.UserID == "" {
		return nil, errInvalidToken
	}
	return claims, nil
}

// HashToken returns the SHA-256 hex digest of a token string.
func HashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// AuthMiddleware verifies the bearer access token and puts the caller's id,
// email and role in the context.
func AuthMiddleware(tokens *TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortWithError(c, apperrors.WithMessage(apperrors.ErrUnauthorized, "Authorization header is required"))
			return
		}

		scheme, tokenString, ok := strings.Cut(authHeader, " ")
		if !ok || scheme != "Bearer" || tokenString == "" {
			abortWithError(c, apperrors.WithMessage(apperrors.ErrUnauthorized, "Invalid authorization header format"))
			return
		}

		claims, err := tokens.ValidateAccessToken(tokenString)
		if err != nil {
			abortWithError(c, apperrors.WithMessage(apperrors.ErrUnauthorized, "Invalid or expired token"))
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextEmail, claims.Email)
		c.Set(ContextRole, claims.Role)
		c.Next()
	}
}

// RequireRole rejects callers whose role does not meet level. It must run
// after AuthMiddleware.
func RequireRole(level permissions.ProtectionLevel) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, _ := c.Get(ContextRole)
		r, _ := role.(models.Role)
		if !permissions.HasRequiredRole(r, level) {
			abortWithError(c, apperrors.ErrForbidden)
			return
		}
		c.Next()
	}
}

// ActorFromContext returns the authenticated caller set by AuthMiddleware.
func ActorFromContext(c *gin.Context) (permissions.Actor, bool) {
	userID := c.GetString(ContextUserID)
	if userID == "" {
		return permissions.Actor{}, false
	}
	role, _ := c.Get(ContextRole)
	r, _ := role.(models.Role)
	return permissions.Actor{UserID: userID, Role: r}, true
}

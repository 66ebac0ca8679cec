package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"timalaus_progression/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	contextKey = "auth_user"

	defaultAudience = "authenticated"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrMissingUser  = errors.New("authenticated user not found in context")
)

type Config struct {
	JWTSecret string `mapstructure:"jwtSecret"`
	Audience  string `mapstructure:"audience"`
}

// Claims is the subset of a Supabase access token the server relies on.
type Claims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

type UserData struct {
	ID    uuid.UUID
	Email string
	Role  string
}

type SupabaseAuth struct {
	secret   []byte
	audience string
}

func NewSupabaseAuth(cfg Config) *SupabaseAuth {
	audience := cfg.Audience
	if audience == "" {
		audience = defaultAudience
	}
	return &SupabaseAuth{
		secret:   []byte(cfg.JWTSecret),
		audience: audience,
	}
}

// ValidateToken checks the HS256 signature, expiry and audience and returns the user.
func (a *SupabaseAuth) ValidateToken(tokenString string) (*UserData, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(a.audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("%w: subject is not a uuid", ErrInvalidToken)
	}

	return &UserData{ID: id, Email: claims.Email, Role: claims.Role}, nil
}

// IssueToken signs a token the way Supabase does. Used by tooling and tests.
func (a *SupabaseAuth) IssueToken(userID uuid.UUID, email string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Email: email,
		Role:  defaultAudience,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			Audience:  jwt.ClaimStrings{a.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

func (a *SupabaseAuth) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		log := logger.Logger()

		tokenString := bearerToken(c)
		if tokenString == "" {
			log.Info("missing bearer token")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization header is required"})
			return
		}

		user, err := a.ValidateToken(tokenString)
		if err != nil {
			log.Info("invalid access token", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid access token"})
			return
		}

		c.Set(contextKey, user)
		c.Next()
	}
}

// bearerToken reads the Authorization header, or the access_token query parameter for
// websocket upgrades where browsers cannot set headers.
func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header != "" {
		if !strings.HasPrefix(header, "Bearer ") {
			return ""
		}
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	if c.IsWebsocket() {
		return c.Query("access_token")
	}
	return ""
}

func UserFromContext(c *gin.Context) (*UserData, error) {
	v, ok := c.Get(contextKey)
	if !ok {
		return nil, ErrMissingUser
	}
	user, ok := v.(*UserData)
	if !ok {
		return nil, ErrMissingUser
	}
	return user, nil
}

// SetUser stores user on the context as Middleware does.
func SetUser(c *gin.Context, user *UserData) {
	c.Set(contextKey, user)
}

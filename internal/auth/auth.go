package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"ledger-admin-go/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingToken = errors.New("authorization header is required")
	ErrInvalidToken = errors.New("invalid or expired token")
)

const bearerPrefix = "Bearer "

// Claims is the token body issued by the identity provider. The role may be
// carried at the top level or under app_metadata, which clients cannot edit.
type Claims struct {
	Email       string      `json:"email"`
	Role        string      `json:"role"`
	AppMetadata AppMetadata `json:"app_metadata"`
	jwt.RegisteredClaims
}

type AppMetadata struct {
	Role string `json:"role"`
}

// Verifier validates HS256 bearer tokens and maps their role claim onto an
// Actor.
type Verifier struct {
	secret      []byte
	parser      *jwt.Parser
	adminRole   string
	serviceRole string
}

func NewVerifier(cfg models.AuthConfig) (*Verifier, error) {
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(30 * time.Second),
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}

	adminRole := cfg.AdminRole
	if adminRole == "" {
		adminRole = string(models.RoleAdmin)
	}
	serviceRole := cfg.ServiceRole
	if serviceRole == "" {
		serviceRole = string(models.RoleService)
	}

	return &Verifier{
		secret:      []byte(cfg.JWTSecret),
		parser:      jwt.NewParser(opts...),
		adminRole:   adminRole,
		serviceRole: serviceRole,
	}, nil
}

// ExtractToken returns the bearer token from an Authorization header value.
func ExtractToken(header string) (string, error) {
	if header == "" {
		return "", ErrMissingToken
	}
	if !strings.HasPrefix(header, bearerPrefix) {
		return "", fmt.Errorf("%w: bearer token not found", ErrInvalidToken)
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix))
	if token == "" {
		return "", ErrMissingToken
	}
	return token, nil
}

// Verify parses the token and returns the actor it identifies.
func (v *Verifier) Verify(tokenString string) (models.Actor, error) {
	claims := &Claims{}
	token, err := v.parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return v.secret, nil
	})
	if err != nil {
		return models.Actor{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return models.Actor{}, ErrInvalidToken
	}
	if claims.Subject == "" {
		return models.Actor{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	return models.Actor{
		Id:    claims.Subject,
		Email: claims.Email,
		Role:  v.roleOf(claims),
	}, nil
}

func (v *Verifier) roleOf(claims *Claims) models.Role {
	role := claims.AppMetadata.Role
	if role == "" {
		role = claims.Role
	}
	switch role {
	case v.adminRole:
		return models.RoleAdmin
	case v.serviceRole:
		return models.RoleService
	default:
		return models.RoleUser
	}
}

// Sign mints a token for actor. Used by the CLI and tests; production tokens
// come from the identity provider.
func Sign(secret string, actor models.Actor, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Email: actor.Email,
		AppMetadata: AppMetadata{
			Role: string(actor.Role),
		},
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.Id,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

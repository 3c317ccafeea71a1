// Package auth validates the session tokens issued by the identity provider
// and exposes the caller's identity to the directory.
package auth

import (
	"errors"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenTypeAccess is the only token type the directory accepts.
const TokenTypeAccess = "access"

// Roles.
const (
	RoleMember = "member"
	RoleAdmin  = "admin"
)

// AccessTokenExpiry is the lifetime of tokens minted by GenerateAccessToken.
const AccessTokenExpiry = 15 * time.Minute

// DefaultLeeway is the clock skew tolerated during validation.
const DefaultLeeway = 30 * time.Second

// Token errors.
var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
	ErrEmptyUserID  = errors.New("userID cannot be empty")
	ErrUnknownRole  = errors.New("unknown role")
)

// Claims are the JWT claims carried by a session token.
type Claims struct {
	jwt.RegisteredClaims
	Role string `json:"role,omitempty"`
	Type string `json:"typ"`
}

// UserID returns the subject of the token.
func (c *Claims) UserID() string {
	return c.Subject
}

// IsAdmin reports whether the token grants admin access.
func (c *Claims) IsAdmin() bool {
	return c.Role == RoleAdmin
}

// Config configures a JWTService.
type Config struct {
	// Secret signs new tokens and validates existing ones.
	Secret string
	// PreviousSecret, when set, is still accepted for validation during a
	// key rotation.
	PreviousSecret string
	// Leeway defaults to DefaultLeeway.
	Leeway time.Duration
}

// JWTService issues and validates HS256 session tokens.
type JWTService struct {
	secrets [][]byte
	leeway  time.Duration
}

// NewJWTService creates a JWTService. Tokens are signed with cfg.Secret and
// validated against cfg.Secret then cfg.PreviousSecret.
func NewJWTService(cfg Config) *JWTService {
	if cfg.Leeway == 0 {
		cfg.Leeway = DefaultLeeway
	}
	secrets := [][]byte{[]byte(cfg.Secret)}
	if cfg.PreviousSecret != "" {
		secrets = append(secrets, []byte(cfg.PreviousSecret))
	}
	return &JWTService{
		secrets: secrets,
		leeway:  cfg.Leeway,
	}
}

// GenerateAccessToken mints an access token for userID with role.
// It is used by the seeder and tests; production tokens come from the
// identity provider sharing the same secret.
func (s *JWTService) GenerateAccessToken(userID, role string) (string, error) {
	if userID == "" {
		return "", ErrEmptyUserID
	}
	if !slices.Contains([]string{RoleMember, RoleAdmin}, role) {
		return "", ErrUnknownRole
	}

	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(AccessTokenExpiry)),
		},
		Role: role,
		Type: TokenTypeAccess,
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secrets[0])
}

// ValidateToken parses and validates a token against each configured secret
// in turn.
func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	var err error
	for _, secret := range s.secrets {
		var claims *Claims
		claims, err = s.parse(tokenString, secret)
		if err == nil {
			return claims, nil
		}
		if errors.Is(err, jwt.ErrTokenExpired) {
			// Signature matched; another secret will not help.
			break
		}
	}

	if errors.Is(err, jwt.ErrTokenExpired) {
		return nil, ErrExpiredToken
	}
	return nil, ErrInvalidToken
}

// ValidateAccessToken validates a token and requires the access type.
func (s *JWTService) ValidateAccessToken(tokenString string) (*Claims, error) {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Type != TokenTypeAccess || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (s *JWTService) parse(tokenString string, secret []byte) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, ErrInvalidToken
		}
		return secret, nil
	}, jwt.WithLeeway(s.leeway))
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

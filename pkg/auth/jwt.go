package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const Audience = "supperclub-web"

var ErrInvalidToken = errors.New("invalid token")

// Identity is what a session is issued for.
type Identity struct {
	ID                   int64
	Email                string
	Name                 string
	Role                 string
	RoleSelectionPending bool
}

// Claims is the session token body. ID (jti) names the session and stays the
// same across reissues so it can be revoked.
type Claims struct {
	Sub                  int64  `json:"sub"`
	Email                string `json:"email"`
	Name                 string `json:"name,omitempty"`
	Role                 string `json:"role"`
	RoleSelectionPending bool   `json:"role_selection_pending"`
	jwt.RegisteredClaims
}

func (c *Claims) Identity() Identity {
	return Identity{
		ID:                   c.Sub,
		Email:                c.Email,
		Name:                 c.Name,
		Role:                 c.Role,
		RoleSelectionPending: c.RoleSelectionPending,
	}
}

// NewSessionToken starts a new session for id.
func NewSessionToken(id Identity, secret string, ttl time.Duration) (string, *Claims, error) {
	claims := &Claims{
		Sub:                  id.ID,
		Email:                id.Email,
		Name:                 id.Name,
		Role:                 id.Role,
		RoleSelectionPending: id.RoleSelectionPending,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:       uuid.NewString(),
			Audience: []string{Audience},
		},
	}
	return Reissue(claims, secret, ttl)
}

// Reissue signs claims again with a fresh lifetime, keeping the session id.
func Reissue(claims *Claims, secret string, ttl time.Duration) (string, *Claims, error) {
	now := time.Now()
	c := *claims
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.Audience = []string{Audience}
	c.IssuedAt = jwt.NewNumericDate(now)
	c.NotBefore = jwt.NewNumericDate(now)
	c.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &c)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", nil, err
	}
	return signed, &c, nil
}

func Parse(tokenString, secret string) (*Claims, error) {
	tok, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(Audience),
	)
	if err != nil {
		return nil, err
	}
	if claims, ok := tok.Claims.(*Claims); ok && tok.Valid {
		return claims, nil
	}
	return nil, ErrInvalidToken
}

// Remaining is how long the token has left at now.
func (c *Claims) Remaining(now time.Time) time.Duration {
	if c.ExpiresAt == nil {
		return 0
	}
	return c.ExpiresAt.Sub(now)
}

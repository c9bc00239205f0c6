package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"socialhub-backend/internal/models"
)

const inviteType = "invite"

var (
	errMissingSecret = errors.New("JWT_SECRET is not set")

	ErrMissingCredential = errors.New("no token provided")
	ErrInvalidCredential = errors.New("invalid or expired token")
	ErrInvalidInvite     = errors.New("invalid or expired invitation")
)

// Claims is the session payload. Organization is null for users without one.
type Claims struct {
	ID           string  `json:"id"`
	Role         string  `json:"role"`
	Organization *string `json:"organization"`
	jwt.RegisteredClaims
}

type InviteClaims struct {
	Type  string `json:"type"`
	OrgID string `json:"orgId"`
	Role  string `json:"role"`
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies HS256 session and invitation tokens.
type TokenIssuer struct {
	secret    []byte
	ttl       time.Duration
	inviteTTL time.Duration
	now       func() time.Time
}

func NewTokenIssuer(secret string, ttl, inviteTTL time.Duration) (*TokenIssuer, error) {
	if secret == "" {
		return nil, errMissingSecret
	}
	return &TokenIssuer{
		secret:    []byte(secret),
		ttl:       ttl,
		inviteTTL: inviteTTL,
		now:       time.Now,
	}, nil
}

func (t *TokenIssuer) TTL() time.Duration       { return t.ttl }
func (t *TokenIssuer) InviteTTL() time.Duration { return t.inviteTTL }

func (t *TokenIssuer) Issue(user *models.User) (string, error) {
	var org *string
	if id := user.OrganizationID(); id != "" {
		org = &id
	}

	now := t.now()
	claims := Claims{
		ID:           user.ID,
		Role:         strings.ToLower(string(user.Role)),
		Organization: org,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	return t.sign(claims)
}

func (t *TokenIssuer) Parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	if err := t.parse(tokenString, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}
	if claims.ID == "" {
		return nil, ErrInvalidCredential
	}
	return claims, nil
}

// IssueInvite signs an invitation that lets the holder register into orgID as a viewer.
func (t *TokenIssuer) IssueInvite(orgID, email string) (string, error) {
	now := t.now()
	claims := InviteClaims{
		Type:  inviteType,
		OrgID: orgID,
		Role:  string(models.RoleViewer),
		Email: strings.ToLower(strings.TrimSpace(email)),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.inviteTTL)),
		},
	}
	return t.sign(claims)
}

func (t *TokenIssuer) ParseInvite(tokenString string) (*InviteClaims, error) {
	claims := &InviteClaims{}
	if err := t.parse(tokenString, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInvite, err)
	}
	if claims.Type != inviteType || claims.OrgID == "" {
		return nil, ErrInvalidInvite
	}
	return claims, nil
}

func (t *TokenIssuer) sign(claims jwt.Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

func (t *TokenIssuer) parse(tokenString string, claims jwt.Claims) error {
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return err
	}
	if !token.Valid {
		return jwt.ErrTokenInvalidClaims
	}
	return nil
}

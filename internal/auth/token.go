package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"ctfplatform/internal/realtime"
	pkgerrors "ctfplatform/pkg/errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleTeam    = "team"

	tokenTypeAccess = "access"
	defaultTokenTTL = 12 * time.Hour
)

// Identity is the caller behind a valid token.
type Identity struct {
	ID   int64
	Role string
}

// IsSupervisor reports whether the identity has supervisor rights.
func (i Identity) IsSupervisor() bool {
	return i.Role == RoleAdmin || i.Role == RoleManager
}

type tokenClaims struct {
	Role      string `json:"role"`
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

// TokenService issues and validates HS256 access tokens.
type TokenService struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenService creates a TokenService; ttl <= 0 uses 12h.
func NewTokenService(secret, issuer string, ttl time.Duration) *TokenService {
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	return &TokenService{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}
}

// WithClock replaces the time source used for issuing and validation.
func (s *TokenService) WithClock(now func() time.Time) *TokenService {
	s.now = now
	return s
}

// IssueToken signs an access token for subject with role.
func (s *TokenService) IssueToken(subject int64, role string) (string, time.Time, error) {
	if len(s.secret) == 0 {
		return "", time.Time{}, pkgerrors.New(pkgerrors.TokenGenerationFailed)
	}
	if _, err := AudienceForRole(role); err != nil {
		return "", time.Time{}, pkgerrors.Wrap(err, pkgerrors.TokenGenerationFailed)
	}

	now := s.now()
	expiresAt := now.Add(s.ttl)
	claims := tokenClaims{
		Role:      role,
		TokenType: tokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(subject, 10),
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	raw, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, pkgerrors.Wrap(fmt.Errorf("sign token failed: %w", err), pkgerrors.TokenGenerationFailed)
	}
	return raw, expiresAt, nil
}

// Authenticate validates raw and returns the identity it carries.
func (s *TokenService) Authenticate(raw string) (Identity, error) {
	if raw == "" || len(s.secret) == 0 {
		return Identity{}, pkgerrors.New(pkgerrors.TokenInvalid)
	}
	parsed, err := jwt.ParseWithClaims(raw, &tokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, pkgerrors.New(pkgerrors.TokenExpired)
		}
		return Identity{}, pkgerrors.New(pkgerrors.TokenInvalid)
	}
	claims, ok := parsed.Claims.(*tokenClaims)
	if !ok || !parsed.Valid {
		return Identity{}, pkgerrors.New(pkgerrors.TokenInvalid)
	}
	if s.issuer != "" && claims.Issuer != s.issuer {
		return Identity{}, pkgerrors.New(pkgerrors.TokenInvalid)
	}
	if claims.TokenType != tokenTypeAccess {
		return Identity{}, pkgerrors.New(pkgerrors.TokenInvalid)
	}
	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || id <= 0 {
		return Identity{}, pkgerrors.New(pkgerrors.TokenInvalid)
	}
	if _, err := AudienceForRole(claims.Role); err != nil {
		return Identity{}, pkgerrors.New(pkgerrors.TokenInvalid)
	}
	return Identity{ID: id, Role: claims.Role}, nil
}

// Scope maps a presented token to its audience. No token means guests.
func (s *TokenService) Scope(raw string) (realtime.Audience, Identity, error) {
	if raw == "" {
		return realtime.AudienceGuests, Identity{}, nil
	}
	identity, err := s.Authenticate(raw)
	if err != nil {
		return "", Identity{}, err
	}
	audience, err := AudienceForRole(identity.Role)
	if err != nil {
		return "", Identity{}, pkgerrors.New(pkgerrors.TokenInvalid)
	}
	return audience, identity, nil
}

// AudienceForRole maps a token role to an event audience.
func AudienceForRole(role string) (realtime.Audience, error) {
	switch role {
	case RoleAdmin, RoleManager:
		return realtime.AudienceSupervisors, nil
	case RoleTeam:
		return realtime.AudienceTeams, nil
	default:
		return "", fmt.Errorf("unknown role %q", role)
	}
}

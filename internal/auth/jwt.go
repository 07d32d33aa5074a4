package auth

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"

	RoleStaff   = "staff"
	RoleStudent = "student"
)

var (
	ErrInvalidToken   = errors.New("invalid token")
	ErrIssuerMismatch = errors.New("issuer mismatch")
	ErrTokenType      = errors.New("wrong token type")
)

// TokenPair holds access and refresh tokens.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	RefreshID    string
	AccessExp    time.Time
	RefreshExp   time.Time
}

// Claims represents JWT payload. The user id travels in the registered sub claim and the token id in jti.
type Claims struct {
	Role string `json:"role"`
	Type string `json:"typ"`
	jwt.RegisteredClaims
}

// UserID parses the subject as a numeric account id.
func (c Claims) UserID() (int64, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return 0, ErrInvalidToken
	}
	return id, nil
}

// IsStaff reports whether the token was issued to a staff account.
func (c Claims) IsStaff() bool { return c.Role == RoleStaff }

// Role maps the staff flag to a role claim.
func Role(isStaff bool) string {
	if isStaff {
		return RoleStaff
	}
	return RoleStudent
}

// Tokens signs and verifies HS256 tokens for one issuer.
type Tokens struct {
	key        []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewTokens builds a token signer.
func NewTokens(key, issuer string, accessTTL, refreshTTL time.Duration) *Tokens {
	return &Tokens{
		key:        []byte(key),
		issuer:     issuer,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// Issue issues signed access and refresh tokens.
func (t *Tokens) Issue(userID int64, role string) (TokenPair, error) {
	accessToken, accessExp, err := t.Access(userID, role)
	if err != nil {
		return TokenPair{}, err
	}
	refreshID := uuid.NewString()
	refreshToken, refreshExp, err := t.sign(userID, role, TypeRefresh, refreshID, t.refreshTTL)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		RefreshID:    refreshID,
		AccessExp:    accessExp,
		RefreshExp:   refreshExp,
	}, nil
}

// Access issues a single access token.
func (t *Tokens) Access(userID int64, role string) (string, time.Time, error) {
	return t.sign(userID, role, TypeAccess, uuid.NewString(), t.accessTTL)
}

func (t *Tokens) sign(userID int64, role, typ, id string, ttl time.Duration) (string, time.Time, error) {
	now := t.now()
	exp := now.Add(ttl)
	claims := Claims{
		Role: role,
		Type: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.issuer,
			Subject:   strconv.FormatInt(userID, 10),
			ID:        id,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.key)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Parse validates a token of the wanted type and returns claims.
func (t *Tokens) Parse(tokenStr, wantType string) (Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return t.key, nil
	}, jwt.WithTimeFunc(t.now))
	if err != nil {
		return Claims{}, errors.Join(ErrInvalidToken, err)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return Claims{}, ErrInvalidToken
	}
	if t.issuer != "" && claims.Issuer != t.issuer {
		return Claims{}, ErrIssuerMismatch
	}
	if claims.Type != wantType {
		return Claims{}, ErrTokenType
	}
	return *claims, nil
}

package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"trading-academy/internal/domain/model"
	"trading-academy/internal/infra/logging"
)

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid token")
)

// Claims is the bearer token payload: sub is the user id.
type Claims struct {
	Role  string `json:"role"`
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Principal is the authenticated caller attached to the request context.
type Principal struct {
	UserID string
	Email  string
	Role   model.Role
}

type principalKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok && p.UserID != ""
}

type Authenticator struct {
	secret []byte
	ttl    time.Duration
}

func NewAuthenticator(secret string, ttl time.Duration) *Authenticator {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Authenticator{secret: []byte(secret), ttl: ttl}
}

// Issue mints an HS256 token. The service does not own login; this is used by
// dev seeding and tests.
func (a *Authenticator) Issue(userID, email string, role model.Role) (string, error) {
	now := time.Now()
	claims := Claims{
		Role:  string(role),
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

func (a *Authenticator) Parse(tok string) (Principal, error) {
	claims := &Claims{}
	t, err := jwt.ParseWithClaims(tok, claims, func(t *jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !t.Valid {
		return Principal{}, ErrInvalidToken
	}
	sub, _ := claims.GetSubject()
	if sub == "" {
		return Principal{}, ErrInvalidToken
	}
	role, ok := model.ParseRole(claims.Role)
	if !ok {
		role = model.RoleStudent
	}
	return Principal{UserID: sub, Email: claims.Email, Role: role}, nil
}

func (a *Authenticator) fromRequest(r *http.Request) (Principal, error) {
	hdr := r.Header.Get("Authorization")
	if len(hdr) < 7 || !strings.EqualFold(hdr[:7], "bearer ") {
		return Principal{}, ErrMissingToken
	}
	return a.Parse(strings.TrimSpace(hdr[7:]))
}

// Require rejects requests without a valid bearer token.
func (a *Authenticator) Require() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, err := a.fromRequest(r)
			if err != nil {
				WriteError(w, http.StatusUnauthorized, err.Error())
				return
			}
			ctx := logging.WithUserID(WithPrincipal(r.Context(), p), p.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Optional attaches a principal when a valid token is present and otherwise
// lets the request through anonymously.
func (a *Authenticator) Optional() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if p, err := a.fromRequest(r); err == nil {
				r = r.WithContext(logging.WithUserID(WithPrincipal(r.Context(), p), p.UserID))
			}
			next.ServeHTTP(w, r)
		})
	}
}

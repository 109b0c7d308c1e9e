package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"cfadmin/internal/model"
)

const (
	sessionMaxAge = 24 * time.Hour
	tokenIssuer   = "cfadmin"
	adminSubject  = "admin"
)

var (
	ErrInvalidKey   = errors.New("invalid login key")
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("invalid token")
)

// Store is the slice of the credential store the session manager needs.
type Store interface {
	CheckLoginKey(key string) (bool, error)
	GetCredentials() (*model.Credentials, error)
}

type Claims struct {
	jwt.RegisteredClaims
}

type SessionManager struct {
	secret []byte
	store  Store
}

func NewSessionManager(store Store, secret string) *SessionManager {
	return &SessionManager{secret: []byte(secret), store: store}
}

// Login validates the shared login key and issues a signed session
// token with a fixed 24-hour lifetime. A mismatch never reveals which
// check failed.
func (sm *SessionManager) Login(key string) (string, model.User, time.Time, error) {
	ok, err := sm.store.CheckLoginKey(key)
	if err != nil {
		return "", model.User{}, time.Time{}, err
	}
	if !ok {
		return "", model.User{}, time.Time{}, ErrInvalidKey
	}

	now := time.Now()
	expiresAt := now.Add(sessionMaxAge)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   adminSubject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        generateTokenID(),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(sm.secret)
	if err != nil {
		return "", model.User{}, time.Time{}, err
	}

	user := model.User{ID: adminSubject}
	if creds, err := sm.store.GetCredentials(); err == nil && creds != nil {
		user.ForceKeyChange = creds.ForceKeyChange
	}
	return token, user, expiresAt, nil
}

// Verify checks signature and expiry. An expired token is reported
// distinctly from a malformed or badly signed one so the boundary can
// word its response precisely.
func (sm *SessionManager) Verify(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, jwt.ErrSignatureInvalid
		}
		return sm.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

type contextKey struct{}

var subjectContextKey contextKey

// SubjectFromContext returns the identity the bearer token carried.
func SubjectFromContext(ctx context.Context) (string, bool) {
	subject, ok := ctx.Value(subjectContextKey).(string)
	return subject, ok && subject != ""
}

// RequireAuth guards a route behind a valid bearer token. The 401 body
// distinguishes a missing token from an expired and an invalid one.
func (sm *SessionManager) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			unauthorized(w, "Access denied. No token provided.")
			return
		}
		claims, err := sm.Verify(token)
		if err != nil {
			if errors.Is(err, ErrTokenExpired) {
				unauthorized(w, "Token expired. Please login again.")
			} else {
				unauthorized(w, "Invalid token.")
			}
			return
		}
		ctx := context.WithValue(r.Context(), subjectContextKey, claims.Subject)
		next(w, r.WithContext(ctx))
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func generateTokenID() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

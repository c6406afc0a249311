package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"vmforge/internal/domain"
	"vmforge/internal/repository"
)

// ErrSessionInvalid cubre firma inválida, expiración y sesiones revocadas.
var ErrSessionInvalid = errors.New("invalid or expired session")

// SessionService emite y valida tokens de sesión. El token es un JWT firmado
// pero la fila en sessions manda: logout borra la fila y el token muere aunque
// el claim de expiración siga vigente.
type SessionService struct {
	secret   []byte
	ttl      time.Duration
	issuer   string
	sessions repository.SessionRepository
}

type SessionClaims struct {
	UserID int64  `json:"uid"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

func NewSessionService(secret string, ttl time.Duration, sessions repository.SessionRepository) *SessionService {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &SessionService{
		secret:   []byte(secret),
		ttl:      ttl,
		issuer:   "vmforge",
		sessions: sessions,
	}
}

// Issue firma un token para la cuenta y persiste la sesión.
func (s *SessionService) Issue(ctx context.Context, user domain.User) (string, time.Time, error) {
	if len(s.secret) == 0 {
		return "", time.Time{}, ErrSessionInvalid
	}
	now := time.Now().UTC()
	expiresAt := now.Add(s.ttl)

	claims := SessionClaims{
		UserID: user.ID,
		Email:  user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}

	if _, err := s.sessions.Create(ctx, domain.Session{
		UserID:    user.ID,
		Token:     token,
		CreatedAt: now,
		ExpiresAt: expiresAt,
	}); err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

// Validate verifica firma y expiración del token y exige una sesión viva.
func (s *SessionService) Validate(ctx context.Context, token string) (domain.User, error) {
	token = strings.TrimSpace(token)
	if token == "" || len(s.secret) == 0 {
		return domain.User{}, ErrSessionInvalid
	}

	claims, err := s.parseToken(token)
	if err != nil {
		return domain.User{}, err
	}
	if claims.UserID == 0 || claims.Issuer != s.issuer {
		return domain.User{}, ErrSessionInvalid
	}

	user, err := s.sessions.GetUserByToken(ctx, token, time.Now().UTC())
	if err != nil {
		return domain.User{}, ErrSessionInvalid
	}
	return user, nil
}

// Revoke borra la sesión por token. Revocar un token desconocido no es error.
func (s *SessionService) Revoke(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil
	}
	return s.sessions.DeleteByToken(ctx, token)
}

// PurgeExpired elimina sesiones vencidas; nunca toca cuentas.
func (s *SessionService) PurgeExpired(ctx context.Context) (int64, error) {
	return s.sessions.DeleteExpired(ctx, time.Now().UTC())
}

func (s *SessionService) parseToken(token string) (SessionClaims, error) {
	var claims SessionClaims
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	_, err := parser.ParseWithClaims(token, &claims, func(_ *jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		return SessionClaims{}, ErrSessionInvalid
	}
	return claims, nil
}

// Package jwt выпускает и разбирает access/refresh токены пользователей.
package jwt

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenType различает access и refresh токены.
type TokenType string

const (
	AccessToken  TokenType = "access"
	RefreshToken TokenType = "refresh"
)

// ErrWrongTokenType — токен валиден, но другого типа.
var ErrWrongTokenType = errors.New("wrong token type")

// Claims описывает данные, хранящиеся в токене.
type Claims struct {
	UserID    int64     `json:"user_id"`
	Email     string    `json:"email"`
	TokenType TokenType `json:"token_type"`
	jwt.RegisteredClaims
}

// Maker описывает интерфейс для генерации и разбора токенов.
type Maker interface {
	GenerateToken(userID int64, email string, typ TokenType) (string, *Claims, error)
	ParseToken(tokenStr string, typ TokenType) (*Claims, error)
}

// MakerImpl подписывает токены HS256 секретным ключом.
type MakerImpl struct {
	secretKey  string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewJWTMaker создаёт MakerImpl со сроками жизни access и refresh токенов.
func NewJWTMaker(secretKey string, accessTTL, refreshTTL time.Duration) *MakerImpl {
	return &MakerImpl{
		secretKey:  secretKey,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// TTL возвращает срок жизни токена указанного типа.
func (j *MakerImpl) TTL(typ TokenType) time.Duration {
	if typ == RefreshToken {
		return j.refreshTTL
	}
	return j.accessTTL
}

// GenerateToken создаёт подписанный токен. У каждого токена уникальный jti (ID в claims).
func (j *MakerImpl) GenerateToken(userID int64, email string, typ TokenType) (string, *Claims, error) {
	const op = "jwt.GenerateToken"
	now := time.Now()
	claims := &Claims{
		UserID:    userID,
		Email:     email,
		TokenType: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.TTL(typ))),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(j.secretKey))
	if err != nil {
		return "", nil, fmt.Errorf("%s: %w", op, err)
	}
	return token, claims, nil
}

// ParseToken проверяет подпись, срок действия и тип токена.
func (j *MakerImpl) ParseToken(tokenStr string, typ TokenType) (*Claims, error) {
	const op = "jwt.ParseToken"
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(_ *jwt.Token) (any, error) {
		return []byte(j.secretKey), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%s: invalid token", op)
	}
	if claims.TokenType != typ {
		return nil, fmt.Errorf("%s: %w", op, ErrWrongTokenType)
	}
	return claims, nil
}

package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

const JWTIssuer = "photogram"

var ErrInvalidToken = errors.New("jwt: invalid token")

type Token struct {
	Access string `json:"access_token"`
}

type Claims struct {
	jwt.RegisteredClaims
	Username string `json:"username"`
	Email    string `json:"email"`
}

type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

func (ti *TokenIssuer) NewJWTAccessToken(user User) (*Token, error) {
	now := ti.now()
	claims := jwt.NewWithClaims(jwt.SigningMethodHS512, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    JWTIssuer,
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ti.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        newID(),
		},
		Username: user.Username,
		Email:    user.Email,
	})

	token, err := claims.SignedString(ti.secret)
	if err != nil {
		return nil, err
	}

	return &Token{Access: token}, nil
}

func (ti *TokenIssuer) VerifyJWTToken(token string) (*Claims, error) {
	claims := &Claims{}

	tkn, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return ti.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if !tkn.Valid || !claims.VerifyIssuer(JWTIssuer, true) || claims.Subject == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

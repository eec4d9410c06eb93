package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken token mal formado, expirado o con firma incorrecta.
var ErrInvalidToken = errors.New("jwt: token inválido")

// Claims claims estándar más la identidad del operador de bodega.
// BranchID es la sucursal a la que pertenece el usuario (puede venir vacía para administradores).
type Claims struct {
	jwt.RegisteredClaims
	UserID   string `json:"user_id"`
	BranchID string `json:"branch_id,omitempty"`
	Role     string `json:"role"` // "admin" | "bodeguero" | "vendedor"
}

// Identity datos del usuario autenticado extraídos del token.
type Identity struct {
	UserID   string
	BranchID string
	Role     string
}

// Generate firma un token HS256 para la identidad dada.
func Generate(secret, issuer string, expMinutes int, id Identity) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("jwt: secret vacío")
	}
	if id.UserID == "" {
		return "", fmt.Errorf("jwt: user_id vacío")
	}
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   id.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(expMinutes) * time.Minute)),
		},
		UserID:   id.UserID,
		BranchID: id.BranchID,
		Role:     id.Role,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// Parse valida firma y expiración y devuelve la identidad.
func Parse(secret, tokenString string) (Identity, error) {
	if secret == "" {
		return Identity{}, fmt.Errorf("jwt: secret vacío")
	}
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("método de firma inesperado: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == "" {
		return Identity{}, ErrInvalidToken
	}
	return Identity{UserID: claims.UserID, BranchID: claims.BranchID, Role: claims.Role}, nil
}

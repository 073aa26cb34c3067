package service

import "github.com/golang-jwt/jwt/v5"

// tokenClaims is the signed payload. ExpiresIn holds an absolute expiry in
// epoch milliseconds despite its name; clients already depend on the field.
type tokenClaims struct {
	Username  string   `json:"username"`
	RoleList  []string `json:"roleList"`
	ExpiresIn int64    `json:"expiresIn"`
	jwt.RegisteredClaims
}

// TokenConfig is shared by the issuer and the authorizer.
type TokenConfig struct {
	// ApplicationType partitions the user store.
	ApplicationType string
	// Secret signs and verifies HS256 tokens. Empty is a configuration error
	// reported on every call rather than at construction.
	Secret string
	// Lifetime is "<integer><unit>" with unit s, m, h or d.
	Lifetime string
}

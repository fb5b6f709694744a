package models

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the payload of a perimeter token.
// It embeds the standard jwt.RegisteredClaims for sub, iat and exp, and adds the role list.
type Claims struct {
	jwt.RegisteredClaims
	// Roles is always encoded, as an empty array when the identity has none.
	Roles []string `json:"roles"`
}

// RolesHeader renders the roles the way they are forwarded downstream.
func (c *Claims) RolesHeader() string {
	return strings.Join(c.Roles, ",")
}

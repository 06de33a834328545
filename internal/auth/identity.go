// Copyright 2026 The Clubly Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package auth verifies bearer tokens issued by the external credential
// subsystem and exposes the caller identity they carry. Token issuance,
// password handling and session lifetime all live outside this service.
package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Roles understood by the platform. RolePlatformAdmin is the only role
// admitted to the administrative realm.
const (
	RolePlatformAdmin = "platform_admin"
	RoleTenantAdmin   = "tenant_admin"
	RoleMember        = "member"
)

var (
	ErrTokenInvalid = errors.New("token invalid")
	ErrTokenExpired = errors.New("token expired")
)

// Identity is the verified caller identity for one request.
// TenantID is nil for callers provisioned without a tenant association
// (platform operators); presence of a tenant here says nothing about
// privileges — those come from Role.
type Identity struct {
	UserID   string
	Role     string
	TenantID *string
}

// Verifier validates bearer tokens and extracts the caller identity.
type Verifier struct {
	secret []byte
	issuer string
}

// NewVerifier creates a token verifier for tokens signed with the shared
// HMAC secret by the identity provider.
func NewVerifier(secret, issuer string) *Verifier {
	return &Verifier{secret: []byte(secret), issuer: issuer}
}

type claims struct {
	Role     string  `json:"role"`
	TenantID *string `json:"tenant_id,omitempty"`
	jwt.RegisteredClaims
}

// Verify parses and validates a bearer token, returning the identity it
// asserts. The identity is trusted once the signature and issuer check out.
func (v *Verifier) Verify(tokenString string) (*Identity, error) {
	var c claims
	token, err := jwt.ParseWithClaims(tokenString, &c, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	}, jwt.WithIssuer(v.issuer), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if !token.Valid {
		return nil, ErrTokenInvalid
	}
	if c.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrTokenInvalid)
	}

	return &Identity{
		UserID:   c.Subject,
		Role:     c.Role,
		TenantID: c.TenantID,
	}, nil
}

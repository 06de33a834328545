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

package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func issue(t *testing.T, secret string, claims jwt.MapClaims, method jwt.SigningMethod) string {
	t.Helper()
	token := jwt.NewWithClaims(method, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

// TestPurpose: Validates bearer token verification: signature, issuer,
// expiry and claim extraction.
// Scope: Unit Test
// Security: Tokens are the only authentication input; every invalid
// variant must be rejected.
func TestAuth_Verify(t *testing.T) {
	v := NewVerifier("secret", "clubly-identity")

	base := func() jwt.MapClaims {
		return jwt.MapClaims{
			"sub":       "u-1",
			"role":      RoleMember,
			"tenant_id": "t-1",
			"iss":       "clubly-identity",
			"exp":       time.Now().Add(time.Hour).Unix(),
		}
	}

	t.Run("ValidToken", func(t *testing.T) {
		identity, err := v.Verify(issue(t, "secret", base(), jwt.SigningMethodHS256))
		require.NoError(t, err)
		assert.Equal(t, "u-1", identity.UserID)
		assert.Equal(t, RoleMember, identity.Role)
		require.NotNil(t, identity.TenantID)
		assert.Equal(t, "t-1", *identity.TenantID)
	})

	t.Run("PlatformOperatorWithoutTenant", func(t *testing.T) {
		claims := base()
		delete(claims, "tenant_id")
		claims["role"] = RolePlatformAdmin
		identity, err := v.Verify(issue(t, "secret", claims, jwt.SigningMethodHS256))
		require.NoError(t, err)
		assert.Nil(t, identity.TenantID)
	})

	t.Run("WrongSecret", func(t *testing.T) {
		_, err := v.Verify(issue(t, "other", base(), jwt.SigningMethodHS256))
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})

	t.Run("WrongIssuer", func(t *testing.T) {
		claims := base()
		claims["iss"] = "someone-else"
		_, err := v.Verify(issue(t, "secret", claims, jwt.SigningMethodHS256))
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})

	t.Run("Expired", func(t *testing.T) {
		claims := base()
		claims["exp"] = time.Now().Add(-time.Minute).Unix()
		_, err := v.Verify(issue(t, "secret", claims, jwt.SigningMethodHS256))
		assert.ErrorIs(t, err, ErrTokenExpired)
	})

	t.Run("MissingExpiry", func(t *testing.T) {
		claims := base()
		delete(claims, "exp")
		_, err := v.Verify(issue(t, "secret", claims, jwt.SigningMethodHS256))
		assert.Error(t, err)
	})

	t.Run("MissingSubject", func(t *testing.T) {
		claims := base()
		delete(claims, "sub")
		_, err := v.Verify(issue(t, "secret", claims, jwt.SigningMethodHS256))
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})

	t.Run("Garbage", func(t *testing.T) {
		_, err := v.Verify("not-a-token")
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})
}

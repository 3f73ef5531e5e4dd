/*
Copyright 2025 The Crossplane Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package controller

import (
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/crossplane/crossplane-runtime/pkg/errors"
)

// tokenClaims identifies the caller node issuing a rule request; the rule
// protocol is otherwise unauthenticated Unix-socket traffic, but a node
// running ncproxy/ncdns on a shared host still benefits from knowing which
// peer sent a request, the same "who is this" concern a JWT's subject
// claim exists for.
type tokenClaims struct {
	jwt.RegisteredClaims
	Node string `json:"node"`
}

// signToken builds a short-lived HS256 handshake token identifying node,
// signed with secret. HTTPRuleClient attaches it as a Bearer token when a
// secret is configured.
func signToken(secret, node string) (string, error) {
	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		Node: node,
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString([]byte(secret))
}

// verifyToken parses and validates a Bearer token issued by signToken,
// returning the claimed node name.
func verifyToken(secret, raw string) (string, error) {
	tok, err := jwt.ParseWithClaims(raw, &tokenClaims{}, func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	})
	if err != nil {
		return "", errors.Wrap(err, "cannot verify controller handshake token")
	}
	claims, ok := tok.Claims.(*tokenClaims)
	if !ok || !tok.Valid {
		return "", errors.New("invalid controller handshake token")
	}
	return claims.Node, nil
}

// requireToken wraps next, rejecting any request whose Authorization
// header doesn't carry a valid Bearer token for secret. A nil/empty
// secret disables the check entirely, the default for every existing
// NewRuleServer caller.
func requireToken(secret string, next http.Handler) http.Handler {
	if secret == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		raw := strings.TrimPrefix(req.Header.Get("Authorization"), "Bearer ")
		if raw == "" {
			writeErr(w, http.StatusUnauthorized, errors.New("missing controller handshake token"))
			return
		}
		if _, err := verifyToken(secret, raw); err != nil {
			writeErr(w, http.StatusUnauthorized, err)
			return
		}
		next.ServeHTTP(w, req)
	})
}

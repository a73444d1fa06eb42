// Package auth adapts the external token issuer to the HTTP layer. Token
// issuance lives elsewhere; this package only verifies bearer tokens and
// gates routes by role.
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
)

type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

type Identity struct {
	UserID string
	Role   Role
}

var ErrInvalidToken = errors.New("invalid token")

type Verifier interface {
	Verify(ctx context.Context, token string) (Identity, error)
}

type staticEntry struct {
	token    []byte
	identity Identity
}

// StaticVerifier checks tokens against a fixed table loaded from configuration.
type StaticVerifier struct {
	entries []staticEntry
}

// ParseStaticTokens reads comma-separated token:userId:role entries.
func ParseStaticTokens(input string) (*StaticVerifier, error) {
	v := &StaticVerifier{}
	for _, raw := range strings.Split(input, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		parts := strings.Split(raw, ":")
		if len(parts) != 3 || parts[0] == "" || parts[1] == "" {
			return nil, fmt.Errorf("invalid token entry %q: want token:userId:role", redact(raw))
		}
		role := Role(strings.ToLower(parts[2]))
		if role != RoleAdmin && role != RoleUser {
			return nil, fmt.Errorf("invalid role %q for user %s", parts[2], parts[1])
		}
		v.entries = append(v.entries, staticEntry{
			token:    []byte(parts[0]),
			identity: Identity{UserID: parts[1], Role: role},
		})
	}
	return v, nil
}

func (v *StaticVerifier) Len() int {
	return len(v.entries)
}

func (v *StaticVerifier) Verify(ctx context.Context, token string) (Identity, error) {
	if token == "" {
		return Identity{}, ErrInvalidToken
	}
	candidate := []byte(token)
	for _, e := range v.entries {
		if subtle.ConstantTimeCompare(e.token, candidate) == 1 {
			return e.identity, nil
		}
	}
	return Identity{}, ErrInvalidToken
}

func redact(entry string) string {
	if i := strings.Index(entry, ":"); i >= 0 {
		return "***" + entry[i:]
	}
	return "***"
}

type contextKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(Identity)
	return id, ok
}

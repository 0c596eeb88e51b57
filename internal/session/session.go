// Package session resolves bearer tokens to owner identities and carries the
// resolved owner through request contexts. The playground never sees tokens;
// it asks the gate for the current owner and nothing else.
package session

import (
	"context"
	"os"
)

// Token maps a bearer token to the owner it authenticates.
type Token struct {
	Name  string `yaml:"name"`
	Token string `yaml:"token"`
	Owner string `yaml:"owner"`
}

// Manager resolves presented tokens against the configured set.
type Manager struct {
	tokens []Token
}

// NewManager builds a resolver over the configured tokens. Token values may
// reference environment variables (e.g. "${CODEFORGE_TOKEN}") so secrets stay
// out of config files.
func NewManager(tokens []Token) *Manager {
	return &Manager{tokens: tokens}
}

// Enabled reports whether any tokens are configured. With none configured,
// authentication is disabled and every request is anonymous.
func (m *Manager) Enabled() bool {
	return m != nil && len(m.tokens) > 0
}

// Resolve returns the owner a token authenticates, or false for an unknown
// or empty token.
func (m *Manager) Resolve(token string) (string, bool) {
	if token == "" {
		return "", false
	}
	for i := range m.tokens {
		expanded := os.ExpandEnv(m.tokens[i].Token)
		if expanded != "" && secureCompare(token, expanded) {
			return m.tokens[i].Owner, true
		}
	}
	return "", false
}

// secureCompare performs a constant-time string comparison to prevent timing attacks.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	var result byte
	for i := 0; i < len(a); i++ {
		result |= a[i] ^ b[i]
	}
	return result == 0
}

// ownerContextKey is the type for the owner context key.
type ownerContextKey struct{}

// WithOwner returns a context carrying the authenticated owner id.
func WithOwner(ctx context.Context, owner string) context.Context {
	return context.WithValue(ctx, ownerContextKey{}, owner)
}

// OwnerFrom extracts the authenticated owner id, if one was attached.
func OwnerFrom(ctx context.Context) (string, bool) {
	owner, ok := ctx.Value(ownerContextKey{}).(string)
	if !ok || owner == "" {
		return "", false
	}
	return owner, true
}

// Gate exposes the context owner through the narrow interface the playground
// depends on. It deliberately cannot mint tokens or enumerate users.
type Gate struct{}

// CurrentOwner reports the owner attached to ctx.
func (Gate) CurrentOwner(ctx context.Context) (string, bool) {
	return OwnerFrom(ctx)
}

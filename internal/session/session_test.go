package session

import (
	"context"
	"os"
	"testing"
)

func TestResolveKnownToken(t *testing.T) {
	m := NewManager([]Token{
		{Name: "alice", Token: "tok-alice", Owner: "user-alice"},
		{Name: "bob", Token: "tok-bob", Owner: "user-bob"},
	})

	owner, ok := m.Resolve("tok-bob")
	if !ok || owner != "user-bob" {
		t.Errorf("Resolve(tok-bob) = (%q, %v), want (user-bob, true)", owner, ok)
	}
	if _, ok := m.Resolve("tok-charlie"); ok {
		t.Error("unknown token resolved")
	}
	if _, ok := m.Resolve(""); ok {
		t.Error("empty token resolved")
	}
}

func TestResolveExpandsEnv(t *testing.T) {
	os.Setenv("CODEFORGE_TEST_TOKEN", "secret-from-env")
	defer os.Unsetenv("CODEFORGE_TEST_TOKEN")

	m := NewManager([]Token{
		{Name: "env", Token: "${CODEFORGE_TEST_TOKEN}", Owner: "user-env"},
	})

	owner, ok := m.Resolve("secret-from-env")
	if !ok || owner != "user-env" {
		t.Errorf("Resolve(env token) = (%q, %v)", owner, ok)
	}
	// The literal placeholder must not authenticate.
	if _, ok := m.Resolve("${CODEFORGE_TEST_TOKEN}"); ok {
		t.Error("unexpanded placeholder resolved")
	}
}

func TestResolveUnsetEnvNeverMatchesEmpty(t *testing.T) {
	os.Unsetenv("CODEFORGE_MISSING_TOKEN")
	m := NewManager([]Token{
		{Name: "env", Token: "${CODEFORGE_MISSING_TOKEN}", Owner: "user-env"},
	})
	if _, ok := m.Resolve(""); ok {
		t.Error("empty token matched an unset env token")
	}
}

func TestEnabled(t *testing.T) {
	if NewManager(nil).Enabled() {
		t.Error("manager with no tokens reports enabled")
	}
	if !NewManager([]Token{{Token: "x", Owner: "y"}}).Enabled() {
		t.Error("manager with tokens reports disabled")
	}
}

func TestGateReadsContextOwner(t *testing.T) {
	var g Gate

	if _, ok := g.CurrentOwner(context.Background()); ok {
		t.Error("bare context produced an owner")
	}

	ctx := WithOwner(context.Background(), "user-1")
	owner, ok := g.CurrentOwner(ctx)
	if !ok || owner != "user-1" {
		t.Errorf("CurrentOwner = (%q, %v), want (user-1, true)", owner, ok)
	}
}

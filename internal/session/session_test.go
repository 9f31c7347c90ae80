package session

import (
	"encoding/base64"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gatekeep/authserver/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	secretA = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	secretB = "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
)

func newManager(t *testing.T, secret string, maxAge time.Duration) *Manager {
	t.Helper()
	m, err := NewManager(config.SessionConfig{Secret: secret, MaxAge: maxAge})
	require.NoError(t, err)
	return m
}

func TestNewManager_ShortSecret(t *testing.T) {
	_, err := NewManager(config.SessionConfig{Secret: "too-short"})
	require.ErrorIs(t, err, ErrSecretTooShort)
}

func TestIssueResolve_RoundTrip(t *testing.T) {
	m := newManager(t, secretA, 0)

	for _, identity := range []string{"alice", "Bob Smith", "ユーザー", " padded "} {
		token, err := m.Issue(identity)
		require.NoError(t, err)

		got, ok := m.Resolve(token)
		require.True(t, ok, identity)
		assert.Equal(t, identity, got)
	}
}

func TestIssue_EmptyIdentity(t *testing.T) {
	m := newManager(t, secretA, 0)

	_, err := m.Issue("")
	require.ErrorIs(t, err, ErrEmptyIdentity)
}

func TestIssue_NeverMintsUnresolvableTokens(t *testing.T) {
	m := newManager(t, secretA, time.Hour)

	for _, n := range []int{256, 1024, 2000, 2500, 3000, 4096} {
		identity := strings.Repeat("a", n)
		token, err := m.Issue(identity)
		if err != nil {
			require.ErrorIs(t, err, ErrTokenTooLong, "length %d", n)
			continue
		}
		assert.LessOrEqual(t, len(token), maxTokenLen)
		got, ok := m.Resolve(token)
		require.True(t, ok, "length %d", n)
		assert.Equal(t, identity, got)
	}

	_, err := m.Issue(strings.Repeat("a", 2500))
	require.ErrorIs(t, err, ErrTokenTooLong)
}

func TestIssue_DoesNotRevealIdentity(t *testing.T) {
	m := newManager(t, secretA, 0)

	token, err := m.Issue("alice")
	require.NoError(t, err)
	assert.NotContains(t, token, "alice")

	raw, err := base64.RawURLEncoding.DecodeString(token)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "alice")
	assert.NotContains(t, string(raw), base64.RawURLEncoding.EncodeToString([]byte(`"sub":"alice"`)))
}

func TestIssue_TokensAreRandomized(t *testing.T) {
	m := newManager(t, secretA, 0)

	a, err := m.Issue("alice")
	require.NoError(t, err)
	b, err := m.Issue("alice")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestResolve_EveryFlippedBitIsRejected(t *testing.T) {
	m := newManager(t, secretA, 0)

	token, err := m.Issue("alice")
	require.NoError(t, err)
	raw, err := base64.RawURLEncoding.DecodeString(token)
	require.NoError(t, err)

	for i := range raw {
		for bit := 0; bit < 8; bit++ {
			tampered := append([]byte(nil), raw...)
			tampered[i] ^= 1 << bit

			got, ok := m.Resolve(base64.RawURLEncoding.EncodeToString(tampered))
			require.False(t, ok, "byte %d bit %d", i, bit)
			require.Empty(t, got)
		}
	}
}

func TestResolve_Garbage(t *testing.T) {
	m := newManager(t, secretA, 0)

	for _, token := range []string{
		"",
		"   ",
		"not base64!",
		"YWxpY2U",
		strings.Repeat("A", 10),
		strings.Repeat("A", maxTokenLen+1),
	} {
		got, ok := m.Resolve(token)
		assert.False(t, ok, token)
		assert.Empty(t, got)
	}
}

func TestResolve_OtherSecret(t *testing.T) {
	issuer := newManager(t, secretA, 0)
	other := newManager(t, secretB, 0)

	token, err := issuer.Issue("alice")
	require.NoError(t, err)

	_, ok := other.Resolve(token)
	assert.False(t, ok)
}

func TestResolve_SameSecretAcrossInstances(t *testing.T) {
	first := newManager(t, secretA, 0)
	restarted := newManager(t, secretA, 0)

	token, err := first.Issue("alice")
	require.NoError(t, err)

	got, ok := restarted.Resolve(token)
	require.True(t, ok)
	assert.Equal(t, "alice", got)
}

func TestResolve_Expiry(t *testing.T) {
	m := newManager(t, secretA, time.Hour)
	assert.Equal(t, time.Hour, m.MaxAge())

	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return start }

	token, err := m.Issue("alice")
	require.NoError(t, err)

	m.now = func() time.Time { return start.Add(59 * time.Minute) }
	_, ok := m.Resolve(token)
	assert.True(t, ok)

	m.now = func() time.Time { return start.Add(61 * time.Minute) }
	_, ok = m.Resolve(token)
	assert.False(t, ok)
}

func TestResolve_NoExpiryByDefault(t *testing.T) {
	m := newManager(t, secretA, 0)
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return start }

	token, err := m.Issue("alice")
	require.NoError(t, err)

	m.now = func() time.Time { return start.Add(10 * 365 * 24 * time.Hour) }
	got, ok := m.Resolve(token)
	require.True(t, ok)
	assert.Equal(t, "alice", got)
}

func TestResolve_Concurrent(t *testing.T) {
	m := newManager(t, secretA, 0)
	token, err := m.Issue("alice")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, ok := m.Resolve(token)
			assert.True(t, ok)
			assert.Equal(t, "alice", got)
		}()
	}
	wg.Wait()
}

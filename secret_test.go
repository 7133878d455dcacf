package strata

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecretGate_LeafField(t *testing.T) {
	type Config struct {
		Host     string
		Password string `conf:"secret"`
	}

	ctx := context.Background()

	t.Run("insecure source rejected", func(t *testing.T) {
		b, err := New[Config]()
		require.NoError(t, err)

		err = b.OverrideWith(ctx, insecure(map[string]any{"password": "hunter2"}))
		var violation *SecretViolationError
		require.ErrorAs(t, err, &violation)
		assert.Equal(t, "password", violation.Path.String())
		assert.Equal(t, "insecure", violation.Source)
	})

	t.Run("secure source accepted", func(t *testing.T) {
		b, err := New[Config]()
		require.NoError(t, err)

		require.NoError(t, b.OverrideWith(ctx, insecure(map[string]any{"host": "h"})))
		require.NoError(t, b.OverrideWith(ctx, secure(map[string]any{"password": "hunter2"})))

		cfg, err := b.TryBuild()
		require.NoError(t, err)
		assert.Equal(t, "hunter2", cfg.Password)
	})

	t.Run("every write is checked, even after a secure one", func(t *testing.T) {
		b, err := New[Config]()
		require.NoError(t, err)

		require.NoError(t, b.OverrideWith(ctx, secure(map[string]any{"password": "first"})))
		err = b.OverrideWith(ctx, insecure(map[string]any{"password": "second"}))

		var violation *SecretViolationError
		require.ErrorAs(t, err, &violation)
	})
}

func TestSecretGate_NestedPath(t *testing.T) {
	type DB struct {
		Host     string
		Password string `conf:"secret"`
	}
	type Config struct {
		Database DB
	}

	b, err := New[Config]()
	require.NoError(t, err)

	err = b.OverrideWith(context.Background(), insecure(map[string]any{
		"database": map[string]any{"host": "h", "password": "p"},
	}))

	var violation *SecretViolationError
	require.ErrorAs(t, err, &violation)
	assert.Equal(t, "database.password", violation.Path.String())
}

func TestSecretGate_KeyedCollection(t *testing.T) {
	type Config struct {
		Tokens map[string]string `conf:"secret"`
	}

	ctx := context.Background()

	t.Run("insecure entry reported with its key", func(t *testing.T) {
		b, err := New[Config]()
		require.NoError(t, err)

		err = b.OverrideWith(ctx, insecure(map[string]any{
			"tokens": map[string]any{"github": "tok"},
		}))

		var violation *SecretViolationError
		require.ErrorAs(t, err, &violation)
		assert.Equal(t, "tokens.github", violation.Path.String())
	})

	t.Run("explicit empty secret container still gated", func(t *testing.T) {
		b, err := New[Config]()
		require.NoError(t, err)

		err = b.OverrideWith(ctx, insecure(map[string]any{
			"tokens": map[string]any{},
		}))

		var violation *SecretViolationError
		require.ErrorAs(t, err, &violation)
		assert.Equal(t, "tokens", violation.Path.String())
	})

	t.Run("secure source accepted", func(t *testing.T) {
		b, err := New[Config]()
		require.NoError(t, err)

		require.NoError(t, b.OverrideWith(ctx, secure(map[string]any{
			"tokens": map[string]any{"github": "tok"},
		})))
		cfg, err := b.TryBuild()
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"github": "tok"}, cfg.Tokens)
	})
}

func TestSecretGate_UnkeyedCollection(t *testing.T) {
	type Config struct {
		Keys []string `conf:"secret"`
	}

	b, err := New[Config]()
	require.NoError(t, err)

	err = b.OverrideWith(context.Background(), insecure(map[string]any{
		"keys": []any{"k1"},
	}))

	var violation *SecretViolationError
	require.ErrorAs(t, err, &violation)
	assert.Equal(t, "keys.0", violation.Path.String())
}

func TestSecretGate_SecretFieldInsideCollectionElement(t *testing.T) {
	type Account struct {
		User     string
		Password string `conf:"secret"`
	}
	type Config struct {
		Accounts []Account
	}

	ctx := context.Background()

	b, err := New[Config]()
	require.NoError(t, err)

	err = b.OverrideWith(ctx, insecure(map[string]any{
		"accounts": []any{
			map[string]any{"user": "a"},
			map[string]any{"user": "b", "password": "p"},
		},
	}))

	var violation *SecretViolationError
	require.ErrorAs(t, err, &violation)
	assert.Equal(t, "accounts.1.password", violation.Path.String())

	// Non-secret elements from an insecure source are fine.
	require.NoError(t, b.OverrideWith(ctx, insecure(map[string]any{
		"accounts": []any{map[string]any{"user": "a"}},
	})))
}

func TestSecretGate_DefaultsNeverViolate(t *testing.T) {
	type Config struct {
		Token string `conf:"secret,default:anonymous"`
	}

	b, err := New[Config]()
	require.NoError(t, err)

	cfg, err := b.TryBuild()
	require.NoError(t, err, "a default is not from any source and cannot violate")
	assert.Equal(t, "anonymous", cfg.Token)
}

func TestSecretGate_InsecureUnsetSecretIsFine(t *testing.T) {
	type Config struct {
		Host     string
		Password string `conf:"secret,default:none"`
	}

	b, err := New[Config]()
	require.NoError(t, err)

	// The insecure source does not touch the secret field at all.
	require.NoError(t, b.OverrideWith(context.Background(), insecure(map[string]any{"host": "h"})))

	cfg, err := b.TryBuild()
	require.NoError(t, err)
	assert.Equal(t, "none", cfg.Password)
}

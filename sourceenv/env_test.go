package sourceenv

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_PrefixFiltering(t *testing.T) {
	t.Setenv("MYAPP_HOST", "h")
	t.Setenv("MYAPP_PORT", "8080")
	t.Setenv("OTHER_THING", "ignored")

	raw, err := New(Options{Prefix: "MYAPP_"}).Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "h", raw["host"])
	assert.Equal(t, "8080", raw["port"], "env values are always strings")
	_, leaked := raw["thing"]
	assert.False(t, leaked, "unprefixed vars are excluded")
}

func TestLoad_NestingOnDoubleUnderscore(t *testing.T) {
	t.Setenv("MYAPP_DATABASE__HOST", "db.local")
	t.Setenv("MYAPP_DATABASE__MAX_CONNS", "10")

	raw, err := New(Options{Prefix: "MYAPP_"}).Load(context.Background())
	require.NoError(t, err)

	db, ok := raw["database"].(map[string]any)
	require.True(t, ok, "__ introduces a nesting level")
	assert.Equal(t, "db.local", db["host"])
	assert.Equal(t, "10", db["max_conns"], "single underscores stay within a level")
}

func TestLoad_PrefixCaseSensitivity(t *testing.T) {
	t.Setenv("myapp_host", "lower")

	t.Run("insensitive by default", func(t *testing.T) {
		raw, err := New(Options{Prefix: "MYAPP_"}).Load(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "lower", raw["host"])
	})

	t.Run("sensitive on request", func(t *testing.T) {
		raw, err := New(Options{Prefix: "MYAPP_", CaseSensitive: true}).Load(context.Background())
		require.NoError(t, err)
		_, ok := raw["host"]
		assert.False(t, ok)
	})
}

func TestLoad_KeysAreLowercased(t *testing.T) {
	t.Setenv("MYAPP_API__RATE_LIMIT", "100")

	raw, err := New(Options{Prefix: "MYAPP_"}).Load(context.Background())
	require.NoError(t, err)

	api, ok := raw["api"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "100", api["rate_limit"])
}

func TestNameAndSecure(t *testing.T) {
	src := New(Options{Prefix: "MYAPP_", Secure: true})
	assert.Equal(t, "env:MYAPP_", src.Name())
	assert.True(t, src.Secure())

	assert.False(t, New(Options{}).Secure())
}

func TestSetNested(t *testing.T) {
	m := map[string]any{}
	setNested(m, []string{"a", "b", "c"}, "1")
	setNested(m, []string{"a", "b", "d"}, "2")
	setNested(m, []string{"top"}, "3")

	assert.Equal(t, map[string]any{
		"a": map[string]any{
			"b": map[string]any{"c": "1", "d": "2"},
		},
		"top": "3",
	}, m)
}

func TestSetNested_ScalarOverwrittenBySection(t *testing.T) {
	m := map[string]any{}
	setNested(m, []string{"a"}, "scalar")
	setNested(m, []string{"a", "b"}, "nested")

	assert.Equal(t, map[string]any{
		"a": map[string]any{"b": "nested"},
	}, m)
}

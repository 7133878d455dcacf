package sourcedata

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLiteralSources(t *testing.T) {
	ctx := context.Background()

	t.Run("yaml", func(t *testing.T) {
		raw, err := YAML("host: h\nport: 8080\n").Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, "h", raw["host"])
		assert.Equal(t, 8080, raw["port"])
	})

	t.Run("toml", func(t *testing.T) {
		raw, err := TOML("host = \"h\"\nport = 8080\n").Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, "h", raw["host"])
		assert.Equal(t, int64(8080), raw["port"])
	})

	t.Run("json", func(t *testing.T) {
		raw, err := JSON(`{"host": "h"}`).Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, "h", raw["host"])
	})

	t.Run("values passes the map through", func(t *testing.T) {
		raw, err := Values(map[string]any{"host": "h"}).Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, "h", raw["host"])
	})

	t.Run("empty documents yield an empty map", func(t *testing.T) {
		raw, err := YAML("").Load(ctx)
		require.NoError(t, err)
		assert.NotNil(t, raw)
		assert.Empty(t, raw)

		raw, err = Values(nil).Load(ctx)
		require.NoError(t, err)
		assert.NotNil(t, raw)
	})

	t.Run("malformed literal", func(t *testing.T) {
		_, err := JSON("{not json").Load(ctx)
		assert.Error(t, err)
	})
}

func TestNames(t *testing.T) {
	assert.Equal(t, "inline:yaml", YAML("").Name())
	assert.Equal(t, "inline:toml", TOML("").Name())
	assert.Equal(t, "inline:json", JSON("").Name())
	assert.Equal(t, "inline:values", Values(nil).Name())
}

func TestAllowSecrets(t *testing.T) {
	src := Values(nil)
	assert.False(t, src.Secure())
	assert.True(t, src.AllowSecrets().Secure())
}

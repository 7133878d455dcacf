package strata

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults_TagDefaultFillsUnsetField(t *testing.T) {
	type Config struct {
		Host string
		Port int `conf:"default:8080"`
	}

	b, err := New[Config]()
	require.NoError(t, err)

	require.NoError(t, b.OverrideWith(context.Background(), insecure(map[string]any{"host": "h"})))

	cfg, err := b.TryBuild()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
}

func TestDefaults_SourceValueSuppressesDefault(t *testing.T) {
	type Config struct {
		Port int `conf:"default:8080"`
	}

	b, err := New[Config]()
	require.NoError(t, err)

	require.NoError(t, b.OverrideWith(context.Background(), insecure(map[string]any{"port": 0})))

	cfg, err := b.TryBuild()
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.Port, "an explicit zero is set and suppresses the default")
}

func TestDefaults_WithDefaultOverridesTagDefault(t *testing.T) {
	type Config struct {
		Port int `conf:"default:8080"`
	}

	b, err := New[Config]()
	require.NoError(t, err)
	b.WithDefault("port", 9090)

	cfg, err := b.TryBuild()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
}

func TestDefaults_AggregateDefault(t *testing.T) {
	type Pool struct {
		Size    int
		Timeout time.Duration
	}
	type Config struct {
		Pool Pool
	}

	t.Run("applied when the aggregate is entirely unset", func(t *testing.T) {
		b, err := New[Config]()
		require.NoError(t, err)
		b.WithDefault("pool", map[string]any{"size": 10, "timeout": "30s"})

		cfg, err := b.TryBuild()
		require.NoError(t, err)
		assert.Equal(t, Pool{Size: 10, Timeout: 30 * time.Second}, cfg.Pool)
	})

	t.Run("partially set aggregate keeps its data and reports the hole", func(t *testing.T) {
		b, err := New[Config]()
		require.NoError(t, err)
		b.WithDefault("pool", map[string]any{"size": 10, "timeout": "30s"})

		require.NoError(t, b.OverrideWith(context.Background(), insecure(map[string]any{
			"pool": map[string]any{"size": 99},
		})))

		_, err = b.TryBuild()
		var missing *MissingValueError
		require.ErrorAs(t, err, &missing, "a default never papers over a partially-set aggregate")
		assert.Equal(t, "pool.timeout", missing.Path.String())
	})
}

func TestDefaults_CollectionDefaults(t *testing.T) {
	type Config struct {
		Tags   []string
		Limits map[string]int
	}

	t.Run("filled when unset", func(t *testing.T) {
		b, err := New[Config]()
		require.NoError(t, err)
		b.WithDefault("tags", []any{"a", "b"})
		b.WithDefault("limits", map[string]any{"rps": 100})

		cfg, err := b.TryBuild()
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, cfg.Tags)
		assert.Equal(t, map[string]int{"rps": 100}, cfg.Limits)
	})

	t.Run("explicit empty collection suppresses the default", func(t *testing.T) {
		b, err := New[Config]()
		require.NoError(t, err)
		b.WithDefault("tags", []any{"a", "b"})
		b.WithDefault("limits", map[string]any{"rps": 100})

		require.NoError(t, b.OverrideWith(context.Background(), insecure(map[string]any{
			"tags":   []any{},
			"limits": map[string]any{},
		})))

		cfg, err := b.TryBuild()
		require.NoError(t, err)
		assert.Empty(t, cfg.Tags)
		assert.Empty(t, cfg.Limits)
	})
}

func TestDefaults_InnerDefaultsOfAbsentAggregate(t *testing.T) {
	type Server struct {
		Host string `conf:"default:localhost"`
		Port int    `conf:"default:8080"`
	}
	type Config struct {
		Server Server
	}

	b, err := New[Config]()
	require.NoError(t, err)

	// No source mentions "server" at all; its fields' own defaults
	// still apply, field by field.
	cfg, err := b.TryBuild()
	require.NoError(t, err)
	assert.Equal(t, Server{Host: "localhost", Port: 8080}, cfg.Server)
}

func TestDefaults_OptionalAggregateStaysAbsent(t *testing.T) {
	type TLS struct {
		MinVersion string `conf:"default:1.2"`
	}
	type Config struct {
		Host string
		TLS  *TLS
	}

	b, err := New[Config]()
	require.NoError(t, err)
	require.NoError(t, b.OverrideWith(context.Background(), insecure(map[string]any{"host": "h"})))

	cfg, err := b.TryBuild()
	require.NoError(t, err)
	assert.Nil(t, cfg.TLS, "inner defaults never materialize an untouched optional aggregate")
}

func TestDefaults_OptionalAggregateInnerDefaultsWhenTouched(t *testing.T) {
	type TLS struct {
		Enabled    bool
		MinVersion string `conf:"default:1.2"`
	}
	type Config struct {
		Host string
		TLS  *TLS
	}

	b, err := New[Config]()
	require.NoError(t, err)
	require.NoError(t, b.OverrideWith(context.Background(), insecure(map[string]any{
		"host": "h",
		"tls":  map[string]any{"enabled": true},
	})))

	cfg, err := b.TryBuild()
	require.NoError(t, err)
	require.NotNil(t, cfg.TLS)
	assert.Equal(t, "1.2", cfg.TLS.MinVersion, "once touched, the aggregate's inner defaults apply")
}

func TestDefaults_InsideCollectionElements(t *testing.T) {
	type Endpoint struct {
		URL     string
		Retries int `conf:"default:3"`
	}
	type Config struct {
		Endpoints map[string]Endpoint
	}

	b, err := New[Config]()
	require.NoError(t, err)

	require.NoError(t, b.OverrideWith(context.Background(), insecure(map[string]any{
		"endpoints": map[string]any{
			"auth":  map[string]any{"url": "https://a"},
			"users": map[string]any{"url": "https://u", "retries": 7},
		},
	})))

	cfg, err := b.TryBuild()
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Endpoints["auth"].Retries, "element fields get their defaults")
	assert.Equal(t, 7, cfg.Endpoints["users"].Retries)
}

func TestDefaults_MalformedDefaultValue(t *testing.T) {
	type Config struct {
		Port int
	}

	b, err := New[Config]()
	require.NoError(t, err)
	b.WithDefault("port", map[string]any{"not": "a scalar"})

	_, err = b.TryBuild()
	require.Error(t, err, "a default that cannot bind to the field's shape fails the build")
}

func TestDefaults_AppliedOncePerBuild(t *testing.T) {
	type Config struct {
		Port int `conf:"default:8080"`
	}

	b, err := New[Config]()
	require.NoError(t, err)

	first, err := b.TryBuild()
	require.NoError(t, err)
	assert.Equal(t, 8080, first.Port)

	// Defaults resolve on a copy; a later source still overrides.
	require.NoError(t, b.OverrideWith(context.Background(), insecure(map[string]any{"port": 1})))
	second, err := b.TryBuild()
	require.NoError(t, err)
	assert.Equal(t, 1, second.Port)
}

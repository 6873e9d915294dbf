package redis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Options(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Password = "pw"
	cfg.DB = 2

	opts, err := cfg.Options()
	require.NoError(t, err)
	assert.Equal(t, "localhost:6379", opts.Addr)
	assert.Equal(t, "pw", opts.Password)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, 5*time.Second, opts.DialTimeout)
}

func TestConfig_OptionsFromURL(t *testing.T) {
	cfg := Config{URL: "redis://:secret@cache:6380/3"}
	opts, err := cfg.Options()
	require.NoError(t, err)
	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, "secret", opts.Password)
	assert.Equal(t, 3, opts.DB)

	_, err = Config{URL: "http://nope"}.Options()
	assert.Error(t, err)
}

func TestCache_KeyPrefix(t *testing.T) {
	c := NewCache(nil, "pg:")
	assert.Equal(t, "pg:analytics:leaderboard", c.key("analytics:leaderboard"))
}

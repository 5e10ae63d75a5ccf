package magento

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Validate(t *testing.T) {
	t.Run("applies defaults", func(t *testing.T) {
		cfg := testConfig("https://shop.example")
		cfg.Timeout, cfg.MaxAttempts, cfg.InitialBackoff, cfg.MaxBackoff = 0, 0, 0, 0

		require.NoError(t, cfg.Validate())
		assert.Equal(t, DefaultStoreCode, cfg.StoreCode)
		assert.Equal(t, DefaultTimeout, cfg.Timeout)
		assert.Equal(t, DefaultMaxAttempts, cfg.MaxAttempts)
		assert.Equal(t, DefaultInitialBackoff, cfg.InitialBackoff)
		assert.Equal(t, DefaultMaxBackoff, cfg.MaxBackoff)
		assert.Equal(t, AuthOAuth1, cfg.AuthMode())
	})

	t.Run("missing base URL", func(t *testing.T) {
		cfg := testConfig("")
		assert.ErrorIs(t, cfg.Validate(), ErrConfigMissingBaseURL)
	})

	t.Run("relative base URL", func(t *testing.T) {
		cfg := testConfig("shop.example/rest")
		assert.ErrorIs(t, cfg.Validate(), ErrConfigInvalidBaseURL)
	})

	t.Run("missing credential names what is missing", func(t *testing.T) {
		cfg := testConfig("https://shop.example")
		cfg.AccessTokenSecret = ""
		err := cfg.Validate()
		require.ErrorIs(t, err, ErrConfigMissingCredentials)
		assert.Contains(t, err.Error(), "access token secret")
	})

	t.Run("basic auth needs explicit opt in", func(t *testing.T) {
		cfg := &Config{BaseURL: "https://shop.example", BasicUser: "u", BasicPassword: "p"}
		assert.ErrorIs(t, cfg.Validate(), ErrConfigMissingCredentials)

		cfg.AllowBasicAuth = true
		require.NoError(t, cfg.Validate())
		assert.Equal(t, AuthBasic, cfg.AuthMode())
	})
}

package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewConfig(t *testing.T) {
	var (
		addr = "localhost:8080"
		orig = []string{"http://localhost:3000"}
	)

	tcases := []struct {
		name string
		addr string
		orig []string
		err  bool
	}{
		{
			name: "valid config",
			addr: addr,
			orig: orig,
			err:  false,
		},
		{
			name: "empty address",
			addr: "",
			orig: orig,
			err:  true,
		},
		{
			name: "no origins",
			addr: addr,
			orig: nil,
			err:  false,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := NewConfig(tc.addr, tc.orig)
			if tc.err {
				assert.Error(t, err, "expected an error for invalid config")
				assert.Nil(t, cfg, "expected config to be nil on error")
				return
			}

			assert.NoError(t, err, "expected no error for valid config")
			assert.Equal(t, tc.addr, cfg.ServerAddr, "expected server address to be set")
			assert.Equal(t, tc.orig, cfg.AllowedOrigins, "expected allowed origins to be set")
		})
	}
}

func TestEnvDefault(t *testing.T) {
	t.Setenv("NEXUSCHAT_TEST_KEY", "from-env")
	assert.Equal(t, "from-env", EnvDefault("NEXUSCHAT_TEST_KEY", "fallback"),
		"expected environment value to win")
	assert.Equal(t, "fallback", EnvDefault("NEXUSCHAT_TEST_UNSET_KEY", "fallback"),
		"expected fallback for unset key")
}

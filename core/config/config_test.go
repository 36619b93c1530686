package config

import (
	"reflect"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v2"
)

func jsonFields(rt reflect.Type) map[string]reflect.StructField {
	out := make(map[string]reflect.StructField)
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}
		out[strings.Split(field.Tag.Get("json"), ",")[0]] = field
	}
	return out
}

func assertSameFields(t *testing.T, prefix string, raw map[interface{}]interface{}, rt reflect.Type) {
	t.Helper()

	known := jsonFields(rt)
	for name, field := range known {
		assert.NotEmpty(t, name, "%s%s has no json tag", prefix, field.Name)

		rawValue, ok := raw[name]
		if !ok {
			assert.Fail(t, "default config missing field", "%s%s", prefix, name)
			continue
		}
		if field.Type.Kind() == reflect.Struct {
			nested, ok := rawValue.(map[interface{}]interface{})
			if assert.True(t, ok, "%s%s is not a mapping", prefix, name) {
				assertSameFields(t, prefix+name+".", nested, field.Type)
			}
		}
	}

	for k := range raw {
		_, ok := known[k.(string)]
		assert.True(t, ok, "default config contains invalid field: %q", prefix+k.(string))
	}
}

func TestBuiltinConfig(t *testing.T) {
	rawConfig := make(map[interface{}]interface{})
	require.Nil(t, yaml.Unmarshal(defaultConfigData, &rawConfig))

	assertSameFields(t, "", rawConfig, reflect.TypeOf(Configuration{}))
}

func TestDefaultConfig(t *testing.T) {
	// Will panic() on load failure because it should never happen at runtime.
	cfg := defaultConfig()
	assert.NotNil(t, cfg)
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, ExternalModeVirtual, cfg.External.Mode)
	assert.Equal(t, 64, cfg.EngineOptions().MaxExitStatusValues)
}

func TestValidate(t *testing.T) {
	cases := map[string]struct {
		modify func(*Configuration)
		field  string
	}{
		"bad color": {
			modify: func(c *Configuration) { c.Color = "sometimes" },
			field:  "color",
		},
		"bad mode": {
			modify: func(c *Configuration) { c.External.Mode = "docker" },
			field:  "mode",
		},
		"no exit statuses": {
			modify: func(c *Configuration) { c.External.MaxExitStatusValues = 0 },
			field:  "max_exit_status_values",
		},
		"bad port": {
			modify: func(c *Configuration) { c.SSH.Port = 70000 },
			field:  "port",
		},
		"duplicate passwords": {
			modify: func(c *Configuration) { c.SSH.Passwords = []string{"a", "a"} },
			field:  "passwords",
		},
		"bad level": {
			modify: func(c *Configuration) { c.Log.Level = "loud" },
			field:  "level",
		},
		"bad metrics address": {
			modify: func(c *Configuration) { c.MetricsAddr = "localhost" },
			field:  "metrics_addr",
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := defaultConfig()
			tc.modify(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.field)
		})
	}
}

func TestCheckPassword(t *testing.T) {
	cfg := defaultConfig()
	assert.False(t, cfg.CheckPassword(""), "no passwords configured")

	cfg.SSH.Passwords = []string{"hunter2", "letmein"}
	assert.True(t, cfg.CheckPassword("letmein"))
	assert.False(t, cfg.CheckPassword("letmei"))
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Empty(t, cfg.HistoryFile(), "not backed by a directory")

	fd, err := cfg.OpenAppLog()
	require.NoError(t, err)
	fd.Close()
}

// Package config loads and validates the pipesh configuration directory.
package config

import (
	"crypto/subtle"
	_ "embed"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/josephlewis42/pipesh/core/engine"
	"github.com/josephlewis42/pipesh/core/logger"
	"github.com/spf13/afero"
	"golang.org/x/crypto/ssh"
	"sigs.k8s.io/yaml"
)

var (
	//go:embed default/config.yaml
	defaultConfigData []byte
)

const (
	ConfigurationName = "config.yaml"
	PrivateKeyName    = "private_key"
	AppLogName        = "app.log"
	HistoryName       = "history"
)

const (
	ExternalModeHost    = "host"
	ExternalModeVirtual = "virtual"

	ColorAlways = "always"
	ColorAuto   = "auto"
	ColorNever  = "never"
)

type Configuration struct {
	configFs afero.Fs
	dir      string

	Prompt       string `json:"prompt" validate:"required"`
	HistoryLimit int    `json:"history_limit" validate:"gte=0"`
	Color        string `json:"color" validate:"oneof=always auto never"`

	External External `json:"external"`
	Log      Log      `json:"log"`
	SSH      SSH      `json:"ssh"`

	MetricsAddr string `json:"metrics_addr" validate:"omitempty,hostname_port"`
}

// Validate the configuration for basic semantic errors.
func (c *Configuration) Validate() error {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		return name
	})

	return validate.Struct(c)
}

type External struct {
	Mode                string `json:"mode" validate:"oneof=host virtual"`
	MaxExitStatusValues int    `json:"max_exit_status_values" validate:"gte=1"`
	StreamBuffer        int    `json:"stream_buffer" validate:"gte=0"`
	MaxBytesPerSecond   int64  `json:"max_bytes_per_second" validate:"gte=0"`
}

type Log struct {
	Level       string `json:"level" validate:"oneof=debug info warn error"`
	Development bool   `json:"development"`
}

type SSH struct {
	Port      int      `json:"port" validate:"gte=0,lte=65535"`
	Banner    string   `json:"banner"`
	Passwords []string `json:"passwords" validate:"unique,dive,required"`
}

// EngineOptions converts the external settings for the engine.
func (c *Configuration) EngineOptions() engine.Options {
	return engine.Options{
		MaxExitStatusValues: c.External.MaxExitStatusValues,
		StreamBuffer:        c.External.StreamBuffer,
		MaxBytesPerSecond:   c.External.MaxBytesPerSecond,
	}
}

// LoggerConfig converts the log settings for the logger.
func (c *Configuration) LoggerConfig() logger.Config {
	return logger.Config{
		Level:       c.Log.Level,
		Development: c.Log.Development,
	}
}

func (c *Configuration) fs() afero.Fs {
	return c.configFs
}

// PrivateKeyPem returns the bytes of the private key.
func (c *Configuration) PrivateKeyPem() ([]byte, error) {
	return afero.ReadFile(c.fs(), PrivateKeyName)
}

// HostSigner parses the private key for use as an SSH host key.
func (c *Configuration) HostSigner() (ssh.Signer, error) {
	keyPem, err := c.PrivateKeyPem()
	if err != nil {
		return nil, err
	}
	return ssh.ParsePrivateKey(keyPem)
}

// OpenAppLog opens the application log in an append only state.
func (c *Configuration) OpenAppLog() (afero.File, error) {
	return c.fs().OpenFile(AppLogName, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
}

func (c *Configuration) ReadAppLog() (afero.File, error) {
	return c.fs().OpenFile(AppLogName, os.O_RDONLY, 0600)
}

// HistoryFile is the host path of the REPL history, empty if history is
// disabled or the configuration isn't backed by a directory.
func (c *Configuration) HistoryFile() string {
	if c.HistoryLimit == 0 || c.dir == "" {
		return ""
	}
	return filepath.Join(c.dir, HistoryName)
}

// CheckPassword reports whether password is one of the configured SSH
// passwords.
func (c *Configuration) CheckPassword(password string) bool {
	ok := false
	for _, v := range c.SSH.Passwords {
		if subtle.ConstantTimeCompare([]byte(password), []byte(v)) == 1 {
			ok = true
		}
	}
	return ok
}

// Default returns the built in configuration, it isn't backed by a
// directory.
func Default() *Configuration {
	cfg := defaultConfig()
	cfg.configFs = afero.NewMemMapFs()
	return cfg
}

func defaultConfig() *Configuration {
	var out Configuration
	if err := yaml.UnmarshalStrict(defaultConfigData, &out); err != nil {
		panic(err)
	}
	return &out
}

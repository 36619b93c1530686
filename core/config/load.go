package config

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"path/filepath"

	"github.com/spf13/afero"
	"sigs.k8s.io/yaml"
)

const hostKeyBits = 2048

// Load loads the configuration from the directory.
func Load(path string) (*Configuration, error) {
	// If given the path to a config.yaml file, move back up a level.
	if filepath.Base(path) == ConfigurationName {
		path = filepath.Dir(path)
	}

	out, err := loadFs(afero.NewBasePathFs(afero.NewOsFs(), path))
	if err != nil {
		return nil, err
	}
	out.dir = path
	return out, nil
}

func loadFs(configFs afero.Fs) (*Configuration, error) {
	configContents, err := afero.ReadFile(configFs, ConfigurationName)
	if err != nil {
		return nil, err
	}
	var out Configuration
	if err := yaml.UnmarshalStrict(configContents, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", ConfigurationName, err)
	}
	if err := out.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", ConfigurationName, err)
	}
	out.configFs = configFs
	return &out, nil
}

// Initialize writes the default configuration and a new host key into the
// directory, files that already exist are kept. The result is loaded.
func Initialize(path string, logger *log.Logger) (*Configuration, error) {
	osFs := afero.NewOsFs()
	if err := osFs.MkdirAll(path, 0700); err != nil {
		return nil, err
	}
	configFs := afero.NewBasePathFs(osFs, path)

	if err := initializeFs(configFs, logger); err != nil {
		return nil, err
	}

	return Load(path)
}

func initializeFs(configFs afero.Fs, logger *log.Logger) error {
	if err := writeIfMissing(configFs, ConfigurationName, logger, func() ([]byte, error) {
		return defaultConfigData, nil
	}); err != nil {
		return err
	}

	return writeIfMissing(configFs, PrivateKeyName, logger, generateHostKey)
}

func writeIfMissing(configFs afero.Fs, name string, logger *log.Logger, contents func() ([]byte, error)) error {
	switch _, err := configFs.Stat(name); {
	case err == nil:
		logger.Printf("- %s exists, skipping\n", name)
		return nil
	case !errors.Is(err, fs.ErrNotExist):
		return err
	}

	data, err := contents()
	if err != nil {
		return err
	}
	logger.Printf("- Writing %s\n", name)
	return afero.WriteFile(configFs, name, data, 0600)
}

func generateHostKey() ([]byte, error) {
	key, err := rsa.GenerateKey(rand.Reader, hostKeyBits)
	if err != nil {
		return nil, err
	}
	return pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	}), nil
}

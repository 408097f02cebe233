package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zalando/go-keyring"
)

// KeyringService is the service name secrets are stored under.
const KeyringService = "visionvoice"

// Keyring accounts.
const (
	SecretVision = "vision"
	SecretTTS    = "tts" // newline-separated key list
)

// SecretStore reads and writes named secrets.
type SecretStore interface {
	Get(name string) (string, error)
	Set(name, value string) error
	Delete(name string) error
}

// ErrSecretNotFound is returned by SecretStore.Get for unknown names.
var ErrSecretNotFound = errors.New("secret not found")

// OSKeyring stores secrets in the operating system keyring.
type OSKeyring struct{}

func (OSKeyring) Get(name string) (string, error) {
	v, err := keyring.Get(KeyringService, name)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", ErrSecretNotFound
	}
	return v, err
}

func (OSKeyring) Set(name, value string) error {
	return keyring.Set(KeyringService, name, value)
}

func (OSKeyring) Delete(name string) error {
	err := keyring.Delete(KeyringService, name)
	if errors.Is(err, keyring.ErrNotFound) {
		return ErrSecretNotFound
	}
	return err
}

// ApplySecrets fills secrets still missing after file and env loading.
// Names absent from the store are skipped; any other store error is returned
// so callers can decide whether a missing keyring matters.
func (c *Config) ApplySecrets(store SecretStore) error {
	if store == nil {
		return nil
	}
	if c.Vision.APIKey == "" {
		v, err := store.Get(SecretVision)
		if err != nil && !errors.Is(err, ErrSecretNotFound) {
			return fmt.Errorf("read vision key from keyring: %w", err)
		}
		c.Vision.APIKey = strings.TrimSpace(v)
	}
	if len(c.TTS.APIKeys) == 0 {
		v, err := store.Get(SecretTTS)
		if err != nil && !errors.Is(err, ErrSecretNotFound) {
			return fmt.Errorf("read tts keys from keyring: %w", err)
		}
		c.TTS.APIKeys = SplitKeys(v)
	}
	return nil
}

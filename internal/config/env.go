package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variables understood by ApplyEnvOverrides.
const (
	EnvConfigPath     = "VISIONVOICE_CONFIG"
	EnvVisionProvider = "VISIONVOICE_VISION_PROVIDER"
	EnvVisionAPIKey   = "VISIONVOICE_VISION_API_KEY"
	EnvVisionModel    = "VISIONVOICE_VISION_MODEL"
	EnvImagePath      = "VISIONVOICE_IMAGE_PATH"
	EnvTTSAPIKeys     = "VISIONVOICE_TTS_API_KEYS"
	EnvVoice          = "VISIONVOICE_VOICE"
	EnvOutputPath     = "VISIONVOICE_OUTPUT_PATH"
	EnvMaxRotations   = "VISIONVOICE_MAX_ROTATIONS"
	EnvPlayer         = "VISIONVOICE_PLAYER"

	// Provider-native names, used only when the VISIONVOICE_ ones are unset.
	envOpenRouterKey = "OPENROUTER_API_KEY"
	envGeminiKey     = "GEMINI_API_KEY"
	envElevenLabsKey = "ELEVENLABS_API_KEY"
)

// LoadDotEnv loads variables from the given .env files (or ./.env when none
// are given). Variables already set in the process environment win.
// Missing files are ignored.
func LoadDotEnv(files ...string) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		_ = godotenv.Load(f)
	}
}

// ApplyEnvOverrides copies environment variables over file values.
func (c *Config) ApplyEnvOverrides() {
	setString := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v := strings.TrimSpace(os.Getenv(k)); v != "" {
				*dst = v
				return
			}
		}
	}

	setString(&c.Vision.Provider, EnvVisionProvider)
	if c.Vision.Provider == "gemini" {
		setString(&c.Vision.APIKey, EnvVisionAPIKey, envGeminiKey)
	} else {
		setString(&c.Vision.APIKey, EnvVisionAPIKey, envOpenRouterKey)
	}
	setString(&c.Vision.Model, EnvVisionModel)
	setString(&c.Vision.ImagePath, EnvImagePath)
	setString(&c.TTS.Voice, EnvVoice)
	setString(&c.TTS.OutputPath, EnvOutputPath)
	setString(&c.Player.Command, EnvPlayer)

	for _, k := range []string{EnvTTSAPIKeys, envElevenLabsKey} {
		if keys := SplitKeys(os.Getenv(k)); len(keys) > 0 {
			c.TTS.APIKeys = keys
			break
		}
	}

	if v := os.Getenv(EnvMaxRotations); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.TTS.MaxRotations = n
		}
	}
}

// SplitKeys splits a comma or newline separated key list, dropping blanks.
func SplitKeys(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == '\n' || r == '\r'
	})
	var keys []string
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			keys = append(keys, f)
		}
	}
	return keys
}

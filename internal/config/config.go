// Package config loads and saves the visionvoice configuration.
//
// The config file is JSON5 (comments and trailing commas allowed). Secrets
// can live in the file, in environment variables (optionally loaded from a
// .env file), or in the OS keyring. Environment wins over the file, the file
// wins over the keyring.
package config

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/titanous/json5"
)

const (
	DefaultVisionProvider = "openai"
	DefaultVisionAPIBase  = "https://openrouter.ai/api/v1/"
	DefaultVisionModel    = "meta-llama/llama-3.2-90b-vision-instruct:free"
	DefaultGeminiModel    = "gemini-2.5-flash"

	DefaultTTSBaseURL = "https://api.elevenlabs.io"
	DefaultTTSModel   = "eleven_multilingual_v2"
	DefaultVoice      = "bill"

	DefaultImagePath   = "teddy.jpeg"
	DefaultOutputPath  = "output.mp3"
	DefaultChunkSize   = 5000
	DefaultPlayerCmd   = "ffplay -nodisp -autoexit -loglevel quiet {file}"
	DefaultHistoryFile = "~/.visionvoice/history"

	// UnlimitedRotations keeps rotating through the key pool until a key is
	// accepted or the context is cancelled.
	UnlimitedRotations = -1
)

// Config is the root configuration.
type Config struct {
	Vision    VisionConfig    `json:"vision"`
	TTS       TTSConfig       `json:"tts"`
	Player    PlayerConfig    `json:"player"`
	Console   ConsoleConfig   `json:"console"`
	Telemetry TelemetryConfig `json:"telemetry"`
}

// VisionConfig configures the vision-language chat backend.
type VisionConfig struct {
	Provider     string `json:"provider"` // "openai" (OpenAI-compatible, e.g. OpenRouter) or "gemini"
	APIKey       string `json:"apiKey,omitempty"`
	APIBase      string `json:"apiBase,omitempty"`
	Model        string `json:"model"`
	ImagePath    string `json:"imagePath"`
	MaxImageSide int    `json:"maxImageSide,omitempty"` // 0 = send the file untouched
	TimeoutMs    int    `json:"timeoutMs,omitempty"`    // 0 = no timeout
}

// TTSConfig configures the ElevenLabs synthesizer and its key pool.
type TTSConfig struct {
	APIKeys           []string `json:"apiKeys,omitempty"`
	BaseURL           string   `json:"baseUrl,omitempty"`
	Voice             string   `json:"voice"`
	ModelID           string   `json:"modelId"`
	OutputPath        string   `json:"outputPath"`
	ChunkSize         int      `json:"chunkSize,omitempty"`
	TimeoutMs         int      `json:"timeoutMs,omitempty"`
	MaxRotations      int      `json:"maxRotations,omitempty"` // 0 = try each key once, -1 = unlimited
	RotationDelayMs   int      `json:"rotationDelayMs,omitempty"`
	RotationMaxDelay  int      `json:"rotationMaxDelayMs,omitempty"`
	RequestsPerSecond float64  `json:"requestsPerSecond,omitempty"` // 0 = unlimited
	StripMarkdown     bool     `json:"stripMarkdown,omitempty"`
}

// PlayerConfig configures local audio playback.
type PlayerConfig struct {
	Command string `json:"command"`
	Mute    bool   `json:"mute,omitempty"`
}

// ConsoleConfig configures the interactive prompt.
type ConsoleConfig struct {
	HistoryFile string `json:"historyFile,omitempty"`
}

// TelemetryConfig configures OpenTelemetry export (only with -tags otel).
type TelemetryConfig struct {
	Enabled     bool              `json:"enabled,omitempty"`
	Endpoint    string            `json:"endpoint,omitempty"`
	Protocol    string            `json:"protocol,omitempty"`
	Insecure    bool              `json:"insecure,omitempty"`
	ServiceName string            `json:"serviceName,omitempty"`
	Headers     map[string]string `json:"headers,omitempty"`
}

// Default returns a config with every non-secret field populated.
func Default() *Config {
	return &Config{
		Vision: VisionConfig{
			Provider:  DefaultVisionProvider,
			APIBase:   DefaultVisionAPIBase,
			Model:     DefaultVisionModel,
			ImagePath: DefaultImagePath,
		},
		TTS: TTSConfig{
			BaseURL:          DefaultTTSBaseURL,
			Voice:            DefaultVoice,
			ModelID:          DefaultTTSModel,
			OutputPath:       DefaultOutputPath,
			ChunkSize:        DefaultChunkSize,
			RotationDelayMs:  500,
			RotationMaxDelay: 10000,
		},
		Player: PlayerConfig{
			Command: DefaultPlayerCmd,
		},
		Console: ConsoleConfig{
			HistoryFile: DefaultHistoryFile,
		},
	}
}

// Load reads the config at path on top of Default() and applies env
// overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if err := json5.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.ApplyEnvOverrides()
	cfg.fillDefaults()
	return cfg, nil
}

// Save writes cfg as indented JSON. The file holds secrets, so it is only
// readable by the owner.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// fillDefaults restores defaults for fields a config file blanked out.
func (c *Config) fillDefaults() {
	def := Default()
	if c.Vision.Provider == "" {
		c.Vision.Provider = def.Vision.Provider
	}
	if c.Vision.Model == "" {
		c.Vision.Model = def.Vision.Model
		if c.Vision.Provider == "gemini" {
			c.Vision.Model = DefaultGeminiModel
		}
	}
	if c.Vision.APIBase == "" && c.Vision.Provider == "openai" {
		c.Vision.APIBase = def.Vision.APIBase
	}
	if c.Vision.ImagePath == "" {
		c.Vision.ImagePath = def.Vision.ImagePath
	}
	if c.TTS.BaseURL == "" {
		c.TTS.BaseURL = def.TTS.BaseURL
	}
	if c.TTS.Voice == "" {
		c.TTS.Voice = def.TTS.Voice
	}
	if c.TTS.ModelID == "" {
		c.TTS.ModelID = def.TTS.ModelID
	}
	if c.TTS.OutputPath == "" {
		c.TTS.OutputPath = def.TTS.OutputPath
	}
	if c.TTS.ChunkSize <= 0 {
		c.TTS.ChunkSize = def.TTS.ChunkSize
	}
	if c.Player.Command == "" {
		c.Player.Command = def.Player.Command
	}
}

// Validate reports problems that would make a chat session fail.
func (c *Config) Validate() error {
	var problems []string
	switch c.Vision.Provider {
	case "openai", "gemini":
	default:
		problems = append(problems, fmt.Sprintf("vision.provider %q is not one of openai, gemini", c.Vision.Provider))
	}
	if c.Vision.APIKey == "" {
		problems = append(problems, "vision.apiKey is not set")
	}
	if len(c.TTS.APIKeys) == 0 {
		problems = append(problems, "tts.apiKeys is empty")
	}
	if c.TTS.MaxRotations < UnlimitedRotations {
		problems = append(problems, fmt.Sprintf("tts.maxRotations must be >= -1, got %d", c.TTS.MaxRotations))
	}
	if c.TTS.RequestsPerSecond < 0 {
		problems = append(problems, "tts.requestsPerSecond must not be negative")
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

// Hash returns a short content hash, used to detect whether a reload
// actually changed anything.
func (c *Config) Hash() string {
	data, _ := json.Marshal(c)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:8])
}

// MaskedCopy returns a deep copy with every secret masked.
func (c *Config) MaskedCopy() *Config {
	cp := *c
	cp.Vision.APIKey = MaskSecret(c.Vision.APIKey)
	cp.TTS.APIKeys = make([]string, len(c.TTS.APIKeys))
	for i, k := range c.TTS.APIKeys {
		cp.TTS.APIKeys[i] = MaskSecret(k)
	}
	if len(c.Telemetry.Headers) > 0 {
		cp.Telemetry.Headers = make(map[string]string, len(c.Telemetry.Headers))
		for k, v := range c.Telemetry.Headers {
			cp.Telemetry.Headers[k] = MaskSecret(v)
		}
	}
	return &cp
}

// MaskSecret keeps the first and last four characters of long secrets.
func MaskSecret(s string) string {
	switch {
	case s == "":
		return ""
	case len(s) > 8:
		return s[:4] + "****" + s[len(s)-4:]
	default:
		return "****"
	}
}

// ExpandHome replaces a leading "~" with the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// DefaultPath is ~/.visionvoice/config.json.
func DefaultPath() string {
	return ExpandHome("~/.visionvoice/config.json")
}

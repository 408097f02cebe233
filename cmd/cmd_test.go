package cmd

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/visionvoice/internal/config"
	"github.com/nextlevelbuilder/visionvoice/internal/tts"
)

func TestChatOptionsApply(t *testing.T) {
	var opts chatOptions
	cmd := &cobra.Command{Use: "chat"}
	addChatFlags(cmd, &opts)
	if err := cmd.ParseFlags([]string{"--voice", "brian", "--max-rotations=-1", "--mute"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg := config.Default()
	cfg.TTS.MaxRotations = 3
	opts.apply(cmd, cfg)

	if cfg.TTS.Voice != "brian" {
		t.Errorf("voice = %q, want brian", cfg.TTS.Voice)
	}
	if cfg.TTS.MaxRotations != -1 {
		t.Errorf("maxRotations = %d, want -1", cfg.TTS.MaxRotations)
	}
	if !cfg.Player.Mute {
		t.Error("expected mute")
	}
	if cfg.Vision.ImagePath != config.DefaultImagePath {
		t.Errorf("image path changed to %q", cfg.Vision.ImagePath)
	}
}

func TestChatOptionsApplyKeepsUnsetRotations(t *testing.T) {
	var opts chatOptions
	cmd := &cobra.Command{Use: "chat"}
	addChatFlags(cmd, &opts)
	if err := cmd.ParseFlags(nil); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	cfg := config.Default()
	cfg.TTS.MaxRotations = 3
	opts.apply(cmd, cfg)
	if cfg.TTS.MaxRotations != 3 {
		t.Errorf("maxRotations = %d, want 3", cfg.TTS.MaxRotations)
	}
}

func TestNormalizeSecret(t *testing.T) {
	got, err := normalizeSecret(config.SecretTTS, " k1, ,k2 ")
	if err != nil {
		t.Fatalf("normalizeSecret: %v", err)
	}
	if got != "k1\nk2" {
		t.Errorf("got %q, want %q", got, "k1\nk2")
	}

	if _, err := normalizeSecret(config.SecretVision, "   "); err == nil {
		t.Error("expected error for blank vision key")
	}
	if _, err := normalizeSecret(config.SecretTTS, ","); err == nil {
		t.Error("expected error for empty tts list")
	}
}

type memStore map[string]string

func (m memStore) Get(name string) (string, error) {
	v, ok := m[name]
	if !ok {
		return "", config.ErrSecretNotFound
	}
	return v, nil
}

func (m memStore) Set(name, value string) error { m[name] = value; return nil }

func (m memStore) Delete(name string) error { delete(m, name); return nil }

func TestMoveSecretsToKeyring(t *testing.T) {
	cfg := config.Default()
	cfg.Vision.APIKey = "sk-vision"
	cfg.TTS.APIKeys = []string{"a", "b"}

	store := memStore{}
	if err := moveSecretsToKeyring(cfg, store); err != nil {
		t.Fatalf("moveSecretsToKeyring: %v", err)
	}
	if cfg.Vision.APIKey != "" || len(cfg.TTS.APIKeys) != 0 {
		t.Errorf("secrets left in config: %+v / %v", cfg.Vision.APIKey, cfg.TTS.APIKeys)
	}
	if store[config.SecretVision] != "sk-vision" {
		t.Errorf("vision secret = %q", store[config.SecretVision])
	}
	if store[config.SecretTTS] != "a\nb" {
		t.Errorf("tts secret = %q", store[config.SecretTTS])
	}

	// Round trip through ApplySecrets restores the same keys.
	restored := config.Default()
	if err := restored.ApplySecrets(store); err != nil {
		t.Fatalf("ApplySecrets: %v", err)
	}
	if restored.Vision.APIKey != "sk-vision" || strings.Join(restored.TTS.APIKeys, ",") != "a,b" {
		t.Errorf("restored = %q %v", restored.Vision.APIKey, restored.TTS.APIKeys)
	}
}

func TestVerifyTTSKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/user" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("xi-api-key") == "good" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	if verr := verifyTTSKey(srv.URL, "good"); verr != nil {
		t.Errorf("good key: %v", verr)
	}
	verr := verifyTTSKey(srv.URL, "bad")
	if verr == nil || !verr.fatal {
		t.Fatalf("bad key: got %v, want fatal error", verr)
	}
}

func TestVerifyVisionKey(t *testing.T) {
	tests := []struct {
		name   string
		status int
		fatal  bool
		ok     bool
	}{
		{"bad request means key accepted", http.StatusBadRequest, false, true},
		{"unauthorized", http.StatusUnauthorized, true, false},
		{"forbidden", http.StatusForbidden, true, false},
		{"server error", http.StatusBadGateway, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/chat/completions" {
					t.Errorf("path = %s", r.URL.Path)
				}
				if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
					t.Errorf("Authorization = %q", got)
				}
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			cfg := config.Default()
			cfg.Vision.APIKey = "sk-test"
			cfg.Vision.APIBase = srv.URL + "/"
			verr := verifyVisionKey(cfg)
			if tt.ok {
				if verr != nil {
					t.Fatalf("unexpected error: %v", verr)
				}
				return
			}
			if verr == nil {
				t.Fatal("expected error")
			}
			if verr.fatal != tt.fatal {
				t.Errorf("fatal = %v, want %v", verr.fatal, tt.fatal)
			}
		})
	}
}

func TestVerifyVisionKeySkipsGemini(t *testing.T) {
	cfg := config.Default()
	cfg.Vision.Provider = "gemini"
	cfg.Vision.APIKey = "g-key"
	if verr := verifyVisionKey(cfg); verr != nil {
		t.Errorf("gemini keys are not checked: %v", verr)
	}
}

func TestRenderConfigYAMLMasksSecrets(t *testing.T) {
	cfg := config.Default()
	cfg.Vision.APIKey = "sk-or-1234567890"
	out, err := renderConfig(cfg.MaskedCopy(), true)
	if err != nil {
		t.Fatalf("renderConfig: %v", err)
	}
	if strings.Contains(out, "sk-or-1234567890") {
		t.Error("secret leaked into output")
	}
	if !strings.Contains(out, "apiKey: sk-o****7890") {
		t.Errorf("masked key missing:\n%s", out)
	}
}

func TestBuildVoiceListMarksDefault(t *testing.T) {
	entries := buildVoiceList("brian")
	if len(entries) != 3 {
		t.Fatalf("got %d voices, want 3", len(entries))
	}
	for _, e := range entries {
		if e.Default != (e.Alias == "brian") {
			t.Errorf("%s default = %v", e.Alias, e.Default)
		}
	}
}

func TestKeyReloaderApply(t *testing.T) {
	pool, err := tts.NewKeyPool([]string{"a", "b"})
	if err != nil {
		t.Fatal(err)
	}
	pool.Rotate()
	r := newKeyReloader(pool, []string{"a", "b"})

	withKeys := func(keys ...string) *config.Config {
		cfg := config.Default()
		cfg.TTS.APIKeys = keys
		return cfg
	}

	if r.apply(withKeys("a", "b")) {
		t.Error("unchanged keys should not replace the pool")
	}
	if _, idx := pool.Current(); idx != 1 {
		t.Errorf("position reset on unchanged reload: idx = %d", idx)
	}

	if r.apply(withKeys()) {
		t.Error("empty key list should keep previous keys")
	}
	if r.apply(withKeys(" ", "")) {
		t.Error("blank key list should keep previous keys")
	}
	if pool.Len() != 2 {
		t.Errorf("pool len = %d, want 2", pool.Len())
	}

	if !r.apply(withKeys("c", "d", "e")) {
		t.Fatal("new keys should replace the pool")
	}
	if key, idx := pool.Current(); key != "c" || idx != 0 || pool.Len() != 3 {
		t.Errorf("after reload: key=%q idx=%d len=%d", key, idx, pool.Len())
	}
	if r.apply(withKeys("c", "d", "e")) {
		t.Error("second identical reload should be a no-op")
	}
}

func TestKeyReloaderConcurrentApply(t *testing.T) {
	pool, err := tts.NewKeyPool([]string{"a"})
	if err != nil {
		t.Fatal(err)
	}
	r := newKeyReloader(pool, []string{"a"})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			cfg := config.Default()
			cfg.TTS.APIKeys = []string{fmt.Sprintf("k%d", i%3)}
			r.apply(cfg)
		}(i)
	}
	wg.Wait()
	if pool.Len() != 1 {
		t.Errorf("pool len = %d, want 1", pool.Len())
	}
}

func TestPromptValidators(t *testing.T) {
	tests := []struct {
		name     string
		validate func(string) error
		in       string
		ok       bool
	}{
		{"key", validateAPIKey, " sk-abc ", true},
		{"empty key", validateAPIKey, "   ", false},
		{"key with space", validateAPIKey, "sk abc", false},
		{"key list", validateAPIKeyList, "k1, k2", true},
		{"empty list", validateAPIKeyList, " , ", false},
		{"list with spaced key", validateAPIKeyList, "k1, k 2", false},
		{"optional keeps existing", optionalIf(true, validateAPIKey), "", true},
		{"optional still checks input", optionalIf(true, validateAPIKey), "a b", false},
		{"required when nothing to keep", optionalIf(false, validateAPIKey), "", false},
		{"non-empty", validateNonEmpty, "teddy.jpeg", true},
		{"blank", validateNonEmpty, "  ", false},
		{"player", validatePlayerCommand, "ffplay -nodisp {file}", true},
		{"empty player", validatePlayerCommand, "", false},
		{"unterminated quote", validatePlayerCommand, `mpv "x`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.validate(tt.in)
			if (err == nil) != tt.ok {
				t.Errorf("validate(%q) = %v, want ok=%v", tt.in, err, tt.ok)
			}
		})
	}
}

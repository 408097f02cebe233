package cmd

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/nextlevelbuilder/visionvoice/internal/config"
)

// keyVerifyError holds the result of a credential check.
type keyVerifyError struct {
	fatal   bool   // true = bad credentials
	message string // human-readable description
}

func (e *keyVerifyError) Error() string { return e.message }

var verifyClient = &http.Client{Timeout: 10 * time.Second}

// verifyVisionKey checks the vision key by POSTing an empty body to the
// chat completions endpoint, which always requires authentication.
//   - 401/403 → invalid API key (fatal)
//   - 400/422 → key is valid, request is bad (expected)
//   - 2xx     → key is valid
//   - other   → inconclusive warning
//
// Gemini keys are not checked.
func verifyVisionKey(cfg *config.Config) *keyVerifyError {
	if cfg.Vision.Provider != "openai" || cfg.Vision.APIKey == "" {
		return nil
	}
	base := strings.TrimRight(cfg.Vision.APIBase, "/")
	if base == "" {
		base = strings.TrimRight(config.DefaultVisionAPIBase, "/")
	}

	req, err := http.NewRequest(http.MethodPost, base+"/chat/completions", strings.NewReader("{}"))
	if err != nil {
		return &keyVerifyError{message: fmt.Sprintf("build request: %v", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+cfg.Vision.APIKey)
	return classifyCheck("vision", req, http.StatusBadRequest, http.StatusUnprocessableEntity)
}

// verifyTTSKey checks one ElevenLabs key against GET /v1/user.
func verifyTTSKey(baseURL, key string) *keyVerifyError {
	base := strings.TrimRight(baseURL, "/")
	if base == "" {
		base = config.DefaultTTSBaseURL
	}
	req, err := http.NewRequest(http.MethodGet, base+"/v1/user", nil)
	if err != nil {
		return &keyVerifyError{message: fmt.Sprintf("build request: %v", err)}
	}
	req.Header.Set("xi-api-key", key)
	return classifyCheck("elevenlabs", req)
}

// classifyCheck sends req and maps the status. extraOK lists statuses that
// still prove the key was accepted.
func classifyCheck(name string, req *http.Request, extraOK ...int) *keyVerifyError {
	resp, err := verifyClient.Do(req)
	if err != nil {
		return &keyVerifyError{message: fmt.Sprintf("connectivity check failed (transient): %v", err)}
	}
	defer resp.Body.Close()

	for _, code := range extraOK {
		if resp.StatusCode == code {
			return nil
		}
	}
	switch {
	case resp.StatusCode == 401 || resp.StatusCode == 403:
		return &keyVerifyError{fatal: true, message: fmt.Sprintf("%s returned %d: invalid API key", name, resp.StatusCode)}
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode >= 500:
		return &keyVerifyError{message: fmt.Sprintf("%s returned %d (transient)", name, resp.StatusCode)}
	default:
		return &keyVerifyError{message: fmt.Sprintf("%s returned %d (unexpected)", name, resp.StatusCode)}
	}
}

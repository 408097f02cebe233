package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"

	"github.com/nextlevelbuilder/visionvoice/internal/tracing"
)

const (
	defaultElevenLabsBaseURL = "https://api.elevenlabs.io"
	defaultElevenLabsModel   = "eleven_multilingual_v2"
	defaultChunkSize         = 5000

	// maxErrorBody caps how much of a failed response is kept for display.
	maxErrorBody = 64 * 1024
)

// ElevenLabsConfig configures the ElevenLabs TTS provider.
type ElevenLabsConfig struct {
	Keys       *KeyPool
	BaseURL    string
	VoiceID    string
	ModelID    string
	OutputPath string
	ChunkSize  int
	TimeoutMs  int // per request, 0 = none

	Rotation          RotationPolicy
	RequestsPerSecond float64 // 0 = unlimited

	// HTTPClient overrides the client built from TimeoutMs.
	HTTPClient *http.Client

	// OnRotate is called after each switch with the 1-based number of the
	// key now in use.
	OnRotate func(keyNumber int)
}

// ElevenLabsProvider implements TTS via the ElevenLabs API.
type ElevenLabsProvider struct {
	keys       *KeyPool
	baseURL    string
	voiceID    string
	modelID    string
	outputPath string
	chunkSize  int
	rotation   RotationPolicy
	limiter    *rate.Limiter
	client     *http.Client
	onRotate   func(int)
}

// NewElevenLabsProvider creates an ElevenLabs TTS provider.
func NewElevenLabsProvider(cfg ElevenLabsConfig) (*ElevenLabsProvider, error) {
	if cfg.Keys == nil {
		return nil, ErrNoKeys
	}
	p := &ElevenLabsProvider{
		keys:       cfg.Keys,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		voiceID:    cfg.VoiceID,
		modelID:    cfg.ModelID,
		outputPath: cfg.OutputPath,
		chunkSize:  cfg.ChunkSize,
		rotation:   cfg.Rotation,
		client:     cfg.HTTPClient,
		onRotate:   cfg.OnRotate,
	}
	if p.baseURL == "" {
		p.baseURL = defaultElevenLabsBaseURL
	}
	if p.voiceID == "" {
		p.voiceID = voiceAliases["bill"]
	}
	if p.modelID == "" {
		p.modelID = defaultElevenLabsModel
	}
	if p.outputPath == "" {
		p.outputPath = "output.mp3"
	}
	if p.chunkSize <= 0 {
		p.chunkSize = defaultChunkSize
	}
	if p.client == nil {
		p.client = &http.Client{Timeout: time.Duration(cfg.TimeoutMs) * time.Millisecond}
	}
	if cfg.RequestsPerSecond > 0 {
		p.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	return p, nil
}

func (p *ElevenLabsProvider) Name() string { return "elevenlabs" }

// Keys exposes the pool so a config reload can replace it.
func (p *ElevenLabsProvider) Keys() *KeyPool { return p.keys }

// Synthesize posts text to {baseUrl}/v1/text-to-speech/{voiceId} and
// streams the audio into the output file. A 401 switches to the next key
// and retries, up to the rotation policy's limit. Any other non-200
// status is returned as *RemoteError without rotating.
func (p *ElevenLabsProvider) Synthesize(ctx context.Context, text string, opts Options) (res *SynthResult, err error) {
	voiceID := opts.Voice
	if voiceID == "" {
		voiceID = p.voiceID
	}
	modelID := opts.Model
	if modelID == "" {
		modelID = p.modelID
	}

	ctx, span := tracing.Start(ctx, "tts.synthesize",
		attribute.String("tts.voice_id", voiceID),
		attribute.String("tts.model_id", modelID),
		attribute.Int("tts.text_length", len(text)),
	)
	defer func() { tracing.End(span, err) }()

	body := map[string]interface{}{
		"text":     text,
		"model_id": modelID,
		"voice_settings": map[string]interface{}{
			"stability":         0,
			"similarity_boost":  1,
			"style":             1,
			"use_speaker_boost": true,
		},
	}
	bodyJSON, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal elevenlabs tts request: %w", err)
	}
	url := fmt.Sprintf("%s/v1/text-to-speech/%s", p.baseURL, voiceID)

	limit := p.rotation.limit(p.keys.Len())
	rotations := 0
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if p.limiter != nil {
			if err := p.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		key, idx := p.keys.Current()
		n, status, errBody, err := p.attempt(ctx, url, key, bodyJSON)
		if err != nil {
			return nil, err
		}

		switch status {
		case http.StatusOK:
			slog.Debug("tts audio written", "path", p.outputPath, "bytes", n, "key", idx+1, "attempts", attempt)
			span.SetAttributes(attribute.Int("tts.rotations", rotations))
			return &SynthResult{
				Path:      p.outputPath,
				Bytes:     n,
				MimeType:  "audio/mpeg",
				Attempts:  attempt,
				Rotations: rotations,
			}, nil

		case http.StatusUnauthorized:
			if limit >= 0 && rotations >= limit {
				return nil, fmt.Errorf("%w after %d rotations: %s", ErrKeysExhausted, rotations, errBody)
			}
			next := p.keys.Rotate()
			rotations++
			slog.Warn("tts api key rejected, switching", "from", idx+1, "to", next+1)
			if p.onRotate != nil {
				p.onRotate(next + 1)
			}
			if d := p.rotation.delay(rotations, p.keys.Len()); d > 0 {
				slog.Debug("tts key pool wrapped, backing off", "delay", d)
				if err := sleepCtx(ctx, d); err != nil {
					return nil, err
				}
			}

		default:
			return nil, &RemoteError{StatusCode: status, Body: errBody}
		}
	}
}

// attempt sends one request with key. On 200 the audio is written and its
// size returned; otherwise the status and (truncated) body are returned.
func (p *ElevenLabsProvider) attempt(ctx context.Context, url, key string, payload []byte) (int64, int, string, error) {
	ctx, span := tracing.Start(ctx, "tts.attempt")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		tracing.End(span, err)
		return 0, 0, "", fmt.Errorf("create elevenlabs tts request: %w", err)
	}
	req.Header.Set("Accept", "audio/mpeg")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", key)

	resp, err := p.client.Do(req)
	if err != nil {
		tracing.End(span, err)
		return 0, 0, "", fmt.Errorf("elevenlabs tts request failed: %w", err)
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		tracing.End(span, nil)
		return 0, resp.StatusCode, string(errBody), nil
	}

	n, err := p.writeAudio(resp.Body)
	tracing.End(span, err)
	if err != nil {
		return 0, 0, "", err
	}
	return n, resp.StatusCode, "", nil
}

// writeAudio copies r chunkSize bytes at a time into a temp file next to
// the output path and renames it over the output only after a clean EOF.
// A broken stream leaves the previous artifact untouched.
func (p *ElevenLabsProvider) writeAudio(r io.Reader) (_ int64, err error) {
	f, err := os.CreateTemp(filepath.Dir(p.outputPath), "."+filepath.Base(p.outputPath)+".*.part")
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrOutput, err)
	}
	tmp := f.Name()
	defer func() {
		if err != nil {
			f.Close()
			os.Remove(tmp)
		}
	}()

	buf := make([]byte, p.chunkSize)
	var total int64
	for {
		n, rerr := r.Read(buf)
		if n > 0 {
			if _, werr := f.Write(buf[:n]); werr != nil {
				return total, fmt.Errorf("%w: %w", ErrOutput, werr)
			}
			total += int64(n)
		}
		if errors.Is(rerr, io.EOF) {
			break
		}
		if rerr != nil {
			return total, fmt.Errorf("read elevenlabs audio stream: %w", rerr)
		}
	}
	if err := f.Chmod(0o644); err != nil {
		return total, fmt.Errorf("%w: %w", ErrOutput, err)
	}
	if err := f.Close(); err != nil {
		return total, fmt.Errorf("%w: %w", ErrOutput, err)
	}
	if err := os.Rename(tmp, p.outputPath); err != nil {
		return total, fmt.Errorf("%w: %w", ErrOutput, err)
	}
	return total, nil
}

package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
)

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{uint8(x), uint8(y), 128, 255})
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func testImage() *Image {
	return &Image{Data: []byte{0xff, 0xd8, 0xff, 0xe0}, MIMEType: "image/jpeg"}
}

func TestLoadImage_Raw(t *testing.T) {
	path := filepath.Join(t.TempDir(), "teddy.png")
	writePNG(t, path, 4, 4)

	img, err := LoadImage(path, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	raw, _ := os.ReadFile(path)
	if !bytes.Equal(img.Data, raw) {
		t.Error("raw mode must send the file bytes unchanged")
	}
	if img.MIMEType != "image/png" {
		t.Errorf("expected image/png, got %q", img.MIMEType)
	}
	want := "data:image/png;base64," + base64.StdEncoding.EncodeToString(raw)
	if img.DataURI() != want {
		t.Errorf("unexpected data URI prefix: %.40s", img.DataURI())
	}
}

func TestLoadImage_UnknownContentFallsBackToJPEG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "teddy.jpeg")
	if err := os.WriteFile(path, []byte("not really an image"), 0644); err != nil {
		t.Fatal(err)
	}
	img, err := LoadImage(path, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if img.MIMEType != "image/jpeg" {
		t.Errorf("expected image/jpeg fallback, got %q", img.MIMEType)
	}
}

func TestLoadImage_Missing(t *testing.T) {
	_, err := LoadImage(filepath.Join(t.TempDir(), "nope.jpeg"), 0)
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}

func TestLoadImage_Sanitize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "big.png")
	writePNG(t, path, 200, 100)

	img, err := LoadImage(path, 50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if img.MIMEType != "image/jpeg" {
		t.Errorf("expected image/jpeg, got %q", img.MIMEType)
	}
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(img.Data))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if cfg.Width != 50 || cfg.Height != 25 {
		t.Errorf("expected 50x25, got %dx%d", cfg.Width, cfg.Height)
	}
}

// chatServer records chat completion requests and replies with status/body.
type chatServer struct {
	calls  atomic.Int32
	status int
	body   string
	auth   string
	req    map[string]interface{}
}

func (c *chatServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c.calls.Add(1)
	c.auth = r.Header.Get("Authorization")
	raw, _ := io.ReadAll(r.Body)
	_ = json.Unmarshal(raw, &c.req)
	if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(c.status)
	w.Write([]byte(c.body))
}

func TestOpenAIProvider_ReturnsFirstChoice(t *testing.T) {
	srv := &chatServer{status: 200, body: `{"choices":[{"message":{"content":"Hello"}}]}`}
	ts := httptest.NewServer(srv)
	defer ts.Close()

	p := NewOpenAIProvider(OpenAIConfig{APIKey: "sk-test", APIBase: ts.URL + "/api/v1", Model: "vision-model"})
	got, err := p.Query(context.Background(), testImage(), "What is this?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "Hello" {
		t.Errorf("expected Hello, got %q", got)
	}
	if srv.auth != "Bearer sk-test" {
		t.Errorf("unexpected auth header %q", srv.auth)
	}
}

func TestOpenAIProvider_RequestShape(t *testing.T) {
	srv := &chatServer{status: 200, body: `{"choices":[{"message":{"content":"ok"}}]}`}
	ts := httptest.NewServer(srv)
	defer ts.Close()

	p := NewOpenAIProvider(OpenAIConfig{APIKey: "k", APIBase: ts.URL + "/", Model: "vision-model"})
	if _, err := p.Query(context.Background(), testImage(), "Describe"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if srv.req["model"] != "vision-model" {
		t.Errorf("unexpected model: %v", srv.req["model"])
	}
	msgs, _ := srv.req["messages"].([]interface{})
	if len(msgs) != 1 {
		t.Fatalf("expected one message, got %d", len(msgs))
	}
	msg, _ := msgs[0].(map[string]interface{})
	if msg["role"] != "user" {
		t.Errorf("expected user role, got %v", msg["role"])
	}
	parts, _ := msg["content"].([]interface{})
	if len(parts) != 2 {
		t.Fatalf("expected text and image parts, got %v", msg["content"])
	}
	text, _ := parts[0].(map[string]interface{})
	if text["type"] != "text" || text["text"] != "Describe" {
		t.Errorf("unexpected text part: %v", text)
	}
	imgPart, _ := parts[1].(map[string]interface{})
	imgURL, _ := imgPart["image_url"].(map[string]interface{})
	if imgPart["type"] != "image_url" || imgURL["url"] != testImage().DataURI() {
		t.Errorf("unexpected image part: %v", imgPart)
	}
}

func TestOpenAIProvider_NonSuccessIsRemoteError(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"json", `{"error":{"message":"Rate limit exceeded","code":429}}`},
		{"plain", `upstream unavailable`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := &chatServer{status: 429, body: tc.body}
			ts := httptest.NewServer(srv)
			defer ts.Close()

			p := NewOpenAIProvider(OpenAIConfig{APIKey: "k", APIBase: ts.URL, Model: "m"})
			_, err := p.Query(context.Background(), testImage(), "hi")

			var remote *RemoteError
			if !errors.As(err, &remote) {
				t.Fatalf("expected *RemoteError, got %v", err)
			}
			if remote.StatusCode != 429 || remote.Body != tc.body {
				t.Errorf("unexpected remote error: %+v", remote)
			}
			if n := srv.calls.Load(); n != 1 {
				t.Errorf("expected exactly one request, got %d", n)
			}
		})
	}
}

func TestOpenAIProvider_NoChoices(t *testing.T) {
	srv := &chatServer{status: 200, body: `{"choices":[]}`}
	ts := httptest.NewServer(srv)
	defer ts.Close()

	p := NewOpenAIProvider(OpenAIConfig{APIKey: "k", APIBase: ts.URL, Model: "m"})
	if _, err := p.Query(context.Background(), testImage(), "hi"); !errors.Is(err, ErrNoChoices) {
		t.Errorf("expected ErrNoChoices, got %v", err)
	}
}

func TestGeminiProvider(t *testing.T) {
	var gotKey, gotPath string
	var gotBody map[string]interface{}
	status := http.StatusOK
	reply := `{"candidates":[{"content":{"role":"model","parts":[{"text":"Hello"}]}}]}`

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("x-goog-api-key")
		gotPath = r.URL.Path
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(reply))
	}))
	defer ts.Close()

	p, err := NewGeminiProvider(context.Background(), GeminiConfig{APIKey: "g-key", APIBase: ts.URL + "/", Model: "gemini-test"})
	if err != nil {
		t.Fatalf("NewGeminiProvider: %v", err)
	}

	got, err := p.Query(context.Background(), testImage(), "What is this?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "Hello" {
		t.Errorf("expected Hello, got %q", got)
	}
	if gotKey != "g-key" {
		t.Errorf("unexpected api key header %q", gotKey)
	}
	if !strings.HasSuffix(gotPath, "models/gemini-test:generateContent") {
		t.Errorf("unexpected path %q", gotPath)
	}
	contents, _ := gotBody["contents"].([]interface{})
	if len(contents) != 1 {
		t.Fatalf("expected one content, got %v", gotBody)
	}

	status = http.StatusTooManyRequests
	reply = `{"error":{"code":429,"message":"quota exhausted","status":"RESOURCE_EXHAUSTED"}}`
	_, err = p.Query(context.Background(), testImage(), "again")
	var remote *RemoteError
	if !errors.As(err, &remote) || remote.StatusCode != 429 {
		t.Errorf("expected 429 remote error, got %v", err)
	}
}

// Package vision asks a vision-language model a question about an image.
package vision

import (
	"context"
	"errors"
	"fmt"
)

// Provider answers a text prompt about an image.
type Provider interface {
	Name() string
	Query(ctx context.Context, img *Image, prompt string) (string, error)
}

// RemoteError is a non-success answer from the chat API. Body is the raw
// response body.
type RemoteError struct {
	StatusCode int
	Body       string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("vision request failed with status %d: %s", e.StatusCode, e.Body)
}

// ErrNoChoices is returned when a successful response carries no answer.
var ErrNoChoices = errors.New("vision response has no choices")

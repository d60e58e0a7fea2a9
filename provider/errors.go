package provider

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"promptbuddies/model"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/ollama/ollama/api"
	"github.com/openai/openai-go/v3"
)

// overflowPhrases are fragments of the messages backends use when a prompt
// does not fit the model's context window.
var overflowPhrases = []string{
	"context_length_exceeded",
	"maximum context length",
	"context length",
	"context window",
	"prompt is too long",
	"input is too long",
	"too many tokens",
	"reduce the length",
	"max_new_tokens` must be <=",
}

func overflowText(msg string) bool {
	msg = strings.ToLower(msg)
	for _, p := range overflowPhrases {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// IsContextOverflow reports whether err is a backend rejection caused by
// the request being too large.
func IsContextOverflow(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, model.ErrContextOverflow) {
		return true
	}

	var oaErr *openai.Error
	if errors.As(err, &oaErr) {
		return oaErr.StatusCode == http.StatusRequestEntityTooLarge ||
			oaErr.Code == "context_length_exceeded" ||
			overflowText(oaErr.Message)
	}

	var anErr *anthropic.Error
	if errors.As(err, &anErr) {
		return anErr.StatusCode == http.StatusRequestEntityTooLarge || overflowText(anErr.RawJSON())
	}

	var stErr api.StatusError
	if errors.As(err, &stErr) {
		return stErr.StatusCode == http.StatusRequestEntityTooLarge || overflowText(stErr.ErrorMessage)
	}

	return overflowText(err.Error())
}

// classifyError wraps a backend failure, marking context overflows so that
// errors.Is(err, model.ErrContextOverflow) holds.
func classifyError(backend string, err error) error {
	if IsContextOverflow(err) {
		return fmt.Errorf("%s: %w: %w", backend, model.ErrContextOverflow, err)
	}
	return fmt.Errorf("%s streaming error: %w", backend, err)
}

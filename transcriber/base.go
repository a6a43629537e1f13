package transcriber

import (
	"net/http"
	"time"
)

type baseTranscriber struct {
	client *TracedClient
	apiURL string
	model  string
}

// Warm opens the provider connection ahead of the first request so the
// handshake never lands inside a transcription wait.
func (b *baseTranscriber) Warm() time.Duration { return b.client.Warm() }

// rateLimitInfo summarizes the provider's remaining/limit headers for
// a 429 failure message. Providers disagree on header names.
func rateLimitInfo(h http.Header) string {
	remaining := firstNonEmpty(h,
		"x-ratelimit-remaining-requests", "x-ratelimit-remaining", "ratelimit-remaining")
	limit := firstNonEmpty(h,
		"x-ratelimit-limit-requests", "x-ratelimit-limit", "ratelimit-limit")
	return remaining + "/" + limit
}

// chatResponse covers the OpenAI-compatible completion shape used by
// the openai, mistral and openrouter endpoints.
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

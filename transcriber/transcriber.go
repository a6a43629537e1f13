// Package transcriber submits preprocessed audio plus a cleanup
// instruction to a cloud model and returns cleaned text. Provider
// variants differ only in wire encoding and authentication. The
// Orchestrator drives the single-flight submission with primary to
// fallback failover.
package transcriber

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// Attempt identifies one provider/model/key tuple in a submission chain.
type Attempt struct {
	Provider string
	Model    string
	APIKey   string
}

type Usage struct {
	PromptTokens     int
	CompletionTokens int
}

type Result struct {
	Text     string
	Provider string
	Model    string
	Usage    Usage
	Metrics  *NetworkMetrics
}

type Client interface {
	Name() string
	Transcribe(ctx context.Context, audio []byte, instruction string) (*Result, error)
}

// NewClient builds the client for an attempt's provider.
func NewClient(a Attempt) (Client, error) {
	switch a.Provider {
	case "gemini":
		return NewGemini(a.APIKey, a.Model), nil
	case "openai":
		return NewOpenAI(a.APIKey, a.Model), nil
	case "mistral":
		return NewMistral(a.APIKey, a.Model), nil
	case "openrouter":
		return NewOpenRouter(a.APIKey, a.Model), nil
	}
	return nil, fmt.Errorf("unknown provider %q", a.Provider)
}

type NetworkMetrics struct {
	DNS         time.Duration
	ConnWait    time.Duration
	TCP         time.Duration
	TLS         time.Duration
	ReqHeaders  time.Duration
	ReqBody     time.Duration
	TTFB        time.Duration
	Download    time.Duration
	Total       time.Duration
	ConnReused  bool
	TLSProtocol string
}

func (m *NetworkMetrics) Sum() time.Duration {
	return m.ConnWait + m.DNS + m.TCP + m.TLS + m.ReqHeaders + m.ReqBody + m.TTFB + m.Download
}

func firstNonEmpty(h http.Header, keys ...string) string {
	for _, k := range keys {
		if v := h.Get(k); v != "" {
			return v
		}
	}
	return "?"
}

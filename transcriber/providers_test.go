package transcriber

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

func serveJSON(t *testing.T, handler func(r *http.Request, body []byte) (int, string)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		status, resp := handler(r, body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		io.WriteString(w, resp)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func pointAt(b *baseTranscriber, url string) {
	b.apiURL = url
	b.client = NewTracedClient(url)
}

func TestOpenAIWireFormat(t *testing.T) {
	audio := []byte{1, 2, 3, 4}
	srv := serveJSON(t, func(r *http.Request, body []byte) (int, string) {
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("auth header = %q", got)
		}
		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content []struct {
					Type       string `json:"type"`
					Text       string `json:"text"`
					InputAudio *struct {
						Data   string `json:"data"`
						Format string `json:"format"`
					} `json:"input_audio"`
				} `json:"content"`
			} `json:"messages"`
		}
		if err := json.Unmarshal(body, &req); err != nil {
			t.Fatalf("request body: %v", err)
		}
		if req.Model != "gpt-4o-audio-preview" {
			t.Errorf("model = %q", req.Model)
		}
		parts := req.Messages[0].Content
		if parts[0].Type != "text" || parts[0].Text == "" {
			t.Error("first part is not the instruction text")
		}
		if parts[1].Type != "input_audio" || parts[1].InputAudio.Format != "wav" {
			t.Error("second part is not wav input_audio")
		}
		decoded, err := base64.StdEncoding.DecodeString(parts[1].InputAudio.Data)
		if err != nil || string(decoded) != string(audio) {
			t.Error("audio did not round-trip through base64")
		}
		return 200, `{"choices":[{"message":{"content":"  hello world \n"}}],"usage":{"prompt_tokens":12,"completion_tokens":3}}`
	})

	c := NewOpenAI("sk-test", "gpt-4o-audio-preview")
	pointAt(&c.baseTranscriber, srv.URL)

	res, err := c.Transcribe(context.Background(), audio, "clean this up")
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if res.Text != "hello world" {
		t.Errorf("text = %q, want trimmed %q", res.Text, "hello world")
	}
	if res.Provider != "openai" || res.Model != "gpt-4o-audio-preview" {
		t.Errorf("provider/model = %s/%s", res.Provider, res.Model)
	}
	if res.Usage.PromptTokens != 12 || res.Usage.CompletionTokens != 3 {
		t.Errorf("usage = %+v", res.Usage)
	}
	if res.Metrics == nil {
		t.Error("missing network metrics")
	}
}

func TestGeminiWireFormat(t *testing.T) {
	srv := serveJSON(t, func(r *http.Request, body []byte) (int, string) {
		if got := r.Header.Get("x-goog-api-key"); got != "g-test" {
			t.Errorf("api key header = %q", got)
		}
		var req struct {
			Contents []struct {
				Parts []struct {
					Text       string `json:"text"`
					InlineData *struct {
						MimeType string `json:"mime_type"`
						Data     string `json:"data"`
					} `json:"inline_data"`
				} `json:"parts"`
			} `json:"contents"`
		}
		if err := json.Unmarshal(body, &req); err != nil {
			t.Fatalf("request body: %v", err)
		}
		parts := req.Contents[0].Parts
		if parts[0].Text == "" {
			t.Error("missing instruction part")
		}
		if parts[1].InlineData == nil || parts[1].InlineData.MimeType != "audio/wav" {
			t.Error("missing audio/wav inline_data part")
		}
		return 200, `{"candidates":[{"content":{"parts":[{"text":"first "},{"text":"second"}]}}],"usageMetadata":{"promptTokenCount":9,"candidatesTokenCount":2}}`
	})

	c := NewGemini("g-test", "gemini-2.0-flash")
	pointAt(&c.baseTranscriber, srv.URL)

	res, err := c.Transcribe(context.Background(), []byte{9}, "instruction")
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if res.Text != "first second" {
		t.Errorf("text = %q, want concatenated parts", res.Text)
	}
	if res.Usage.PromptTokens != 9 || res.Usage.CompletionTokens != 2 {
		t.Errorf("usage = %+v", res.Usage)
	}
}

func TestMistralWireFormat(t *testing.T) {
	srv := serveJSON(t, func(r *http.Request, body []byte) (int, string) {
		var req struct {
			Messages []struct {
				Content []struct {
					Type       string `json:"type"`
					InputAudio string `json:"input_audio"`
				} `json:"content"`
			} `json:"messages"`
		}
		if err := json.Unmarshal(body, &req); err != nil {
			t.Fatalf("request body: %v", err)
		}
		first := req.Messages[0].Content[0]
		if first.Type != "input_audio" || first.InputAudio == "" {
			t.Error("first part should carry base64 audio directly")
		}
		return 200, `{"choices":[{"message":{"content":"voila"}}],"usage":{"prompt_tokens":1,"completion_tokens":1}}`
	})

	c := NewMistral("m-test", "voxtral-small-latest")
	pointAt(&c.baseTranscriber, srv.URL)

	res, err := c.Transcribe(context.Background(), []byte{7}, "instruction")
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if res.Text != "voila" {
		t.Errorf("text = %q", res.Text)
	}
}

func TestProviderErrorClassification(t *testing.T) {
	cases := []struct {
		status int
		want   FailureKind
	}{
		{401, FailureAuth},
		{429, FailureRateLimited},
		{500, FailureServer},
	}
	for _, tc := range cases {
		srv := serveJSON(t, func(_ *http.Request, _ []byte) (int, string) {
			return tc.status, `{"error":"nope"}`
		})
		c := NewOpenAI("sk", "gpt-4o-audio-preview")
		pointAt(&c.baseTranscriber, srv.URL)

		_, err := c.Transcribe(context.Background(), []byte{1}, "x")
		var f *Failure
		if !errors.As(err, &f) {
			t.Fatalf("status %d: error is not a *Failure: %v", tc.status, err)
		}
		if f.Kind != tc.want {
			t.Errorf("status %d classified %s, want %s", tc.status, f.Kind, tc.want)
		}
		if f.Status != tc.status {
			t.Errorf("status %d recorded as %d", tc.status, f.Status)
		}
	}
}

func TestRateLimitHeadersInFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("x-ratelimit-remaining-requests", "0")
		w.Header().Set("x-ratelimit-limit-requests", "500")
		w.WriteHeader(429)
		io.WriteString(w, `{"error":"slow down"}`)
	}))
	t.Cleanup(srv.Close)

	c := NewOpenAI("sk", "gpt-4o-audio-preview")
	pointAt(&c.baseTranscriber, srv.URL)

	_, err := c.Transcribe(context.Background(), []byte{1}, "x")
	var f *Failure
	if !errors.As(err, &f) || f.Kind != FailureRateLimited {
		t.Fatalf("got %v, want rate-limited failure", err)
	}
	if !strings.Contains(err.Error(), "0/500") {
		t.Errorf("failure %q should carry the rate-limit headers", err.Error())
	}
}

func TestWarmReusesConnection(t *testing.T) {
	var mu sync.Mutex
	var methods []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		methods = append(methods, r.Method)
		mu.Unlock()
		io.WriteString(w, `{}`)
	}))
	t.Cleanup(srv.Close)

	c := NewTracedClient(srv.URL)
	c.Warm()

	req, err := http.NewRequest("GET", srv.URL, nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := c.Do(req)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(methods) != 2 || methods[0] != "HEAD" {
		t.Fatalf("methods = %v, want a HEAD then the real request", methods)
	}
	if !resp.Metrics.ConnReused {
		t.Error("request after warm should reuse the connection")
	}
}

func TestProviderMalformedResponse(t *testing.T) {
	srv := serveJSON(t, func(_ *http.Request, _ []byte) (int, string) {
		return 200, `{"choices":[]}`
	})
	c := NewOpenRouter("or", "google/gemini-2.0-flash-001")
	pointAt(&c.baseTranscriber, srv.URL)

	_, err := c.Transcribe(context.Background(), []byte{1}, "x")
	var f *Failure
	if !errors.As(err, &f) || f.Kind != FailureInvalidResponse {
		t.Errorf("empty choices should classify invalid_response, got %v", err)
	}
}

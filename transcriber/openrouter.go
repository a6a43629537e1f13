package transcriber

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// OpenRouter proxies OpenAI-compatible models, so it reuses the openai
// wire shapes against its own endpoint.
type OpenRouter struct {
	baseTranscriber
	apiKey string
}

func NewOpenRouter(apiKey, model string) *OpenRouter {
	apiURL := "https://openrouter.ai/api/v1/chat/completions"
	return &OpenRouter{
		baseTranscriber: baseTranscriber{
			client: NewTracedClient(apiURL),
			apiURL: apiURL,
			model:  model,
		},
		apiKey: apiKey,
	}
}

func (o *OpenRouter) Name() string { return "openrouter" }

func (o *OpenRouter) fail(kind FailureKind, status int, err error) *Failure {
	return &Failure{Kind: kind, Provider: o.Name(), Model: o.model, Status: status, Err: err}
}

func (o *OpenRouter) Transcribe(ctx context.Context, audio []byte, instruction string) (*Result, error) {
	var reqBody openaiRequest
	reqBody.Model = o.model
	reqBody.Messages = make([]struct {
		Role    string       `json:"role"`
		Content []openaiPart `json:"content"`
	}, 1)
	reqBody.Messages[0].Role = "user"
	reqBody.Messages[0].Content = []openaiPart{
		{Type: "text", Text: instruction},
		{Type: "input_audio", InputAudio: &openaiAudio{
			Data:   base64.StdEncoding.EncodeToString(audio),
			Format: "wav",
		}},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, o.fail(FailureInvalidResponse, 0, err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", o.apiURL, bytes.NewReader(payload))
	if err != nil {
		return nil, o.fail(FailureInvalidResponse, 0, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, o.fail(classifyErr(err), 0, err)
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, o.fail(FailureRateLimited, resp.StatusCode,
			fmt.Errorf("openrouter rate limited (%s): %s", rateLimitInfo(resp.Header), string(resp.Body)))
	}
	if resp.StatusCode != 200 {
		return nil, o.fail(classifyStatus(resp.StatusCode), resp.StatusCode,
			fmt.Errorf("openrouter API error: %s", string(resp.Body)))
	}

	var cResp chatResponse
	if err := json.Unmarshal(resp.Body, &cResp); err != nil {
		return nil, o.fail(FailureInvalidResponse, resp.StatusCode,
			fmt.Errorf("openrouter response parse error: %w", err))
	}
	if len(cResp.Choices) == 0 {
		return nil, o.fail(FailureInvalidResponse, resp.StatusCode,
			fmt.Errorf("openrouter returned no choices"))
	}

	return &Result{
		Text:     strings.TrimSpace(cResp.Choices[0].Message.Content),
		Provider: o.Name(),
		Model:    o.model,
		Usage: Usage{
			PromptTokens:     cResp.Usage.PromptTokens,
			CompletionTokens: cResp.Usage.CompletionTokens,
		},
		Metrics: resp.Metrics,
	}, nil
}

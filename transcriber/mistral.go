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

type Mistral struct {
	baseTranscriber
	apiKey string
}

func NewMistral(apiKey, model string) *Mistral {
	apiURL := "https://api.mistral.ai/v1/chat/completions"
	return &Mistral{
		baseTranscriber: baseTranscriber{
			client: NewTracedClient(apiURL),
			apiURL: apiURL,
			model:  model,
		},
		apiKey: apiKey,
	}
}

func (m *Mistral) Name() string { return "mistral" }

// Mistral's input_audio part carries the base64 string directly rather
// than the data/format object OpenAI uses.
type mistralPart struct {
	Type       string `json:"type"`
	Text       string `json:"text,omitempty"`
	InputAudio string `json:"input_audio,omitempty"`
}

type mistralRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string        `json:"role"`
		Content []mistralPart `json:"content"`
	} `json:"messages"`
}

func (m *Mistral) fail(kind FailureKind, status int, err error) *Failure {
	return &Failure{Kind: kind, Provider: m.Name(), Model: m.model, Status: status, Err: err}
}

func (m *Mistral) Transcribe(ctx context.Context, audio []byte, instruction string) (*Result, error) {
	var reqBody mistralRequest
	reqBody.Model = m.model
	reqBody.Messages = make([]struct {
		Role    string        `json:"role"`
		Content []mistralPart `json:"content"`
	}, 1)
	reqBody.Messages[0].Role = "user"
	reqBody.Messages[0].Content = []mistralPart{
		{Type: "input_audio", InputAudio: base64.StdEncoding.EncodeToString(audio)},
		{Type: "text", Text: instruction},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, m.fail(FailureInvalidResponse, 0, err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", m.apiURL, bytes.NewReader(payload))
	if err != nil {
		return nil, m.fail(FailureInvalidResponse, 0, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+m.apiKey)

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, m.fail(classifyErr(err), 0, err)
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, m.fail(FailureRateLimited, resp.StatusCode,
			fmt.Errorf("mistral rate limited (%s): %s", rateLimitInfo(resp.Header), string(resp.Body)))
	}
	if resp.StatusCode != 200 {
		return nil, m.fail(classifyStatus(resp.StatusCode), resp.StatusCode,
			fmt.Errorf("mistral API error: %s", string(resp.Body)))
	}

	var cResp chatResponse
	if err := json.Unmarshal(resp.Body, &cResp); err != nil {
		return nil, m.fail(FailureInvalidResponse, resp.StatusCode,
			fmt.Errorf("mistral response parse error: %w", err))
	}
	if len(cResp.Choices) == 0 {
		return nil, m.fail(FailureInvalidResponse, resp.StatusCode,
			fmt.Errorf("mistral returned no choices"))
	}

	return &Result{
		Text:     strings.TrimSpace(cResp.Choices[0].Message.Content),
		Provider: m.Name(),
		Model:    m.model,
		Usage: Usage{
			PromptTokens:     cResp.Usage.PromptTokens,
			CompletionTokens: cResp.Usage.CompletionTokens,
		},
		Metrics: resp.Metrics,
	}, nil
}

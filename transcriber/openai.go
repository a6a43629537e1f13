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

type OpenAI struct {
	baseTranscriber
	apiKey string
}

func NewOpenAI(apiKey, model string) *OpenAI {
	apiURL := "https://api.openai.com/v1/chat/completions"
	return &OpenAI{
		baseTranscriber: baseTranscriber{
			client: NewTracedClient(apiURL),
			apiURL: apiURL,
			model:  model,
		},
		apiKey: apiKey,
	}
}

func (o *OpenAI) Name() string { return "openai" }

type openaiAudio struct {
	Data   string `json:"data"`
	Format string `json:"format"`
}

type openaiPart struct {
	Type       string       `json:"type"`
	Text       string       `json:"text,omitempty"`
	InputAudio *openaiAudio `json:"input_audio,omitempty"`
}

type openaiRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string       `json:"role"`
		Content []openaiPart `json:"content"`
	} `json:"messages"`
}

func (o *OpenAI) fail(kind FailureKind, status int, err error) *Failure {
	return &Failure{Kind: kind, Provider: o.Name(), Model: o.model, Status: status, Err: err}
}

func (o *OpenAI) Transcribe(ctx context.Context, audio []byte, instruction string) (*Result, error) {
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
			fmt.Errorf("openai rate limited (%s): %s", rateLimitInfo(resp.Header), string(resp.Body)))
	}
	if resp.StatusCode != 200 {
		return nil, o.fail(classifyStatus(resp.StatusCode), resp.StatusCode,
			fmt.Errorf("openai API error: %s", string(resp.Body)))
	}

	var cResp chatResponse
	if err := json.Unmarshal(resp.Body, &cResp); err != nil {
		return nil, o.fail(FailureInvalidResponse, resp.StatusCode,
			fmt.Errorf("openai response parse error: %w", err))
	}
	if len(cResp.Choices) == 0 {
		return nil, o.fail(FailureInvalidResponse, resp.StatusCode,
			fmt.Errorf("openai returned no choices"))
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

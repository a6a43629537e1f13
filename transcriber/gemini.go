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

type Gemini struct {
	baseTranscriber
	apiKey string
}

func NewGemini(apiKey, model string) *Gemini {
	apiURL := "https://generativelanguage.googleapis.com/v1beta/models/" + model + ":generateContent"
	return &Gemini{
		baseTranscriber: baseTranscriber{
			client: NewTracedClient(apiURL),
			apiURL: apiURL,
			model:  model,
		},
		apiKey: apiKey,
	}
}

func (g *Gemini) Name() string { return "gemini" }

type geminiPart struct {
	Text       string      `json:"text,omitempty"`
	InlineData *geminiBlob `json:"inline_data,omitempty"`
}

type geminiBlob struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type geminiRequest struct {
	Contents []struct {
		Parts []geminiPart `json:"parts"`
	} `json:"contents"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
	} `json:"usageMetadata"`
}

func (g *Gemini) fail(kind FailureKind, status int, err error) *Failure {
	return &Failure{Kind: kind, Provider: g.Name(), Model: g.model, Status: status, Err: err}
}

func (g *Gemini) Transcribe(ctx context.Context, audio []byte, instruction string) (*Result, error) {
	var reqBody geminiRequest
	reqBody.Contents = make([]struct {
		Parts []geminiPart `json:"parts"`
	}, 1)
	reqBody.Contents[0].Parts = []geminiPart{
		{Text: instruction},
		{InlineData: &geminiBlob{
			MimeType: "audio/wav",
			Data:     base64.StdEncoding.EncodeToString(audio),
		}},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, g.fail(FailureInvalidResponse, 0, err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", g.apiURL, bytes.NewReader(payload))
	if err != nil {
		return nil, g.fail(FailureInvalidResponse, 0, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, g.fail(classifyErr(err), 0, err)
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, g.fail(FailureRateLimited, resp.StatusCode,
			fmt.Errorf("gemini rate limited (%s): %s", rateLimitInfo(resp.Header), string(resp.Body)))
	}
	if resp.StatusCode != 200 {
		return nil, g.fail(classifyStatus(resp.StatusCode), resp.StatusCode,
			fmt.Errorf("gemini API error: %s", string(resp.Body)))
	}

	var gResp geminiResponse
	if err := json.Unmarshal(resp.Body, &gResp); err != nil {
		return nil, g.fail(FailureInvalidResponse, resp.StatusCode,
			fmt.Errorf("gemini response parse error: %w", err))
	}
	if len(gResp.Candidates) == 0 {
		return nil, g.fail(FailureInvalidResponse, resp.StatusCode,
			fmt.Errorf("gemini returned no candidates"))
	}

	var sb strings.Builder
	for _, p := range gResp.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}

	return &Result{
		Text:     strings.TrimSpace(sb.String()),
		Provider: g.Name(),
		Model:    g.model,
		Usage: Usage{
			PromptTokens:     gResp.UsageMetadata.PromptTokenCount,
			CompletionTokens: gResp.UsageMetadata.CandidatesTokenCount,
		},
		Metrics: resp.Metrics,
	}, nil
}

package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com"
	defaultModel   = "gemini-3-flash-preview"
)

var (
	ErrNoCredential = errors.New("gemini: api key not configured")
	ErrBadReply     = errors.New("gemini: malformed model reply")
)

// Result is the structured optimization the model is constrained to
// return: an improved title and description plus a suggested price in yen.
type Result struct {
	Title          string  `json:"title"`
	Description    string  `json:"description"`
	SuggestedPrice float64 `json:"suggestedPrice"`
}

// Client calls the hosted generateContent endpoint as a single blocking
// request/response round trip. No retries; failures surface to the caller
// and the caller must not apply any partial result.
type Client struct {
	APIKey  string
	Model   string
	BaseURL string
	HTTP    *http.Client
}

func New(apiKey, model string) *Client {
	if model == "" {
		model = defaultModel
	}
	return &Client{
		APIKey:  apiKey,
		Model:   model,
		BaseURL: defaultBaseURL,
		HTTP:    &http.Client{Timeout: 30 * time.Second},
	}
}

type genRequest struct {
	Contents         []content `json:"contents"`
	GenerationConfig genConfig `json:"generationConfig"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type genConfig struct {
	ResponseMimeType string  `json:"responseMimeType"`
	ResponseSchema   *schema `json:"responseSchema,omitempty"`
}

type schema struct {
	Type       string             `json:"type"`
	Properties map[string]*schema `json:"properties,omitempty"`
	Required   []string           `json:"required,omitempty"`
}

type genResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

var resultSchema = &schema{
	Type: "OBJECT",
	Properties: map[string]*schema{
		"title":          {Type: "STRING"},
		"description":    {Type: "STRING"},
		"suggestedPrice": {Type: "NUMBER"},
	},
	Required: []string{"title", "description", "suggestedPrice"},
}

// Optimize asks the model for more effective marketplace listing copy and
// a price suggestion for the given fields.
func (c *Client) Optimize(ctx context.Context, title, description, category string) (Result, error) {
	if c.APIKey == "" {
		return Result{}, ErrNoCredential
	}

	prompt := fmt.Sprintf(`メルカリの出品商品としての情報を最適化してください。
カテゴリー: %s
現在のタイトル: %s
現在の説明文: %s

ターゲット層に刺さりやすく、検索されやすいキーワードを含め、丁寧かつ魅力的な文章にしてください。
また、相場に基づいた適正価格も提案してください。`, category, title, description)

	body, err := json.Marshal(genRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
		GenerationConfig: genConfig{
			ResponseMimeType: "application/json",
			ResponseSchema:   resultSchema,
		},
	})
	if err != nil {
		return Result{}, err
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", c.BaseURL, c.Model, c.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("gemini: request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Result{}, fmt.Errorf("gemini: read reply: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("gemini: service returned %d", resp.StatusCode)
	}

	var gr genResponse
	if err := json.Unmarshal(raw, &gr); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrBadReply, err)
	}
	if len(gr.Candidates) == 0 || len(gr.Candidates[0].Content.Parts) == 0 {
		return Result{}, fmt.Errorf("%w: no candidates", ErrBadReply)
	}

	var res Result
	if err := json.Unmarshal([]byte(gr.Candidates[0].Content.Parts[0].Text), &res); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrBadReply, err)
	}
	if res.Title == "" || res.Description == "" || res.SuggestedPrice < 0 {
		return Result{}, fmt.Errorf("%w: missing required fields", ErrBadReply)
	}
	return res, nil
}

package classifier

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	"github.com/metcalfc/hetang/internal/annotate"
)

const (
	DefaultBaseURL   = "https://generativelanguage.googleapis.com/v1beta"
	DefaultModel     = "gemini-2.5-flash"
	DefaultAPIKeyEnv = "GEMINI_API_KEY"

	// MaxExplanationWords caps explanations shown in the term panel.
	MaxExplanationWords = 60
)

// GeminiConfig configures the Gemini client.
type GeminiConfig struct {
	BaseURL    string
	Model      string
	APIKeyEnv  string
	Timeout    time.Duration
	MaxRetries int
	MaxChars   int
}

// Gemini talks to the Gemini generateContent REST endpoint.
type Gemini struct {
	baseURL    string
	apiKey     string
	model      string
	maxChars   int
	maxRetries int
	client     *http.Client
	strict     *bluemonday.Policy
	log        *zap.Logger
	sleep      func(context.Context, time.Duration) error
}

// NewGemini creates a client. The API key is read from the environment variable named
// by cfg.APIKeyEnv.
func NewGemini(cfg GeminiConfig, logger *zap.Logger) (*Gemini, error) {
	if cfg.APIKeyEnv == "" {
		cfg.APIKeyEnv = DefaultAPIKeyEnv
	}
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("%w: set %s", ErrNoAPIKey, cfg.APIKeyEnv)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.MaxChars <= 0 {
		cfg.MaxChars = annotate.DefaultMaxChars
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gemini{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     key,
		model:      cfg.Model,
		maxChars:   cfg.MaxChars,
		maxRetries: cfg.MaxRetries,
		client:     &http.Client{Timeout: cfg.Timeout},
		strict:     bluemonday.StrictPolicy(),
		log:        logger.Named("gemini"),
		sleep:      sleepContext,
	}, nil
}

const parsePrompt = "Analyze this document. 1. Extract the full text content accurately, preserving line breaks. " +
	"2. Identify the title and author of the document from its content or metadata. " +
	"Return a JSON object with the string fields title, author and content."

// ParseDocument sends the file inline and asks for its text and metadata.
func (g *Gemini) ParseDocument(ctx context.Context, data []byte, mimeType string) (ParsedDocument, error) {
	parts := []part{
		{InlineData: &inlineData{MimeType: mimeType, Data: base64.StdEncoding.EncodeToString(data)}},
		{Text: parsePrompt},
	}
	schema := map[string]any{
		"type": "OBJECT",
		"properties": map[string]any{
			"title":   map[string]string{"type": "STRING"},
			"author":  map[string]string{"type": "STRING"},
			"content": map[string]string{"type": "STRING"},
		},
		"required": []string{"title", "author", "content"},
	}
	text, err := g.generate(ctx, parts, &generationConfig{ResponseMimeType: "application/json", ResponseSchema: schema})
	if err != nil {
		return ParsedDocument{}, err
	}
	doc, err := decodeParsedDocument([]byte(stripFences(text)))
	if err != nil {
		return ParsedDocument{}, fmt.Errorf("failed to decode parsed document: %w", err)
	}
	return doc, nil
}

// Analyze extracts term sets from at most MaxChars runes of text. ModeStandard makes
// no request.
func (g *Gemini) Analyze(ctx context.Context, text string, mode Mode) (Analysis, error) {
	var a Analysis
	if mode == ModeStandard {
		a.Normalize()
		return a, nil
	}
	quoted, err := json.Marshal(annotate.TruncateRunes(text, g.maxChars))
	if err != nil {
		return a, err
	}

	var prompt string
	switch mode {
	case ModeCreative:
		prompt = `Analyze for "Novel Mode": detect the language, extract nouns, verbs and adjectives exactly as they appear. ` +
			`Return ONLY JSON: {"nouns":[], "verbs":[], "adjectives":[]}. Text: ` + string(quoted)
	case ModeAnalytical:
		prompt = `Analyze for "Paper Mode": provide a summary (Chinese, max 3 sentences) and 5 keywords. ` +
			`Identify domain-specific properNouns and topicHotWords exactly as they appear. ` +
			`Exclude common everyday words; only include academic or technical terms. ` +
			`Return JSON: {"summary":"", "keywords":[], "properNouns":[], "topicHotWords":[]}. Text: ` + string(quoted)
	default:
		return a, fmt.Errorf("unknown mode %q", mode)
	}

	out, err := g.generate(ctx, []part{{Text: prompt}}, &generationConfig{ResponseMimeType: "application/json"})
	if err != nil {
		return a, err
	}
	a, err = decodeAnalysis([]byte(stripFences(out)))
	if err != nil {
		return a, fmt.Errorf("failed to decode analysis: %w", err)
	}
	a.Summary = g.plain(a.Summary)
	for i, k := range a.Keywords {
		a.Keywords[i] = g.plain(k)
	}
	a.Normalize()
	return a, nil
}

// Explain asks for a short plain-text explanation of term.
func (g *Gemini) Explain(ctx context.Context, term, snippet string) (string, error) {
	prompt := fmt.Sprintf("Context: Reading Assistant. Term: %q Task: Explain this term concisely in Simplified Chinese (简体中文). "+
		"Keep it under %d words. Plain text only.", term, MaxExplanationWords)
	if snippet = strings.TrimSpace(snippet); snippet != "" {
		prompt += "\nSurrounding text: " + snippet
	}
	out, err := g.generate(ctx, []part{{Text: prompt}}, nil)
	if err != nil {
		return "", err
	}
	out = capWords(g.plain(out), MaxExplanationWords)
	if out == "" {
		return "", ErrEmptyResponse
	}
	return out, nil
}

// plain strips any markup the model produced and decodes entities.
func (g *Gemini) plain(s string) string {
	return strings.TrimSpace(html.UnescapeString(g.strict.Sanitize(s)))
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type content struct {
	Parts []part `json:"parts"`
}

type generationConfig struct {
	Temperature      *float64 `json:"temperature,omitempty"`
	ResponseMimeType string   `json:"responseMimeType,omitempty"`
	ResponseSchema   any      `json:"responseSchema,omitempty"`
}

type generateRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
}

// generate posts one request, retrying on transport errors, 429 and 5xx.
func (g *Gemini) generate(ctx context.Context, parts []part, cfg *generationConfig) (string, error) {
	body, err := json.Marshal(generateRequest{Contents: []content{{Parts: parts}}, GenerationConfig: cfg})
	if err != nil {
		return "", err
	}
	url := fmt.Sprintf("%s/models/%s:generateContent", g.baseURL, g.model)

	var lastErr error
	for attempt := 0; attempt <= g.maxRetries; attempt++ {
		if attempt > 0 {
			g.log.Debug("retrying request", zap.Int("attempt", attempt), zap.Error(lastErr))
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return "", err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("x-goog-api-key", g.apiKey)

		resp, err := g.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			lastErr = err
			if attempt < g.maxRetries {
				if err := g.sleep(ctx, retryDelay(attempt)); err != nil {
					return "", err
				}
			}
			continue
		}

		payload, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("gemini request failed: %s", resp.Status)
			wait := retryDelay(attempt)
			if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs >= 0 {
				wait = time.Duration(secs) * time.Second
			}
			if attempt < g.maxRetries {
				if err := g.sleep(ctx, wait); err != nil {
					return "", err
				}
			}
			continue
		}
		if resp.StatusCode >= 300 {
			return "", fmt.Errorf("gemini request failed: %s: %s", resp.Status, truncateBody(payload))
		}
		if readErr != nil {
			return "", fmt.Errorf("failed to read response body: %w", readErr)
		}

		var out generateResponse
		if err := json.Unmarshal(payload, &out); err != nil {
			return "", fmt.Errorf("failed to parse gemini response: %w", err)
		}
		if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
			return "", ErrEmptyResponse
		}
		var text strings.Builder
		for _, p := range out.Candidates[0].Content.Parts {
			text.WriteString(p.Text)
		}
		g.log.Debug("response", zap.Int("chars", text.Len()), zap.String("finish", out.Candidates[0].FinishReason))
		return text.String(), nil
	}
	if lastErr == nil {
		lastErr = errors.New("gemini request failed")
	}
	return "", lastErr
}

func retryDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	base := 200 * time.Millisecond
	// exponential backoff capped at 5s
	d := base << attempt
	if d > 5*time.Second {
		d = 5 * time.Second
	}
	return d
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// stripFences removes a surrounding ```json code fence.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// capWords keeps at most n space-separated words.
func capWords(s string, n int) string {
	fields := strings.Fields(s)
	if len(fields) <= n {
		return strings.Join(fields, " ")
	}
	return strings.Join(fields[:n], " ") + "…"
}

func truncateBody(b []byte) string {
	const limit = 200
	if len(b) > limit {
		return string(b[:limit]) + "..."
	}
	return string(b)
}

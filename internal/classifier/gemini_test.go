package classifier

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKeyEnv = "HETANG_TEST_GEMINI_KEY"

// reply wraps text in a generateContent response body.
func reply(text string) string {
	b, _ := json.Marshal(map[string]any{
		"candidates": []any{
			map[string]any{"content": map[string]any{"parts": []any{map[string]string{"text": text}}}},
		},
	})
	return string(b)
}

func newTestGemini(t *testing.T, h http.HandlerFunc) *Gemini {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	t.Setenv(testKeyEnv, "secret")

	g, err := NewGemini(GeminiConfig{BaseURL: srv.URL, Model: "test-model", APIKeyEnv: testKeyEnv, MaxRetries: 2}, nil)
	require.NoError(t, err)
	g.sleep = func(context.Context, time.Duration) error { return nil }
	return g
}

func TestNewGeminiRequiresKey(t *testing.T) {
	t.Setenv(testKeyEnv, "")
	_, err := NewGemini(GeminiConfig{APIKeyEnv: testKeyEnv}, nil)
	assert.ErrorIs(t, err, ErrNoAPIKey)
}

func TestGeminiAnalyzeCreative(t *testing.T) {
	var gotPath, gotKey string
	var gotReq generateRequest
	g := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotReq)
		io.WriteString(w, reply("```json\n{\"nouns\":[\"cat\",\" \"],\"verbs\":[\"sat\"]}\n```"))
	})

	a, err := g.Analyze(context.Background(), "the cat sat", ModeCreative)
	require.NoError(t, err)

	assert.Equal(t, "/models/test-model:generateContent", gotPath)
	assert.Equal(t, "secret", gotKey)
	require.NotNil(t, gotReq.GenerationConfig)
	assert.Equal(t, "application/json", gotReq.GenerationConfig.ResponseMimeType)
	assert.Contains(t, gotReq.Contents[0].Parts[0].Text, `"the cat sat"`)

	assert.Equal(t, []string{"cat"}, a.Nouns)
	assert.Equal(t, []string{"sat"}, a.Verbs)
	assert.NotNil(t, a.Adjectives)
	assert.Empty(t, a.Adjectives)
}

func TestGeminiAnalyzeAnalytical(t *testing.T) {
	g := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, reply(`{"summary":"<b>关于</b> AI &amp; 社会","keywords":["AI"],"properNouns":["OpenAI"],"topicHotWords":["neural network"]}`))
	})

	a, err := g.Analyze(context.Background(), "text", ModeAnalytical)
	require.NoError(t, err)
	assert.Equal(t, "关于 AI & 社会", a.Summary)
	assert.Equal(t, []string{"OpenAI"}, a.Analytical().ProperNouns)
	assert.Equal(t, []string{"neural network"}, a.Analytical().HotWords)
}

func TestGeminiAnalyzeTruncatesInput(t *testing.T) {
	var prompt string
	g := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		var req generateRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		prompt = req.Contents[0].Parts[0].Text
		io.WriteString(w, reply(`{}`))
	})
	g.maxChars = 10

	_, err := g.Analyze(context.Background(), strings.Repeat("字", 50), ModeCreative)
	require.NoError(t, err)
	assert.Contains(t, prompt, `"`+strings.Repeat("字", 10)+`"`)
	assert.NotContains(t, prompt, strings.Repeat("字", 11))
}

func TestGeminiAnalyzeStandardMakesNoRequest(t *testing.T) {
	var calls atomic.Int32
	g := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) { calls.Add(1) })

	a, err := g.Analyze(context.Background(), "text", ModeStandard)
	require.NoError(t, err)
	assert.Empty(t, a.Nouns)
	assert.Zero(t, calls.Load())
}

func TestGeminiRetries(t *testing.T) {
	var calls atomic.Int32
	g := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		switch calls.Add(1) {
		case 1:
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
		case 2:
			w.WriteHeader(http.StatusServiceUnavailable)
		default:
			io.WriteString(w, reply(`{"nouns":["pond"]}`))
		}
	})
	var waits []time.Duration
	g.sleep = func(_ context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}

	a, err := g.Analyze(context.Background(), "the pond", ModeCreative)
	require.NoError(t, err)
	assert.Equal(t, []string{"pond"}, a.Nouns)
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, []time.Duration{time.Second, retryDelay(1)}, waits)
}

func TestGeminiGivesUpAfterRetries(t *testing.T) {
	var calls atomic.Int32
	g := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := g.Analyze(context.Background(), "text", ModeCreative)
	require.Error(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestGeminiClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	g := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad key", http.StatusForbidden)
	})

	_, err := g.Explain(context.Background(), "term", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
	assert.Equal(t, int32(1), calls.Load())
}

func TestGeminiMalformedJSON(t *testing.T) {
	g := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, reply(`not json`))
	})
	_, err := g.Analyze(context.Background(), "text", ModeAnalytical)
	assert.Error(t, err)
}

func TestGeminiAnalyzeKeepsWellFormedFields(t *testing.T) {
	g := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, reply(`{"summary":"ok","keywords":"one","properNouns":["Lu Xun",7],"topicHotWords":["modernity"]}`))
	})

	a, err := g.Analyze(context.Background(), "text", ModeAnalytical)
	require.NoError(t, err)
	assert.Equal(t, "ok", a.Summary)
	assert.NotNil(t, a.Keywords)
	assert.Empty(t, a.Keywords)
	assert.Equal(t, []string{"Lu Xun"}, a.ProperNouns)
	assert.Equal(t, []string{"modernity"}, a.HotWords)
}

func TestGeminiParseDocumentKeepsWellFormedFields(t *testing.T) {
	g := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, reply(`{"title":["not","a","string"],"author":"鲁迅","content":"我家门前有两棵树。"}`))
	})

	doc, err := g.ParseDocument(context.Background(), []byte("%PDF"), "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, UnknownTitle, doc.Title)
	assert.Equal(t, "鲁迅", doc.Author)
	assert.Equal(t, "我家门前有两棵树。", doc.Content)
}

func TestGeminiTransportErrorNoSleepAfterLastAttempt(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	t.Setenv(testKeyEnv, "secret")
	g, err := NewGemini(GeminiConfig{BaseURL: srv.URL, APIKeyEnv: testKeyEnv, MaxRetries: 2}, nil)
	require.NoError(t, err)
	var waits []time.Duration
	g.sleep = func(_ context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}

	_, err = g.Explain(context.Background(), "term", "")
	require.Error(t, err)
	assert.Equal(t, []time.Duration{retryDelay(0), retryDelay(1)}, waits)
}

func TestGeminiNoRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)
	t.Setenv(testKeyEnv, "secret")
	g, err := NewGemini(GeminiConfig{BaseURL: srv.URL, APIKeyEnv: testKeyEnv, MaxRetries: 0}, nil)
	require.NoError(t, err)
	g.sleep = func(context.Context, time.Duration) error {
		t.Fatal("unexpected sleep")
		return nil
	}

	_, err = g.Explain(context.Background(), "term", "")
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestGeminiEmptyCandidates(t *testing.T) {
	g := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"candidates":[]}`)
	})
	_, err := g.Explain(context.Background(), "term", "")
	assert.True(t, errors.Is(err, ErrEmptyResponse))
}

func TestGeminiExplain(t *testing.T) {
	var prompt string
	g := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		var req generateRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		prompt = req.Contents[0].Parts[0].Text
		assert.Nil(t, req.GenerationConfig)
		io.WriteString(w, reply("<p>荷塘：种植荷花的池塘。</p>"))
	})

	out, err := g.Explain(context.Background(), "荷塘", "曲曲折折的荷塘上面")
	require.NoError(t, err)
	assert.Equal(t, "荷塘：种植荷花的池塘。", out)
	assert.Contains(t, prompt, `"荷塘"`)
	assert.Contains(t, prompt, "曲曲折折的荷塘上面")
}

func TestGeminiExplainCapsWords(t *testing.T) {
	g := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, reply(strings.Repeat("word ", 100)))
	})
	out, err := g.Explain(context.Background(), "term", "")
	require.NoError(t, err)
	assert.Len(t, strings.Fields(out), MaxExplanationWords)
	assert.True(t, strings.HasSuffix(out, "…"))
}

func TestGeminiParseDocument(t *testing.T) {
	var req generateRequest
	g := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&req)
		io.WriteString(w, reply(`{"title":"","author":"朱自清","content":"这几天心里颇不宁静。"}`))
	})

	doc, err := g.ParseDocument(context.Background(), []byte("%PDF-1.4"), "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, UnknownTitle, doc.Title)
	assert.Equal(t, "朱自清", doc.Author)
	assert.Equal(t, "这几天心里颇不宁静。", doc.Content)

	require.NotNil(t, req.Contents[0].Parts[0].InlineData)
	assert.Equal(t, "application/pdf", req.Contents[0].Parts[0].InlineData.MimeType)
	assert.Equal(t, "JVBERi0xLjQ=", req.Contents[0].Parts[0].InlineData.Data)
}

func TestGeminiContextCancelled(t *testing.T) {
	g := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, reply(`{}`))
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := g.Analyze(ctx, "text", ModeCreative)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStripFences(t *testing.T) {
	tests := map[string]string{
		"```json\n{}\n```": "{}",
		"```\n[]\n```":     "[]",
		"  {\"a\":1} ":      `{"a":1}`,
	}
	for in, want := range tests {
		assert.Equal(t, want, stripFences(in), "stripFences(%q)", in)
	}
}

func TestParseMode(t *testing.T) {
	tests := map[string]Mode{
		"":           ModeStandard,
		"novel":      ModeCreative,
		"Creative":   ModeCreative,
		"paper":      ModeAnalytical,
		"analytical": ModeAnalytical,
	}
	for in, want := range tests {
		got, err := ParseMode(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseMode("poetry")
	assert.Error(t, err)
}

func TestNormalize(t *testing.T) {
	var a Analysis
	a.Normalize()
	assert.NotNil(t, a.Nouns)
	assert.NotNil(t, a.HotWords)

	d := ParsedDocument{Title: "  ", Content: "x"}
	d.Normalize()
	assert.Equal(t, UnknownTitle, d.Title)
	assert.Equal(t, UnknownAuthor, d.Author)
}

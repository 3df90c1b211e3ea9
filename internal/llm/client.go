package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Backend names accepted by New.
const (
	BackendLangchain = "langchain"
	BackendOpenAI    = "openai"
)

// DefaultBaseURL points at OpenRouter's OpenAI-compatible API.
const DefaultBaseURL = "https://openrouter.ai/api/v1"

var (
	// ErrEmptyResponse means the upstream answered without any content.
	ErrEmptyResponse = errors.New("llm: empty response")
	// ErrMissingAPIKey is returned by New when no key is configured.
	ErrMissingAPIKey = errors.New("llm: API key not configured")
	// ErrMalformedResponse means the output could not be turned into the expected JSON.
	ErrMalformedResponse = errors.New("llm: malformed response")
)

// Request is a single chat-completion call.
type Request struct {
	Operation string // metrics and log label, e.g. "validate"
	Model     string
	System    string // optional system message
	Prompt    string // user message
	JSON      bool   // ask for a json_object response
}

// Client performs chat completions.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Config selects and configures a backend.
type Config struct {
	Backend     string
	BaseURL     string
	APIKey      string
	Temperature float64
	MaxTokens   int
	Referer     string // optional HTTP-Referer for OpenRouter rankings
	AppTitle    string // optional X-Title for OpenRouter rankings
	HTTPClient  *http.Client
}

// New builds the backend named by cfg.Backend. An empty backend selects langchain.
func New(cfg Config) (Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 5 * time.Minute}
	}
	if cfg.Referer != "" || cfg.AppTitle != "" {
		cfg.HTTPClient = withHeaders(cfg.HTTPClient, cfg.Referer, cfg.AppTitle)
	}

	switch strings.ToLower(cfg.Backend) {
	case "", BackendLangchain:
		return NewLangchainClient(cfg)
	case BackendOpenAI:
		return NewOpenAIClient(cfg), nil
	default:
		return nil, fmt.Errorf("llm: unknown backend %q", cfg.Backend)
	}
}

// UpstreamError carries a non-2xx answer from the completion API.
type UpstreamError struct {
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("llm upstream returned %d %s", e.StatusCode, e.StatusText())
	}
	return fmt.Sprintf("llm upstream returned %d: %s", e.StatusCode, e.Message)
}

// HTTPStatus lets the retry package classify the error.
func (e *UpstreamError) HTTPStatus() int { return e.StatusCode }

// StatusText is the canonical reason phrase for the status code.
func (e *UpstreamError) StatusText() string {
	if t := http.StatusText(e.StatusCode); t != "" {
		return t
	}
	return "Unknown Status"
}

var statusCodePattern = regexp.MustCompile(`status code:? (\d{3})`)

// upstreamFromMessage recovers the status code embedded in langchaingo error strings.
func upstreamFromMessage(err error) (*UpstreamError, bool) {
	m := statusCodePattern.FindStringSubmatch(err.Error())
	if m == nil {
		return nil, false
	}
	code, convErr := strconv.Atoi(m[1])
	if convErr != nil {
		return nil, false
	}
	msg := err.Error()
	if i := strings.Index(msg, m[0]); i >= 0 {
		msg = strings.TrimLeft(msg[i+len(m[0]):], ": ")
	}
	return &UpstreamError{StatusCode: code, Message: msg}, true
}

type headerTransport struct {
	base    http.RoundTripper
	headers map[string]string
}

func (t *headerTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	r = r.Clone(r.Context())
	for k, v := range t.headers {
		r.Header.Set(k, v)
	}
	return t.base.RoundTrip(r)
}

func withHeaders(c *http.Client, referer, title string) *http.Client {
	h := map[string]string{}
	if referer != "" {
		h["HTTP-Referer"] = referer
	}
	if title != "" {
		h["X-Title"] = title
	}
	base := c.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	cp := *c
	cp.Transport = &headerTransport{base: base, headers: h}
	return &cp
}

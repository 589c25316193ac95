package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"dostyq-support/internal/config"
	"dostyq-support/internal/knowledge"
	"dostyq-support/internal/logger"
)

const maxGenerationResponseBytes = 1 << 20

var errNoCandidates = errors.New("response has no candidates")

type generateRequest struct {
	Contents         []generateContent `json:"contents"`
	GenerationConfig generationConfig  `json:"generationConfig"`
}

type generateContent struct {
	Parts []generatePart `json:"parts"`
}

type generatePart struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type generateResponse struct {
	Candidates []struct {
		Content generateContent `json:"content"`
	} `json:"candidates"`
}

// GenerationService answers free-text questions with the Gemini generateContent
// API and falls back to keyword matching whenever that is not possible.
type GenerationService struct {
	cfg      config.Gemini
	client   *http.Client
	fallback *FallbackResponder
	prompt   string
	log      *logger.Logger
}

func NewGenerationService(cfg config.Gemini, kb *knowledge.Base, fallback *FallbackResponder, client *http.Client, log *logger.Logger) (*GenerationService, error) {
	prompt, err := buildSystemPrompt(kb)
	if err != nil {
		return nil, err
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &GenerationService{
		cfg:      cfg,
		client:   client,
		fallback: fallback,
		prompt:   prompt,
		log:      log,
	}, nil
}

// Generate never fails: every error path ends in the fallback answer.
func (s *GenerationService) Generate(ctx context.Context, message string) string {
	if s.cfg.APIKey == "" {
		s.log.Warn("generation api key is not set, using fallback answer")
		return s.fallback.Respond(message)
	}

	text, err := s.call(ctx, message)
	if err != nil {
		s.log.Error("generation request failed, using fallback answer", "error", err)
		return s.fallback.Respond(message)
	}
	return text
}

func (s *GenerationService) call(ctx context.Context, message string) (string, error) {
	body, err := json.Marshal(generateRequest{
		Contents: []generateContent{{
			Parts: []generatePart{{Text: s.prompt + "\n\nПользователь: " + message}},
		}},
		GenerationConfig: generationConfig{
			Temperature:     s.cfg.Temperature,
			MaxOutputTokens: s.cfg.MaxOutputTokens,
		},
	})
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	endpoint, err := url.Parse(s.cfg.Endpoint)
	if err != nil {
		return "", fmt.Errorf("parse endpoint: %w", err)
	}
	q := endpoint.Query()
	q.Set("key", s.cfg.APIKey)
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		// The URL in a transport error carries the API key.
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			return "", fmt.Errorf("send request: %w", urlErr.Err)
		}
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxGenerationResponseBytes))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var parsed generateResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(parsed.Candidates) == 0 {
		return "", errNoCandidates
	}
	parts := parsed.Candidates[0].Content.Parts
	if len(parts) == 0 || parts[0].Text == "" {
		return "", fmt.Errorf("first candidate has no text")
	}
	return parts[0].Text, nil
}

// buildSystemPrompt renders the instruction preamble with the knowledge
// topics and the FAQ embedded as indented JSON.
func buildSystemPrompt(kb *knowledge.Base) (string, error) {
	topics, err := marshalIndent(kb.Topics)
	if err != nil {
		return "", fmt.Errorf("encode topics: %w", err)
	}
	faq := make(map[string]string, len(kb.FAQ))
	for _, entry := range kb.FAQ {
		faq[entry.Question] = entry.Answer
	}
	faqJSON, err := marshalIndent(faq)
	if err != nil {
		return "", fmt.Errorf("encode faq: %w", err)
	}

	var sb strings.Builder
	sb.WriteString(kb.Prompt.Preamble)
	sb.WriteString("\n\nБаза знаний:\n")
	sb.WriteString(topics)
	sb.WriteString("\n\nFAQ:\n")
	sb.WriteString(faqJSON)
	if len(kb.Prompt.Rules) > 0 {
		sb.WriteString("\n\nПравила:")
		for i, rule := range kb.Prompt.Rules {
			sb.WriteString(fmt.Sprintf("\n%d. %s", i+1, rule))
		}
	}
	return sb.String(), nil
}

func marshalIndent(v interface{}) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

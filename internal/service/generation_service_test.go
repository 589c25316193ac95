package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"dostyq-support/internal/config"
	"dostyq-support/internal/logger"
)

func newTestGeneration(t *testing.T, endpoint, apiKey string, log *logger.Logger) (*GenerationService, *FallbackResponder) {
	t.Helper()
	kb := newTestKnowledge(t)
	fallback := NewFallbackResponder(kb)
	svc, err := NewGenerationService(config.Gemini{
		APIKey:          apiKey,
		Endpoint:        endpoint,
		Temperature:     0.7,
		MaxOutputTokens: 512,
	}, kb, fallback, nil, log)
	if err != nil {
		t.Fatalf("NewGenerationService() error = %v", err)
	}
	return svc, fallback
}

func TestGenerateWithoutKeyDelegatesToFallback(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer srv.Close()

	core, logs := observer.New(zap.DebugLevel)
	svc, fallback := newTestGeneration(t, srv.URL, "", logger.FromCore(core))

	for _, msg := range []string{"У меня плохое качество сигнала", "реклама", "привет", ""} {
		if got, want := svc.Generate(context.Background(), msg), fallback.Respond(msg); got != want {
			t.Fatalf("Generate(%q) = %q, want fallback %q", msg, got, want)
		}
	}
	if atomic.LoadInt32(&calls) != 0 {
		t.Fatalf("expected no outbound calls, got %d", calls)
	}
	if logs.FilterLevelExact(zap.WarnLevel).Len() == 0 {
		t.Fatal("expected a warning about the missing api key")
	}
}

func TestGenerateReturnsFirstCandidateVerbatim(t *testing.T) {
	const answer = "📺 *Расписание* есть на сайте dostyq.tv"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if got := r.URL.Query().Get("key"); got != "secret" {
			t.Errorf("key query = %q, want secret", got)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %q", ct)
		}
		raw, _ := io.ReadAll(r.Body)
		var req generateRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.GenerationConfig.Temperature != 0.7 || req.GenerationConfig.MaxOutputTokens != 512 {
			t.Errorf("generation config = %+v", req.GenerationConfig)
		}
		if len(req.Contents) != 1 || len(req.Contents[0].Parts) != 1 {
			t.Errorf("unexpected contents: %+v", req.Contents)
		} else {
			text := req.Contents[0].Parts[0].Text
			for _, want := range []string{"DostyqTV", "support@dostyq.tv", "Расписание программ", "Пользователь: когда сериал?"} {
				if !strings.Contains(text, want) {
					t.Errorf("prompt missing %q", want)
				}
			}
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"candidates": []interface{}{
				map[string]interface{}{"content": map[string]interface{}{"parts": []interface{}{map[string]string{"text": answer}}}},
				map[string]interface{}{"content": map[string]interface{}{"parts": []interface{}{map[string]string{"text": "second"}}}},
			},
		})
	}))
	defer srv.Close()

	svc, _ := newTestGeneration(t, srv.URL+"/v1beta/models/gemini:generateContent", "secret", logger.Nop())
	if got := svc.Generate(context.Background(), "когда сериал?"); got != answer {
		t.Fatalf("Generate() = %q, want %q", got, answer)
	}
}

func TestGenerateFallsBackOnBadResponses(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
	}{
		{name: "empty candidates", status: http.StatusOK, body: `{"candidates":[]}`},
		{name: "missing candidates", status: http.StatusOK, body: `{"promptFeedback":{"blockReason":"SAFETY"}}`},
		{name: "no parts", status: http.StatusOK, body: `{"candidates":[{"content":{"parts":[]}}]}`},
		{name: "malformed json", status: http.StatusOK, body: `{"candidates":[`},
		{name: "server error", status: http.StatusInternalServerError, body: `{"error":{"code":500}}`},
		{name: "unauthorized", status: http.StatusForbidden, body: `{"error":{"code":403}}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			core, logs := observer.New(zap.DebugLevel)
			svc, fallback := newTestGeneration(t, srv.URL, "secret", logger.FromCore(core))

			msg := "реклама"
			if got, want := svc.Generate(context.Background(), msg), fallback.Respond(msg); got != want {
				t.Fatalf("Generate() = %q, want fallback %q", got, want)
			}
			if logs.FilterLevelExact(zap.ErrorLevel).Len() != 1 {
				t.Fatalf("expected one error log, got %+v", logs.All())
			}
		})
	}
}

func TestGenerateFallsBackOnTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	endpoint := srv.URL
	srv.Close()

	core, logs := observer.New(zap.DebugLevel)
	svc, fallback := newTestGeneration(t, endpoint, "secret", logger.FromCore(core))

	msg := "не могу найти канал"
	if got, want := svc.Generate(context.Background(), msg), fallback.Respond(msg); got != want {
		t.Fatalf("Generate() = %q, want fallback %q", got, want)
	}
	for _, entry := range logs.All() {
		if strings.Contains(fmt.Sprint(entry.ContextMap()), "secret") {
			t.Fatalf("api key leaked into log: %v", entry.ContextMap())
		}
	}
}

func TestBuildSystemPromptEmbedsKnowledge(t *testing.T) {
	prompt, err := buildSystemPrompt(newTestKnowledge(t))
	if err != nil {
		t.Fatalf("buildSystemPrompt() error = %v", err)
	}
	for _, want := range []string{"База знаний:", "FAQ:", "Правила:", `"сериалы"`, "reklama@dostyq.tv", "1. Всегда будь вежливым"} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt missing %q:\n%s", want, prompt)
		}
	}
	if strings.Contains(prompt, `\u0026`) {
		t.Fatal("prompt JSON should not escape HTML characters")
	}
}

package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"golang.org/x/oauth2"

	"github.com/bucketry/bucketry/config"
	"github.com/bucketry/bucketry/internal/store"
)

// HTTPSource talks to the remote config service. All calls are bounded by
// the caller's context deadline and guarded by a shared circuit breaker; a
// timed-out request applies nothing, so the store never sees partial state.
type HTTPSource struct {
	client  *http.Client
	tokens  oauth2.TokenSource
	breaker *Breaker
	baseURL string
	log     zerolog.Logger
}

var _ Source = (*HTTPSource)(nil)

// NewHTTP creates an HTTPSource from source configuration. The credential is
// carried as a static bearer token.
func NewHTTP(cfg config.SourceConfig, logger zerolog.Logger) *HTTPSource {
	log := logger.With().Str("source", "http").Logger()

	openDuration := cfg.GetBreakerOpenOption().OrElse(0)

	return &HTTPSource{
		baseURL: cfg.BaseURL,
		client:  &http.Client{},
		tokens: oauth2.StaticTokenSource(&oauth2.Token{
			AccessToken: cfg.Credential,
			TokenType:   "Bearer",
		}),
		breaker: NewBreaker("config-source", cfg.GetBreakerThreshold(), openDuration, log),
		log:     log,
	}
}

// Name identifies the source implementation.
func (s *HTTPSource) Name() string {
	return "http"
}

// BreakerState exposes the circuit state for status reporting.
func (s *HTTPSource) BreakerState() string {
	return s.breaker.State().String()
}

// FetchAll retrieves all configs, prompt A/B tests, and prompt documents.
// The prompt endpoints may legitimately be absent on a model-only backend;
// a 404 there yields an empty slice rather than an error.
func (s *HTTPSource) FetchAll(ctx context.Context) (*Snapshot, error) {
	configsRaw, err := s.get(ctx, "/configs")
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{}
	snap.Configs, err = parseConfigList(configsRaw, "configs")
	if err != nil {
		return nil, err
	}

	testsRaw, err := s.get(ctx, "/prompt-ab-tests")
	switch {
	case err == nil:
		snap.PromptTests, err = parseConfigList(testsRaw, "configs")
		if err != nil {
			return nil, err
		}
	case !isNotFound(err):
		return nil, err
	}

	promptsRaw, err := s.get(ctx, "/prompts")
	switch {
	case err == nil:
		snap.Prompts, err = parsePromptList(promptsRaw)
		if err != nil {
			return nil, err
		}
	case !isNotFound(err):
		return nil, err
	}

	s.log.Debug().
		Int("configs", len(snap.Configs)).
		Int("prompt_tests", len(snap.PromptTests)).
		Int("prompts", len(snap.Prompts)).
		Msg("fetched full snapshot")

	return snap, nil
}

// FetchConfigVersion retrieves one pinned config version.
func (s *HTTPSource) FetchConfigVersion(ctx context.Context, key string, version int) (store.Config, error) {
	raw, err := s.get(ctx, fmt.Sprintf("/configs/%s/version/%d", key, version))
	if err != nil {
		return store.Config{}, err
	}
	return parseConfig(gjson.ParseBytes(raw))
}

// FetchPromptVersion retrieves one pinned prompt document version.
func (s *HTTPSource) FetchPromptVersion(ctx context.Context, key string, version int) (store.PromptDocument, error) {
	raw, err := s.get(ctx, fmt.Sprintf("/prompts/%s/version/%d", key, version))
	if err != nil {
		return store.PromptDocument{}, err
	}
	return parsePrompt(gjson.ParseBytes(raw)), nil
}

// RecordSession posts one assignment record. The response body is ignored.
func (s *HTTPSource) RecordSession(ctx context.Context, rec Record) error {
	body, err := recordBody(rec)
	if err != nil {
		return err
	}
	return s.post(ctx, "/sessions", body)
}

// recordBody builds the POST /sessions payload.
func recordBody(rec Record) ([]byte, error) {
	body, err := sjson.Set("", "config_key", rec.ConfigKey)
	if err != nil {
		return nil, fmt.Errorf("build record body: %w", err)
	}
	body, _ = sjson.Set(body, "config_version", rec.ConfigVersion)
	body, _ = sjson.Set(body, "session_id", rec.SessionID)
	body, _ = sjson.Set(body, "assigned_model", rec.AssignedVariant)
	return []byte(body), nil
}

// get performs a breaker-guarded GET and returns the response body.
func (s *HTTPSource) get(ctx context.Context, path string) ([]byte, error) {
	return s.do(ctx, http.MethodGet, path, nil)
}

// post performs a breaker-guarded POST with a JSON body.
func (s *HTTPSource) post(ctx context.Context, path string, body []byte) error {
	_, err := s.do(ctx, http.MethodPost, path, body)
	return err
}

func (s *HTTPSource) do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	done, err := s.breaker.Allow()
	if err != nil {
		return nil, err
	}

	var reader io.Reader = http.NoBody
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reader)
	if err != nil {
		done(err)
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok, tokErr := s.tokens.Token(); tokErr == nil {
		tok.SetAuthHeader(req)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		done(err)
		return nil, fmt.Errorf("source %s %s: %w", method, path, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	// A 404 is a well-formed answer, not a breaker failure.
	if resp.StatusCode == http.StatusNotFound {
		done(nil)
		return nil, fmt.Errorf("source %s %s: %w", method, path, ErrNotFound)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		statusErr := fmt.Errorf("source %s %s: unexpected status %d", method, path, resp.StatusCode)
		done(statusErr)
		return nil, statusErr
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		done(err)
		return nil, fmt.Errorf("read response: %w", err)
	}

	done(nil)
	return raw, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

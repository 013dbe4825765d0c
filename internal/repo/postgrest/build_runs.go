// Package postgrest talks to a managed PostgREST endpoint (the /rest/v1 API of a
// hosted Postgres service) authenticated with a service key.
package postgrest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/prompt-apk-builder/build-callback/internal/domain"
	"github.com/prompt-apk-builder/build-callback/internal/repo"
)

const restPrefix = "/rest/v1/"

type Config struct {
	BaseURL    string
	ServiceKey string
	Table      string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// BuildRunStore patches build runs through PostgREST.
type BuildRunStore struct {
	base   *url.URL
	key    string
	table  string
	client *http.Client
	logger *slog.Logger
}

func NewBuildRunStore(cfg Config, logger *slog.Logger) (*BuildRunStore, error) {
	if strings.TrimSpace(cfg.ServiceKey) == "" {
		return nil, fmt.Errorf("service key is required")
	}
	base, err := url.Parse(strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base url: %q", cfg.BaseURL)
	}
	table := strings.TrimSpace(cfg.Table)
	if table == "" {
		table = "build_runs"
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &BuildRunStore{
		base:   base,
		key:    cfg.ServiceKey,
		table:  table,
		client: client,
		logger: logger,
	}, nil
}

func (s *BuildRunStore) UpdateBuildRun(ctx context.Context, id string, update domain.BuildRunUpdate) error {
	if s == nil {
		return fmt.Errorf("build run store not initialized")
	}
	cols := update.Columns()
	if len(cols) == 0 {
		return nil
	}
	body := make(map[string]any, len(cols))
	for _, col := range cols {
		body[col.Name] = col.JSONValue()
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal update: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, s.tableURL(id), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	s.authorize(req)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "return=minimal")

	resp, err := s.client.Do(req)
	if err != nil {
		return &repo.StoreError{Message: err.Error(), Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if matchedNone(resp.Header.Get("Content-Range")) {
		s.logger.Warn("build run update matched no rows", "build_id", id, "rows_affected", 0)
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))
	return nil
}

// Ping checks that the REST endpoint answers with the configured key.
func (s *BuildRunStore) Ping(ctx context.Context) error {
	if s == nil {
		return fmt.Errorf("build run store not initialized")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, s.base.JoinPath(restPrefix).String(), nil)
	if err != nil {
		return err
	}
	s.authorize(req)
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	_ = resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("store responded %s", resp.Status)
	}
	return nil
}

func (s *BuildRunStore) tableURL(id string) string {
	u := s.base.JoinPath(restPrefix, s.table)
	u.RawQuery = url.Values{"id": {"eq." + id}}.Encode()
	return u.String()
}

func (s *BuildRunStore) authorize(req *http.Request) {
	req.Header.Set("apikey", s.key)
	req.Header.Set("Authorization", "Bearer "+s.key)
}

// matchedNone reports a Content-Range such as "*/0".
func matchedNone(contentRange string) bool {
	_, total, ok := strings.Cut(strings.TrimSpace(contentRange), "/")
	return ok && total == "0"
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
}

func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	var body errorBody
	if err := json.Unmarshal(raw, &body); err == nil && strings.TrimSpace(body.Message) != "" {
		return &repo.StoreError{Message: body.Message, Code: body.Code, Err: fmt.Errorf("store responded %s", resp.Status)}
	}
	msg := strings.TrimSpace(string(raw))
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return &repo.StoreError{Message: msg, Code: fmt.Sprint(resp.StatusCode), Err: fmt.Errorf("store responded %s", resp.Status)}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prompt-apk-builder/build-callback/internal/domain"
	"github.com/prompt-apk-builder/build-callback/internal/platform/httpserver"
	"github.com/prompt-apk-builder/build-callback/internal/platform/metrics"
	"github.com/prompt-apk-builder/build-callback/internal/repo"
)

type callbackAPI struct {
	logger  *slog.Logger
	store   repo.BuildRunStore
	backend string
	metrics *metrics.Recorder
	now     func() time.Time
}

func newCallbackAPI(logger *slog.Logger, store repo.BuildRunStore, backend string, recorder *metrics.Recorder) *callbackAPI {
	return &callbackAPI{
		logger:  logger,
		store:   store,
		backend: backend,
		metrics: recorder,
		now:     time.Now,
	}
}

func (api *callbackAPI) register(mux *http.ServeMux, path string) {
	mux.HandleFunc(path, api.handleBuildCallback)
	if path != "/" {
		mux.HandleFunc("/", api.handleBuildCallback)
	}
}

func (api *callbackAPI) handleBuildCallback(w http.ResponseWriter, r *http.Request) {
	defer func() {
		if v := recover(); v != nil {
			api.respond(w, r, unexpectedError(fmt.Errorf("panic: %v", v)))
		}
	}()

	if cbErr := api.applyCallback(r); cbErr != nil {
		api.respond(w, r, cbErr)
		return
	}
	api.metrics.ObserveRequest("ok")
	httpserver.WriteText(w, http.StatusOK, "ok")
}

// applyCallback validates the notification and issues the single store update.
func (api *callbackAPI) applyCallback(r *http.Request) *callbackError {
	n := decodeNotification(r.Body)
	if n.BuildID == "" {
		return validationError(missingBuildIDBody)
	}
	if api.store == nil {
		return unexpectedError(errors.New("store client not configured"))
	}

	update := domain.NewBuildRunUpdate(n, api.now())

	// The update runs to completion even if the caller hangs up.
	ctx := context.WithoutCancel(r.Context())
	start := time.Now()
	err := api.store.UpdateBuildRun(ctx, n.BuildID, update)
	api.metrics.ObserveStoreUpdate(api.backend, time.Since(start), err)
	if err != nil {
		return persistenceError(n.BuildID, err)
	}
	if update.FinishedAt != nil {
		api.metrics.ObserveTerminalStatus(n.Status)
	}
	return nil
}

func (api *callbackAPI) respond(w http.ResponseWriter, r *http.Request, cbErr *callbackError) {
	requestID, _ := httpserver.RequestIDFromContext(r.Context())
	switch cbErr.kind {
	case kindPersistence:
		api.logger.Error("build run update failed", "request_id", requestID, "build_id", cbErr.buildID, "error", cbErr.err)
	case kindUnexpected:
		api.logger.Error("build callback fault", "request_id", requestID, "error", cbErr.err)
	}
	api.metrics.ObserveRequest(string(cbErr.kind))
	status, body := cbErr.response()
	httpserver.WriteText(w, status, body)
}

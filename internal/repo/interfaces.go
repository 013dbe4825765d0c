package repo

import (
	"context"

	"github.com/prompt-apk-builder/build-callback/internal/domain"
)

// BuildRunStore applies partial updates to existing build runs.
type BuildRunStore interface {
	UpdateBuildRun(ctx context.Context, id string, update domain.BuildRunUpdate) error
}

// Pinger is implemented by stores that can report readiness.
type Pinger interface {
	Ping(ctx context.Context) error
}

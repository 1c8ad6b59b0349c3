package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/sells-group/quote-pivot/internal/model"
)

// Nop is a Store that remembers nothing. Runs still get ids so logs can refer to them.
type Nop struct{}

var _ Store = Nop{}

func (Nop) CreateRun(_ context.Context, source string) (*model.Run, error) {
	now := time.Now().UTC()
	return &model.Run{
		ID:        uuid.New().String(),
		Source:    source,
		Status:    model.RunStatusRunning,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (Nop) CompleteRun(context.Context, string, *model.RunSummary) error { return nil }

func (Nop) FinishRun(context.Context, string, model.RunStatus, string) error { return nil }

func (Nop) GetRun(_ context.Context, runID string) (*model.Run, error) {
	return nil, eris.Wrapf(ErrNotFound, "run %s", runID)
}

func (Nop) ListRuns(context.Context, RunFilter) ([]model.Run, error) { return nil, nil }

func (Nop) SaveQuotes(context.Context, string, []model.ValidatedRecord) (int64, error) {
	return 0, nil
}

func (Nop) ListQuotes(context.Context, string) ([]model.ValidatedRecord, error) { return nil, nil }

func (Nop) Migrate(context.Context) error { return nil }

func (Nop) Close() error { return nil }

package pipeline

import "context"

// Stage names the point at which a Confirmer is asked.
type Stage string

const (
	StageRead     Stage = "read"
	StageValidate Stage = "validate"
)

// Confirmer decides whether a run goes on after rows were dropped. problems
// holds the messages for the dropped rows.
type Confirmer interface {
	Confirm(ctx context.Context, stage Stage, problems []string) (bool, error)
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, stage Stage, problems []string) (bool, error)

// Confirm calls f.
func (f ConfirmFunc) Confirm(ctx context.Context, stage Stage, problems []string) (bool, error) {
	return f(ctx, stage, problems)
}

var (
	// AlwaysContinue goes on regardless of dropped rows.
	AlwaysContinue Confirmer = ConfirmFunc(func(context.Context, Stage, []string) (bool, error) { return true, nil })

	// NeverContinue stops at the first stage that dropped rows.
	NeverContinue Confirmer = ConfirmFunc(func(context.Context, Stage, []string) (bool, error) { return false, nil })
)

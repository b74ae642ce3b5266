package services

import "context"

// ctxKey is typed by the value it stores so lookups cannot mismatch types.
type ctxKey[T any] struct{ name string }

var (
	itemIDKey = ctxKey[int64]{"item_id"}
	stageKey  = ctxKey[string]{"stage"}
	jobKey    = ctxKey[string]{"job"}
	runIDKey  = ctxKey[string]{"run_id"}
)

func with[T comparable](ctx context.Context, key ctxKey[T], value T) context.Context {
	var zero T
	if value == zero {
		return ctx
	}
	return context.WithValue(ctx, key, value)
}

func from[T comparable](ctx context.Context, key ctxKey[T]) (T, bool) {
	v, ok := ctx.Value(key).(T)
	var zero T
	return v, ok && v != zero
}

// WithItemID tags ctx with a work item id. Zero is ignored.
func WithItemID(ctx context.Context, id int64) context.Context { return with(ctx, itemIDKey, id) }

// ItemIDFromContext returns the work item id, if any.
func ItemIDFromContext(ctx context.Context) (int64, bool) { return from(ctx, itemIDKey) }

// WithStage tags ctx with a pipeline stage name.
func WithStage(ctx context.Context, stage string) context.Context { return with(ctx, stageKey, stage) }

func StageFromContext(ctx context.Context) (string, bool) { return from(ctx, stageKey) }

// WithJob tags ctx with a scheduler job name.
func WithJob(ctx context.Context, job string) context.Context { return with(ctx, jobKey, job) }

func JobFromContext(ctx context.Context) (string, bool) { return from(ctx, jobKey) }

// WithRunID tags ctx with the id of one scheduler run, logged as
// correlation_id.
func WithRunID(ctx context.Context, id string) context.Context { return with(ctx, runIDKey, id) }

func RunIDFromContext(ctx context.Context) (string, bool) { return from(ctx, runIDKey) }

package services_test

import (
	"context"
	"testing"

	"versereel/internal/services"
)

func TestContextTagsRoundTrip(t *testing.T) {
	ctx := services.WithItemID(context.Background(), 42)
	ctx = services.WithStage(ctx, "speech")
	ctx = services.WithRunID(ctx, "run-123")
	ctx = services.WithJob(ctx, "generate_batch")

	if id, ok := services.ItemIDFromContext(ctx); !ok || id != 42 {
		t.Fatalf("unexpected item id: %v %v", id, ok)
	}
	if stage, ok := services.StageFromContext(ctx); !ok || stage != "speech" {
		t.Fatalf("unexpected stage: %v %v", stage, ok)
	}
	if rid, ok := services.RunIDFromContext(ctx); !ok || rid != "run-123" {
		t.Fatalf("unexpected run id: %v %v", rid, ok)
	}
	if job, ok := services.JobFromContext(ctx); !ok || job != "generate_batch" {
		t.Fatalf("unexpected job: %v %v", job, ok)
	}
}

func TestZeroValuesAreNotStored(t *testing.T) {
	ctx := services.WithStage(context.Background(), "")
	ctx = services.WithItemID(ctx, 0)
	if _, ok := services.StageFromContext(ctx); ok {
		t.Fatal("expected no stage value")
	}
	if _, ok := services.ItemIDFromContext(ctx); ok {
		t.Fatal("expected no item id")
	}
}

func TestInnerTagOverridesOuter(t *testing.T) {
	ctx := services.WithStage(context.Background(), "speech")
	ctx = services.WithStage(ctx, "alignment")
	if stage, _ := services.StageFromContext(ctx); stage != "alignment" {
		t.Fatalf("expected innermost stage, got %q", stage)
	}
}

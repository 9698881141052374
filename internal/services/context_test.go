package services_test

import (
	"context"
	"testing"

	"distill/internal/services"
)

func TestContextRoundTrips(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithTaskID(ctx, "abc12345")
	ctx = services.WithStage(ctx, "extract")
	ctx = services.WithRequestID(ctx, "req-1")

	if id, ok := services.TaskIDFromContext(ctx); !ok || id != "abc12345" {
		t.Fatalf("task id round trip failed: %q %v", id, ok)
	}
	if stage, ok := services.StageFromContext(ctx); !ok || stage != "extract" {
		t.Fatalf("stage round trip failed: %q %v", stage, ok)
	}
	if rid, ok := services.RequestIDFromContext(ctx); !ok || rid != "req-1" {
		t.Fatalf("request id round trip failed: %q %v", rid, ok)
	}
}

func TestEmptyValuesAreNotStored(t *testing.T) {
	ctx := services.WithStage(context.Background(), "")
	if _, ok := services.StageFromContext(ctx); ok {
		t.Fatal("expected empty stage to be absent")
	}
	if _, ok := services.TaskIDFromContext(context.Background()); ok {
		t.Fatal("expected missing task id to be absent")
	}
}

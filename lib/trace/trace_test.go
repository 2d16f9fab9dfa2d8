package trace

import (
	"context"
	"testing"

	"github.com/google/uuid"
)

func TestEnsure(t *testing.T) {
	ctx, id := Ensure(context.Background())
	if _, err := uuid.Parse(id); err != nil {
		t.Fatalf("id %q is not a uuid: %v", id, err)
	}
	got, ok := FromContext(ctx)
	if !ok || got != id {
		t.Errorf("got %q/%v, want %q", got, ok, id)
	}

	_, again := Ensure(ctx)
	if again != id {
		t.Errorf("Ensure replaced existing id %q with %q", id, again)
	}
}

func TestFromContextMissing(t *testing.T) {
	if _, ok := FromContext(context.Background()); ok {
		t.Error("expected no trace id")
	}
}

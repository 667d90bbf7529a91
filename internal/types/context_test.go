package types

import (
	"context"
	"testing"
)

// TestActorRoundTrip verifies that an Actor stored in a context can be
// retrieved intact.
func TestActorRoundTrip(t *testing.T) {
	actor := Actor{ID: "u1", Type: ActorTypeUser, Email: "u1@example.com"}
	ctx := WithActor(context.Background(), actor)

	got, ok := GetActor(ctx)
	if !ok {
		t.Fatal("GetActor should find the stored actor")
	}
	if got != actor {
		t.Errorf("GetActor = %+v, want %+v", got, actor)
	}
}

// TestGetActorMissing verifies the ok=false contract on a bare context.
func TestGetActorMissing(t *testing.T) {
	if _, ok := GetActor(context.Background()); ok {
		t.Error("GetActor on empty context should report ok=false")
	}
}

// TestRequestIDRoundTrip verifies request id storage and retrieval.
func TestRequestIDRoundTrip(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req_abc")

	if got := GetRequestID(ctx); got != "req_abc" {
		t.Errorf("GetRequestID = %q, want %q", got, "req_abc")
	}
}

// TestGetRequestIDMissing verifies the empty-string default.
func TestGetRequestIDMissing(t *testing.T) {
	if got := GetRequestID(context.Background()); got != "" {
		t.Errorf("GetRequestID on empty context = %q, want empty", got)
	}
}

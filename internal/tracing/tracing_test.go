package tracing

import (
	"context"
	"testing"

	"go.uber.org/zap"
)

func TestInitWithoutEndpoint(t *testing.T) {
	shutdown, err := Init(context.Background(), "", "test", "", zap.NewNop())
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	_, span := Tracer("tracing-test").Start(context.Background(), "unit")
	if !span.SpanContext().IsValid() {
		t.Error("expected a recording span with a valid context")
	}
	span.End()

	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown error = %v", err)
	}
}

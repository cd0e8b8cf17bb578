package tracing

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestSpanTree(t *testing.T) {
	ctx, root := StartSpan(context.Background(), "recommend", "")
	if root.TraceID == "" {
		t.Fatal("expected generated trace id")
	}
	_, rank := StartChildSpan(ctx, "rank")
	rank.SetAttr("k", 10)
	rank.End()
	_, enrich := StartChildSpan(ctx, "enrich")
	enrich.End()
	root.End()

	children := root.Children()
	if len(children) != 2 || children[0].TraceID != root.TraceID {
		t.Fatalf("children = %+v", children)
	}

	var buf bytes.Buffer
	root.Log(slog.New(slog.NewTextHandler(&buf, nil)))
	out := buf.String()
	if strings.Count(out, "msg=span") != 3 {
		t.Errorf("expected 3 span records, got:\n%s", out)
	}
	if !strings.Contains(out, "span=rank") || !strings.Contains(out, "k=10") || !strings.Contains(out, "depth=1") {
		t.Errorf("missing child attributes:\n%s", out)
	}
}

func TestChildWithoutParent(t *testing.T) {
	_, span := StartChildSpan(context.Background(), "orphan")
	if span.TraceID != "" {
		t.Errorf("orphan trace id = %q", span.TraceID)
	}
	if SpanFromContext(context.Background()) != nil {
		t.Error("expected nil span from empty context")
	}
}

package llm

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

type funcClient func(ctx context.Context, p Prompt) (string, error)

func (f funcClient) Complete(ctx context.Context, p Prompt) (string, error) {
	return f(ctx, p)
}

func TestLimitedPassesThrough(t *testing.T) {
	inner := funcClient(func(_ context.Context, p Prompt) (string, error) {
		return "echo: " + p.User, nil
	})
	l := NewLimited(inner, WithRateLimit(600, 5), WithTimeout(time.Second))

	out, err := l.Complete(context.Background(), Prompt{User: "hello"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "echo: hello" {
		t.Errorf("got %q, want %q", out, "echo: hello")
	}
}

func TestLimitedAppliesTimeout(t *testing.T) {
	inner := funcClient(func(ctx context.Context, _ Prompt) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	l := NewLimited(inner, WithTimeout(20*time.Millisecond))

	_, err := l.Complete(context.Background(), Prompt{User: "slow"})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestLimitedReturnsInnerError(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	inner := funcClient(func(context.Context, Prompt) (string, error) {
		calls++
		return "", boom
	})
	l := NewLimited(inner)

	if _, err := l.Complete(context.Background(), Prompt{}); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected exactly one call (no retry), got %d", calls)
	}
}

func TestLimitedCancelledWhileWaiting(t *testing.T) {
	inner := funcClient(func(context.Context, Prompt) (string, error) { return "ok", nil })
	// one request per minute, burst 1: the second call must wait
	l := NewLimited(inner, WithRateLimit(1, 1))
	if _, err := l.Complete(context.Background(), Prompt{}); err != nil {
		t.Fatalf("first call: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := l.Complete(ctx, Prompt{})
	if err == nil || !strings.Contains(err.Error(), "rate limiter") {
		t.Fatalf("expected rate limiter error, got %v", err)
	}
}

func TestMockClientOutline(t *testing.T) {
	m := MockClient{Chapters: 2}
	out, err := m.Complete(context.Background(), Prompt{
		User: "Available characters: Ana, Leo\nKey events:\nLocations:",
	})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Count(out, "Chapter ") != 2 {
		t.Errorf("expected 2 chapters, got:\n%s", out)
	}
	if !strings.Contains(out, "- Ana\n") || !strings.Contains(out, "- Leo\n") {
		t.Errorf("expected both characters listed, got:\n%s", out)
	}
}

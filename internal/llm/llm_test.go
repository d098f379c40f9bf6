package llm

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/palate-labs/palate/internal/domain"
)

func TestExtractJSON(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"bare object", `{"a":1}`, `{"a":1}`},
		{"fenced json", "Here you go:\n```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"fenced plain", "```\n{\"b\":2}\n```", `{"b":2}`},
		{"prose wrapped", `Sure! {"c":{"d":3}} hope that helps`, `{"c":{"d":3}}`},
	}
	for _, c := range cases {
		got, err := ExtractJSON(c.in)
		if err != nil {
			t.Fatalf("%s: %v", c.name, err)
		}
		if string(got) != c.want {
			t.Errorf("%s: got %s, want %s", c.name, got, c.want)
		}
	}
}

func TestExtractJSONRejectsNonJSON(t *testing.T) {
	for _, in := range []string{"no json here", "{broken", "[1,2,3]"} {
		if _, err := ExtractJSON(in); !errors.Is(err, domain.ErrMalformedResponse) {
			t.Errorf("ExtractJSON(%q) = %v, want ErrMalformedResponse", in, err)
		}
	}
}

func TestDecodeJSON(t *testing.T) {
	var out struct {
		Intent string `json:"intent"`
	}
	if err := DecodeJSON("```json\n{\"intent\":\"RECOMMEND\"}\n```", &out); err != nil {
		t.Fatal(err)
	}
	if out.Intent != "RECOMMEND" {
		t.Fatalf("intent = %q", out.Intent)
	}
}

func TestLimiterAdmitsUpToLimit(t *testing.T) {
	l := NewLimiter(3)
	now := time.Now()
	l.now = func() time.Time { return now }

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if err := l.Wait(ctx); err != nil {
			t.Fatalf("admit %d: %v", i, err)
		}
	}
	if len(l.stamps) != 3 {
		t.Fatalf("stamps = %d", len(l.stamps))
	}
}

func TestLimiterFreesSlotAfterWindow(t *testing.T) {
	l := NewLimiter(1)
	now := time.Now()
	l.now = func() time.Time { return now }
	if err := l.Wait(context.Background()); err != nil {
		t.Fatal(err)
	}

	// Move past the window; the next call must not block.
	now = now.Add(61 * time.Second)
	done := make(chan error, 1)
	go func() { done <- l.Wait(context.Background()) }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Wait blocked past an expired window")
	}
}

func TestLimiterHonorsContextCancel(t *testing.T) {
	l := NewLimiter(1)
	if err := l.Wait(context.Background()); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	var got error
	go func() {
		defer wg.Done()
		got = l.Wait(ctx)
	}()
	cancel()
	wg.Wait()
	if !errors.Is(got, context.Canceled) {
		t.Fatalf("Wait = %v, want context.Canceled", got)
	}
}

func TestLimiterDisabled(t *testing.T) {
	l := NewLimiter(0)
	for i := 0; i < 100; i++ {
		if err := l.Wait(context.Background()); err != nil {
			t.Fatal(err)
		}
	}
}

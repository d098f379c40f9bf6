package intentcls

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/palate-labs/palate/internal/domain/convo"
	"github.com/palate-labs/palate/internal/llm"
)

type fakeLLM struct {
	reply string
	err   error
}

func (f *fakeLLM) Complete(context.Context, llm.Request) (string, error) {
	return f.reply, f.err
}

func TestClassifyParsesModelReply(t *testing.T) {
	c := New(&fakeLLM{reply: "INTENT: RECOMMEND\nCONFIDENCE: 0.92"}, zap.NewNop())
	intent, confidence := c.Classify(context.Background(), "find me dinner")
	if intent != convo.IntentRecommend {
		t.Fatalf("intent = %s", intent)
	}
	if confidence != 0.92 {
		t.Fatalf("confidence = %v", confidence)
	}
}

func TestClassifyClampsConfidence(t *testing.T) {
	c := New(&fakeLLM{reply: "INTENT: GREETING\nCONFIDENCE: 1.8"}, zap.NewNop())
	_, confidence := c.Classify(context.Background(), "hello")
	if confidence != 1.0 {
		t.Fatalf("confidence = %v, want clamped to 1", confidence)
	}

	c = New(&fakeLLM{reply: "INTENT: GREETING\nCONFIDENCE: -0.4"}, zap.NewNop())
	_, confidence = c.Classify(context.Background(), "hello")
	if confidence != 0.0 {
		t.Fatalf("confidence = %v, want clamped to 0", confidence)
	}
}

func TestClassifyUnknownIntentIsOther(t *testing.T) {
	c := New(&fakeLLM{reply: "INTENT: PURCHASE\nCONFIDENCE: 0.7"}, zap.NewNop())
	intent, _ := c.Classify(context.Background(), "buy it")
	if intent != convo.IntentOther {
		t.Fatalf("intent = %s", intent)
	}
}

func TestClassifyKeywordFallback(t *testing.T) {
	c := New(&fakeLLM{err: errors.New("down")}, zap.NewNop())

	cases := map[string]convo.Intent{
		"can you recommend something": convo.IntentRecommend,
		"my budget is low":            convo.IntentFilterUpdate,
		"good morning":                convo.IntentGreeting,
		"zzz":                         convo.IntentOther,
	}
	for msg, want := range cases {
		intent, confidence := c.Classify(context.Background(), msg)
		if intent != want {
			t.Errorf("Classify(%q) = %s, want %s", msg, intent, want)
		}
		wantConf := 0.6
		if want == convo.IntentOther {
			wantConf = 0.3
		}
		if confidence != wantConf {
			t.Errorf("Classify(%q) confidence = %v, want %v", msg, confidence, wantConf)
		}
	}
}

func TestClassifyFallsBackOnGarbledReply(t *testing.T) {
	c := New(&fakeLLM{reply: "RECOMMEND, quite sure"}, zap.NewNop())
	intent, confidence := c.Classify(context.Background(), "show me pizza")
	if intent != convo.IntentRecommend || confidence != 0.6 {
		t.Fatalf("got %s, %v", intent, confidence)
	}
}

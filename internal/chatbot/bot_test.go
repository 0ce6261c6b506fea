package chatbot_test

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/verdantlabs/leafdoc/internal/chatbot"
	"github.com/verdantlabs/leafdoc/internal/knowledge"
	"github.com/verdantlabs/leafdoc/internal/symptom"
	llmmock "github.com/verdantlabs/leafdoc/pkg/provider/llm/mock"
)

func newBot(t *testing.T, opts ...chatbot.Option) *chatbot.Bot {
	t.Helper()

	kb, err := knowledge.NewMemStore(knowledge.DefaultRecords())
	if err != nil {
		t.Fatalf("NewMemStore: %v", err)
	}
	rules, err := symptom.NewRuleSet(symptom.DefaultRules())
	if err != nil {
		t.Fatalf("NewRuleSet: %v", err)
	}

	bot, err := chatbot.New(kb, symptom.NewClassifier(rules), slog.Default(), opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return bot
}

func TestBot_GreetingOnHello(t *testing.T) {
	t.Parallel()

	bot := newBot(t)

	got, err := bot.Respond(context.Background(), "hello there")
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if !strings.Contains(got, "plant disease assistant") {
		t.Errorf("Respond(hello) = %q, want greeting", got)
	}
}

func TestBot_GreetingRequiresWholeWord(t *testing.T) {
	t.Parallel()

	bot := newBot(t)

	// "this" contains "hi" but is not a greeting; with no other signal the
	// bot should fall through to its help response.
	got, err := bot.Respond(context.Background(), "this weather")
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if strings.Contains(got, "plant disease assistant") {
		t.Errorf("Respond(%q) greeted, want help response", "this weather")
	}
}

func TestBot_DiseaseList(t *testing.T) {
	t.Parallel()

	bot := newBot(t)

	got, err := bot.Respond(context.Background(), "which diseases do you know")
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	for _, name := range []string{"Tomato Late Blight", "Potato Early Blight", "Healthy Tomato"} {
		if !strings.Contains(got, name) {
			t.Errorf("disease list missing %q in:\n%s", name, got)
		}
	}
}

func TestBot_KeywordMatchRendersTreatment(t *testing.T) {
	t.Parallel()

	bot := newBot(t)

	got, err := bot.Respond(context.Background(), "my plant has septoria I think")
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if !strings.Contains(got, "Tomato Septoria Leaf Spot") || !strings.Contains(got, "**Treatment:**") {
		t.Errorf("Respond(septoria) = %q, want rendered treatment record", got)
	}
}

func TestBot_LLMFallbackValidatedAnswer(t *testing.T) {
	t.Parallel()

	mock := &llmmock.Provider{Content: "Tomato___Late_blight"}
	bot := newBot(t, chatbot.WithLLM(mock))

	// No keyword rule matches this phrasing; the LLM fallback resolves it.
	got, err := bot.Respond(context.Background(), "greasy lesions spreading after rain")
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if !strings.Contains(got, "Tomato Late Blight") {
		t.Errorf("Respond() = %q, want late blight treatment via llm fallback", got)
	}
	if len(mock.Requests) != 1 {
		t.Fatalf("llm called %d times, want 1", len(mock.Requests))
	}
	if !strings.Contains(mock.Requests[0].Messages[0].Content, "tomato_late_blight") {
		t.Error("llm prompt must list the knowledge-base keys")
	}
}

func TestBot_LLMFallbackRejectsInventedKeys(t *testing.T) {
	t.Parallel()

	mock := &llmmock.Provider{Content: "Banana___Exotic_Wilt"}
	bot := newBot(t, chatbot.WithLLM(mock))

	got, err := bot.Respond(context.Background(), "greasy lesions spreading after rain")
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if !strings.Contains(got, "not sure I understand") {
		t.Errorf("Respond() = %q, want help response when llm invents a key", got)
	}
}

func TestBot_LLMFallbackAcceptsPartialMatch(t *testing.T) {
	t.Parallel()

	mock := &llmmock.Provider{Content: "The best match is tomato_leaf_mold."}
	bot := newBot(t, chatbot.WithLLM(mock))

	got, err := bot.Respond(context.Background(), "velvety patches on the underneath side")
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if !strings.Contains(got, "Tomato Leaf Mold") {
		t.Errorf("Respond() = %q, want leaf mold treatment via partial match", got)
	}
}

func TestBot_LLMErrorDegradesToHelp(t *testing.T) {
	t.Parallel()

	mock := &llmmock.Provider{Err: errors.New("rate limited")}
	bot := newBot(t, chatbot.WithLLM(mock))

	got, err := bot.Respond(context.Background(), "greasy lesions spreading after rain")
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if !strings.Contains(got, "not sure I understand") {
		t.Errorf("Respond() = %q, want help response on llm failure", got)
	}
}

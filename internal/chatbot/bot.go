// Package chatbot implements the conversational front end: greetings,
// disease listings and treatment answers driven by the keyword classifier,
// with an optional LLM fallback for symptom descriptions no rule matches.
package chatbot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/verdantlabs/leafdoc/internal/knowledge"
	"github.com/verdantlabs/leafdoc/internal/observe"
	"github.com/verdantlabs/leafdoc/internal/symptom"
	"github.com/verdantlabs/leafdoc/pkg/provider/llm"
)

// KnowledgeBase is the store surface the bot needs: lookup plus key listing.
type KnowledgeBase interface {
	Lookup(ctx context.Context, key string) (*knowledge.TreatmentRecord, error)
	Keys(ctx context.Context) ([]string, error)
}

// Classifier maps free text to a disease label.
type Classifier interface {
	Classify(text string) string
}

// Bot answers plant-disease questions. Safe for concurrent use.
type Bot struct {
	kb         KnowledgeBase
	classifier Classifier
	llm        llm.Provider
	logger     *slog.Logger
	metrics    *observe.Metrics
}

// Option is a functional option for Bot.
type Option func(*Bot)

// WithLLM enables the LLM fallback classifier for queries no keyword rule
// matches.
func WithLLM(p llm.Provider) Option {
	return func(b *Bot) {
		b.llm = p
	}
}

// WithMetrics enables instrument recording.
func WithMetrics(m *observe.Metrics) Option {
	return func(b *Bot) {
		b.metrics = m
	}
}

// New builds a Bot over the knowledge base and classifier.
func New(kb KnowledgeBase, classifier Classifier, logger *slog.Logger, opts ...Option) (*Bot, error) {
	if kb == nil || classifier == nil {
		return nil, fmt.Errorf("chatbot: knowledge base and classifier are required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	b := &Bot{kb: kb, classifier: classifier, logger: logger}
	for _, o := range opts {
		o(b)
	}
	return b, nil
}

// Greeting returns the bot's opening message.
func (b *Bot) Greeting() string {
	return "Hello! I'm your plant disease assistant.\n\n" +
		"I can help you with:\n" +
		"  - Information about plant diseases\n" +
		"  - Treatment recommendations\n" +
		"  - Prevention tips\n\n" +
		"Upload a leaf photo or ask me about a specific disease!"
}

// DiseaseList returns the formatted list of diseases the bot knows about.
func (b *Bot) DiseaseList(ctx context.Context) (string, error) {
	keys, err := b.kb.Keys(ctx)
	if err != nil {
		return "", fmt.Errorf("chatbot: list diseases: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("**Diseases I can help with:**\n\n")
	for _, key := range keys {
		rec, err := b.kb.Lookup(ctx, key)
		if err != nil {
			return "", fmt.Errorf("chatbot: lookup %q: %w", key, err)
		}
		fmt.Fprintf(&sb, "  - %s\n", rec.DiseaseName)
	}
	return sb.String(), nil
}

// Respond answers a free-text query. Every query gets a non-empty answer;
// only knowledge-base infrastructure failures surface as errors.
func (b *Bot) Respond(ctx context.Context, query string) (string, error) {
	q := strings.ToLower(strings.TrimSpace(query))

	if q == "" || isGreeting(q) {
		b.recordMessage(ctx, "greeting")
		return b.Greeting(), nil
	}

	if strings.Contains(q, "list") || strings.Contains(q, "diseases") || strings.Contains(q, "what can you") {
		b.recordMessage(ctx, "list")
		return b.DiseaseList(ctx)
	}

	if label := b.classifier.Classify(q); label != symptom.LabelUnknown {
		b.recordMessage(ctx, "rule")
		return b.treatmentAnswer(ctx, label)
	}

	if label := b.classifyWithLLM(ctx, q); label != symptom.LabelUnknown {
		b.recordMessage(ctx, "llm")
		return b.treatmentAnswer(ctx, label)
	}

	b.recordMessage(ctx, "help")
	return "I'm not sure I understand. Try:\n" +
		"  - Uploading a photo of a plant leaf\n" +
		"  - Asking about a specific disease (e.g. \"What is late blight?\")\n" +
		"  - Typing \"list\" to see all diseases I know about", nil
}

// treatmentAnswer renders the treatment record for label.
func (b *Bot) treatmentAnswer(ctx context.Context, label string) (string, error) {
	rec, err := b.kb.Lookup(ctx, label)
	if err != nil {
		return "", fmt.Errorf("chatbot: lookup %q: %w", label, err)
	}
	return knowledge.Render(rec, "unknown"), nil
}

// classifyWithLLM asks the fallback LLM to pick a disease key for the query.
// The model is constrained to the knowledge base's key list and its answer
// is validated against it; anything else, including transport errors, comes
// back as the unknown label so the bot degrades to its help response.
func (b *Bot) classifyWithLLM(ctx context.Context, query string) string {
	if b.llm == nil {
		return symptom.LabelUnknown
	}

	keys, err := b.kb.Keys(ctx)
	if err != nil || len(keys) == 0 {
		return symptom.LabelUnknown
	}

	prompt := fmt.Sprintf(
		"You are a plant disease classifier. Given the symptom description, return ONLY the matching disease key from this list:\n\n%s\n\nSymptom description: %q\n\nReturn ONLY the disease key that best matches. No explanation, no formatting, just the key.",
		strings.Join(keys, "\n"), query)

	resp, err := b.llm.Complete(ctx, llm.CompletionRequest{
		Messages:  []llm.Message{{Role: "user", Content: prompt}},
		MaxTokens: 50,
	})
	if err != nil {
		b.logger.Warn("llm fallback classification failed", "error", err)
		if b.metrics != nil {
			b.metrics.RecordProviderError(ctx, "llm")
		}
		return symptom.LabelUnknown
	}

	result := strings.TrimSpace(resp.Content)
	for _, key := range keys {
		if strings.EqualFold(result, key) || knowledge.NormalizeKey(result) == key {
			return key
		}
	}
	// Partial match: the model wrapped the key in extra text.
	lower := strings.ToLower(result)
	for _, key := range keys {
		if strings.Contains(lower, strings.ToLower(key)) {
			return key
		}
	}
	return symptom.LabelUnknown
}

func (b *Bot) recordMessage(ctx context.Context, kind string) {
	if b.metrics != nil {
		b.metrics.RecordChatMessage(ctx, kind)
	}
}

// isGreeting reports whether the query opens a conversation rather than
// asking something. Checked per word so "this" does not count as "hi".
func isGreeting(q string) bool {
	for _, w := range strings.Fields(q) {
		switch strings.Trim(w, ".,!?") {
		case "hi", "hello", "hey", "start", "help":
			return true
		}
	}
	return false
}

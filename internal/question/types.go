package question

import (
	"context"
	"time"
)

// Option labels in the order the provider must emit them.
const (
	LabelA = "A"
	LabelB = "B"
	LabelC = "C"
	LabelD = "D"
)

// OptionLabels is the fixed option sequence.
var OptionLabels = [4]string{LabelA, LabelB, LabelC, LabelD}

// Source values recorded with stored questions.
const (
	SourceProvider = "provider"
	SourceRandom   = "provider_random"
	SourceManual   = "manual"
)

// Topic is a normalized subject-area label and the partition its questions live in.
type Topic struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Partition string    `json:"partition"`
	CreatedAt time.Time `json:"created_at"`
}

// Option is one labeled answer choice.
type Option struct {
	Label string `json:"label"`
	Text  string `json:"text"`
}

// Candidate is a parsed question that has not been persisted yet.
type Candidate struct {
	Topic      string    `json:"topic,omitempty"`
	Prompt     string    `json:"prompt"`
	Options    [4]Option `json:"options"`
	Correct    string    `json:"correct"`
	Difficulty string    `json:"difficulty"`
}

// StoredQuestion is a candidate written into its topic partition.
type StoredQuestion struct {
	ID          string    `json:"id"`
	Topic       string    `json:"topic"`
	Partition   string    `json:"partition"`
	Prompt      string    `json:"prompt"`
	Options     [4]Option `json:"options"`
	Correct     string    `json:"correct,omitempty"` // server-side only
	Difficulty  string    `json:"difficulty"`
	Source      string    `json:"source"`
	ContentHash string    `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
}

// OptionTexts returns option texts in A..D order.
func (c Candidate) OptionTexts() []string {
	out := make([]string, 0, len(c.Options))
	for _, opt := range c.Options {
		out = append(out, opt.Text)
	}
	return out
}

// Provider produces a raw text block for a topic. An empty topic lets the
// provider choose one and name it on a Theme: line.
type Provider interface {
	Generate(ctx context.Context, topic string) (string, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, topic string) (string, error)

func (f ProviderFunc) Generate(ctx context.Context, topic string) (string, error) {
	return f(ctx, topic)
}

// TopicRegistry guarantees a topic exists before content tagged with it is stored.
// EnsureTopic must be safe under concurrent calls with the same name: exactly one
// caller observes created=true.
type TopicRegistry interface {
	EnsureTopic(ctx context.Context, name string) (Topic, bool, error)
	ListTopics(ctx context.Context) ([]Topic, error)
}

// QuestionStore persists candidates. InsertQuestion returns ErrDuplicate when a
// content-equivalent question already exists in the topic partition; any other
// error is a storage fault.
type QuestionStore interface {
	InsertQuestion(ctx context.Context, topic Topic, c Candidate, source string) (StoredQuestion, error)
	SampleQuestions(ctx context.Context, topic Topic, limit int) ([]StoredQuestion, error)
}

// EventPublisher is notified after a question is durably stored.
type EventPublisher interface {
	PublishAcquired(ctx context.Context, q StoredQuestion) error
}

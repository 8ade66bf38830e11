package question

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// memTopics is an in-memory TopicRegistry.
type memTopics struct {
	mu      sync.Mutex
	byName  map[string]Topic
	listErr error
}

func newMemTopics(names ...string) *memTopics {
	m := &memTopics{byName: make(map[string]Topic)}
	for _, n := range names {
		_, _, _ = m.EnsureTopic(context.Background(), n)
	}
	return m
}

func (m *memTopics) EnsureTopic(ctx context.Context, name string) (Topic, bool, error) {
	n, err := NormalizeTopic(name)
	if err != nil {
		return Topic{}, false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.byName[n]; ok {
		return t, false, nil
	}
	t := Topic{ID: fmt.Sprintf("t%d", len(m.byName)+1), Name: n, Partition: PartitionFor(n), CreatedAt: time.Now()}
	m.byName[n] = t
	return t, true, nil
}

func (m *memTopics) ListTopics(ctx context.Context) ([]Topic, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Topic, 0, len(m.byName))
	for _, t := range m.byName {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memTopics) FindTopic(ctx context.Context, name string) (Topic, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.byName[name]; ok {
		return t, nil
	}
	return Topic{}, ErrTopicNotFound
}

// memStore is an in-memory QuestionStore keyed by partition and fingerprint.
type memStore struct {
	mu         sync.Mutex
	partitions map[string]map[string]StoredQuestion
	order      map[string][]string
	failInsert error
	seq        int
}

func newMemStore() *memStore {
	return &memStore{
		partitions: make(map[string]map[string]StoredQuestion),
		order:      make(map[string][]string),
	}
}

func (s *memStore) InsertQuestion(ctx context.Context, topic Topic, c Candidate, source string) (StoredQuestion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failInsert != nil {
		return StoredQuestion{}, s.failInsert
	}
	hash := Fingerprint(c)
	part, ok := s.partitions[topic.Partition]
	if !ok {
		part = make(map[string]StoredQuestion)
		s.partitions[topic.Partition] = part
	}
	if _, dup := part[hash]; dup {
		return StoredQuestion{}, ErrDuplicate
	}
	s.seq++
	q := StoredQuestion{
		ID:          fmt.Sprintf("q%d", s.seq),
		Topic:       topic.Name,
		Partition:   topic.Partition,
		Prompt:      c.Prompt,
		Options:     c.Options,
		Correct:     c.Correct,
		Difficulty:  c.Difficulty,
		Source:      source,
		ContentHash: hash,
		CreatedAt:   time.Now(),
	}
	part[hash] = q
	s.order[topic.Partition] = append(s.order[topic.Partition], hash)
	return q, nil
}

func (s *memStore) SampleQuestions(ctx context.Context, topic Topic, limit int) ([]StoredQuestion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []StoredQuestion
	for _, h := range s.order[topic.Partition] {
		if len(out) == limit {
			break
		}
		out = append(out, s.partitions[topic.Partition][h])
	}
	return out, nil
}

func (s *memStore) count(partition string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.partitions[partition])
}

// scriptedProvider replays responses in order and repeats the last one.
type scriptedProvider struct {
	mu        sync.Mutex
	responses []string
	topics    []string
	err       error
}

func (p *scriptedProvider) Generate(ctx context.Context, topic string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	if p.err != nil {
		return "", p.err
	}
	idx := len(p.topics) - 1
	if idx >= len(p.responses) {
		idx = len(p.responses) - 1
	}
	return p.responses[idx], nil
}

func (p *scriptedProvider) calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.topics)
}

// uniqueProvider returns a fresh well-formed question on every call.
type uniqueProvider struct {
	mu sync.Mutex
	n  int
}

func (p *uniqueProvider) Generate(ctx context.Context, topic string) (string, error) {
	p.mu.Lock()
	p.n++
	n := p.n
	p.mu.Unlock()
	return questionBlock(fmt.Sprintf("Question number %d?", n)), nil
}

type recordingEvents struct {
	mu        sync.Mutex
	published []StoredQuestion
}

func (r *recordingEvents) PublishAcquired(ctx context.Context, q StoredQuestion) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.published = append(r.published, q)
	return nil
}

func questionBlock(prompt string) string {
	return "Question: " + prompt + "\nA) one\nB) two\nC) three\nD) four\nCorrect answer: B\nDifficulty level: easy"
}

func themedBlock(theme, prompt string) string {
	return "Theme: " + theme + "\n" + questionBlock(prompt)
}

func fastRetry() PipelineOptions {
	return PipelineOptions{Retry: RetryPolicy{MaxAttempts: 5, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}}
}

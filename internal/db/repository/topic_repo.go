package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	sqlcgen "github.com/gokatarajesh/quizbank/internal/db/sqlc"
	"github.com/gokatarajesh/quizbank/internal/question"
)

type themeStore interface {
	CreateTheme(ctx context.Context, arg sqlcgen.CreateThemeParams) (sqlcgen.Theme, error)
	GetThemeByName(ctx context.Context, name string) (sqlcgen.Theme, error)
	ListThemes(ctx context.Context) ([]sqlcgen.Theme, error)
}

// TopicRepository registers topics in the themes table.
type TopicRepository struct {
	store themeStore
}

var (
	_ question.TopicRegistry = (*TopicRepository)(nil)
	_ question.TopicFinder   = (*TopicRepository)(nil)
)

func NewTopicRepository(store themeStore) *TopicRepository {
	return &TopicRepository{store: store}
}

// EnsureTopic inserts the topic unless it exists. Concurrent callers race on the
// unique name constraint; losers fall through to the select and report created=false.
func (r *TopicRepository) EnsureTopic(ctx context.Context, name string) (question.Topic, bool, error) {
	n, err := question.NormalizeTopic(name)
	if err != nil {
		return question.Topic{}, false, err
	}

	row, err := r.store.CreateTheme(ctx, sqlcgen.CreateThemeParams{
		Name:         n,
		PartitionKey: question.PartitionFor(n),
	})
	if err == nil {
		return toTopic(row), true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return question.Topic{}, false, &question.StorageError{Op: "create theme", Err: err}
	}

	row, err = r.store.GetThemeByName(ctx, n)
	if err != nil {
		return question.Topic{}, false, &question.StorageError{Op: "get theme", Err: err}
	}
	return toTopic(row), false, nil
}

// FindTopic looks a topic up by name without creating it.
func (r *TopicRepository) FindTopic(ctx context.Context, name string) (question.Topic, error) {
	row, err := r.store.GetThemeByName(ctx, name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return question.Topic{}, question.ErrTopicNotFound
		}
		return question.Topic{}, &question.StorageError{Op: "get theme", Err: err}
	}
	return toTopic(row), nil
}

func (r *TopicRepository) ListTopics(ctx context.Context) ([]question.Topic, error) {
	rows, err := r.store.ListThemes(ctx)
	if err != nil {
		return nil, &question.StorageError{Op: "list themes", Err: err}
	}
	topics := make([]question.Topic, 0, len(rows))
	for _, row := range rows {
		topics = append(topics, toTopic(row))
	}
	return topics, nil
}

func toTopic(row sqlcgen.Theme) question.Topic {
	return question.Topic{
		ID:        uuidString(row.ThemeID),
		Name:      row.Name,
		Partition: row.PartitionKey,
		CreatedAt: row.CreatedAt.Time,
	}
}

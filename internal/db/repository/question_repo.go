package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	sqlcgen "github.com/gokatarajesh/quizbank/internal/db/sqlc"
	"github.com/gokatarajesh/quizbank/internal/question"
)

type questionStore interface {
	InsertQuestion(ctx context.Context, arg sqlcgen.InsertQuestionParams) (sqlcgen.Question, error)
	SampleQuestions(ctx context.Context, arg sqlcgen.SampleQuestionsParams) ([]sqlcgen.Question, error)
	CountQuestionsByPartition(ctx context.Context, partitionKey string) (int64, error)
}

// QuestionRepository wraps sqlc queries for question bank access.
type QuestionRepository struct {
	store questionStore
}

var _ question.QuestionStore = (*QuestionRepository)(nil)

func NewQuestionRepository(store questionStore) *QuestionRepository {
	return &QuestionRepository{store: store}
}

// InsertQuestion relies on the (partition_key, content_hash) constraint: a
// conflicting insert returns no row, which is reported as question.ErrDuplicate.
func (r *QuestionRepository) InsertQuestion(ctx context.Context, topic question.Topic, c question.Candidate, source string) (question.StoredQuestion, error) {
	options, err := json.Marshal(c.Options)
	if err != nil {
		return question.StoredQuestion{}, fmt.Errorf("encode options: %w", err)
	}

	row, err := r.store.InsertQuestion(ctx, sqlcgen.InsertQuestionParams{
		PartitionKey:  topic.Partition,
		ContentHash:   question.Fingerprint(c),
		Prompt:        c.Prompt,
		Options:       options,
		CorrectOption: c.Correct,
		Difficulty:    c.Difficulty,
		Source:        source,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return question.StoredQuestion{}, question.ErrDuplicate
		}
		return question.StoredQuestion{}, &question.StorageError{Op: "insert question", Err: err}
	}
	return toStored(topic.Name, row)
}

// SampleQuestions returns up to limit random questions from the topic partition.
func (r *QuestionRepository) SampleQuestions(ctx context.Context, topic question.Topic, limit int) ([]question.StoredQuestion, error) {
	rows, err := r.store.SampleQuestions(ctx, sqlcgen.SampleQuestionsParams{
		PartitionKey: topic.Partition,
		Limit:        int32(limit),
	})
	if err != nil {
		return nil, &question.StorageError{Op: "sample questions", Err: err}
	}
	out := make([]question.StoredQuestion, 0, len(rows))
	for _, row := range rows {
		q, err := toStored(topic.Name, row)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, nil
}

// CountQuestions reports how many questions the topic partition holds.
func (r *QuestionRepository) CountQuestions(ctx context.Context, topic question.Topic) (int64, error) {
	n, err := r.store.CountQuestionsByPartition(ctx, topic.Partition)
	if err != nil {
		return 0, &question.StorageError{Op: "count questions", Err: err}
	}
	return n, nil
}

func toStored(topic string, row sqlcgen.Question) (question.StoredQuestion, error) {
	var options [4]question.Option
	if err := json.Unmarshal(row.Options, &options); err != nil {
		return question.StoredQuestion{}, fmt.Errorf("decode options of %s: %w", uuidString(row.QuestionID), err)
	}
	return question.StoredQuestion{
		ID:          uuidString(row.QuestionID),
		Topic:       topic,
		Partition:   row.PartitionKey,
		Prompt:      row.Prompt,
		Options:     options,
		Correct:     row.CorrectOption,
		Difficulty:  row.Difficulty,
		Source:      row.Source,
		ContentHash: row.ContentHash,
		CreatedAt:   row.CreatedAt.Time,
	}, nil
}

func uuidString(id pgtype.UUID) string {
	if !id.Valid {
		return ""
	}
	return uuid.UUID(id.Bytes).String()
}

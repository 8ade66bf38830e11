package repository

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	sqlcgen "github.com/gokatarajesh/quizbank/internal/db/sqlc"
	"github.com/gokatarajesh/quizbank/internal/question"
)

type mockQuestionStore struct {
	mock.Mock
}

func (m *mockQuestionStore) InsertQuestion(ctx context.Context, arg sqlcgen.InsertQuestionParams) (sqlcgen.Question, error) {
	args := m.Called(ctx, arg)
	return args.Get(0).(sqlcgen.Question), args.Error(1)
}

func (m *mockQuestionStore) SampleQuestions(ctx context.Context, arg sqlcgen.SampleQuestionsParams) ([]sqlcgen.Question, error) {
	args := m.Called(ctx, arg)
	return args.Get(0).([]sqlcgen.Question), args.Error(1)
}

func (m *mockQuestionStore) CountQuestionsByPartition(ctx context.Context, partitionKey string) (int64, error) {
	args := m.Called(ctx, partitionKey)
	return args.Get(0).(int64), args.Error(1)
}

func sampleCandidate() question.Candidate {
	return question.Candidate{
		Prompt: "Q1",
		Options: [4]question.Option{
			{Label: "A", Text: "a"},
			{Label: "B", Text: "b"},
			{Label: "C", Text: "c"},
			{Label: "D", Text: "d"},
		},
		Correct:    "B",
		Difficulty: "easy",
	}
}

func sampleTopic() question.Topic {
	return question.Topic{Name: "history", Partition: question.PartitionFor("history")}
}

func TestQuestionRepository_Insert(t *testing.T) {
	store := new(mockQuestionStore)
	repo := NewQuestionRepository(store)
	c := sampleCandidate()
	topic := sampleTopic()

	options, err := json.Marshal(c.Options)
	require.NoError(t, err)
	params := sqlcgen.InsertQuestionParams{
		PartitionKey:  topic.Partition,
		ContentHash:   question.Fingerprint(c),
		Prompt:        "Q1",
		Options:       options,
		CorrectOption: "B",
		Difficulty:    "easy",
		Source:        question.SourceProvider,
	}
	store.On("InsertQuestion", mock.Anything, params).Return(sqlcgen.Question{
		QuestionID:    uuidFromByte(7),
		PartitionKey:  params.PartitionKey,
		ContentHash:   params.ContentHash,
		Prompt:        params.Prompt,
		Options:       options,
		CorrectOption: "B",
		Difficulty:    "easy",
		Source:        question.SourceProvider,
		CreatedAt:     timestamp(time.Unix(1700000000, 0)),
	}, nil)

	q, err := repo.InsertQuestion(context.Background(), topic, c, question.SourceProvider)
	require.NoError(t, err)
	assert.Equal(t, "00000000-0000-0000-0000-000000000007", q.ID)
	assert.Equal(t, "history", q.Topic)
	assert.Equal(t, c.Options, q.Options)
	assert.Equal(t, "B", q.Correct)
}

func TestQuestionRepository_InsertOutcomes(t *testing.T) {
	t.Run("conflict is duplicate", func(t *testing.T) {
		store := new(mockQuestionStore)
		store.On("InsertQuestion", mock.Anything, mock.Anything).Return(sqlcgen.Question{}, pgx.ErrNoRows)

		_, err := NewQuestionRepository(store).InsertQuestion(context.Background(), sampleTopic(), sampleCandidate(), question.SourceProvider)
		assert.ErrorIs(t, err, question.ErrDuplicate)
		assert.False(t, question.IsStorageFailure(err))
	})

	t.Run("other errors are storage failures", func(t *testing.T) {
		store := new(mockQuestionStore)
		store.On("InsertQuestion", mock.Anything, mock.Anything).Return(sqlcgen.Question{}, errors.New("too many connections"))

		_, err := NewQuestionRepository(store).InsertQuestion(context.Background(), sampleTopic(), sampleCandidate(), question.SourceProvider)
		assert.True(t, question.IsStorageFailure(err))
		assert.NotErrorIs(t, err, question.ErrDuplicate)
	})
}

func TestQuestionRepository_Sample(t *testing.T) {
	store := new(mockQuestionStore)
	repo := NewQuestionRepository(store)
	topic := sampleTopic()

	options, _ := json.Marshal(sampleCandidate().Options)
	store.On("SampleQuestions", mock.Anything, sqlcgen.SampleQuestionsParams{PartitionKey: topic.Partition, Limit: 5}).
		Return([]sqlcgen.Question{{QuestionID: uuidFromByte(1), Prompt: "Q1", Options: options}}, nil)
	store.On("CountQuestionsByPartition", mock.Anything, topic.Partition).Return(int64(1), nil)

	qs, err := repo.SampleQuestions(context.Background(), topic, 5)
	require.NoError(t, err)
	require.Len(t, qs, 1)
	assert.Equal(t, "a", qs[0].Options[0].Text)

	n, err := repo.CountQuestions(context.Background(), topic)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

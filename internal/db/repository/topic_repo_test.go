package repository

import (
	"context"
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

type mockThemeStore struct {
	mock.Mock
}

func (m *mockThemeStore) CreateTheme(ctx context.Context, arg sqlcgen.CreateThemeParams) (sqlcgen.Theme, error) {
	args := m.Called(ctx, arg)
	return args.Get(0).(sqlcgen.Theme), args.Error(1)
}

func (m *mockThemeStore) GetThemeByName(ctx context.Context, name string) (sqlcgen.Theme, error) {
	args := m.Called(ctx, name)
	return args.Get(0).(sqlcgen.Theme), args.Error(1)
}

func (m *mockThemeStore) ListThemes(ctx context.Context) ([]sqlcgen.Theme, error) {
	args := m.Called(ctx)
	return args.Get(0).([]sqlcgen.Theme), args.Error(1)
}

func themeRow(name string) sqlcgen.Theme {
	return sqlcgen.Theme{
		ThemeID:      uuidFromByte(1),
		Name:         name,
		PartitionKey: question.PartitionFor(name),
		CreatedAt:    timestamp(time.Unix(1700000000, 0)),
	}
}

func TestTopicRepository_EnsureTopicCreates(t *testing.T) {
	store := new(mockThemeStore)
	repo := NewTopicRepository(store)

	params := sqlcgen.CreateThemeParams{Name: "world history", PartitionKey: question.PartitionFor("world history")}
	store.On("CreateTheme", mock.Anything, params).Return(themeRow("world history"), nil)

	topic, created, err := repo.EnsureTopic(context.Background(), "  World History ")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "world history", topic.Name)
	assert.Equal(t, params.PartitionKey, topic.Partition)
	assert.Equal(t, "00000000-0000-0000-0000-000000000001", topic.ID)
	store.AssertNotCalled(t, "GetThemeByName", mock.Anything, mock.Anything)
}

func TestTopicRepository_EnsureTopicExisting(t *testing.T) {
	store := new(mockThemeStore)
	repo := NewTopicRepository(store)

	store.On("CreateTheme", mock.Anything, mock.Anything).Return(sqlcgen.Theme{}, pgx.ErrNoRows)
	store.On("GetThemeByName", mock.Anything, "history").Return(themeRow("history"), nil)

	topic, created, err := repo.EnsureTopic(context.Background(), "history")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "history", topic.Name)
}

func TestTopicRepository_EnsureTopicErrors(t *testing.T) {
	store := new(mockThemeStore)
	repo := NewTopicRepository(store)

	_, _, err := repo.EnsureTopic(context.Background(), "   ")
	assert.ErrorIs(t, err, question.ErrInvalidTopic)
	store.AssertNotCalled(t, "CreateTheme", mock.Anything, mock.Anything)

	store.On("CreateTheme", mock.Anything, mock.Anything).Return(sqlcgen.Theme{}, errors.New("connection reset"))
	_, _, err = repo.EnsureTopic(context.Background(), "history")
	assert.True(t, question.IsStorageFailure(err))
}

func TestTopicRepository_FindTopic(t *testing.T) {
	store := new(mockThemeStore)
	repo := NewTopicRepository(store)

	store.On("GetThemeByName", mock.Anything, "history").Return(themeRow("history"), nil)
	store.On("GetThemeByName", mock.Anything, "missing").Return(sqlcgen.Theme{}, pgx.ErrNoRows)

	topic, err := repo.FindTopic(context.Background(), "history")
	require.NoError(t, err)
	assert.Equal(t, "history", topic.Name)

	_, err = repo.FindTopic(context.Background(), "missing")
	assert.ErrorIs(t, err, question.ErrTopicNotFound)
}

func TestTopicRepository_ListTopics(t *testing.T) {
	store := new(mockThemeStore)
	repo := NewTopicRepository(store)

	store.On("ListThemes", mock.Anything).Return([]sqlcgen.Theme{themeRow("art"), themeRow("history")}, nil)

	topics, err := repo.ListTopics(context.Background())
	require.NoError(t, err)
	require.Len(t, topics, 2)
	assert.Equal(t, "art", topics[0].Name)
	assert.Equal(t, "history", topics[1].Name)
}

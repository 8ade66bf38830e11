package badgerstore

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/gokatarajesh/quizbank/internal/question"
)

// TopicStore implements question.TopicRegistry on Badger.
type TopicStore struct {
	backend *Backend
}

var (
	_ question.TopicRegistry = (*TopicStore)(nil)
	_ question.TopicFinder   = (*TopicStore)(nil)
)

func NewTopicStore(backend *Backend) *TopicStore {
	return &TopicStore{backend: backend}
}

func (s *TopicStore) EnsureTopic(ctx context.Context, name string) (question.Topic, bool, error) {
	n, err := question.NormalizeTopic(name)
	if err != nil {
		return question.Topic{}, false, err
	}
	if err := ctx.Err(); err != nil {
		return question.Topic{}, false, err
	}

	var (
		topic   question.Topic
		created bool
	)
	err = s.backend.update(func(txn *badger.Txn) error {
		created = false
		existing, err := getTopic(txn, n)
		if err == nil {
			topic = existing
			return nil
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		topic = question.Topic{
			ID:        uuid.NewString(),
			Name:      n,
			Partition: question.PartitionFor(n),
			CreatedAt: time.Now().UTC(),
		}
		data, err := json.Marshal(topic)
		if err != nil {
			return err
		}
		created = true
		return txn.Set(topicKey(n), data)
	})
	if err != nil {
		return question.Topic{}, false, &question.StorageError{Op: "ensure topic", Err: err}
	}
	return topic, created, nil
}

func (s *TopicStore) FindTopic(ctx context.Context, name string) (question.Topic, error) {
	var topic question.Topic
	err := s.backend.view(func(txn *badger.Txn) error {
		var err error
		topic, err = getTopic(txn, name)
		return err
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return question.Topic{}, question.ErrTopicNotFound
		}
		return question.Topic{}, &question.StorageError{Op: "find topic", Err: err}
	}
	return topic, nil
}

func (s *TopicStore) ListTopics(ctx context.Context) ([]question.Topic, error) {
	var topics []question.Topic
	err := s.backend.view(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(topicPrefix)
		iter := txn.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var t question.Topic
			if err := iter.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &t)
			}); err != nil {
				return err
			}
			topics = append(topics, t)
		}
		return nil
	})
	if err != nil {
		return nil, &question.StorageError{Op: "list topics", Err: err}
	}
	sort.Slice(topics, func(i, j int) bool { return topics[i].Name < topics[j].Name })
	return topics, nil
}

func getTopic(txn *badger.Txn, name string) (question.Topic, error) {
	item, err := txn.Get(topicKey(name))
	if err != nil {
		return question.Topic{}, err
	}
	var t question.Topic
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &t)
	})
	return t, err
}

package badgerstore

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/gokatarajesh/quizbank/internal/question"
)

// QuestionStore implements question.QuestionStore on Badger.
type QuestionStore struct {
	backend *Backend
}

var _ question.QuestionStore = (*QuestionStore)(nil)

func NewQuestionStore(backend *Backend) *QuestionStore {
	return &QuestionStore{backend: backend}
}

// InsertQuestion reads and writes the fingerprint key in one transaction. Two
// concurrent inserts of equivalent content conflict at commit and the loser
// retries, finds the key and reports question.ErrDuplicate.
func (s *QuestionStore) InsertQuestion(ctx context.Context, topic question.Topic, c question.Candidate, source string) (question.StoredQuestion, error) {
	if err := ctx.Err(); err != nil {
		return question.StoredQuestion{}, err
	}

	hash := question.Fingerprint(c)
	key := questionKey(topic.Partition, hash)

	var stored question.StoredQuestion
	err := s.backend.update(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		if err == nil {
			return question.ErrDuplicate
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		stored = question.StoredQuestion{
			ID:          uuid.NewString(),
			Topic:       topic.Name,
			Partition:   topic.Partition,
			Prompt:      c.Prompt,
			Options:     c.Options,
			Correct:     c.Correct,
			Difficulty:  c.Difficulty,
			Source:      source,
			ContentHash: hash,
			CreatedAt:   time.Now().UTC(),
		}
		data, err := json.Marshal(storedRecord(stored))
		if err != nil {
			return err
		}
		return txn.Set(key, data)
	})
	switch {
	case err == nil:
		return stored, nil
	case errors.Is(err, question.ErrDuplicate):
		return question.StoredQuestion{}, question.ErrDuplicate
	default:
		return question.StoredQuestion{}, &question.StorageError{Op: "insert question", Err: err}
	}
}

// SampleQuestions returns up to limit questions of the partition in random order.
func (s *QuestionStore) SampleQuestions(ctx context.Context, topic question.Topic, limit int) ([]question.StoredQuestion, error) {
	var all []question.StoredQuestion
	err := s.backend.view(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = partitionPrefix(topic.Partition)
		iter := txn.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var rec record
			if err := iter.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			}); err != nil {
				return err
			}
			all = append(all, rec.toStored())
		}
		return nil
	})
	if err != nil {
		return nil, &question.StorageError{Op: "sample questions", Err: err}
	}

	rand.Shuffle(len(all), func(i, j int) { all[i], all[j] = all[j], all[i] })
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

// CountQuestions reports how many questions the topic partition holds.
func (s *QuestionStore) CountQuestions(ctx context.Context, topic question.Topic) (int64, error) {
	var n int64
	err := s.backend.view(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = partitionPrefix(topic.Partition)
		opts.PrefetchValues = false
		iter := txn.NewIterator(opts)
		defer iter.Close()
		for iter.Rewind(); iter.Valid(); iter.Next() {
			n++
		}
		return nil
	})
	if err != nil {
		return 0, &question.StorageError{Op: "count questions", Err: err}
	}
	return n, nil
}

// record is the persisted form; StoredQuestion hides the hash from JSON.
type record struct {
	question.StoredQuestion
	Hash string `json:"content_hash"`
}

func storedRecord(q question.StoredQuestion) record {
	return record{StoredQuestion: q, Hash: q.ContentHash}
}

func (r record) toStored() question.StoredQuestion {
	q := r.StoredQuestion
	q.ContentHash = r.Hash
	return q
}

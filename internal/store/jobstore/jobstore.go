// Package jobstore keeps deferred-task status in BadgerDB so clients can poll
// for results after the HTTP request that enqueued them has returned.
package jobstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/couchcryptid/futureroot-service/internal/domain"
)

const jobKeyPrefix = "job:"

// Store persists domain.Job values with a time-to-live.
type Store struct {
	db  *badger.DB
	ttl time.Duration
}

// Open opens a Badger database at dir. An empty dir opens an in-memory store.
func Open(dir string, ttl time.Duration) (*Store, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open job store: %w", err)
	}
	return New(db, ttl), nil
}

// New wraps an open Badger database.
func New(db *badger.DB, ttl time.Duration) *Store {
	return &Store{db: db, ttl: ttl}
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Create stores a new queued job. If a job with the same ID exists and has not
// finished, the existing job is returned with created=false.
func (s *Store) Create(_ context.Context, id string, typ domain.TaskType) (job domain.Job, created bool, err error) {
	err = s.db.Update(func(txn *badger.Txn) error {
		existing, err := getJob(txn, id)
		switch {
		case err == nil && !existing.Done():
			job = existing
			return nil
		case err != nil && !errors.Is(err, domain.ErrNotFound):
			return err
		}
		now := domain.Now()
		job = domain.Job{ID: id, Type: typ, Status: domain.JobQueued, CreatedAt: now, UpdatedAt: now}
		created = true
		return s.setJob(txn, job)
	})
	return job, created, err
}

// Get returns domain.ErrNotFound for unknown or expired jobs.
func (s *Store) Get(_ context.Context, id string) (domain.Job, error) {
	var job domain.Job
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		job, err = getJob(txn, id)
		return err
	})
	return job, err
}

// MarkRunning transitions a job to running.
func (s *Store) MarkRunning(ctx context.Context, id string) error {
	return s.update(id, func(j *domain.Job) {
		j.Status = domain.JobRunning
	})
}

// Complete records a successful result. warning may be empty.
func (s *Store) Complete(_ context.Context, id string, result any, warning string) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal job result: %w", err)
	}
	return s.update(id, func(j *domain.Job) {
		j.Status = domain.JobSucceeded
		j.Result = data
		j.Warning = warning
	})
}

// Fail records a terminal error.
func (s *Store) Fail(_ context.Context, id string, cause error) error {
	return s.update(id, func(j *domain.Job) {
		j.Status = domain.JobFailed
		j.Error = cause.Error()
	})
}

// FailStale marks queued or running jobs not updated since before cutoff as
// failed and returns how many were changed.
func (s *Store) FailStale(_ context.Context, cutoff time.Time) (int, error) {
	var stale []domain.Job
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(jobKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var j domain.Job
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &j)
			}); err != nil {
				return fmt.Errorf("decode job %s: %w", it.Item().Key(), err)
			}
			if !j.Done() && j.UpdatedAt.Before(cutoff) {
				stale = append(stale, j)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	n := 0
	for _, j := range stale {
		if err := s.update(j.ID, func(j *domain.Job) {
			j.Status = domain.JobFailed
			j.Error = "abandoned: no progress before deadline"
		}); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// CollectGarbage reclaims value-log space left by expired jobs.
func (s *Store) CollectGarbage() error {
	if s.db.Opts().InMemory {
		return nil
	}
	for {
		err := s.db.RunValueLogGC(0.5)
		if errors.Is(err, badger.ErrNoRewrite) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("value log gc: %w", err)
		}
	}
}

func (s *Store) update(id string, mutate func(*domain.Job)) error {
	return s.db.Update(func(txn *badger.Txn) error {
		j, err := getJob(txn, id)
		if err != nil {
			return err
		}
		mutate(&j)
		j.UpdatedAt = domain.Now()
		return s.setJob(txn, j)
	})
}

func (s *Store) setJob(txn *badger.Txn, j domain.Job) error {
	data, err := json.Marshal(j)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	e := badger.NewEntry([]byte(jobKeyPrefix+j.ID), data)
	if s.ttl > 0 {
		e = e.WithTTL(s.ttl)
	}
	return txn.SetEntry(e)
}

func getJob(txn *badger.Txn, id string) (domain.Job, error) {
	var j domain.Job
	item, err := txn.Get([]byte(jobKeyPrefix + id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return j, fmt.Errorf("job %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return j, fmt.Errorf("get job %s: %w", id, err)
	}
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &j)
	})
	return j, err
}

// Package logstore keeps the append-only interaction log in a blob store.
package logstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/verte-zerg/topicq/internal/model"
	"github.com/verte-zerg/topicq/internal/store"
)

// LogKey is the blob key holding the serialized log.
const LogKey = "conversation_logs_v1"

// ErrNotFound is returned when removing an entry id that is not in the log.
var ErrNotFound = errors.New("log entry not found")

// Log is the interaction log. Mutations run read-modify-write under a mutex.
type Log struct {
	mu    sync.Mutex
	blobs store.Blobs
	now   func() time.Time
	newID func() string
	warn  func(format string, args ...any)
}

// Option configures a Log.
type Option func(*Log)

// WithClock sets the time source for entry timestamps.
func WithClock(now func() time.Time) Option {
	return func(l *Log) {
		if now != nil {
			l.now = now
		}
	}
}

// WithIDFunc sets the entry id generator.
func WithIDFunc(newID func() string) Option {
	return func(l *Log) {
		if newID != nil {
			l.newID = newID
		}
	}
}

// WithWarn sets the sink for degraded-read notices.
func WithWarn(warn func(format string, args ...any)) Option {
	return func(l *Log) {
		if warn != nil {
			l.warn = warn
		}
	}
}

// New returns a Log over blobs.
func New(blobs store.Blobs, opts ...Option) *Log {
	l := &Log{
		blobs: blobs,
		now:   time.Now,
		newID: NewID,
		warn:  func(string, ...any) {},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// NewID returns a fresh entry id.
func NewID() string {
	return "log_" + uuid.NewString()
}

// All returns every entry in append order. Unreadable or corrupt storage
// yields an empty log.
func (l *Log) All(ctx context.Context) []model.Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	entries, err := l.load(ctx)
	if err != nil {
		l.warn("reading empty log: %v\n", err)
		return nil
	}
	return entries
}

// Append stamps e with an id and creation time, trims its text and persists it.
func (l *Log) Append(ctx context.Context, e model.Entry) (model.Entry, error) {
	switch e.Kind {
	case model.KindMemo, model.KindQuestionAsked, model.KindQuestionPass:
	default:
		return model.Entry{}, fmt.Errorf("unsupported log entry kind %q", e.Kind)
	}
	e.ID = l.newID()
	e.CreatedAt = l.now().UTC().Truncate(time.Millisecond)
	e.Text = strings.TrimSpace(e.Text)
	e.RawType = ""

	l.mu.Lock()
	defer l.mu.Unlock()
	entries, err := l.load(ctx)
	if err != nil {
		return model.Entry{}, err
	}
	entries = append(entries, e)
	if err := l.save(ctx, entries); err != nil {
		return model.Entry{}, err
	}
	return e, nil
}

// Remove deletes a single entry by id.
func (l *Log) Remove(ctx context.Context, id string) error {
	n, err := l.RemoveWhere(ctx, func(e model.Entry) bool { return e.ID == id })
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// RemoveWhere deletes every entry matching pred and reports how many were removed.
// Nothing is written when no entry matches.
func (l *Log) RemoveWhere(ctx context.Context, pred func(model.Entry) bool) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entries, err := l.load(ctx)
	if err != nil {
		return 0, err
	}
	kept := make([]model.Entry, 0, len(entries))
	for _, e := range entries {
		if pred(e) {
			continue
		}
		kept = append(kept, e)
	}
	removed := len(entries) - len(kept)
	if removed == 0 {
		return 0, nil
	}
	if err := l.save(ctx, kept); err != nil {
		return 0, err
	}
	return removed, nil
}

// RemoveAll clears the log.
func (l *Log) RemoveAll(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.save(ctx, nil)
}

// load reads the log. Storage errors are returned; corrupt content degrades
// to an empty log.
func (l *Log) load(ctx context.Context) ([]model.Entry, error) {
	data, ok, err := l.blobs.Get(ctx, LogKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read log: %w", err)
	}
	if !ok {
		return nil, nil
	}
	entries, err := decodeEntries(data)
	if err != nil {
		l.warn("discarding unreadable log: %v\n", err)
		return nil, nil
	}
	return entries, nil
}

func (l *Log) save(ctx context.Context, entries []model.Entry) error {
	data, err := encodeEntries(entries)
	if err != nil {
		return fmt.Errorf("failed to encode log: %w", err)
	}
	if err := l.blobs.Put(ctx, LogKey, data); err != nil {
		return fmt.Errorf("failed to write log: %w", err)
	}
	return nil
}

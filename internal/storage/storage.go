// Package storage persists the last generated prompt between sessions.
package storage

import (
	"context"
	"errors"
	"time"
)

// LastPromptKey is the fixed key the client saves its last result under.
const LastPromptKey = "lastGeneratedPrompt"

var ErrNotFound = errors.New("not found")

type Store interface {
	Save(ctx context.Context, key, value string) error
	// Load returns ErrNotFound when nothing was saved under key.
	Load(ctx context.Context, key string) (string, error)
}

// HistoryStore is implemented by stores that keep every distinct saved value.
type HistoryStore interface {
	Store
	History(ctx context.Context, key string, limit int) ([]Entry, error)
}

type Entry struct {
	ID      string
	Value   string
	SavedAt time.Time
}

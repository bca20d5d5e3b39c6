// Package channelstore persists the one piece of configuration that
// survives restarts: the chat channel the notifier delivers to. The
// id is opaque here; it is handed to the delivery layer untouched.
package channelstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
)

var ErrNotConfigured = errors.New("channelstore: no channel configured")

type Store interface {
	ChannelID(ctx context.Context) (int64, error)
	SetChannelID(ctx context.Context, id int64) error
}

// File stores the channel id as a small JSON document. The file is
// re-read on every lookup so an operator edit takes effect without a
// restart.
type File struct {
	path string
	mu   sync.Mutex
}

type fileDoc struct {
	ChannelID int64 `json:"channel_id"`
}

func NewFile(path string) *File {
	return &File{path: path}
}

func (f *File) ChannelID(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	b, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return 0, ErrNotConfigured
	}
	if err != nil {
		return 0, fmt.Errorf("channelstore: read %s: %w", f.path, err)
	}
	var doc fileDoc
	if err := json.Unmarshal(b, &doc); err != nil {
		return 0, fmt.Errorf("channelstore: parse %s: %w", f.path, err)
	}
	if doc.ChannelID == 0 {
		return 0, ErrNotConfigured
	}
	return doc.ChannelID, nil
}

func (f *File) SetChannelID(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	b, _ := json.MarshalIndent(fileDoc{ChannelID: id}, "", "  ")
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("channelstore: write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("channelstore: rename %s: %w", tmp, err)
	}
	return nil
}

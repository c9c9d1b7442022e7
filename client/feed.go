package client

import (
	"context"
	"sync"
)

// Feed keeps the last fetched list of photos. Every successful mutation is
// followed by a full re-fetch; nothing is patched locally.
type Feed struct {
	photos *PhotoClient

	mu    sync.Mutex
	items []Photo
	err   error
	liked map[string]bool
}

func NewFeed(photos *PhotoClient) *Feed {
	return &Feed{photos: photos, liked: make(map[string]bool)}
}

// Refresh re-fetches the feed. On failure the feed is emptied and the error
// kept for Err so the caller can offer a retry.
func (f *Feed) Refresh(ctx context.Context) error {
	items, err := f.photos.List(ctx)

	f.mu.Lock()
	defer f.mu.Unlock()

	f.items = items
	f.err = err

	return err
}

func (f *Feed) Items() []Photo {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]Photo(nil), f.items...)
}

// Err is the error from the last Refresh, nil if it succeeded.
func (f *Feed) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.err
}

func (f *Feed) Post(ctx context.Context, photo, name, description string) (Photo, error) {
	p, err := f.photos.Create(ctx, photo, name, description)
	if err != nil {
		return Photo{}, err
	}

	_ = f.Refresh(ctx)

	return p, nil
}

func (f *Feed) Edit(ctx context.Context, id string, fields PhotoUpdate) (Photo, error) {
	p, err := f.photos.Update(ctx, id, fields)
	if err != nil {
		return Photo{}, err
	}

	_ = f.Refresh(ctx)

	return p, nil
}

func (f *Feed) Remove(ctx context.Context, id string) error {
	if err := f.photos.Delete(ctx, id); err != nil {
		return err
	}

	_ = f.Refresh(ctx)

	return nil
}

// ToggleLike flips the local liked marker for id and returns the new value.
// Likes never leave this process.
func (f *Feed) ToggleLike(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.liked[id] {
		delete(f.liked, id)
		return false
	}

	f.liked[id] = true

	return true
}

func (f *Feed) Liked(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.liked[id]
}

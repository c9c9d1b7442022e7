package client

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeed_RefetchesAfterMutations(t *testing.T) {
	api := newFakeAPI(t)
	ctx := context.Background()
	alice := signedUp(t, api, "alice")
	feed := NewFeed(alice.Photos)

	require.NoError(t, feed.Refresh(ctx))
	assert.Empty(t, feed.Items())

	p, err := feed.Post(ctx, "http://img/1.png", "Sunset", "Nice view")
	require.NoError(t, err)
	require.Len(t, feed.Items(), 1)
	assert.Equal(t, p.ID, feed.Items()[0].ID)

	_, err = feed.Edit(ctx, p.ID, PhotoUpdate{Name: strPtr("Sunrise")})
	require.NoError(t, err)
	assert.Equal(t, "Sunrise", feed.Items()[0].Name)

	require.NoError(t, feed.Remove(ctx, p.ID))
	assert.Empty(t, feed.Items())
	assert.NoError(t, feed.Err())
}

func TestFeed_FailedRefreshIsRetryable(t *testing.T) {
	api := newFakeAPI(t)
	ctx := context.Background()
	alice := signedUp(t, api, "alice")
	feed := NewFeed(alice.Photos)

	_, err := feed.Post(ctx, "http://img/1.png", "Sunset", "Nice view")
	require.NoError(t, err)
	require.Len(t, feed.Items(), 1)

	api.setFailing(true)
	assert.ErrorIs(t, feed.Refresh(ctx), ErrServer)
	assert.Empty(t, feed.Items())
	assert.ErrorIs(t, feed.Err(), ErrServer)

	api.setFailing(false)
	require.NoError(t, feed.Refresh(ctx))
	assert.Len(t, feed.Items(), 1)
	assert.NoError(t, feed.Err())
}

func TestFeed_LikesStayLocal(t *testing.T) {
	api := newFakeAPI(t)
	feed := NewFeed(NewPhotoClient(api.baseURL(), 0, nil, nil))

	assert.False(t, feed.Liked("photo-1"))
	assert.True(t, feed.ToggleLike("photo-1"))
	assert.True(t, feed.Liked("photo-1"))
	assert.False(t, feed.ToggleLike("photo-1"))
	assert.False(t, feed.Liked("photo-1"))

	assert.Zero(t, api.requests.Load())
}

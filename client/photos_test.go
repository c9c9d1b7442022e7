package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticToken string

func (s staticToken) Token() string { return string(s) }

func signedUp(t *testing.T, api *fakeAPI, username string) *Client {
	t.Helper()

	c := newTestClient(t, api, NewMemoryCredentialStore())
	require.NoError(t, c.Session.Signup(context.Background(), Registration{
		Username: username,
		Email:    username + "@x.com",
		Password: "pw123456",
	}))

	return c
}

func strPtr(s string) *string { return &s }

func TestPhotoClient_TokenRequiredFailsFast(t *testing.T) {
	api := newFakeAPI(t)
	ctx := context.Background()
	pc := NewPhotoClient(api.baseURL(), time.Second, staticToken(""), nil)

	_, err := pc.Create(ctx, "http://img/1.png", "Sunset", "Nice view")
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = pc.Update(ctx, "photo-1", PhotoUpdate{Name: strPtr("x")})
	assert.ErrorIs(t, err, ErrUnauthorized)

	assert.ErrorIs(t, pc.Delete(ctx, "photo-1"), ErrUnauthorized)

	assert.Zero(t, api.requests.Load())

	_, err = pc.List(ctx)
	assert.NoError(t, err)
	assert.Equal(t, int64(1), api.requests.Load())
}

func TestPhotoClient_CreateValidation(t *testing.T) {
	api := newFakeAPI(t)
	pc := NewPhotoClient(api.baseURL(), time.Second, staticToken("tok"), nil)

	_, err := pc.Create(context.Background(), "http://img/1.png", "Sunset", "")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = pc.Update(context.Background(), "photo-1", PhotoUpdate{Description: strPtr("")})
	assert.ErrorIs(t, err, ErrValidation)

	assert.Zero(t, api.requests.Load())
}

func TestPhotoClient_CRUD(t *testing.T) {
	api := newFakeAPI(t)
	ctx := context.Background()
	alice := signedUp(t, api, "alice")
	bob := signedUp(t, api, "bob")

	p, err := alice.Photos.Create(ctx, "http://img/1.png", "Sunset", "Nice view")
	require.NoError(t, err)
	assert.Equal(t, alice.Session.Snapshot().User.ID, p.Owner)

	_, err = bob.Photos.Update(ctx, p.ID, PhotoUpdate{Name: strPtr("Hacked")})
	assert.ErrorIs(t, err, ErrForbidden)
	assert.ErrorIs(t, bob.Photos.Delete(ctx, p.ID), ErrForbidden)

	_, err = alice.Photos.Update(ctx, "000000000000000000000000", PhotoUpdate{Name: strPtr("x")})
	assert.ErrorIs(t, err, ErrNotFound)

	updated, err := alice.Photos.Update(ctx, p.ID, PhotoUpdate{Description: strPtr("Even nicer")})
	require.NoError(t, err)
	assert.Equal(t, "Sunset", updated.Name)
	assert.Equal(t, "Even nicer", updated.Description)

	require.NoError(t, alice.Photos.Delete(ctx, p.ID))

	photos, err := alice.Photos.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, photos)
}

func TestPhotoClient_ListNewestFirst(t *testing.T) {
	api := newFakeAPI(t)
	ctx := context.Background()
	alice := signedUp(t, api, "alice")

	for _, name := range []string{"t1", "t2", "t3"} {
		_, err := alice.Photos.Create(ctx, "http://img/"+name, name, "d")
		require.NoError(t, err)
	}

	anon := NewPhotoClient(api.baseURL(), time.Second, nil, nil)
	photos, err := anon.List(ctx)
	require.NoError(t, err)
	require.Len(t, photos, 3)
	assert.Equal(t, []string{"t3", "t2", "t1"}, []string{photos[0].Name, photos[1].Name, photos[2].Name})
	assert.True(t, photos[0].CreatedAt.After(photos[1].CreatedAt))
}

func TestPhotoClient_ServerError(t *testing.T) {
	api := newFakeAPI(t)
	api.setFailing(true)

	_, err := NewPhotoClient(api.baseURL(), time.Second, nil, nil).List(context.Background())
	assert.ErrorIs(t, err, ErrServer)
	assert.Equal(t, "Server Error", UserMessage(err))
}

func TestPhotoClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	_, err := NewPhotoClient(srv.URL, 50*time.Millisecond, nil, nil).List(context.Background())
	assert.ErrorIs(t, err, ErrTransport)
	assert.Equal(t, FallbackMessage, UserMessage(err))
}

package main

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"golang.org/x/exp/slog"
)

var (
	ErrNotOwner   = errors.New("photos: caller does not own the photo")
	ErrNoIdentity = errors.New("photos: no authenticated identity")
)

// CreatePhotoRequest is the only body shape accepted by POST /api/explore.
// Any owner supplied by the client is dropped during decoding.
type CreatePhotoRequest struct {
	Photo       string `json:"photo"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (r CreatePhotoRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Photo, validation.Required.Error("Please add a photo URL")),
		validation.Field(&r.Name, validation.Required.Error("Please add a name")),
		validation.Field(&r.Description, validation.Required.Error("Please add a description")),
	)
}

// UpdatePhotoRequest carries the mutable fields of a photo. Nil means keep.
type UpdatePhotoRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

func (r UpdatePhotoRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.NilOrNotEmpty.Error("name cannot be empty")),
		validation.Field(&r.Description, validation.NilOrNotEmpty.Error("description cannot be empty")),
	)
}

type PhotoService struct {
	store Store
	now   func() time.Time
}

func NewPhotoService(store Store) *PhotoService {
	return &PhotoService{store: store, now: time.Now}
}

// List returns every photo, newest first, with owner usernames resolved.
func (ps *PhotoService) List(ctx context.Context) ([]Photo, error) {
	return ps.store.ListPhotos(ctx)
}

func (ps *PhotoService) Create(ctx context.Context, who Identity, req CreatePhotoRequest) (Photo, error) {
	if who.UserID == "" {
		return Photo{}, ErrNoIdentity
	}

	if err := req.Validate(); err != nil {
		return Photo{}, err
	}

	now := ps.now().UTC()
	p, err := ps.store.CreatePhoto(ctx, Photo{
		Photo:       req.Photo,
		Name:        req.Name,
		Description: req.Description,
		OwnerID:     who.UserID,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return Photo{}, err
	}

	p.OwnerUsername = who.Username

	return p, nil
}

func (ps *PhotoService) Update(ctx context.Context, who Identity, id string, req UpdatePhotoRequest) (Photo, error) {
	p, err := ps.ownedPhoto(ctx, who, id)
	if err != nil {
		return Photo{}, err
	}

	if err := req.Validate(); err != nil {
		return Photo{}, err
	}

	if req.Name != nil {
		p.Name = *req.Name
	}
	if req.Description != nil {
		p.Description = *req.Description
	}
	p.UpdatedAt = ps.now().UTC()

	return ps.store.UpdatePhoto(ctx, p)
}

func (ps *PhotoService) Delete(ctx context.Context, who Identity, id string) error {
	if _, err := ps.ownedPhoto(ctx, who, id); err != nil {
		return err
	}

	return ps.store.DeletePhoto(ctx, id, who.UserID)
}

// ownedPhoto loads id and confirms who owns it. Nothing is written before
// this check passes.
func (ps *PhotoService) ownedPhoto(ctx context.Context, who Identity, id string) (Photo, error) {
	if who.UserID == "" {
		return Photo{}, ErrNoIdentity
	}

	p, err := ps.store.GetPhotoByID(ctx, id)
	if err != nil {
		return Photo{}, err
	}

	if p.OwnerID != who.UserID {
		return Photo{}, ErrNotOwner
	}

	return p, nil
}

func (s *APIServer) HandlePhotos(w http.ResponseWriter, r *http.Request) error {
	switch r.Method {
	case http.MethodGet:
		return s.HandleListPhotos(w, r)
	case http.MethodPost:
		return s.authMiddleware(s.HandleCreatePhoto)(w, r)
	default:
		return methodNotAllowed()
	}
}

func (s *APIServer) HandlePhoto(w http.ResponseWriter, r *http.Request) error {
	id := strings.TrimPrefix(r.URL.Path, photosPath+"/")
	if id == "" || strings.Contains(id, "/") {
		return notFound("Photo not found")
	}

	switch r.Method {
	case http.MethodPut:
		return s.authMiddleware(func(who Identity, w http.ResponseWriter, r *http.Request) error {
			return s.HandleUpdatePhoto(who, id, w, r)
		})(w, r)
	case http.MethodDelete:
		return s.authMiddleware(func(who Identity, w http.ResponseWriter, r *http.Request) error {
			return s.HandleDeletePhoto(who, id, w, r)
		})(w, r)
	default:
		return methodNotAllowed()
	}
}

func (s *APIServer) HandleListPhotos(w http.ResponseWriter, r *http.Request) error {
	photos, err := s.photos.List(r.Context())
	if err != nil {
		return err
	}

	return writeJSON(w, photos)
}

func (s *APIServer) HandleCreatePhoto(who Identity, w http.ResponseWriter, r *http.Request) error {
	var req CreatePhotoRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return err
	}

	p, err := s.photos.Create(r.Context(), who, req)
	if err != nil {
		return photoError(err)
	}

	slog.Debug("Created a photo", "photo_id", p.ID, "owner", p.OwnerID)

	return writeJSONStatus(w, http.StatusCreated, p)
}

func (s *APIServer) HandleUpdatePhoto(who Identity, id string, w http.ResponseWriter, r *http.Request) error {
	var req UpdatePhotoRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return err
	}

	p, err := s.photos.Update(r.Context(), who, id, req)
	if err != nil {
		return photoError(err)
	}

	return writeJSON(w, p)
}

type MessageResponse struct {
	Message string `json:"message"`
}

func (s *APIServer) HandleDeletePhoto(who Identity, id string, w http.ResponseWriter, r *http.Request) error {
	if err := s.photos.Delete(r.Context(), who, id); err != nil {
		return photoError(err)
	}

	slog.Debug("Deleted a photo", "photo_id", id, "owner", who.UserID)

	return writeJSON(w, MessageResponse{Message: "Photo removed"})
}

func photoError(err error) error {
	switch {
	case errors.Is(err, ErrPhotoNotFound):
		return notFound("Photo not found")
	case errors.Is(err, ErrNotOwner):
		// ownership failures keep the 401 that clients already expect
		return &StatusError{Err: err, Status: http.StatusUnauthorized, Code: CodeForbidden, Message: "User not authorized"}
	case errors.Is(err, ErrNoIdentity):
		return &StatusError{Err: err, Status: http.StatusUnauthorized, Code: CodeUnauthorized, Message: "Not authorized, no token"}
	default:
		return validationError(err)
	}
}

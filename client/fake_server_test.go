package client

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"photogram/internal/apicode"
)

var fakeKey = []byte("fake-key")

type fakeUser struct {
	User
	password string
}

// fakeAPI is a small in-memory stand-in for the photogram server.
type fakeAPI struct {
	t        *testing.T
	server   *httptest.Server
	requests atomic.Int64

	mu      sync.Mutex
	users   map[string]fakeUser
	tokens  map[string]string
	photos  []Photo
	nextID  int
	clock   time.Time
	failAll bool
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()

	f := &fakeAPI{
		t:      t,
		users:  make(map[string]fakeUser),
		tokens: make(map[string]string),
		clock:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/users/register", f.register)
	mux.HandleFunc("/api/users/login", f.login)
	mux.HandleFunc("/api/users/me", f.me)
	mux.HandleFunc("/api/explore", f.explore)
	mux.HandleFunc("/api/explore/", f.photo)

	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.requests.Add(1)

		f.mu.Lock()
		fail := f.failAll
		f.mu.Unlock()
		if fail {
			writeFake(w, http.StatusInternalServerError, map[string]string{"message": "Server Error", "code": apicode.ServerError})
			return
		}

		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(f.server.Close)

	return f
}

func (f *fakeAPI) baseURL() string {
	return f.server.URL + "/api"
}

func (f *fakeAPI) config() Config {
	return Config{Env: EnvDevelopment, DevURL: f.baseURL(), Timeout: 2 * time.Second}
}

func (f *fakeAPI) revoke(token string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.tokens, token)
}

func (f *fakeAPI) setFailing(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.failAll = fail
}

func writeFake(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func fakeError(w http.ResponseWriter, status int, code, msg string) {
	writeFake(w, status, map[string]string{"message": msg, "code": code})
}

func (f *fakeAPI) issue(u User) string {
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: u.ID, IssuedAt: jwt.NewNumericDate(time.Now())},
		Username:         u.Username,
		Email:            u.Email,
	}).SignedString(fakeKey)
	if err != nil {
		f.t.Fatalf("sign token: %v", err)
	}

	f.tokens[tok] = u.ID

	return tok
}

func (f *fakeAPI) register(w http.ResponseWriter, r *http.Request) {
	var req struct{ Username, Email, Password string }
	_ = json.NewDecoder(r.Body).Decode(&req)

	if req.Username == "" || req.Email == "" || req.Password == "" {
		fakeError(w, http.StatusBadRequest, apicode.Validation, "Please provide all fields")
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.users[req.Username]; ok {
		fakeError(w, http.StatusBadRequest, apicode.Conflict, "User already exists")
		return
	}

	f.nextID++
	u := User{ID: fmt.Sprintf("user-%d", f.nextID), Username: req.Username, Email: req.Email}
	f.users[req.Username] = fakeUser{User: u, password: req.Password}

	writeFake(w, http.StatusCreated, AuthResult{Token: f.issue(u), User: u})
}

func (f *fakeAPI) login(w http.ResponseWriter, r *http.Request) {
	var req struct{ Username, Password string }
	_ = json.NewDecoder(r.Body).Decode(&req)

	f.mu.Lock()
	defer f.mu.Unlock()

	u, ok := f.users[req.Username]
	if !ok || u.password != req.Password {
		fakeError(w, http.StatusUnauthorized, apicode.Unauthorized, "Invalid credentials")
		return
	}

	writeFake(w, http.StatusOK, AuthResult{Token: f.issue(u.User), User: u.User})
}

// identify returns the caller's user id, or writes the error response.
func (f *fakeAPI) identify(w http.ResponseWriter, r *http.Request) (string, bool) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if token == "" {
		fakeError(w, http.StatusUnauthorized, apicode.Unauthorized, "Not authorized, no token")
		return "", false
	}

	id, ok := f.tokens[token]
	if !ok {
		fakeError(w, http.StatusForbidden, apicode.InvalidToken, "Not authorized, token failed")
		return "", false
	}

	return id, true
}

func (f *fakeAPI) me(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	id, ok := f.identify(w, r)
	if !ok {
		return
	}

	for _, u := range f.users {
		if u.ID == id {
			writeFake(w, http.StatusOK, u.User)
			return
		}
	}

	fakeError(w, http.StatusForbidden, apicode.InvalidToken, "Not authorized, token failed")
}

func (f *fakeAPI) explore(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch r.Method {
	case http.MethodGet:
		out := make([]Photo, 0, len(f.photos))
		for i := len(f.photos) - 1; i >= 0; i-- {
			out = append(out, f.photos[i])
		}
		writeFake(w, http.StatusOK, out)
	case http.MethodPost:
		owner, ok := f.identify(w, r)
		if !ok {
			return
		}

		var req struct{ Photo, Name, Description string }
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Photo == "" || req.Name == "" || req.Description == "" {
			fakeError(w, http.StatusBadRequest, apicode.Validation, "Please provide all fields")
			return
		}

		f.nextID++
		f.clock = f.clock.Add(time.Minute)
		p := Photo{
			ID:          fmt.Sprintf("photo-%d", f.nextID),
			Photo:       req.Photo,
			Name:        req.Name,
			Description: req.Description,
			Owner:       owner,
			CreatedAt:   f.clock,
			UpdatedAt:   f.clock,
		}
		f.photos = append(f.photos, p)
		writeFake(w, http.StatusCreated, p)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (f *fakeAPI) photo(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	caller, ok := f.identify(w, r)
	if !ok {
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/explore/")
	idx := -1
	for i, p := range f.photos {
		if p.ID == id {
			idx = i
		}
	}

	if idx < 0 {
		fakeError(w, http.StatusNotFound, apicode.NotFound, "Photo not found")
		return
	}

	if f.photos[idx].Owner != caller {
		fakeError(w, http.StatusUnauthorized, apicode.Forbidden, "User not authorized")
		return
	}

	switch r.Method {
	case http.MethodPut:
		var upd PhotoUpdate
		_ = json.NewDecoder(r.Body).Decode(&upd)
		if upd.Name != nil {
			f.photos[idx].Name = *upd.Name
		}
		if upd.Description != nil {
			f.photos[idx].Description = *upd.Description
		}
		writeFake(w, http.StatusOK, f.photos[idx])
	case http.MethodDelete:
		f.photos = append(f.photos[:idx], f.photos[idx+1:]...)
		writeFake(w, http.StatusOK, map[string]string{"message": "Photo removed"})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

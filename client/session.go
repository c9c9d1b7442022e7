package client

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/exp/slog"
)

type State int

const (
	Unauthenticated State = iota
	Authenticating
	Authenticated
	AuthError
)

func (s State) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case Authenticating:
		return "authenticating"
	case Authenticated:
		return "authenticated"
	case AuthError:
		return "auth_error"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Authenticator is the slice of AuthClient the session needs.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (AuthResult, error)
	Register(ctx context.Context, username, email, password string) (AuthResult, error)
	Me(ctx context.Context, token string) (User, error)
}

type Credentials struct {
	Username string
	Password string
}

type Registration struct {
	Username string
	Email    string
	Password string
}

// Snapshot is a copy of the session at one point in time. User is nil
// exactly when Token is empty.
type Snapshot struct {
	State        State
	Token        string
	User         *User
	ErrorMessage string
	Err          error
}

type SessionOption func(*Session)

func WithSessionLogger(log *slog.Logger) SessionOption {
	return func(s *Session) {
		if log != nil {
			s.log = log
		}
	}
}

// WithVerifyOnRestore makes RestoreSession confirm the stored token with the
// server before trusting it.
func WithVerifyOnRestore() SessionOption {
	return func(s *Session) {
		s.verifyOnRestore = true
	}
}

// Session owns the authentication state. It only changes through its
// methods; observers use Snapshot or Subscribe.
type Session struct {
	auth            Authenticator
	store           CredentialStore
	log             *slog.Logger
	verifyOnRestore bool

	// storeMu orders credential writes against Signout's delete.
	storeMu sync.Mutex

	mu        sync.Mutex
	gen       uint64
	state     State
	token     string
	user      *User
	errMsg    string
	lastErr   error
	inFlight  bool
	nextSubID int
	listeners map[int]func(Snapshot)
}

func NewSession(auth Authenticator, store CredentialStore, opts ...SessionOption) *Session {
	s := &Session{
		auth:      auth,
		store:     store,
		log:       slog.Default(),
		listeners: make(map[int]func(Snapshot)),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		State:        s.state,
		Token:        s.token,
		ErrorMessage: s.errMsg,
		Err:          s.lastErr,
	}
	if s.user != nil {
		u := *s.user
		snap.User = &u
	}

	return snap
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

// Token satisfies TokenSource.
func (s *Session) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.token
}

// Subscribe registers fn to be called with a fresh snapshot after every
// transition. The returned func removes it.
func (s *Session) Subscribe(fn func(Snapshot)) func() {
	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// transition applies mutate under the lock and then notifies listeners
// outside of it.
func (s *Session) transition(mutate func()) {
	s.transitionIf(func() bool {
		mutate()
		return true
	})
}

// transitionIf is transition for mutations that may decline. Listeners are
// only notified when mutate reports true.
func (s *Session) transitionIf(mutate func() bool) bool {
	notify, ok := s.apply(mutate)
	if ok {
		notify()
	}

	return ok
}

// apply runs mutate under the lock and returns the listener fan-out for the
// caller to run once it holds no locks.
func (s *Session) apply(mutate func() bool) (func(), bool) {
	s.mu.Lock()
	from := s.state
	if !mutate() {
		s.mu.Unlock()
		return nil, false
	}
	snap := s.snapshotLocked()
	listeners := make([]func(Snapshot), 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.mu.Unlock()

	return func() {
		if from != snap.State {
			s.log.Debug("Session transition", "from", from.String(), "to", snap.State.String())
		}

		for _, fn := range listeners {
			fn(snap)
		}
	}, true
}

func (s *Session) Signin(ctx context.Context, creds Credentials) error {
	return s.authenticate(ctx, func() (AuthResult, error) {
		return s.auth.Login(ctx, creds.Username, creds.Password)
	})
}

// Signup registers a new account. The server signs the new user in, so a
// successful call leaves the session Authenticated.
func (s *Session) Signup(ctx context.Context, reg Registration) error {
	return s.authenticate(ctx, func() (AuthResult, error) {
		return s.auth.Register(ctx, reg.Username, reg.Email, reg.Password)
	})
}

func (s *Session) authenticate(ctx context.Context, call func() (AuthResult, error)) error {
	s.mu.Lock()
	if s.inFlight {
		s.mu.Unlock()
		return ErrAuthInFlight
	}
	s.inFlight = true
	s.mu.Unlock()

	var (
		gen       uint64
		hadRecord bool
	)
	s.transition(func() {
		gen = s.gen
		hadRecord = s.token != ""
		s.state = Authenticating
		s.token = ""
		s.user = nil
	})

	// the dropped session must not come back on the next restore
	if hadRecord {
		if err := s.deleteRecord(ctx); err != nil {
			return s.fail(gen, fmt.Errorf("delete credentials: %w", err))
		}
	}

	res, err := call()
	if err == nil && res.Token == "" {
		err = &APIError{Kind: ErrServer, Message: "server returned no token"}
	}
	if err != nil {
		return s.fail(gen, err)
	}

	s.storeMu.Lock()
	if s.ended(gen) {
		s.storeMu.Unlock()
		return ErrSessionEnded
	}

	if err := s.store.Save(ctx, res.Token); err != nil {
		s.storeMu.Unlock()
		return s.fail(gen, fmt.Errorf("save credentials: %w", err))
	}

	user := res.User
	notify, ok := s.apply(func() bool {
		s.inFlight = false
		if s.gen != gen {
			return false
		}
		s.state = Authenticated
		s.token = res.Token
		s.user = &user
		s.errMsg = ""
		s.lastErr = nil
		return true
	})
	s.storeMu.Unlock()

	if !ok {
		// a Signout got in after the save; its delete ran behind storeMu
		return ErrSessionEnded
	}
	notify()

	return nil
}

// fail settles the attempt started at gen in AuthError, unless a Signout has
// ended it in the meantime.
func (s *Session) fail(gen uint64, err error) error {
	ok := s.transitionIf(func() bool {
		s.inFlight = false
		if s.gen != gen {
			return false
		}
		s.state = AuthError
		s.token = ""
		s.user = nil
		s.errMsg = UserMessage(err)
		s.lastErr = err
		return true
	})
	if !ok {
		return ErrSessionEnded
	}

	return err
}

// ended reports whether Signout ran after the attempt at gen started, and
// releases the in-flight guard if so.
func (s *Session) ended(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.gen == gen {
		return false
	}
	s.inFlight = false

	return true
}

func (s *Session) deleteRecord(ctx context.Context) error {
	s.storeMu.Lock()
	defer s.storeMu.Unlock()

	return s.store.Delete(ctx)
}

// Signout forgets the in-memory session and the stored record. It is safe
// to call when nothing is stored. A Signin or Signup still in flight is
// abandoned and returns ErrSessionEnded.
func (s *Session) Signout(ctx context.Context) error {
	s.transition(func() {
		s.gen++
		s.state = Unauthenticated
		s.token = ""
		s.user = nil
		s.errMsg = ""
		s.lastErr = nil
	})

	if err := s.deleteRecord(ctx); err != nil {
		return fmt.Errorf("delete credentials: %w", err)
	}

	return nil
}

func (s *Session) ClearError() {
	s.mu.Lock()
	noop := s.state != AuthError && s.errMsg == ""
	s.mu.Unlock()
	if noop {
		return
	}

	s.transition(func() {
		if s.state == AuthError {
			s.state = Unauthenticated
		}
		s.errMsg = ""
		s.lastErr = nil
	})
}

// RestoreSession reads the stored token and, if present, moves straight to
// Authenticated with the user rebuilt from the token claims. The signature is
// not checked here; WithVerifyOnRestore adds a round trip to the server.
func (s *Session) RestoreSession(ctx context.Context) error {
	s.mu.Lock()
	busy := s.inFlight || s.state == Authenticated
	s.mu.Unlock()
	if busy {
		return nil
	}

	token, err := s.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load credentials: %w", err)
	}

	if token == "" {
		return nil
	}

	user, err := userFromToken(token)
	if err != nil {
		s.log.Warn("Dropping unreadable stored token", "error", err)
		return s.store.Delete(ctx)
	}

	if s.verifyOnRestore {
		u, err := s.auth.Me(ctx, token)
		switch {
		case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrForbidden):
			s.log.Info("Stored token rejected by server", "error", err)
			return s.store.Delete(ctx)
		case err != nil:
			s.log.Warn("Could not verify stored token, keeping it", "error", err)
		default:
			user = u
		}
	}

	s.transition(func() {
		s.state = Authenticated
		s.token = token
		s.user = &user
		s.errMsg = ""
		s.lastErr = nil
	})

	return nil
}

type tokenClaims struct {
	jwt.RegisteredClaims
	Username string `json:"username"`
	Email    string `json:"email"`
}

func userFromToken(token string) (User, error) {
	var claims tokenClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return User{}, err
	}

	if claims.Subject == "" {
		return User{}, errors.New("token has no subject")
	}

	return User{ID: claims.Subject, Username: claims.Username, Email: claims.Email}, nil
}

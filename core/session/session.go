package session

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Session is a server-side session record.
// The browser only holds Token; everything else stays on the server.
type Session struct {
	// ID is stable for the lifetime of the record.
	ID uuid.UUID `json:"id"`

	// Token is the rotating secret carried by the session cookie (32 bytes base64url).
	Token string `json:"token"`

	// UserID is 0 for anonymous sessions.
	UserID int64 `json:"user_id"`

	// CSRFToken must be echoed by state-changing requests.
	CSRFToken string `json:"csrf_token"`

	// Remember selects the long lifetime instead of the idle timeout.
	Remember bool `json:"remember"`

	IP        string `json:"ip"`
	UserAgent string `json:"user_agent"`

	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	DeletedAt time.Time `json:"-"`

	isModified bool
	// loadedToken is the token the record had when read from or last written
	// to a store. Empty for a record that was never stored.
	loadedToken string
}

// NewSessionParams contains parameters for creating a new session.
type NewSessionParams struct {
	IP        string
	UserAgent string
}

// New creates an anonymous session with fresh token and CSRF token.
func New(params NewSessionParams, ttl time.Duration) (Session, error) {
	token, err := generateToken()
	if err != nil {
		return Session{}, errors.Join(ErrTokenGeneration, err)
	}
	csrf, err := generateToken()
	if err != nil {
		return Session{}, errors.Join(ErrTokenGeneration, err)
	}

	now := time.Now()
	return Session{
		ID:         uuid.New(),
		Token:      token,
		CSRFToken:  csrf,
		IP:         params.IP,
		UserAgent:  params.UserAgent,
		ExpiresAt:  now.Add(ttl),
		CreatedAt:  now,
		UpdatedAt:  now,
		isModified: true,
	}, nil
}

// Authenticate binds the session to userID.
// Both tokens rotate so a token planted before login is worthless afterwards.
func (s *Session) Authenticate(userID int64, remember bool, ttl time.Duration) error {
	if userID <= 0 {
		return ErrInvalidUser
	}
	if err := s.rotateTokens(); err != nil {
		return err
	}
	now := time.Now()
	s.UserID = userID
	s.Remember = remember
	s.ExpiresAt = now.Add(ttl)
	s.UpdatedAt = now
	return nil
}

// Refresh rotates the session token without changing authentication state or session ID.
func (s *Session) Refresh() error {
	token, err := generateToken()
	if err != nil {
		return errors.Join(ErrTokenGeneration, err)
	}
	s.Token = token
	s.UpdatedAt = time.Now()
	s.isModified = true
	return nil
}

// Logout marks the session for deletion.
func (s *Session) Logout() {
	s.DeletedAt = time.Now()
	s.isModified = true
}

// Touch extends the expiration if touchInterval has elapsed since the last update.
func (s *Session) Touch(ttl, touchInterval time.Duration) {
	if time.Since(s.UpdatedAt) >= touchInterval {
		now := time.Now()
		s.ExpiresAt = now.Add(ttl)
		s.UpdatedAt = now
		s.isModified = true
	}
}

// IsAuthenticated reports whether a user is bound to the session.
func (s Session) IsAuthenticated() bool {
	return s.UserID > 0 && s.Token != ""
}

// IsDeleted reports whether the session is marked for deletion.
func (s Session) IsDeleted() bool {
	return !s.DeletedAt.IsZero()
}

// IsModified reports whether the session needs saving.
func (s Session) IsModified() bool {
	return s.isModified
}

// IsStored reports whether the session was read from or written to a store.
func (s Session) IsStored() bool {
	return s.loadedToken != ""
}

// IsExpired reports whether the session has expired.
func (s Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// stored records that the store now holds the session under its current token.
func (s *Session) stored() {
	s.loadedToken = s.Token
}

func (s *Session) rotateTokens() error {
	token, err := generateToken()
	if err != nil {
		return errors.Join(ErrTokenGeneration, err)
	}
	csrf, err := generateToken()
	if err != nil {
		return errors.Join(ErrTokenGeneration, err)
	}
	s.Token = token
	s.CSRFToken = csrf
	s.isModified = true
	return nil
}

// generateToken returns 32 random bytes encoded as unpadded base64url.
func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

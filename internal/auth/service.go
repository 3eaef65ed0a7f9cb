package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/ovenfresh/bakeshop/internal/hash"
	"github.com/ovenfresh/bakeshop/internal/models"
)

// Publisher is the domain-event sink, satisfied by events.Producer.
type Publisher interface {
	PublishEvent(ctx context.Context, topic, key string, event interface{}) error
}

// Auth-change events delivered to subscribers, mirroring the wire events of a
// hosted auth provider. INITIAL_SESSION replays whatever session exists at
// subscribe time, so a late subscriber still observes the cached identity.
const (
	EventInitialSession = "INITIAL_SESSION"
	EventSignedIn       = "SIGNED_IN"
	EventSignedOut      = "SIGNED_OUT"
	EventTokenRefreshed = "TOKEN_REFRESHED"
)

var (
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid username or password")
)

type Session struct {
	UserID   uint
	Username string
}

type Notification struct {
	Event   string
	Session *Session
}

type TokenPair struct {
	Access     string
	Refresh    string
	AccessExp  time.Time
	RefreshExp time.Time
}

// Service is the authentication collaborator: credential checks, token
// issuance with refresh rotation, and the auth-change subscription that
// session stores consume. State clearing on sign-out happens only through the
// emitted notification, never by callers mutating their own copy.
type Service struct {
	DB            *gorm.DB
	JWTSecret     []byte
	RefreshSecret []byte
	Producer      Publisher
	Log           *slog.Logger

	mu      sync.Mutex
	current *Session
	subs    map[int]func(Notification)
	nextSub int
}

func NewService(db *gorm.DB, jwtSecret, refreshSecret []byte, prod Publisher, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		DB:            db,
		JWTSecret:     jwtSecret,
		RefreshSecret: refreshSecret,
		Producer:      prod,
		Log:           log,
		subs:          make(map[int]func(Notification)),
	}
}

// OnAuthChange registers fn and synchronously replays the current session as
// INITIAL_SESSION before returning. The returned func unsubscribes.
func (s *Service) OnAuthChange(fn func(Notification)) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	current := s.current
	s.mu.Unlock()

	fn(Notification{Event: EventInitialSession, Session: current})

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *Service) emit(event string, session *Session) {
	s.mu.Lock()
	s.current = session
	fns := make([]func(Notification), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(Notification{Event: event, Session: session})
	}
}

func (s *Service) Register(ctx context.Context, username, password string) (*models.User, error) {
	pwHash, err := hash.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("cannot hash the password: %w", err)
	}

	var check models.User
	if err := s.DB.WithContext(ctx).Where("username = ?", username).First(&check).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("db error: %w", err)
		}
	} else {
		return nil, ErrUserExists
	}

	user := models.User{
		Username:     username,
		PasswordHash: pwHash,
		Role:         "user",
	}
	if err := s.DB.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	s.publish(ctx, user.ID, map[string]any{
		"type":     "user_registered",
		"userID":   user.ID,
		"username": user.Username,
	})

	return &user, nil
}

func (s *Service) Login(ctx context.Context, username, password string) (*models.User, *TokenPair, error) {
	var user models.User
	if err := s.DB.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, nil, ErrInvalidCredentials
	}
	if !hash.CheckPassword(user.PasswordHash, password) {
		return nil, nil, ErrInvalidCredentials
	}

	pair, err := s.issueTokens(&user)
	if err != nil {
		return nil, nil, err
	}

	s.publish(ctx, user.ID, map[string]any{
		"type":     "user_logged_in",
		"userID":   user.ID,
		"username": user.Username,
	})

	s.emit(EventSignedIn, &Session{UserID: user.ID, Username: user.Username})

	return &user, pair, nil
}

// Logout revokes the refresh token and emits SIGNED_OUT. A missing or unknown
// token still results in a sign-out notification: the caller's session is
// gone either way.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	// The event is attributed to the token's owner, not to whichever session
	// this process emitted last: concurrent HTTP sessions share one service.
	var userID uint
	if refreshToken != "" {
		var stored models.RefreshToken
		if err := s.DB.WithContext(ctx).
			First(&stored, "token = ?", sha256Hex(refreshToken)).Error; err != nil {
			s.Log.Error("logout_failed", "reason", "cannot load refresh token", "error", err)
		} else {
			userID = stored.UserID
			if err := s.DB.WithContext(ctx).Model(&models.RefreshToken{}).
				Where("id = ?", stored.ID).
				Update("revoked", true).Error; err != nil {
				s.Log.Error("logout_failed", "reason", "cannot revoke refresh token", "error", err)
			}
		}
	}

	s.publish(ctx, userID, map[string]any{
		"type":   "user_logged_out",
		"userID": userID,
	})

	s.emit(EventSignedOut, nil)
	return nil
}

// Rotate exchanges a valid refresh token for a fresh pair, revoking the old
// one, and emits TOKEN_REFRESHED with the same identity.
func (s *Service) Rotate(ctx context.Context, refreshToken string) (*TokenPair, string, error) {
	claims, err := ValidateRefresh(refreshToken, s.RefreshSecret, s.DB.WithContext(ctx))
	if err != nil {
		return nil, "", err
	}

	userID := uint(claims["sub"].(float64))
	role, _ := claims["role"].(string)

	var user models.User
	if err := s.DB.WithContext(ctx).First(&user, userID).Error; err != nil {
		return nil, "", fmt.Errorf("db error: %w", err)
	}

	pair, err := s.issueTokens(&user)
	if err != nil {
		return nil, "", err
	}

	if err := s.DB.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("token = ?", sha256Hex(refreshToken)).
		Update("revoked", true).Error; err != nil {
		s.Log.Error("rotate", "reason", "cannot revoke old refresh token", "error", err)
	}

	s.emit(EventTokenRefreshed, &Session{UserID: user.ID, Username: user.Username})

	return pair, role, nil
}

func (s *Service) issueTokens(user *models.User) (*TokenPair, error) {
	access, err := SignAccessToken(user.ID, user.Role, s.JWTSecret)
	if err != nil {
		return nil, fmt.Errorf("cannot create access token: %w", err)
	}

	refresh, jti, err := SignRefreshToken(user.ID, user.Role, s.RefreshSecret)
	if err != nil {
		return nil, fmt.Errorf("cannot create refresh token: %w", err)
	}
	if err := SaveRefreshToken(s.DB, refresh, user.ID, user.Role, jti); err != nil {
		return nil, err
	}

	now := time.Now()
	return &TokenPair{
		Access:     access,
		Refresh:    refresh,
		AccessExp:  now.Add(AccessTokenTTL),
		RefreshExp: now.Add(RefreshTokenTTL),
	}, nil
}

func (s *Service) publish(ctx context.Context, userID uint, event map[string]any) {
	if s.Producer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.Producer.PublishEvent(ctx, "user_events", fmt.Sprint(userID), event); err != nil {
		s.Log.Error("kafka publish error", "error", err)
	}
}

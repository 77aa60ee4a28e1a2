package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/mcoot/duelgame/internal/dependencies/clock"
	"github.com/mcoot/duelgame/internal/model"
	"github.com/mcoot/duelgame/internal/storage"
)

// Errors
var (
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrMissingKey   = errors.New("auth secret is not configured")
)

// Presence is told when a player logs in or out
type Presence interface {
	SetOnline(ctx context.Context, playerID model.PlayerID, online bool)
}

// Claims are carried in every issued token. Subject is the player id.
type Claims struct {
	DisplayName string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// Session represents an authenticated login
type Session struct {
	Token     string
	Player    model.Player
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Identity is what a validated token says about its bearer
type Identity struct {
	PlayerID    model.PlayerID
	DisplayName string
	TokenID     string
	ExpiresAt   time.Time
}

// Config holds configuration for the auth service
type Config struct {
	Secret   string
	Issuer   string
	TokenTTL time.Duration
}

// DefaultConfig returns default auth configuration
func DefaultConfig() Config {
	return Config{
		Issuer:   "duelgame",
		TokenTTL: 24 * time.Hour,
	}
}

// Service issues and validates HS256 tokens and flips presence on login and logout.
// Password checks happen upstream; Login trusts the identity it is given.
type Service struct {
	storage  storage.Storage
	presence Presence
	clock    clock.Clock
	cfg      Config
	logger   *slog.Logger
}

// New creates a new auth Service
func New(storage storage.Storage, presence Presence, clock clock.Clock, cfg Config, logger *slog.Logger) (*Service, error) {
	if cfg.Secret == "" {
		return nil, ErrMissingKey
	}
	if cfg.TokenTTL == 0 {
		cfg.TokenTTL = DefaultConfig().TokenTTL
	}
	if cfg.Issuer == "" {
		cfg.Issuer = DefaultConfig().Issuer
	}
	return &Service{
		storage:  storage,
		presence: presence,
		clock:    clock,
		cfg:      cfg,
		logger:   logger.With(slog.String("component", "auth")),
	}, nil
}

// Login loads or creates the player, issues a token and marks the player online
func (s *Service) Login(ctx context.Context, playerID model.PlayerID, displayName string) (*Session, error) {
	if !playerID.Valid() {
		return nil, model.ErrInvalidIdentity
	}

	player, err := s.storage.GetPlayer(ctx, playerID)
	switch {
	case errors.Is(err, model.ErrPlayerNotFound):
		if displayName == "" {
			displayName = string(playerID)
		}
		player = &model.Player{
			ID:          playerID,
			DisplayName: displayName,
			CreatedAt:   s.clock.Now(),
		}
		if err := s.storage.SavePlayer(ctx, player); err != nil {
			return nil, fmt.Errorf("save player: %w", err)
		}
		s.logger.Info("player registered", slog.String("player_id", string(playerID)))
	case err != nil:
		return nil, err
	case displayName != "" && displayName != player.DisplayName:
		player.DisplayName = displayName
		if err := s.storage.SavePlayer(ctx, player); err != nil {
			return nil, fmt.Errorf("save player: %w", err)
		}
	}

	session, err := s.issue(player)
	if err != nil {
		return nil, err
	}

	s.presence.SetOnline(ctx, playerID, true)
	s.logger.Info("player logged in", slog.String("player_id", string(playerID)))
	return session, nil
}

// Logout revokes the token and marks the player offline. Revocations are
// kept in storage so every server instance rejects the token.
func (s *Service) Logout(ctx context.Context, identity *Identity) error {
	if err := s.storage.RevokeToken(ctx, identity.TokenID, identity.ExpiresAt); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}

	s.presence.SetOnline(ctx, identity.PlayerID, false)
	s.logger.Info("player logged out", slog.String("player_id", string(identity.PlayerID)))
	return nil
}

// ValidateToken checks signature, issuer, expiry and revocation
func (s *Service) ValidateToken(ctx context.Context, tokenString string) (*Identity, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		return []byte(s.cfg.Secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.cfg.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.clock.Now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	revoked, err := s.storage.IsTokenRevoked(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		return nil, ErrInvalidToken
	}

	playerID := model.PlayerID(claims.Subject)
	if !playerID.Valid() {
		return nil, ErrInvalidToken
	}

	return &Identity{
		PlayerID:    playerID,
		DisplayName: claims.DisplayName,
		TokenID:     claims.ID,
		ExpiresAt:   claims.ExpiresAt.Time,
	}, nil
}

// CleanRevokedTokens forgets revocations whose tokens have expired (call periodically)
func (s *Service) CleanRevokedTokens(ctx context.Context) {
	purged, err := s.storage.PurgeRevokedTokens(ctx, s.clock.Now())
	if err != nil {
		s.logger.Warn("failed to purge revoked tokens", slog.String("error", err.Error()))
		return
	}
	if purged > 0 {
		s.logger.Debug("purged revoked tokens", slog.Int("count", purged))
	}
}

func (s *Service) issue(player *model.Player) (*Session, error) {
	now := s.clock.Now()
	expiresAt := now.Add(s.cfg.TokenTTL)

	claims := Claims{
		DisplayName: player.DisplayName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   string(player.ID),
			Issuer:    s.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	return &Session{
		Token:     token,
		Player:    *player,
		IssuedAt:  now,
		ExpiresAt: expiresAt,
	}, nil
}

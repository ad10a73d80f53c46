package main

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"marketplace-server/config"
	"marketplace-server/models"
	"marketplace-server/repository"
	"marketplace-server/services"
	"marketplace-server/utils"
)

const (
	modeHTTP  = "http"
	modeLocal = "local"
)

// options are the persistent flags. Empty values fall back to configuration.
type options struct {
	mode     string
	baseURL  string
	token    string
	locale   string
	dataFile string
	role     string
	userID   uint
	timeout  time.Duration
	showList bool
}

// backend is what both repositories offer
type backend interface {
	repository.RequestRepository
	repository.ReviewRepository
}

// session is one invocation's view of the marketplace
type session struct {
	locale    string
	role      models.Role
	userID    uint
	repo      backend
	lifecycle *services.LifecycleService
	reviews   *services.ReviewGate

	store    *repository.MemoryStore
	dataFile string
	redis    *redis.Client
}

func pick(flag, fallback string) string {
	if flag != "" {
		return flag
	}
	return fallback
}

// openSession resolves flags against configuration and builds the repository
func openSession(ctx context.Context, opts *options, cfg *config.Config) (*session, error) {
	cc := cfg.Client
	role, err := models.ParseRole(pick(opts.role, cc.Role))
	if err != nil {
		return nil, err
	}
	userID := opts.userID
	if userID == 0 {
		userID = cc.UserID
	}
	timeout := opts.timeout
	if timeout == 0 {
		timeout = cc.Timeout
	}

	s := &session{
		locale: services.NormalizeLocale(pick(opts.locale, cc.Locale)),
		role:   role,
		userID: userID,
	}

	switch mode := pick(opts.mode, cc.Mode); mode {
	case modeHTTP:
		s.repo = repository.NewHTTPRepository(repository.HTTPConfig{
			BaseURL: pick(opts.baseURL, cc.BaseURL),
			Token:   pick(opts.token, cc.Token),
			Locale:  s.locale,
			Timeout: timeout,
		})
	case modeLocal:
		s.dataFile = pick(opts.dataFile, cc.DataFile)
		s.store = repository.NewMemoryStore()
		if err := s.store.LoadFile(s.dataFile); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", s.dataFile, err)
		}
		s.repo = repository.NewLocalRepository(s.store, userID)
	default:
		return nil, fmt.Errorf("unknown client mode %q (want %s or %s)", mode, modeHTTP, modeLocal)
	}

	var reviewed services.ReviewedSet
	if cfg.Redis.Addr != "" && role == models.RoleCustomer && userID != 0 {
		s.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		reviewed = services.NewRedisReviewedSet(s.redis, userID)
	}

	s.lifecycle = services.NewLifecycleService(s.repo)
	s.reviews = services.NewReviewGate(s.repo, reviewed)
	return s, nil
}

// Close persists local changes and releases connections
func (s *session) Close() error {
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			utils.GetLogger().Warn("Closing redis failed", zap.Error(err))
		}
	}
	if s.store != nil && s.store.Dirty() {
		return s.store.SaveFile(s.dataFile)
	}
	return nil
}

// fetch loads the current copy of a request before acting on it
func (s *session) fetch(ctx context.Context, id uint) (*models.ServiceRequest, error) {
	return s.repo.Get(ctx, id)
}

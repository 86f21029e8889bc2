package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"topup-gateway/internal/logger"
	"topup-gateway/internal/models"
	"topup-gateway/internal/storage"
	"topup-gateway/internal/utils"
)

const generatedSecretBytes = 32

type SecretCache interface {
	GetSecret(ctx context.Context, slug string) (string, bool, error)
	SetSecret(ctx context.Context, slug, secret string, ttl time.Duration) error
	FillSecret(ctx context.Context, slug, secret string, ttl time.Duration) (bool, error)
	InvalidateSecret(ctx context.Context, slug string) error
}

// GatewayService reads and updates payment gateway credentials.
type GatewayService struct {
	store storage.Store
	cache SecretCache
	ttl   time.Duration
	log   *logger.Logger
}

// NewGatewayService builds the service; cache may be nil to always read the store.
func NewGatewayService(store storage.Store, cache SecretCache, ttl time.Duration, log *logger.Logger) *GatewayService {
	return &GatewayService{
		store: store,
		cache: cache,
		ttl:   ttl,
		log:   log,
	}
}

// WebhookSecret returns the configured webhook secret for slug, or "" when none is set.
func (s *GatewayService) WebhookSecret(ctx context.Context, slug string) (string, error) {
	if s.cache != nil {
		secret, found, err := s.cache.GetSecret(ctx, slug)
		switch {
		case err != nil:
			s.log.Warn("REDIS", fmt.Sprintf("Secret cache read failed for %s, falling back to store: %v", slug, err))
		case found:
			return secret, nil
		}
	}

	gw, err := s.store.GetGateway(ctx, slug)
	if errors.Is(err, storage.ErrGatewayNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load gateway %s: %w", slug, err)
	}

	secret := gw.Settings.WebhookSecret
	if secret != "" && s.cache != nil && s.ttl > 0 {
		if _, err := s.cache.FillSecret(ctx, slug, secret, s.ttl); err != nil {
			s.log.Warn("REDIS", fmt.Sprintf("Failed to cache secret for %s: %v", slug, err))
		}
	}
	return secret, nil
}

// UpdateWebhookSecret stores a new secret and overwrites any cached copy.
func (s *GatewayService) UpdateWebhookSecret(ctx context.Context, slug, secret string) error {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return ErrInvalidSecret
	}

	gw, err := s.store.GetGateway(ctx, slug)
	if errors.Is(err, storage.ErrGatewayNotFound) {
		gw = &models.PaymentGateway{Slug: slug, Name: slug, IsActive: true}
	} else if err != nil {
		return fmt.Errorf("load gateway %s: %w", slug, err)
	}

	gw.Settings.WebhookSecret = secret
	gw.UpdatedAt = time.Now().UTC()
	if err := s.store.SaveGateway(ctx, gw); err != nil {
		return fmt.Errorf("save gateway %s: %w", slug, err)
	}

	s.refreshCache(ctx, slug, secret)

	s.log.LogSecurity("SECRET_ROTATED", fmt.Sprintf("Webhook secret updated for gateway %s", slug))
	return nil
}

// refreshCache writes the new secret over the cached one. Concurrent readers only
// fill an empty key, so an old secret they loaded cannot replace it.
func (s *GatewayService) refreshCache(ctx context.Context, slug, secret string) {
	if s.cache == nil {
		return
	}
	if s.ttl > 0 {
		err := s.cache.SetSecret(ctx, slug, secret, s.ttl)
		if err == nil {
			return
		}
		s.log.Warn("REDIS", fmt.Sprintf("Failed to cache new secret for %s, invalidating: %v", slug, err))
	}
	if err := s.cache.InvalidateSecret(ctx, slug); err != nil {
		s.log.Warn("REDIS", fmt.Sprintf("Failed to invalidate cached secret for %s: %v", slug, err))
	}
}

// RotateWebhookSecret replaces the secret with a random one and returns it.
// The caller must hand it to the provider; it is not retrievable afterwards.
func (s *GatewayService) RotateWebhookSecret(ctx context.Context, slug string) (string, error) {
	secret, err := utils.GenerateSecret(generatedSecretBytes)
	if err != nil {
		return "", fmt.Errorf("generate secret: %w", err)
	}
	if err := s.UpdateWebhookSecret(ctx, slug, secret); err != nil {
		return "", err
	}
	return secret, nil
}

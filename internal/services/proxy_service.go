// Package services – ProxyService
//
// This file implements the upstream chat proxy: endpoint configuration with
// pre-flight liveness validation, and the streaming relay. Validation is a
// gate, not a cache; every relay re-resolves and re-uses the stored endpoint,
// and the dedicated check operation consists of nothing but the probe.
package services

import (
	"context"
	"net/url"
	"strings"

	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/vrmchat/go-chat-backend/internal/ollama"
	"github.com/vrmchat/go-chat-backend/internal/repo"
	"github.com/vrmchat/go-chat-backend/internal/sysutil"
)

// ProxyService relays chat completions to a user-configured Ollama endpoint
// and manages that configuration.
type ProxyService struct {
	DB     *gorm.DB
	Client *ollama.Client

	// DefaultEndpoint is used when a user has not configured their own.
	DefaultEndpoint string
}

// endpointFor resolves the upstream base URL for userID: the user's stored
// endpoint when present, the configured default otherwise.
func (s *ProxyService) endpointFor(ctx context.Context, userID int64) (string, error) {
	u, err := repo.GetUserByID(ctx, s.DB, userID)
	if err != nil {
		return "", err
	}
	var stored string
	if u.UpstreamEndpoint != nil {
		stored = *u.UpstreamEndpoint
	}
	return sysutil.FirstNonEmpty(stored, s.DefaultEndpoint), nil
}

// normalizeEndpoint validates raw as an absolute http(s) URL and strips any
// trailing slash. Returns ErrInvalidEndpointURL on anything else.
func normalizeEndpoint(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrInvalidEndpointURL
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" {
		return "", ErrInvalidEndpointURL
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", ErrInvalidEndpointURL
	}
	return strings.TrimRight(raw, "/"), nil
}

// UpdateEndpoint validates the URL format, probes the endpoint for liveness,
// and persists it on the user record. Format errors and unreachable endpoints
// are reported separately so the handler can map them to different statuses.
func (s *ProxyService) UpdateEndpoint(ctx context.Context, userID int64, raw string) error {
	tr := otel.Tracer("services/ProxyService")
	ctx, span := tr.Start(ctx, "UpdateEndpoint",
		trace.WithAttributes(attribute.Int64("user.id", userID)),
	)
	defer span.End()

	endpoint, err := normalizeEndpoint(raw)
	if err != nil {
		return err
	}
	if err := s.Client.Check(ctx, endpoint); err != nil {
		return ErrEndpointUnreachable
	}
	return repo.UpdateUpstreamEndpoint(ctx, s.DB, userID, endpoint)
}

// CheckEndpoint probes the user's effective endpoint. The probe IS the whole
// operation; nothing is cached or persisted.
func (s *ProxyService) CheckEndpoint(ctx context.Context, userID int64) error {
	tr := otel.Tracer("services/ProxyService")
	ctx, span := tr.Start(ctx, "CheckEndpoint",
		trace.WithAttributes(attribute.Int64("user.id", userID)),
	)
	defer span.End()

	endpoint, err := s.endpointFor(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.Client.Check(ctx, endpoint); err != nil {
		return ErrEndpointUnreachable
	}
	return nil
}

// Relay opens a streaming chat completion for userID against their effective
// endpoint after a pre-flight probe. The returned stream is bound to ctx; the
// caller must Close it, and cancelling ctx (client disconnect) tears down the
// upstream connection.
func (s *ProxyService) Relay(ctx context.Context, userID int64, model string, turns []ollama.Turn) (*ollama.Stream, error) {
	tr := otel.Tracer("services/ProxyService")
	ctx, span := tr.Start(ctx, "Relay",
		trace.WithAttributes(
			attribute.Int64("user.id", userID),
			attribute.String("chat.model", model),
		),
	)
	defer span.End()

	endpoint, err := s.endpointFor(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.Client.Check(ctx, endpoint); err != nil {
		return nil, ErrEndpointUnreachable
	}
	return s.Client.Chat(ctx, endpoint, model, turns)
}

// Package services – HistoryService
//
// This file implements the bounded conversation history. History behaves as a
// FIFO deque of turn-pairs: once a user's stored message count reaches the
// capacity threshold, the oldest complete (user, ai) pair is evicted before
// the new message is inserted. Evicting a lone half-pair would corrupt
// conversational context, so eviction always removes one full pair.
//
// Eviction check, pair delete, and insert run in a single transaction.
// Two concurrent appends for the same user can still both observe a
// pre-eviction count; the window is bounded by the storage engine's
// transaction isolation and is an accepted race for this workload.
//
// Observability: public methods are OpenTelemetry-instrumented; spans carry
// the owning user id.
package services

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/vrmchat/go-chat-backend/internal/domain"
	"github.com/vrmchat/go-chat-backend/internal/repo"
)

// DefaultHistoryCapacity is the number of retained messages per user when no
// explicit capacity is configured.
const DefaultHistoryCapacity = 200

// HistoryService owns the per-user message log and its eviction policy.
type HistoryService struct {
	DB *gorm.DB

	// Capacity is the retained-message bound; values <= 0 fall back to
	// DefaultHistoryCapacity.
	Capacity int
}

func (s *HistoryService) capacity() int {
	if s.Capacity > 0 {
		return s.Capacity
	}
	return DefaultHistoryCapacity
}

// Append stores one message for userID, evicting the oldest complete
// (user, ai) pair first when the existing count exceeds capacity. The
// eviction and insert commit together or not at all.
func (s *HistoryService) Append(ctx context.Context, userID int64, sender, content string) (*domain.Message, error) {
	tr := otel.Tracer("services/HistoryService")
	ctx, span := tr.Start(ctx, "Append",
		trace.WithAttributes(
			attribute.Int64("user.id", userID),
			attribute.String("message.sender", sender),
		),
	)
	defer span.End()

	if !domain.ValidSender(sender) {
		return nil, ErrInvalidSender
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyContent
	}

	var stored *domain.Message
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		count, err := repo.CountMessages(ctx, tx, userID)
		if err != nil {
			return err
		}
		// The threshold fires once the existing count has passed capacity by
		// one; after the pair delete plus this insert the user is back at
		// exactly the capacity bound.
		if count >= int64(s.capacity())+1 {
			userMsg, aiMsg, err := repo.OldestPair(ctx, tx, userID)
			if err != nil {
				return err
			}
			if userMsg != nil && aiMsg != nil {
				if err := repo.DeleteMessages(ctx, tx, userID, userMsg.ID, aiMsg.ID); err != nil {
					return err
				}
			}
		}

		m, err := repo.CreateMessage(ctx, tx, userID, sender, content)
		if err != nil {
			return err
		}
		stored = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stored, nil
}

// List returns the user's full history oldest-first; an empty slice when the
// user has no messages. A limit <= 0 returns everything.
func (s *HistoryService) List(ctx context.Context, userID int64, limit int) ([]domain.Message, error) {
	tr := otel.Tracer("services/HistoryService")
	ctx, span := tr.Start(ctx, "List",
		trace.WithAttributes(attribute.Int64("user.id", userID)),
	)
	defer span.End()

	msgs, err := repo.ListMessages(ctx, s.DB, userID, limit)
	if err != nil {
		return nil, err
	}
	if msgs == nil {
		msgs = []domain.Message{}
	}
	return msgs, nil
}

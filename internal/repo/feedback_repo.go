// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Feedback
// model.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vrmchat/go-chat-backend/internal/domain"
)

// CreateFeedback inserts a rating row for a message. Returns ErrDuplicate
// when the user already rated this message.
func CreateFeedback(ctx context.Context, db *gorm.DB, userID, messageID int64, value int) error {
	fb := &domain.Feedback{
		ID:        uuid.NewString(),
		MessageID: messageID,
		UserID:    userID,
		Value:     value,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(fb).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

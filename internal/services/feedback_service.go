// Package services – FeedbackService
//
// Users can rate the ai replies in their own history with +1/-1. One rating
// per (user, message); ratings on user-authored messages or on messages owned
// by someone else are rejected.
package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/vrmchat/go-chat-backend/internal/domain"
	"github.com/vrmchat/go-chat-backend/internal/repo"
)

// FeedbackService records ratings on ai messages.
type FeedbackService struct {
	DB *gorm.DB
}

// Leave submits a feedback value for messageID by userID.
func (s *FeedbackService) Leave(ctx context.Context, userID, messageID int64, value int) error {
	if value != -1 && value != 1 {
		return ErrInvalidFeedback
	}

	m, err := repo.GetMessage(ctx, s.DB, messageID)
	if errors.Is(err, repo.ErrNotFound) {
		return ErrMessageNotFound
	}
	if err != nil {
		return err
	}
	if m.UserID != userID || m.Sender != domain.SenderAI {
		return ErrForbiddenFeedback
	}

	err = repo.CreateFeedback(ctx, s.DB, userID, messageID, value)
	if errors.Is(err, repo.ErrDuplicate) {
		return ErrDuplicateFeedback
	}
	return err
}

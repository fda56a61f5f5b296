// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Message
// model, including the oldest-pair scan used by history eviction.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/vrmchat/go-chat-backend/internal/domain"
)

// CreateMessage inserts a new message row for userID.
func CreateMessage(ctx context.Context, db *gorm.DB, userID int64, sender, content string) (*domain.Message, error) {
	m := &domain.Message{
		UserID:    userID,
		Sender:    sender,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(m).Error; err != nil {
		return nil, err
	}
	return m, nil
}

// ListMessages returns the user's messages ordered deterministically,
// oldest first (CreatedAt ASC, ID ASC). A limit <= 0 returns all rows.
func ListMessages(ctx context.Context, db *gorm.DB, userID int64, limit int) ([]domain.Message, error) {
	var out []domain.Message
	q := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC, id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&out).Error
	return out, err
}

// CountMessages uses a raw COUNT so a missing table surfaces as an error.
func CountMessages(ctx context.Context, db *gorm.DB, userID int64) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Raw("SELECT COUNT(*) FROM messages WHERE user_id = ?", userID).
		Scan(&total).Error
	return total, err
}

// OldestPair scans the user's history oldest-first for the first sender=user
// message and the first sender=ai message that follows it. The two need not be
// adjacent in storage; an ai reply can be separated from its prompt by other
// user messages. Returns (nil, nil, nil) when no complete pair exists.
func OldestPair(ctx context.Context, db *gorm.DB, userID int64) (userMsg, aiMsg *domain.Message, err error) {
	msgs, err := ListMessages(ctx, db, userID, 0)
	if err != nil {
		return nil, nil, err
	}
	for i := range msgs {
		m := &msgs[i]
		switch {
		case m.Sender == domain.SenderUser && userMsg == nil:
			userMsg = m
		case m.Sender == domain.SenderAI && userMsg != nil && aiMsg == nil:
			aiMsg = m
		}
		if aiMsg != nil {
			break
		}
	}
	if userMsg == nil || aiMsg == nil {
		return nil, nil, nil
	}
	return userMsg, aiMsg, nil
}

// DeleteMessages removes the given message rows by id, scoped to userID.
func DeleteMessages(ctx context.Context, db *gorm.DB, userID int64, ids ...int64) error {
	if len(ids) == 0 {
		return nil
	}
	return db.WithContext(ctx).
		Where("user_id = ? AND id IN ?", userID, ids).
		Delete(&domain.Message{}).Error
}

// GetMessage fetches a message by ID, or ErrNotFound.
func GetMessage(ctx context.Context, db *gorm.DB, id int64) (*domain.Message, error) {
	var m domain.Message
	if err := db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

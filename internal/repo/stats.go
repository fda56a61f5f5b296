// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate queries used for
// conditional responses (ETag generation) on the history endpoint.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/vrmchat/go-chat-backend/internal/domain"
)

// MessagesStats returns aggregate metadata for a user's history: the total
// number of rows and the maximum CreatedAt among them. When the user has no
// messages, count is 0 and maxCreatedAt is nil.
func MessagesStats(ctx context.Context, db *gorm.DB, userID int64) (count int64, maxCreatedAt *time.Time, err error) {
	q := db.WithContext(ctx).Model(&domain.Message{}).Where("user_id = ?", userID)

	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Get latest created_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		CreatedAt time.Time
	}
	if err = q.Select("created_at").Order("created_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.CreatedAt, nil
}

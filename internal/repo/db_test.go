package repo

import (
	"context"
	"fmt"
	"testing"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/vrmchat/go-chat-backend/internal/domain"
)

// newTestDB opens a fresh in-memory database with all tables migrated.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:repo_%s?mode=memory&cache=shared", uuid.NewString())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.Exec("PRAGMA foreign_keys=ON;")
	if err := db.AutoMigrate(&domain.User{}, &domain.Message{}, &domain.Feedback{}, &domain.Idempotency{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

// mustCreateUser registers a throwaway user and returns its id.
func mustCreateUser(t *testing.T, db *gorm.DB, username string) int64 {
	t.Helper()
	u, err := CreateUser(context.Background(), db, username, "hash")
	if err != nil {
		t.Fatalf("create user %q: %v", username, err)
	}
	return u.ID
}

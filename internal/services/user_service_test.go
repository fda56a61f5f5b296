package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/vrmchat/go-chat-backend/internal/auth"
	"github.com/vrmchat/go-chat-backend/internal/domain"
)

// ---------- test helpers ----------

func newSvcDB(t *testing.T, migrate ...any) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", uuid.NewString())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.Exec("PRAGMA foreign_keys=ON;")
	if len(migrate) > 0 {
		if err := db.AutoMigrate(migrate...); err != nil {
			t.Fatalf("automigrate: %v", err)
		}
	}
	return db
}

func newTokenManager() *auth.Manager {
	return auth.NewManager([]byte("svc-test-secret"), 15*time.Minute, 7*24*time.Hour)
}

// ---------- Signup() / Login() ----------

func TestUserService_SignupThenLogin(t *testing.T) {
	db := newSvcDB(t, &domain.User{})
	mgr := newTokenManager()
	s := &UserService{DB: db, Tokens: mgr}
	ctx := context.Background()

	u, err := s.Signup(ctx, "alice", "pw123")
	if err != nil {
		t.Fatalf("Signup: %v", err)
	}
	if u.PasswordHash == "pw123" {
		t.Fatal("password stored in clear text")
	}

	got, pair, err := s.Login(ctx, "alice", "pw123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if got.ID != u.ID {
		t.Fatalf("logged-in user mismatch: %d vs %d", got.ID, u.ID)
	}

	// The access token's subject must decode back to the created user's id.
	uid, err := mgr.Parse(pair.Access, auth.TypeAccess)
	if err != nil {
		t.Fatalf("parse access: %v", err)
	}
	if uid != u.ID {
		t.Fatalf("access subject: got %d, want %d", uid, u.ID)
	}
	rid, err := mgr.Parse(pair.Refresh, auth.TypeRefresh)
	if err != nil {
		t.Fatalf("parse refresh: %v", err)
	}
	if rid != u.ID {
		t.Fatalf("refresh subject: got %d, want %d", rid, u.ID)
	}
}

func TestUserService_Signup_UsernameTaken(t *testing.T) {
	db := newSvcDB(t, &domain.User{})
	s := &UserService{DB: db, Tokens: newTokenManager()}
	ctx := context.Background()

	if _, err := s.Signup(ctx, "bob", "pw"); err != nil {
		t.Fatalf("first signup: %v", err)
	}
	if _, err := s.Signup(ctx, "bob", "other"); !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}
}

func TestUserService_Login_UnknownUsername(t *testing.T) {
	db := newSvcDB(t, &domain.User{})
	s := &UserService{DB: db, Tokens: newTokenManager()}

	_, _, err := s.Login(context.Background(), "ghost", "pw")
	if !errors.Is(err, ErrUnknownUsername) {
		t.Fatalf("expected ErrUnknownUsername, got %v", err)
	}
}

func TestUserService_Login_WrongPassword(t *testing.T) {
	db := newSvcDB(t, &domain.User{})
	s := &UserService{DB: db, Tokens: newTokenManager()}
	ctx := context.Background()

	if _, err := s.Signup(ctx, "carol", "right"); err != nil {
		t.Fatalf("signup: %v", err)
	}
	_, _, err := s.Login(ctx, "carol", "wrong")
	if !errors.Is(err, ErrWrongPassword) {
		t.Fatalf("expected ErrWrongPassword, got %v", err)
	}
}

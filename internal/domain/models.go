// Package domain defines the persistence models for users, chat messages, and
// feedback. These types are mapped with GORM and form the core data layer of
// the chat backend.
package domain

import "time"

// Sender values allowed on a Message. History is organized as turn-pairs:
// one "user" prompt followed by one "ai" reply.
const (
	SenderUser = "user"
	SenderAI   = "ai"
)

// User represents a registered account. The upstream endpoint is the
// per-user Ollama base URL used by the chat relay; when nil, the configured
// default upstream is used.
//
// Fields:
//   - ID: auto-incrementing integer primary key; token subjects carry this id.
//   - Username: unique login name.
//   - PasswordHash: bcrypt hash, never exposed in JSON.
//   - UpstreamEndpoint: optional per-user Ollama base URL.
//   - CreatedAt: timestamp managed by GORM.
type User struct {
	ID               int64     `json:"id"                          gorm:"primaryKey;autoIncrement"`
	Username         string    `json:"username"                    gorm:"type:varchar(150);not null;uniqueIndex"`
	PasswordHash     string    `json:"-"                           gorm:"type:varchar(255);not null"`
	UpstreamEndpoint *string   `json:"upstream_endpoint,omitempty" gorm:"type:varchar(512)"`
	CreatedAt        time.Time `json:"created_at"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// Message is a single utterance in a user's conversation history. Messages
// are owned by exactly one user and are removed only by pair eviction when
// the history reaches capacity, or by cascade when the owner is deleted.
//
// Fields:
//   - ID: auto-incrementing integer primary key.
//   - UserID: foreign key to the owning user (indexed, cascade delete).
//   - Sender: "user" or "ai" (enforced by DB constraint).
//   - Content: full text content of the message.
//   - CreatedAt: insertion timestamp; history ordering key.
type Message struct {
	ID        int64     `json:"id"         gorm:"primaryKey;autoIncrement"`
	UserID    int64     `json:"user_id"    gorm:"not null;index:idx_user_msgs,priority:1"`
	Sender    string    `json:"sender"     gorm:"type:varchar(8);not null;check:sender IN ('user','ai')"`
	Content   string    `json:"content"    gorm:"type:text;not null"`
	CreatedAt time.Time `json:"created_at" gorm:"index:idx_user_msgs,priority:2"`

	// User is the owning account. Messages are cascade-deleted with it.
	User User `json:"-" gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Message.
func (Message) TableName() string { return "messages" }

// Feedback is a user-provided rating on one of their ai replies. A user can
// leave at most one rating per message (unique index).
type Feedback struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	MessageID int64     `json:"message_id" gorm:"not null;index;uniqueIndex:ux_feedback_message_user"`
	UserID    int64     `json:"user_id"    gorm:"not null;index;uniqueIndex:ux_feedback_message_user"`
	Value     int       `json:"value"      gorm:"not null;check:value IN (-1,1)"`
	CreatedAt time.Time `json:"created_at"`

	// Message is the rated ai message. Feedback is cascade-deleted with it.
	Message Message `json:"-" gorm:"foreignKey:MessageID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Feedback.
func (Feedback) TableName() string { return "feedback" }

// ValidSender reports whether s is one of the allowed sender values.
func ValidSender(s string) bool { return s == SenderUser || s == SenderAI }

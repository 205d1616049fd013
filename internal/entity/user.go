package entity

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Message is owned by exactly one User and lives inside the user
// document; it is never addressable outside its parent.
type Message struct {
	ID        primitive.ObjectID
	Content   string
	CreatedAt time.Time
}

// User is a registered account together with its embedded inbox.
type User struct {
	ID                  primitive.ObjectID
	Username            string
	Email               string
	Password            string // bcrypt hash, never the clear form
	VerifyCode          string // 6-digit code, cleared once consumed
	VerifyCodeExpiresAt *time.Time
	IsVerified          bool
	IsAcceptingMessages bool
	Messages            []Message
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

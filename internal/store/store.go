package store

import (
	"context"
	"errors"
	"time"
)

// ErrUserNotFound is returned when no user record exists for a username.
var ErrUserNotFound = errors.New("user not found")

// User represents a registered user. Friends holds usernames in the order the
// friendships were established; it is mutated only by the relationship service.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	DisplayName  string
	AvatarURL    string
	Friends      []string
	CreatedAt    time.Time
}

// HasFriend reports whether name is already in the user's friend list.
func (u *User) HasFriend(name string) bool {
	for _, f := range u.Friends {
		if f == name {
			return true
		}
	}
	return false
}

// UserStore handles user persistence. The relationship service depends on the
// read-modify-write cycle GetUserByUsername + UpdateUserFriends being the only
// way a friend list changes; it serializes those calls per username itself.
type UserStore interface {
	// CreateUser persists a new user and returns the stored record.
	CreateUser(ctx context.Context, user *User) (*User, error)

	// GetUserByUsername retrieves a user, friends included, or ErrUserNotFound.
	GetUserByUsername(ctx context.Context, username string) (*User, error)

	// UpdateUserFriends replaces the user's friend list, preserving order.
	UpdateUserFriends(ctx context.Context, username string, friends []string) error
}

// Store aggregates all storage interfaces.
type Store interface {
	UserStore

	// Close closes the underlying database connection.
	Close() error
}

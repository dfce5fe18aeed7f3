package models

import (
	"strings"
	"time"
)

// RoleUser is the role assigned to every newly registered account.
const RoleUser = "USER"

// User is an account principal. Passwords are stored only as bcrypt hashes.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	Roles        []string
	CreatedAt    time.Time
}

// JoinRoles encodes a role set for storage in a single text column.
func JoinRoles(roles []string) string {
	return strings.Join(roles, ",")
}

// SplitRoles decodes a role set stored with JoinRoles.
func SplitRoles(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

package models

import "time"

// RefreshToken is a durable rotation record. At most one live row exists per
// issued token value; rotation deletes the row and inserts a replacement.
type RefreshToken struct {
	UserID    string
	Token     string
	Expires   time.Time
	CreatedAt time.Time
}

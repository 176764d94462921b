package domain

import "time"

// User represents a console account.
type User struct {
	ID        string
	Name      string
	Email     string
	Image     *string
	CreatedAt time.Time
}

// Principal is the authenticated caller of a request.
type Principal struct {
	UserID string
	Name   string
	Email  string
	Image  string
}

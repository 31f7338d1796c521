package model

import "time"

// User represents a local account used to resolve credentials to an actor id.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash []byte    `json:"-"`
	Active       bool      `json:"active"`
	Created      time.Time `json:"created"`
	Updated      time.Time `json:"updated"`
}

// UserInfo contains the fields accepted when adding or looking up users.
type UserInfo struct {
	ID       string
	Username string `validate:"required,max=64"`
	Password string
	Active   bool
}

// UserFilter selects which UserInfo fields constrain a lookup.
type UserFilter struct {
	ID       bool
	Username bool
	Active   bool
}

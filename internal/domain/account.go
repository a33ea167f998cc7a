// Package domain contains entity without logic, just meta-data
package domain

import (
	"errors"
	"strings"
)

const MaxNameLen = 36

var (
	ErrNameTooLong  = errors.New("name too long")
	ErrNameEmpty    = errors.New("name empty")
	ErrEmailInvalid = errors.New("email invalid")
)

// Account is the registration payload for the backend.
type Account struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// NewAccount validates locally before the payload goes over the wire.
func NewAccount(name, email, password string) (*Account, error) {
	if len(name) == 0 {
		return nil, ErrNameEmpty
	}
	if len(name) > MaxNameLen {
		return nil, ErrNameTooLong
	}
	if !strings.Contains(email, "@") {
		return nil, ErrEmailInvalid
	}
	return &Account{Name: name, Email: email, Password: password}, nil
}

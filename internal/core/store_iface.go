package core

import "github.com/calixio/calixio-client/internal/domain"

// TokenStore persists credentials across restarts. Absent tokens come back
// as empty strings, never as an error.
type TokenStore interface {
	Load() (domain.Credentials, error)
	Save(access, refresh string) error
	Clear() error
}

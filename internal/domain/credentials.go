package domain

// Credentials are the persisted auth tokens. An absent token is an empty
// string, never an error.
type Credentials struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

func (c Credentials) Empty() bool {
	return c.AccessToken == "" && c.RefreshToken == ""
}

// HasAny reports whether any token is held, which is what gates
// authenticated vs guest requests.
func (c Credentials) HasAny() bool {
	return !c.Empty()
}

package models

// User is the public profile of a chat participant.
type User struct {
	ID    string `json:"_id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Pic   string `json:"pic,omitempty"`
}

// Identity is the authenticated user for a session. It is replaced wholesale
// on profile update, never mutated in place.
type Identity struct {
	User
	Token string `json:"token"`
}

// Valid reports whether the identity carries both a user id and a token.
func (i Identity) Valid() bool {
	return i.ID != "" && i.Token != ""
}

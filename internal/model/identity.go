package model

import "time"

// IdentityID uniquely identifies an identity
type IdentityID string

// Identity is an ephemeral, password-less user. It is reclaimed by presenting
// the username together with the connection it was last bound to.
type Identity struct {
	ID           IdentityID
	Username     string
	ConnectionID ConnectionID
	CreatedAt    time.Time
}

// Clone returns a copy of the identity
func (i *Identity) Clone() *Identity {
	cp := *i
	return &cp
}

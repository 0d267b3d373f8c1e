package model

import "time"

// ConnectionID identifies a transport session. Clients see it as their
// client_name and present it again when reclaiming an identity.
type ConnectionID string

// Connection is the server-side record of one transport session
type Connection struct {
	ID           ConnectionID
	IdentityID   IdentityID // empty until the session authenticates
	Connected    bool
	ConnectedAt  time.Time
	LastAuthedAt time.Time // zero until the first authenticated message
}

// Authenticated reports whether an identity is bound to the connection
func (c *Connection) Authenticated() bool {
	return c.IdentityID != ""
}

// Clone returns a copy that shares no memory with c
func (c *Connection) Clone() *Connection {
	cp := *c
	return &cp
}

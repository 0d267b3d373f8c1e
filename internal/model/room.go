package model

import (
	"slices"
	"time"
)

// RoomCapacity is the number of identities a room holds
const RoomCapacity = 2

// Room is a named container for up to RoomCapacity identities and exactly
// one game session
type Room struct {
	Name      string
	Occupants []IdentityID // join order
	GameID    GameID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasOccupant reports whether the identity occupies the room
func (r *Room) HasOccupant(id IdentityID) bool {
	return slices.Contains(r.Occupants, id)
}

// IsFull reports whether the room is at capacity
func (r *Room) IsFull() bool {
	return len(r.Occupants) >= RoomCapacity
}

// RemoveOccupant drops the identity from the occupant list, returning false
// if it was not present
func (r *Room) RemoveOccupant(id IdentityID) bool {
	idx := slices.Index(r.Occupants, id)
	if idx < 0 {
		return false
	}
	r.Occupants = slices.Delete(r.Occupants, idx, idx+1)
	return true
}

// Clone returns a deep copy of the room
func (r *Room) Clone() *Room {
	cp := *r
	cp.Occupants = slices.Clone(r.Occupants)
	if cp.Occupants == nil {
		cp.Occupants = []IdentityID{}
	}
	return &cp
}

package model

import "time"

// EventType identifies the type of event
type EventType string

const (
	// Identity events
	EventIdentityCreated   EventType = "identity_created"
	EventIdentityReclaimed EventType = "identity_reclaimed"
	EventIdentityReaped    EventType = "identity_reaped"

	// Room events
	EventOccupantJoined EventType = "occupant_joined"
	EventOccupantLeft   EventType = "occupant_left"
	EventGameStarted    EventType = "game_started"
)

// Event is the base structure for all domain events
type Event struct {
	Type         EventType
	Timestamp    time.Time
	RoomName     string       // Empty for identity-only events
	IdentityID   IdentityID   // The identity that triggered or is affected
	ConnectionID ConnectionID // The connection bound to that identity, if any
	Payload      any          // Type-specific data
}

// IdentityPayload contains data for identity events
type IdentityPayload struct {
	Username           string
	PreviousConnection ConnectionID // Set on reclaim
}

// OccupantPayload contains data for occupant joined/left events
type OccupantPayload struct {
	Username  string
	GameID    GameID
	Occupancy int
}

// GameStartedPayload contains data for game started events
type GameStartedPayload struct {
	GameID  GameID
	Players []string
}

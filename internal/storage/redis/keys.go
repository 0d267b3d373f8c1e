package redis

import (
	"fmt"

	"github.com/rileyL6122428/FriEnds-backend/internal/model"
)

// Key prefix for all matchmaking data
const keyPrefix = "friends"

// connectionKey returns the Redis key for a Connection
func connectionKey(id model.ConnectionID) string {
	return fmt.Sprintf("%s:connection:%s", keyPrefix, id)
}

// connectionsIndexKey returns the Redis key for the SET of connection keys
func connectionsIndexKey() string {
	return fmt.Sprintf("%s:idx:connections", keyPrefix)
}

// identityKey returns the Redis key for an Identity
func identityKey(id model.IdentityID) string {
	return fmt.Sprintf("%s:identity:%s", keyPrefix, id)
}

// loginIndexKey returns the Redis key for the (username, connection) -> identity index
func loginIndexKey(username string, connID model.ConnectionID) string {
	return fmt.Sprintf("%s:idx:login:%s:%s", keyPrefix, connID, username)
}

// roomKey returns the Redis key for a Room
func roomKey(name string) string {
	return fmt.Sprintf("%s:room:%s", keyPrefix, name)
}

// roomsIndexKey returns the Redis key for the sorted SET of room names
func roomsIndexKey() string {
	return fmt.Sprintf("%s:idx:rooms", keyPrefix)
}

// occupantIndexKey returns the Redis key for the identity -> room name index
func occupantIndexKey(id model.IdentityID) string {
	return fmt.Sprintf("%s:idx:occupant:%s", keyPrefix, id)
}

// gameKey returns the Redis key for a Game
func gameKey(id model.GameID) string {
	return fmt.Sprintf("%s:game:%s", keyPrefix, id)
}

// Package reaper deletes connections and identities that have been idle past
// a grace period
package reaper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rileyL6122428/FriEnds-backend/internal/model"
	"github.com/rileyL6122428/FriEnds-backend/internal/storage"
)

// DefaultGrace is how long a disconnected connection survives
const DefaultGrace = time.Minute

// Evictor removes an identity from whatever room it occupies
type Evictor func(ctx context.Context, identity *model.Identity) error

// Result summarizes one sweep
type Result struct {
	AnonymousDeleted int
	AbandonedDeleted int
	Evicted          int
	Reaped           []*model.Identity
}

// Sweep runs one reclamation pass.
//
// Anonymous connections that disconnected and were connected at or before
// now-grace are deleted. Identity-bound connections that disconnected and
// were last active at or before now-grace are deleted too; their identity
// is evicted from its room and deleted when it is still bound to the
// deleted connection. A connection whose identity could not be released is
// saved back so a later sweep retries it. Live connections are never touched.
func Sweep(ctx context.Context, store storage.Storage, evict Evictor, now time.Time, grace time.Duration) (Result, error) {
	var result Result
	threshold := now.Add(-grace)

	anonymous, err := store.DeleteConnections(ctx, storage.StaleFilter{Kind: storage.StaleAnonymous, Before: threshold})
	if err != nil {
		return result, fmt.Errorf("deleting anonymous connections: %w", err)
	}
	result.AnonymousDeleted = len(anonymous)

	abandoned, err := store.DeleteConnections(ctx, storage.StaleFilter{Kind: storage.StaleAbandoned, Before: threshold})
	if err != nil {
		return result, fmt.Errorf("deleting abandoned connections: %w", err)
	}
	result.AbandonedDeleted = len(abandoned)

	var errs []error
	retain := func(conn *model.Connection, cause error) {
		errs = append(errs, cause)
		if err := store.SaveConnection(ctx, conn); err != nil {
			errs = append(errs, fmt.Errorf("restoring connection %s: %w", conn.ID, err))
			return
		}
		result.AbandonedDeleted--
	}

	for _, conn := range abandoned {
		identity, err := store.GetIdentity(ctx, conn.IdentityID)
		if errors.Is(err, model.ErrUserNotFound) {
			continue
		}
		if err != nil {
			retain(conn, err)
			continue
		}

		// Reclaimed onto another connection since
		if identity.ConnectionID != conn.ID {
			continue
		}

		if evict != nil {
			switch err := evict(ctx, identity); {
			case err == nil:
				result.Evicted++
			case !errors.Is(err, model.ErrRoomNotFound):
				retain(conn, fmt.Errorf("evicting %s: %w", identity.ID, err))
				continue
			}
		}

		if err := store.DeleteIdentity(ctx, identity.ID); err != nil {
			retain(conn, err)
			continue
		}
		result.Reaped = append(result.Reaped, identity)
	}

	return result, errors.Join(errs...)
}

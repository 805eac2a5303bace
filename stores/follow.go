package stores

import (
	"context"
)

// Follow keeps progress bound to whoever session says is signed in, until
// ctx is done.
func Follow(ctx context.Context, session *SessionStore, progress *ProgressStore) {
	updates, cancel := session.AuthState().Subscribe()
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-updates:
			if !ok {
				return
			}
			Sync(ctx, snap, progress)
		}
	}
}

// Sync applies one auth snapshot to progress.
func Sync(ctx context.Context, snap AuthSnapshot, progress *ProgressStore) {
	switch {
	case snap.State == Authenticated && snap.Identity != nil:
		if progress.UserID() != snap.Identity.ID {
			progress.Unbind()
		}
		progress.Bind(ctx, snap.Identity.ID)
	case snap.State == Unauthenticated:
		progress.Unbind()
	}
}

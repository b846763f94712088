package ledger

import "context"

// Speaker identifies the acting entity behind a ledger entry.
type Speaker struct {
	SceneID string
	TokenID string
	ActorID string
	Alias   string
}

// Viewer is a connected participant, either a GM or a player.
type Viewer struct {
	ID   string
	Name string
	GM   bool
}

// MutationTag marks attribute updates issued by undo/redo so the creation
// path can recognize and skip them.
type MutationTag struct {
	EntryID  string
	Reverted bool
}

// IsZero reports whether the tag is absent.
func (t MutationTag) IsZero() bool {
	return t.EntryID == ""
}

// World is the host surface the lifecycle reads and writes through.
type World interface {
	// ActorAttributes returns the current attribute snapshot for an actor.
	ActorAttributes(ctx context.Context, actorID string) (map[string]any, error)

	// SceneExists reports whether a scene is still present.
	SceneExists(ctx context.Context, sceneID string) bool

	// TokenExists reports whether a token is still present in a scene.
	TokenExists(ctx context.Context, sceneID, tokenID string) bool

	// UpdateActorAttributes applies a partial attribute patch to an actor.
	// The tag travels with the resulting mutation event.
	UpdateActorAttributes(ctx context.Context, actorID string, patch map[string]any, tag MutationTag) error
}

// Permissions answers viewer-to-actor permission questions.
type Permissions interface {
	PermissionLevel(viewerID, actorID string) PermissionLevel
}

// Roster enumerates the viewers known to hold permissions on an actor,
// whether or not they are currently connected.
type Roster interface {
	ActorViewerIDs(actorID string) []string
}

// Presence answers who is connected right now.
type Presence interface {
	IsConnected(viewerID string) bool
	ConnectedGMs() []Viewer
	ConnectedViewers() []Viewer
}

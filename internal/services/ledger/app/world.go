package server

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/avendale/damagelog/internal/ledger"
	"github.com/avendale/damagelog/internal/platform/errors"
)

// worldState is the in-memory mirror of the host's actors: attribute
// snapshots, scene/token placement, and per-viewer permissions. The bridge
// seeds and maintains it through world.actor frames.
type worldState struct {
	mu     sync.Mutex
	actors map[string]*actorState
}

type actorState struct {
	sceneID     string
	tokenID     string
	alias       string
	attributes  map[string]any
	permissions map[string]ledger.PermissionLevel
}

func newWorldState() *worldState {
	return &worldState{actors: make(map[string]*actorState)}
}

// upsertActor replaces or creates an actor mirror.
func (w *worldState) upsertActor(actorID, sceneID, tokenID, alias string, attributes map[string]any, permissions map[string]ledger.PermissionLevel) {
	if attributes == nil {
		attributes = map[string]any{}
	}
	w.mu.Lock()
	w.actors[actorID] = &actorState{
		sceneID:     sceneID,
		tokenID:     tokenID,
		alias:       alias,
		attributes:  deepCopyAttributes(attributes),
		permissions: permissions,
	}
	w.mu.Unlock()
}

// removeActor drops an actor mirror, e.g. when its token is deleted.
func (w *worldState) removeActor(actorID string) {
	w.mu.Lock()
	delete(w.actors, actorID)
	w.mu.Unlock()
}

// speaker returns the actor's placement for entry creation.
func (w *worldState) speaker(actorID string) (ledger.Speaker, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	actor, ok := w.actors[actorID]
	if !ok {
		return ledger.Speaker{}, false
	}
	return ledger.Speaker{
		SceneID: actor.sceneID,
		TokenID: actor.tokenID,
		ActorID: actorID,
		Alias:   actor.alias,
	}, true
}

// ActorAttributes returns a deep copy of the actor's snapshot.
func (w *worldState) ActorAttributes(_ context.Context, actorID string) (map[string]any, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	actor, ok := w.actors[actorID]
	if !ok {
		return nil, errors.WithMetadata(errors.CodeNotFound, "actor not found",
			map[string]string{"actor_id": actorID})
	}
	return deepCopyAttributes(actor.attributes), nil
}

// SceneExists reports whether any mirrored actor still references the scene.
func (w *worldState) SceneExists(_ context.Context, sceneID string) bool {
	sceneID = strings.TrimSpace(sceneID)
	if sceneID == "" {
		return false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, actor := range w.actors {
		if actor.sceneID == sceneID {
			return true
		}
	}
	return false
}

// TokenExists reports whether the token is still placed in the scene.
func (w *worldState) TokenExists(_ context.Context, sceneID, tokenID string) bool {
	if strings.TrimSpace(tokenID) == "" {
		return false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, actor := range w.actors {
		if actor.sceneID == sceneID && actor.tokenID == tokenID {
			return true
		}
	}
	return false
}

// UpdateActorAttributes merges a partial patch into the actor's snapshot.
// The tag is the caller's re-entrancy marker; the world applies the write
// either way since no creation hook runs here.
func (w *worldState) UpdateActorAttributes(_ context.Context, actorID string, patch map[string]any, _ ledger.MutationTag) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	actor, ok := w.actors[actorID]
	if !ok {
		return errors.WithMetadata(errors.CodeNotFound, "actor not found",
			map[string]string{"actor_id": actorID})
	}
	mergePatch(actor.attributes, patch)
	return nil
}

// ActorViewerIDs returns the viewer ids named in the actor's permission
// map, sorted, whether or not they are connected right now.
func (w *worldState) ActorViewerIDs(actorID string) []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	actor, ok := w.actors[actorID]
	if !ok || len(actor.permissions) == 0 {
		return nil
	}
	ids := make([]string, 0, len(actor.permissions))
	for id := range actor.permissions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// PermissionLevel returns the viewer's permission on the actor.
func (w *worldState) PermissionLevel(viewerID, actorID string) ledger.PermissionLevel {
	w.mu.Lock()
	defer w.mu.Unlock()
	actor, ok := w.actors[actorID]
	if !ok || actor.permissions == nil {
		return ledger.PermissionNone
	}
	return actor.permissions[viewerID]
}

func deepCopyAttributes(src map[string]any) map[string]any {
	dst := make(map[string]any, len(src))
	for key, value := range src {
		if child, ok := value.(map[string]any); ok {
			dst[key] = deepCopyAttributes(child)
			continue
		}
		dst[key] = value
	}
	return dst
}

func mergePatch(dst, patch map[string]any) {
	for key, value := range patch {
		if child, ok := value.(map[string]any); ok {
			existing, ok := dst[key].(map[string]any)
			if !ok {
				existing = map[string]any{}
				dst[key] = existing
			}
			mergePatch(existing, child)
			continue
		}
		dst[key] = value
	}
}

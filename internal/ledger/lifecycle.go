package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/avendale/damagelog/internal/platform/attrpath"
	"github.com/avendale/damagelog/internal/platform/errors"
	"github.com/avendale/damagelog/internal/registry"
)

// Recorder turns qualifying mutation events into ledger entries.
type Recorder struct {
	Registry    *registry.Registry
	Settings    Settings
	Permissions Permissions
	Roster      Roster
	Locale      string

	// Now and NewID are overridable for tests.
	Now   func() time.Time
	NewID func() string
}

// Record builds an entry for one mutation event, or (nil, nil) when the
// event produces no entry: tagged events come from an in-flight undo/redo
// and must not re-enter, and updates that touch no tracked attribute are
// not worth recording.
func (r *Recorder) Record(systemID string, speaker Speaker, authorID, authorName string, before, update map[string]any, tag MutationTag) (*Entry, error) {
	if !tag.IsZero() {
		return nil, nil
	}

	cfg, err := r.Registry.Require(systemID)
	if err != nil {
		return nil, err
	}

	changes := ComputeChanges(cfg, r.Locale, before, update)
	if len(changes) == 0 {
		return nil, nil
	}

	classification := Classify(cfg, changes)

	var viewerIDs []string
	if r.Roster != nil {
		viewerIDs = r.Roster.ActorViewerIDs(speaker.ActorID)
	}
	recipients := DefaultRecipients(r.Settings, r.Permissions, viewerIDs, speaker.ActorID, classification.IsHealing)

	now := time.Now().UTC()
	if r.Now != nil {
		now = r.Now()
	}
	id := uuid.NewString()
	if r.NewID != nil {
		id = r.NewID()
	}

	return &Entry{
		ID:         id,
		SystemID:   systemID,
		AuthorID:   authorID,
		AuthorName: authorName,
		Speaker:    speaker,
		Changes:    changes,
		Recipients: recipients,
		CreatedAt:  now,
	}, nil
}

// RevertResult reports what an undo/redo did.
type RevertResult struct {
	// Executor is the party whose authority the mutation ran under.
	Executor Viewer
	// Action is "undo" or "redo".
	Action string
	// Patch is the attribute patch that was applied.
	Patch map[string]any
	// Reverted is the entry's new state.
	Reverted bool
}

// RevertedFlags persists the applied/reverted state of entries.
type RevertedFlags interface {
	SetReverted(ctx context.Context, id string, reverted bool) error
}

// Reverter executes the applied<->reverted transition for entries.
type Reverter struct {
	Registry    *registry.Registry
	Settings    Settings
	World       World
	Permissions Permissions
	Presence    Presence
	Flags       RevertedFlags
}

// Revert toggles an entry between applied and reverted, replaying the
// inverse diff against the actor's current values with clamping. The entry
// is mutated only after the world write succeeds.
func (r *Reverter) Revert(ctx context.Context, entry *Entry, requester Viewer) (*RevertResult, error) {
	if entry == nil {
		return nil, errors.New(errors.CodeEntryNotFound, "entry is nil")
	}

	if !CanUndo(r.Settings, r.Permissions, requester, entry.Speaker.ActorID) {
		return nil, errors.New(errors.CodeUndoNotAllowed, "players are not permitted to undo entries")
	}

	if err := r.checkStructure(ctx, entry.Speaker); err != nil {
		return nil, err
	}

	cfg, err := r.Registry.Require(entry.SystemID)
	if err != nil {
		return nil, err
	}

	action := "undo"
	if entry.Reverted {
		action = "redo"
	}
	kind := entry.Classify(cfg).Kind()

	executor, err := Arbitrate(r.Presence, entry.AuthorID, entry.AuthorName, action, kind)
	if err != nil {
		return nil, err
	}

	snapshot, err := r.World.ActorAttributes(ctx, entry.Speaker.ActorID)
	if err != nil {
		return nil, err
	}

	// Undo subtracts the original diff, redo adds it back.
	modifier := 1.0
	if entry.Reverted {
		modifier = -1.0
	}

	patch := map[string]any{}
	for _, change := range entry.Changes {
		spec, ok := cfg.Attribute(change.ID)
		if !ok {
			continue
		}

		candidate := attrpath.NumberOr(snapshot, spec.ValuePath, 0) - change.Diff*modifier

		if r.Settings.ClampToMin {
			if min, ok := attrpath.Number(snapshot, spec.MinPath); ok && candidate < min {
				candidate = min
			}
		}
		if r.Settings.ClampToMax {
			if max, ok := attrpath.Number(snapshot, spec.MaxPath); ok {
				bound := max + attrpath.NumberOr(snapshot, spec.OverflowMaxPath, 0)
				if candidate > bound {
					candidate = bound
				}
			}
		}

		attrpath.Set(patch, spec.ValuePath, candidate)
	}

	// Persist the flag before touching the world so a failed write leaves
	// the store and the actor snapshot in agreement.
	target := !entry.Reverted
	if r.Flags != nil {
		if err := r.Flags.SetReverted(ctx, entry.ID, target); err != nil {
			return nil, err
		}
	}

	tag := MutationTag{EntryID: entry.ID, Reverted: target}
	if len(patch) > 0 {
		if err := r.World.UpdateActorAttributes(ctx, entry.Speaker.ActorID, patch, tag); err != nil {
			if r.Flags != nil {
				if restoreErr := r.Flags.SetReverted(ctx, entry.ID, entry.Reverted); restoreErr != nil {
					return nil, errors.WrapWithMetadata(errors.CodeUnknown,
						"world write failed and the stored reverted flag could not be restored",
						map[string]string{"entry_id": entry.ID}, err)
				}
			}
			return nil, err
		}
	}

	entry.Reverted = target

	return &RevertResult{
		Executor: executor,
		Action:   action,
		Patch:    patch,
		Reverted: entry.Reverted,
	}, nil
}

func (r *Reverter) checkStructure(ctx context.Context, speaker Speaker) error {
	if speaker.SceneID == "" {
		return errors.New(errors.CodeSceneIDMissing, "entry carries no scene id")
	}
	if !r.World.SceneExists(ctx, speaker.SceneID) {
		return errors.WithMetadata(errors.CodeSceneDeleted, "scene no longer exists",
			map[string]string{"scene_id": speaker.SceneID})
	}
	if speaker.TokenID == "" {
		return errors.New(errors.CodeTokenIDMissing, "entry carries no token id")
	}
	if !r.World.TokenExists(ctx, speaker.SceneID, speaker.TokenID) {
		return errors.WithMetadata(errors.CodeTokenDeleted, "token no longer exists",
			map[string]string{"scene_id": speaker.SceneID, "token_id": speaker.TokenID})
	}
	return nil
}

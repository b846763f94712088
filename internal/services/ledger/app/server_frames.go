package server

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"time"

	"github.com/avendale/damagelog/internal/ledger"
)

type joinPayload struct {
	ViewerID string `json:"viewer_id"`
	Name     string `json:"name"`
	GM       bool   `json:"gm"`
}

type joinedPayload struct {
	ViewerID   string `json:"viewer_id"`
	SystemID   string `json:"system_id"`
	ServerTime string `json:"server_time"`
}

type actorPayload struct {
	ActorID     string            `json:"actor_id"`
	SceneID     string            `json:"scene_id"`
	TokenID     string            `json:"token_id"`
	Alias       string            `json:"alias"`
	Attributes  map[string]any    `json:"attributes"`
	Permissions map[string]string `json:"permissions"`
	Removed     bool              `json:"removed,omitempty"`
}

type tagPayload struct {
	EntryID  string `json:"entry_id"`
	Reverted bool   `json:"reverted"`
}

type updatePayload struct {
	ActorID string         `json:"actor_id"`
	Update  map[string]any `json:"update"`
	Tag     *tagPayload    `json:"tag,omitempty"`
}

type revertPayload struct {
	EntryID string `json:"entry_id"`
}

type visibilitySetPayload struct {
	EntryID string `json:"entry_id"`
	Public  bool   `json:"public"`
}

type historyBeforePayload struct {
	Before string `json:"before,omitempty"`
	Limit  int    `json:"limit,omitempty"`
}

type ackEnvelope struct {
	Result ackResult `json:"result"`
}

type ackResult struct {
	Status  string `json:"status"`
	EntryID string `json:"entry_id,omitempty"`
	Count   int    `json:"count,omitempty"`
}

type entryEnvelope struct {
	Entry entryPayload `json:"entry"`
}

type entryPayload struct {
	EntryID  string         `json:"entry_id"`
	SystemID string         `json:"system_id"`
	Author   viewerRef      `json:"author"`
	Speaker  speakerPayload `json:"speaker"`
	// Changes and Flavor are redacted per viewer: limited detail keeps the
	// flavor line only, no detail keeps neither.
	Changes   []changePayload `json:"changes,omitempty"`
	Flavor    string          `json:"flavor,omitempty"`
	Classes   []string        `json:"classes"`
	Detail    string          `json:"detail"`
	Reverted  bool            `json:"reverted"`
	Public    *bool           `json:"public,omitempty"`
	CreatedAt string          `json:"created_at"`
}

type viewerRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type speakerPayload struct {
	SceneID string `json:"scene_id"`
	TokenID string `json:"token_id"`
	ActorID string `json:"actor_id"`
	Alias   string `json:"alias"`
}

type changePayload struct {
	ID   string  `json:"id"`
	Name string  `json:"name"`
	Old  float64 `json:"old"`
	New  float64 `json:"new"`
	Diff float64 `json:"diff"`
}

type actorUpdatedPayload struct {
	ActorID string         `json:"actor_id"`
	Patch   map[string]any `json:"patch"`
}

func (svc *service) handleJoinFrame(ctx context.Context, session *wsSession, frame wsFrame) {
	var payload joinPayload
	if err := json.Unmarshal(frame.Payload, &payload); err != nil {
		_ = writeWSError(session.peer, frame.RequestID, "INVALID_ARGUMENT", "invalid join payload")
		return
	}

	viewerID := strings.TrimSpace(payload.ViewerID)
	if viewerID == "" {
		_ = writeWSError(session.peer, frame.RequestID, "INVALID_ARGUMENT", "viewer_id is required")
		return
	}

	// The configured system has no table: every join keeps seeing the
	// error until the configuration is fixed.
	if svc.systemErr != nil {
		_ = writeDomainError(session.peer, frame.RequestID, svc.systemErr)
		return
	}

	name := strings.TrimSpace(payload.Name)
	if name == "" {
		name = viewerID
	}
	viewer := ledger.Viewer{ID: viewerID, Name: name, GM: payload.GM}
	session.setViewer(viewer)
	svc.hub.join(session)

	_ = session.peer.writeFrame(wsFrame{
		Type:      "ledger.joined",
		RequestID: frame.RequestID,
		Payload: mustJSON(joinedPayload{
			ViewerID:   viewerID,
			SystemID:   svc.systemID,
			ServerTime: time.Now().UTC().Format(time.RFC3339),
		}),
	})

	svc.replayHistory(ctx, session, viewer, time.Now().UTC().Add(time.Second), joinReplayLimit, "")
}

func (svc *service) handleActorFrame(session *wsSession, frame wsFrame) {
	viewer, joined := session.currentViewer()
	if !joined {
		_ = writeWSError(session.peer, frame.RequestID, "FORBIDDEN", "must join before seeding actors")
		return
	}
	if !viewer.GM {
		_ = writeWSError(session.peer, frame.RequestID, "FORBIDDEN", "gm access required")
		return
	}

	var payload actorPayload
	if err := json.Unmarshal(frame.Payload, &payload); err != nil {
		_ = writeWSError(session.peer, frame.RequestID, "INVALID_ARGUMENT", "invalid actor payload")
		return
	}
	actorID := strings.TrimSpace(payload.ActorID)
	if actorID == "" {
		_ = writeWSError(session.peer, frame.RequestID, "INVALID_ARGUMENT", "actor_id is required")
		return
	}

	if payload.Removed {
		svc.world.removeActor(actorID)
	} else {
		permissions := make(map[string]ledger.PermissionLevel, len(payload.Permissions))
		for id, level := range payload.Permissions {
			permissions[id] = ledger.ParsePermissionLevel(level)
		}
		svc.world.upsertActor(actorID, strings.TrimSpace(payload.SceneID), strings.TrimSpace(payload.TokenID),
			strings.TrimSpace(payload.Alias), payload.Attributes, permissions)
	}

	_ = session.peer.writeFrame(wsFrame{
		Type:      "ledger.ack",
		RequestID: frame.RequestID,
		Payload:   mustJSON(ackEnvelope{Result: ackResult{Status: "ok"}}),
	})
}

func (svc *service) handleUpdateFrame(ctx context.Context, session *wsSession, frame wsFrame) {
	viewer, joined := session.currentViewer()
	if !joined {
		_ = writeWSError(session.peer, frame.RequestID, "FORBIDDEN", "must join before sending updates")
		return
	}
	if svc.systemErr != nil {
		_ = writeDomainError(session.peer, frame.RequestID, svc.systemErr)
		return
	}

	var payload updatePayload
	if err := json.Unmarshal(frame.Payload, &payload); err != nil {
		_ = writeWSError(session.peer, frame.RequestID, "INVALID_ARGUMENT", "invalid update payload")
		return
	}
	actorID := strings.TrimSpace(payload.ActorID)
	if actorID == "" {
		_ = writeWSError(session.peer, frame.RequestID, "INVALID_ARGUMENT", "actor_id is required")
		return
	}
	if len(payload.Update) == 0 {
		_ = writeWSError(session.peer, frame.RequestID, "INVALID_ARGUMENT", "update is required")
		return
	}

	speaker, ok := svc.world.speaker(actorID)
	if !ok {
		_ = writeWSError(session.peer, frame.RequestID, "NOT_FOUND", "actor is not seeded")
		return
	}

	before, err := svc.world.ActorAttributes(ctx, actorID)
	if err != nil {
		_ = writeDomainError(session.peer, frame.RequestID, err)
		return
	}

	var tag ledger.MutationTag
	if payload.Tag != nil {
		tag = ledger.MutationTag{EntryID: payload.Tag.EntryID, Reverted: payload.Tag.Reverted}
	}

	entry, err := svc.recorder.Record(svc.systemID, speaker, viewer.ID, viewer.Name, before, payload.Update, tag)
	if err != nil {
		_ = writeDomainError(session.peer, frame.RequestID, err)
		return
	}

	if err := svc.world.UpdateActorAttributes(ctx, actorID, payload.Update, tag); err != nil {
		_ = writeDomainError(session.peer, frame.RequestID, err)
		return
	}

	if entry == nil {
		_ = session.peer.writeFrame(wsFrame{
			Type:      "ledger.ack",
			RequestID: frame.RequestID,
			Payload:   mustJSON(ackEnvelope{Result: ackResult{Status: "ok"}}),
		})
		return
	}

	if err := svc.store.CreateEntry(ctx, entry); err != nil {
		log.Printf("ledger: persist entry %s failed: %v", entry.ID, err)
		_ = writeDomainError(session.peer, frame.RequestID, err)
		return
	}

	_ = session.peer.writeFrame(wsFrame{
		Type:      "ledger.ack",
		RequestID: frame.RequestID,
		Payload:   mustJSON(ackEnvelope{Result: ackResult{Status: "ok", EntryID: entry.ID}}),
	})

	svc.broadcastEntry(entry)
}

func (svc *service) handleRevertFrame(ctx context.Context, session *wsSession, frame wsFrame) {
	viewer, joined := session.currentViewer()
	if !joined {
		_ = writeWSError(session.peer, frame.RequestID, "FORBIDDEN", "must join before reverting entries")
		return
	}

	var payload revertPayload
	if err := json.Unmarshal(frame.Payload, &payload); err != nil {
		_ = writeWSError(session.peer, frame.RequestID, "INVALID_ARGUMENT", "invalid revert payload")
		return
	}
	entryID := strings.TrimSpace(payload.EntryID)
	if entryID == "" {
		_ = writeWSError(session.peer, frame.RequestID, "INVALID_ARGUMENT", "entry_id is required")
		return
	}

	entry, err := svc.store.GetEntry(ctx, entryID)
	if err != nil {
		_ = writeDomainError(session.peer, frame.RequestID, err)
		return
	}

	result, err := svc.reverter.Revert(ctx, entry, viewer)
	if err != nil {
		_ = writeDomainError(session.peer, frame.RequestID, err)
		return
	}

	_ = session.peer.writeFrame(wsFrame{
		Type:      "ledger.ack",
		RequestID: frame.RequestID,
		Payload:   mustJSON(ackEnvelope{Result: ackResult{Status: result.Action, EntryID: entry.ID}}),
	})

	svc.broadcastEntry(entry)
	svc.broadcastActorPatch(entry.Speaker.ActorID, result.Patch)
}

func (svc *service) handleVisibilitySetFrame(ctx context.Context, session *wsSession, frame wsFrame) {
	entry, payloadPublic, requestID, ok := svc.visibilityTarget(ctx, session, frame)
	if !ok {
		return
	}

	if err := svc.store.SetVisibility(ctx, entry.ID, &payloadPublic, entry.Recipients); err != nil {
		_ = writeDomainError(session.peer, requestID, err)
		return
	}
	entry.Public = &payloadPublic

	_ = session.peer.writeFrame(wsFrame{
		Type:      "ledger.ack",
		RequestID: requestID,
		Payload:   mustJSON(ackEnvelope{Result: ackResult{Status: "ok", EntryID: entry.ID}}),
	})
	svc.broadcastEntry(entry)
}

func (svc *service) handleVisibilityResetFrame(ctx context.Context, session *wsSession, frame wsFrame) {
	entry, _, requestID, ok := svc.visibilityTarget(ctx, session, frame)
	if !ok {
		return
	}

	cfg, err := svc.registry.Require(entry.SystemID)
	if err != nil {
		_ = writeDomainError(session.peer, requestID, err)
		return
	}

	// Recompute the distribution as if the override had never been set.
	classification := entry.Classify(cfg)
	recipients := ledger.DefaultRecipients(svc.settings, svc.world, svc.world.ActorViewerIDs(entry.Speaker.ActorID),
		entry.Speaker.ActorID, classification.IsHealing)

	if err := svc.store.SetVisibility(ctx, entry.ID, nil, recipients); err != nil {
		_ = writeDomainError(session.peer, requestID, err)
		return
	}
	entry.Public = nil
	entry.Recipients = recipients

	_ = session.peer.writeFrame(wsFrame{
		Type:      "ledger.ack",
		RequestID: requestID,
		Payload:   mustJSON(ackEnvelope{Result: ackResult{Status: "ok", EntryID: entry.ID}}),
	})
	svc.broadcastEntry(entry)
}

// visibilityTarget shares the GM gate and entry load between the two
// visibility frames.
func (svc *service) visibilityTarget(ctx context.Context, session *wsSession, frame wsFrame) (*ledger.Entry, bool, string, bool) {
	viewer, joined := session.currentViewer()
	if !joined {
		_ = writeWSError(session.peer, frame.RequestID, "FORBIDDEN", "must join before changing visibility")
		return nil, false, frame.RequestID, false
	}
	if !viewer.GM {
		_ = writeWSError(session.peer, frame.RequestID, "FORBIDDEN", "gm access required")
		return nil, false, frame.RequestID, false
	}

	var payload visibilitySetPayload
	if err := json.Unmarshal(frame.Payload, &payload); err != nil {
		_ = writeWSError(session.peer, frame.RequestID, "INVALID_ARGUMENT", "invalid visibility payload")
		return nil, false, frame.RequestID, false
	}
	entryID := strings.TrimSpace(payload.EntryID)
	if entryID == "" {
		_ = writeWSError(session.peer, frame.RequestID, "INVALID_ARGUMENT", "entry_id is required")
		return nil, false, frame.RequestID, false
	}

	entry, err := svc.store.GetEntry(ctx, entryID)
	if err != nil {
		_ = writeDomainError(session.peer, frame.RequestID, err)
		return nil, false, frame.RequestID, false
	}
	return entry, payload.Public, frame.RequestID, true
}

func (svc *service) handleHistoryBeforeFrame(ctx context.Context, session *wsSession, frame wsFrame) {
	viewer, joined := session.currentViewer()
	if !joined {
		_ = writeWSError(session.peer, frame.RequestID, "FORBIDDEN", "must join before requesting history")
		return
	}

	var payload historyBeforePayload
	if err := json.Unmarshal(frame.Payload, &payload); err != nil {
		_ = writeWSError(session.peer, frame.RequestID, "INVALID_ARGUMENT", "invalid history payload")
		return
	}

	before := time.Now().UTC().Add(time.Second)
	if strings.TrimSpace(payload.Before) != "" {
		parsed, err := time.Parse(time.RFC3339, strings.TrimSpace(payload.Before))
		if err != nil {
			_ = writeWSError(session.peer, frame.RequestID, "INVALID_ARGUMENT", "before must be RFC 3339")
			return
		}
		before = parsed
	}
	limit := payload.Limit
	if limit <= 0 {
		limit = historyDefaultLimit
	}
	if limit > historyMaxLimit {
		limit = historyMaxLimit
	}

	svc.replayHistory(ctx, session, viewer, before, limit, frame.RequestID)
}

// replayHistory sends older entries to one viewer, oldest first, redacted,
// then acks with the delivered count.
func (svc *service) replayHistory(ctx context.Context, session *wsSession, viewer ledger.Viewer, before time.Time, limit int, requestID string) {
	entries, err := svc.store.ListEntriesBefore(ctx, before, limit)
	if err != nil {
		log.Printf("ledger: history read failed: %v", err)
		_ = writeWSError(session.peer, requestID, "INTERNAL", "history unavailable")
		return
	}

	delivered := 0
	for i := len(entries) - 1; i >= 0; i-- {
		payload, ok := svc.renderEntry(entries[i], viewer)
		if !ok {
			continue
		}
		delivered++
		_ = session.peer.writeFrame(wsFrame{
			Type:    "ledger.entry",
			Payload: mustJSON(entryEnvelope{Entry: payload}),
		})
	}

	_ = session.peer.writeFrame(wsFrame{
		Type:      "ledger.ack",
		RequestID: requestID,
		Payload:   mustJSON(ackEnvelope{Result: ackResult{Status: "ok", Count: delivered}}),
	})
}

// renderEntry builds the per-viewer wire form of an entry. The second
// result is false when the entry is not delivered to this viewer at all.
func (svc *service) renderEntry(entry *ledger.Entry, viewer ledger.Viewer) (entryPayload, bool) {
	if !ledger.DeliveredTo(entry, viewer) {
		return entryPayload{}, false
	}

	cfg, err := svc.registry.Require(entry.SystemID)
	if err != nil {
		return entryPayload{}, false
	}
	classification := entry.Classify(cfg)
	detail := ledger.DetailFor(svc.settings, svc.world, viewer, entry, classification.IsHealing)

	payload := entryPayload{
		EntryID:  entry.ID,
		SystemID: entry.SystemID,
		Author:   viewerRef{ID: entry.AuthorID, Name: entry.AuthorName},
		Speaker: speakerPayload{
			SceneID: entry.Speaker.SceneID,
			TokenID: entry.Speaker.TokenID,
			ActorID: entry.Speaker.ActorID,
			Alias:   entry.Speaker.Alias,
		},
		Classes:   ledger.StateClasses(classification.Kind(), entry.Reverted, detail),
		Detail:    detail.String(),
		Reverted:  entry.Reverted,
		Public:    entry.Public,
		CreatedAt: entry.CreatedAt.Format(time.RFC3339),
	}

	switch detail {
	case ledger.DetailFull:
		payload.Flavor = ledger.FlavorText(svc.locale, classification)
		payload.Changes = make([]changePayload, 0, len(entry.Changes))
		for _, change := range entry.Changes {
			payload.Changes = append(payload.Changes, changePayload{
				ID:   change.ID,
				Name: change.Name,
				Old:  change.Old,
				New:  change.New,
				Diff: change.Diff,
			})
		}
	case ledger.DetailLimited:
		payload.Flavor = ledger.FlavorText(svc.locale, classification)
	}

	return payload, true
}

// broadcastEntry fans an entry out to every joined session, redacting or
// withholding per viewer.
func (svc *service) broadcastEntry(entry *ledger.Entry) {
	for _, session := range svc.hub.subscribers() {
		viewer, joined := session.currentViewer()
		if !joined {
			continue
		}
		payload, ok := svc.renderEntry(entry, viewer)
		if !ok {
			continue
		}
		_ = session.peer.writeFrame(wsFrame{
			Type:    "ledger.entry",
			Payload: mustJSON(entryEnvelope{Entry: payload}),
		})
	}
}

// broadcastActorPatch notifies bridge sessions (GMs) of the attribute patch
// an undo/redo applied.
func (svc *service) broadcastActorPatch(actorID string, patch map[string]any) {
	if len(patch) == 0 {
		return
	}
	frame := wsFrame{
		Type:    "actor.updated",
		Payload: mustJSON(actorUpdatedPayload{ActorID: actorID, Patch: patch}),
	}
	for _, session := range svc.hub.subscribers() {
		viewer, joined := session.currentViewer()
		if !joined || !viewer.GM {
			continue
		}
		_ = session.peer.writeFrame(frame)
	}
}

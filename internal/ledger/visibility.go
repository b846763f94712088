package ledger

// Detail is the amount of an entry a viewer may see.
type Detail int

const (
	// DetailNone withholds the entry entirely; renderers mark the slot
	// with the "not-permitted" class.
	DetailNone Detail = iota
	// DetailLimited shows the entry with numeric values stripped.
	DetailLimited
	// DetailFull shows every change record.
	DetailFull
)

// String returns the lower-case detail name.
func (d Detail) String() string {
	switch d {
	case DetailFull:
		return "full"
	case DetailLimited:
		return "limited"
	default:
		return "none"
	}
}

// CanViewActorDamage reports whether a viewer is entitled to full detail on
// entries for the actor. GMs always are; players need the world toggle plus
// the configured permission level on the actor.
func CanViewActorDamage(settings Settings, perms Permissions, viewer Viewer, actorID string) bool {
	if viewer.GM {
		return true
	}
	if !settings.AllowPlayerView || actorID == "" || perms == nil {
		return false
	}
	return perms.PermissionLevel(viewer.ID, actorID) >= settings.MinPlayerPermission
}

// CanUndo reports whether a viewer may request undo/redo of entries for the
// actor. GMs always may; players need the undo toggle plus owner permission.
func CanUndo(settings Settings, perms Permissions, viewer Viewer, actorID string) bool {
	if viewer.GM {
		return true
	}
	if !settings.AllowPlayerUndo || actorID == "" || perms == nil {
		return false
	}
	return perms.PermissionLevel(viewer.ID, actorID) >= PermissionOwner
}

// DetailFor computes the detail level one viewer gets for one entry. An
// explicit public override on the entry grants full detail to everyone it
// reaches, ahead of the permission checks.
func DetailFor(settings Settings, perms Permissions, viewer Viewer, entry *Entry, isHealing bool) Detail {
	if entry != nil && entry.Public != nil && *entry.Public {
		return DetailFull
	}
	var actorID string
	if entry != nil {
		actorID = entry.Speaker.ActorID
	}
	if CanViewActorDamage(settings, perms, viewer, actorID) {
		return DetailFull
	}
	if settings.ShowLimitedInfoToPlayers && !(isHealing && settings.HideHealingInLimitedInfo) {
		return DetailLimited
	}
	return DetailNone
}

// DefaultRecipients computes the distribution list for a new entry from the
// viewers known to hold permissions on the actor, connected or not. A nil
// result means unrestricted delivery: when the limited view is enabled for
// everyone, redaction happens per viewer instead of at distribution time.
func DefaultRecipients(settings Settings, perms Permissions, viewerIDs []string, actorID string, isHealing bool) []string {
	limitedForAll := settings.AllowPlayerView &&
		settings.ShowLimitedInfoToPlayers &&
		!(isHealing && settings.HideHealingInLimitedInfo)
	if limitedForAll {
		return nil
	}

	var recipients []string
	for _, id := range viewerIDs {
		if CanViewActorDamage(settings, perms, Viewer{ID: id}, actorID) {
			recipients = append(recipients, id)
		}
	}
	if recipients == nil {
		recipients = []string{}
	}
	return recipients
}

// DeliveredTo reports whether the entry reaches the viewer at all, honoring
// the explicit public override before the stored distribution list.
func DeliveredTo(entry *Entry, viewer Viewer) bool {
	if entry == nil {
		return false
	}
	if viewer.GM {
		return true
	}
	if entry.Public != nil {
		if *entry.Public {
			return true
		}
		return containsID(entry.Recipients, viewer.ID)
	}
	if entry.Recipients == nil {
		return true
	}
	return containsID(entry.Recipients, viewer.ID)
}

// StateClasses returns the display-state classes for an entry as one viewer
// sees it: always "damage" or "healing", plus "reverted" and "not-permitted"
// when they apply.
func StateClasses(kind string, reverted bool, detail Detail) []string {
	classes := []string{kind}
	if reverted {
		classes = append(classes, "reverted")
	}
	if detail == DetailNone {
		classes = append(classes, "not-permitted")
	}
	return classes
}

func containsID(ids []string, id string) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

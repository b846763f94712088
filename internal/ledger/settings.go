package ledger

// PermissionLevel mirrors the host's document permission ladder.
type PermissionLevel int

const (
	PermissionNone PermissionLevel = iota
	PermissionLimited
	PermissionObserver
	PermissionOwner
)

// String returns the lower-case level name.
func (l PermissionLevel) String() string {
	switch l {
	case PermissionNone:
		return "none"
	case PermissionLimited:
		return "limited"
	case PermissionObserver:
		return "observer"
	case PermissionOwner:
		return "owner"
	default:
		return "unknown"
	}
}

// ParsePermissionLevel maps a level name to its value, defaulting to owner.
func ParsePermissionLevel(value string) PermissionLevel {
	switch value {
	case "none":
		return PermissionNone
	case "limited":
		return PermissionLimited
	case "observer":
		return PermissionObserver
	default:
		return PermissionOwner
	}
}

// Settings are the world-scoped toggles the ledger consumes. They are
// read-only inputs: nothing in this package mutates them.
type Settings struct {
	// AllowPlayerView lets players see entries for actors they have
	// sufficient permission on. When false, entries go to GMs only.
	AllowPlayerView bool

	// MinPlayerPermission is the minimum permission a player needs on the
	// actor for full detail when AllowPlayerView is enabled.
	MinPlayerPermission PermissionLevel

	// AllowPlayerUndo lets owning players undo entries for their actors.
	AllowPlayerUndo bool

	// ShowLimitedInfoToPlayers delivers redacted entries to players who
	// lack the permission for full detail.
	ShowLimitedInfoToPlayers bool

	// HideHealingInLimitedInfo excludes healing entries from the limited
	// view so players cannot infer enemy recovery.
	HideHealingInLimitedInfo bool

	// ClampToMin and ClampToMax bound undo/redo candidates when the
	// attribute declares the corresponding path.
	ClampToMin bool
	ClampToMax bool
}

// DefaultSettings mirrors the conservative out-of-the-box configuration:
// GM-only visibility, owner-level threshold, clamped undo.
func DefaultSettings() Settings {
	return Settings{
		AllowPlayerView:          false,
		MinPlayerPermission:      PermissionOwner,
		AllowPlayerUndo:          false,
		ShowLimitedInfoToPlayers: false,
		HideHealingInLimitedInfo: false,
		ClampToMin:               true,
		ClampToMax:               true,
	}
}

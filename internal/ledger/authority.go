package ledger

import (
	"fmt"
	"sort"

	"github.com/avendale/damagelog/internal/platform/errors"
)

// Arbitrate decides which connected party executes an undo/redo mutation so
// that exactly one write happens: the entry's author when connected, else
// the lowest-id connected GM. When neither is available it returns an error
// naming the action, the entry kind, and the author.
func Arbitrate(presence Presence, authorID, authorName, action, kind string) (Viewer, error) {
	if presence != nil && authorID != "" && presence.IsConnected(authorID) {
		for _, viewer := range presence.ConnectedViewers() {
			if viewer.ID == authorID {
				return viewer, nil
			}
		}
		// Connected but not enumerable; still the author's write.
		return Viewer{ID: authorID, Name: authorName}, nil
	}

	var gms []Viewer
	if presence != nil {
		gms = presence.ConnectedGMs()
	}
	if len(gms) > 0 {
		sort.Slice(gms, func(i, j int) bool { return gms[i].ID < gms[j].ID })
		return gms[0], nil
	}

	return Viewer{}, errors.WithMetadata(errors.CodeNoUndoAuthority,
		fmt.Sprintf("cannot %s %s: %s is not connected and no GM is available", action, kind, authorName),
		map[string]string{
			"action": action,
			"kind":   kind,
			"author": authorName,
		})
}

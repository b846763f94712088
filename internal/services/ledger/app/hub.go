package server

import (
	"encoding/json"
	"sync"

	"github.com/avendale/damagelog/internal/ledger"
)

// wsPeer serializes frame writes to one connection.
type wsPeer struct {
	mu      sync.Mutex
	encoder *json.Encoder
}

func newWSPeer(encoder *json.Encoder) *wsPeer {
	return &wsPeer{encoder: encoder}
}

func (p *wsPeer) writeFrame(frame wsFrame) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.encoder.Encode(frame)
}

// wsSession is one connection's identity state. The bridge asserts the
// viewer identity in ledger.join; frames before that run unjoined.
type wsSession struct {
	mu     sync.Mutex
	viewer ledger.Viewer
	joined bool
	peer   *wsPeer
}

func newWSSession(peer *wsPeer) *wsSession {
	return &wsSession{peer: peer}
}

func (s *wsSession) setViewer(viewer ledger.Viewer) {
	s.mu.Lock()
	s.viewer = viewer
	s.joined = true
	s.mu.Unlock()
}

func (s *wsSession) currentViewer() (ledger.Viewer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewer, s.joined
}

// viewerHub tracks joined sessions and doubles as the presence source for
// authority arbitration.
type viewerHub struct {
	mu       sync.Mutex
	sessions map[*wsSession]struct{}
}

func newViewerHub() *viewerHub {
	return &viewerHub{sessions: make(map[*wsSession]struct{})}
}

func (h *viewerHub) join(session *wsSession) {
	h.mu.Lock()
	h.sessions[session] = struct{}{}
	h.mu.Unlock()
}

func (h *viewerHub) leave(session *wsSession) {
	h.mu.Lock()
	delete(h.sessions, session)
	h.mu.Unlock()
}

// subscribers returns every joined session with its viewer identity.
func (h *viewerHub) subscribers() []*wsSession {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]*wsSession, 0, len(h.sessions))
	for session := range h.sessions {
		out = append(out, session)
	}
	return out
}

// IsConnected reports whether a viewer has at least one joined session.
func (h *viewerHub) IsConnected(viewerID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	for session := range h.sessions {
		if viewer, joined := session.currentViewer(); joined && viewer.ID == viewerID {
			return true
		}
	}
	return false
}

// ConnectedViewers returns the distinct joined viewers.
func (h *viewerHub) ConnectedViewers() []ledger.Viewer {
	h.mu.Lock()
	defer h.mu.Unlock()
	seen := make(map[string]struct{}, len(h.sessions))
	var viewers []ledger.Viewer
	for session := range h.sessions {
		viewer, joined := session.currentViewer()
		if !joined {
			continue
		}
		if _, dup := seen[viewer.ID]; dup {
			continue
		}
		seen[viewer.ID] = struct{}{}
		viewers = append(viewers, viewer)
	}
	return viewers
}

// ConnectedGMs returns the distinct joined GM viewers.
func (h *viewerHub) ConnectedGMs() []ledger.Viewer {
	var gms []ledger.Viewer
	for _, viewer := range h.ConnectedViewers() {
		if viewer.GM {
			gms = append(gms, viewer)
		}
	}
	return gms
}

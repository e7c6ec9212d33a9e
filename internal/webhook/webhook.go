// Package webhook defines the Notifier seam spec.md §7 describes as an
// "external collaborator" pushing per-repo outcomes: autogitpull itself
// only needs to call Notifier.Notify at the right moments (terminal
// status transitions), not to ship a specific webhook integration.
package webhook

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/autogitpull/autogitpull/internal/repoinfo"
)

// Event is the payload delivered to a Notifier on a terminal status
// change.
type Event struct {
	Path   string          `json:"path"`
	Status repoinfo.Status `json:"status"`
	Entry  repoinfo.Entry  `json:"entry"`
}

// Notifier receives terminal-status events. Implementations must not
// block the calling worker for long; HTTPNotifier applies its own
// request timeout for that reason.
type Notifier interface {
	Notify(Event)
}

// NoopNotifier discards every event; it is the default when no webhook
// URL is configured.
type NoopNotifier struct{}

func (NoopNotifier) Notify(Event) {}

// HTTPNotifier POSTs a JSON-encoded Event to a configured URL.
// Delivery failures are swallowed: a webhook outage must never affect
// scan correctness (spec.md §7's propagation policy — repo-level and
// notification-level failures never reach the event loop).
type HTTPNotifier struct {
	URL    string
	Client *http.Client
}

// NewHTTPNotifier returns an HTTPNotifier with a bounded-timeout client.
func NewHTTPNotifier(url string) *HTTPNotifier {
	return &HTTPNotifier{
		URL:    url,
		Client: &http.Client{Timeout: 5 * time.Second},
	}
}

func (h *HTTPNotifier) Notify(ev Event) {
	body, err := json.Marshal(ev)
	if err != nil {
		return
	}
	resp, err := h.Client.Post(h.URL, "application/json", bytes.NewReader(body))
	if err != nil {
		return
	}
	defer resp.Body.Close()
}

// IsTerminal reports whether status is a state worth notifying on —
// anything except the transient Pulling/Checking in-progress markers.
func IsTerminal(status repoinfo.Status) bool {
	return status.Terminal()
}

// String satisfies fmt.Stringer for Event so ad-hoc logging stays
// readable without dragging in a templating dependency.
func (e Event) String() string {
	return fmt.Sprintf("%s -> %s", e.Path, e.Status)
}

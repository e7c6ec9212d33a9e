package webhook

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/autogitpull/autogitpull/internal/repoinfo"
)

func TestNoopNotifierDoesNothing(t *testing.T) {
	NoopNotifier{}.Notify(Event{Path: "/a", Status: repoinfo.PullOk})
}

func TestHTTPNotifierPostsJSON(t *testing.T) {
	received := make(chan Event, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var ev Event
		if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
			t.Errorf("decode: %v", err)
		}
		received <- ev
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewHTTPNotifier(srv.URL)
	n.Notify(Event{Path: "/repo", Status: repoinfo.PullOk})

	select {
	case ev := <-received:
		if ev.Path != "/repo" || ev.Status != repoinfo.PullOk {
			t.Fatalf("unexpected event: %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("webhook was not delivered")
	}
}

func TestIsTerminalExcludesBusyStatuses(t *testing.T) {
	if IsTerminal(repoinfo.Pulling) || IsTerminal(repoinfo.Checking) {
		t.Fatal("expected busy statuses to be non-terminal")
	}
	if !IsTerminal(repoinfo.PullOk) {
		t.Fatal("expected PullOk to be terminal")
	}
}

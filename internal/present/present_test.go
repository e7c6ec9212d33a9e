package present

import (
	"bytes"
	"strings"
	"testing"

	"github.com/autogitpull/autogitpull/internal/repoinfo"
)

func TestCLIRendererCountsStatuses(t *testing.T) {
	var buf bytes.Buffer
	r := &CLIRenderer{Out: &buf}
	snapshot := map[string]repoinfo.Entry{
		"/a": {Status: repoinfo.PullOk},
		"/b": {Status: repoinfo.Error},
		"/c": {Status: repoinfo.Skipped},
	}
	r.Render(snapshot, "Scanning")

	out := buf.String()
	if !strings.Contains(out, "3 repos") {
		t.Fatalf("expected repo count in output, got %q", out)
	}
	if !strings.Contains(out, "Scanning") {
		t.Fatalf("expected action in output, got %q", out)
	}
}

func TestTUIRendererListsEachPathSorted(t *testing.T) {
	var buf bytes.Buffer
	r := &TUIRenderer{Out: &buf}
	snapshot := map[string]repoinfo.Entry{
		"/z": {Status: repoinfo.UpToDate},
		"/a": {Status: repoinfo.Dirty, Message: "uncommitted"},
	}
	r.Render(snapshot, "Idle")

	out := buf.String()
	aIdx := strings.Index(out, "/a")
	zIdx := strings.Index(out, "/z")
	if aIdx == -1 || zIdx == -1 || aIdx > zIdx {
		t.Fatalf("expected /a before /z in sorted output, got %q", out)
	}
}

func TestTUIRendererTagsAuthFailure(t *testing.T) {
	var buf bytes.Buffer
	r := &TUIRenderer{Out: &buf}
	r.Render(map[string]repoinfo.Entry{
		"/a": {Status: repoinfo.Error, AuthFailed: true},
	}, "Idle")
	if !strings.Contains(buf.String(), "[AUTH]") {
		t.Fatalf("expected [AUTH] tag, got %q", buf.String())
	}
}

func TestSilentRendererWritesNothing(t *testing.T) {
	SilentRenderer{}.Render(map[string]repoinfo.Entry{"/a": {Status: repoinfo.Pending}}, "Idle")
}

package lockfile

import (
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v4/process"
)

// LockFileName is the well-known basename autogitpull uses for its
// single-instance lock, scoped under a root directory.
const LockFileName = ".autogitpull.lock"

// Instance describes a peer autogitpull process discovered by
// FindRunningInstances.
type Instance struct {
	Name string // how the peer was found: "lockfile:<lock file path>", "socket:<path>", "process"
	PID  int
}

// FindRunningInstances implements spec.md §4.2's three-pronged discovery:
// lock files under the OS temp directory, (Unix) domain sockets under the
// same directory, and a process-table scan for the binary name.
func FindRunningInstances() []Instance {
	var found []Instance
	found = append(found, scanLockFiles()...)
	found = append(found, scanSockets()...)
	found = append(found, scanProcessTable()...)
	return dedupeByPID(found)
}

func scanLockFiles() []Instance {
	var found []Instance
	root := os.TempDir()
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		lockPath := filepath.Join(root, e.Name(), LockFileName)
		pid, err := ReadPID(lockPath)
		if err != nil {
			continue
		}
		if ProcessAlive(pid) {
			found = append(found, Instance{Name: "lockfile:" + lockPath, PID: pid})
		}
	}
	return found
}

func scanSockets() []Instance {
	var found []Instance
	root := os.TempDir()
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sock") {
			continue
		}
		sockPath := filepath.Join(root, e.Name())
		pid, ok := peerPIDFromSocket(sockPath)
		if ok {
			found = append(found, Instance{Name: "socket:" + sockPath, PID: pid})
		}
	}
	return found
}

// peerPIDFromSocket connects to a Unix domain socket and reads the peer
// pid via SO_PEERCRED-equivalent credentials. The platform-specific
// credential lookup is peerCredPID (peercred_linux.go, peercred_other.go);
// here we only need "is anyone listening and
// who are they", so a short-lived dial suffices.
func peerPIDFromSocket(path string) (int, bool) {
	conn, err := net.DialTimeout("unix", path, 200*time.Millisecond)
	if err != nil {
		return 0, false
	}
	defer conn.Close()

	unixConn, ok := conn.(*net.UnixConn)
	if !ok {
		return 0, false
	}
	pid, ok := peerCredPID(unixConn)
	return pid, ok
}

func scanProcessTable() []Instance {
	var found []Instance
	procs, err := process.Processes()
	if err != nil {
		return nil
	}
	for _, p := range procs {
		name, err := p.Name()
		if err != nil {
			continue
		}
		if baseNameMatches(name) {
			found = append(found, Instance{Name: "process", PID: int(p.Pid)})
			continue
		}
		if cmdline, err := p.CmdlineSlice(); err == nil && len(cmdline) > 0 {
			if baseNameMatches(filepath.Base(cmdline[0])) {
				found = append(found, Instance{Name: "process", PID: int(p.Pid)})
			}
		}
	}
	return found
}

func baseNameMatches(name string) bool {
	name = strings.TrimSuffix(name, ".exe")
	return name == "autogitpull"
}

func dedupeByPID(in []Instance) []Instance {
	seen := make(map[int]bool, len(in))
	out := make([]Instance, 0, len(in))
	for _, i := range in {
		if seen[i.PID] {
			continue
		}
		seen[i.PID] = true
		out = append(out, i)
	}
	return out
}

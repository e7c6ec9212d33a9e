//go:build linux

package lockfile

import (
	"net"

	"golang.org/x/sys/unix"
)

// peerCredPID reads the connecting peer's pid off a Unix domain socket via
// SO_PEERCRED, the Linux mechanism for credential passing over AF_UNIX.
func peerCredPID(conn *net.UnixConn) (int, bool) {
	raw, err := conn.SyscallConn()
	if err != nil {
		return 0, false
	}

	var pid int
	var ok bool
	ctrlErr := raw.Control(func(fd uintptr) {
		ucred, err := unix.GetsockoptUcred(int(fd), unix.SOL_SOCKET, unix.SO_PEERCRED)
		if err != nil {
			return
		}
		pid = int(ucred.Pid)
		ok = true
	})
	if ctrlErr != nil {
		return 0, false
	}
	return pid, ok
}

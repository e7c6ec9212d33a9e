//go:build !linux

package lockfile

import "net"

// peerCredPID has no portable implementation outside Linux's SO_PEERCRED;
// socket-based peer discovery degrades to "unknown" rather than failing
// the overall scan.
func peerCredPID(conn *net.UnixConn) (int, bool) {
	return 0, false
}

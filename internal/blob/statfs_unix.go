//go:build linux || darwin || freebsd

package blob

import "golang.org/x/sys/unix"

// availableBytes returns the space available to unprivileged users on the
// volume holding path.
func availableBytes(path string) (uint64, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return 0, err
	}
	return uint64(st.Bavail) * uint64(st.Bsize), nil //nolint:gosec,unconvert // field types differ per platform
}

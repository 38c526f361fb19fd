//go:build linux || darwin || freebsd || netbsd || openbsd || dragonfly

package recovery

import (
	"io"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// foreignLockHolder reports the pid of another process holding a POSIX
// record lock on the store's LOCK file. Chromium takes that lock with fcntl,
// which never conflicts with the flock goleveldb uses, so a direct open
// would succeed against a live store.
func foreignLockHolder(dir string) (int, bool) {
	f, err := os.Open(filepath.Join(dir, "LOCK"))
	if err != nil {
		return 0, false
	}
	defer f.Close()

	lk := unix.Flock_t{Type: unix.F_WRLCK, Whence: io.SeekStart}
	if err := unix.FcntlFlock(f.Fd(), unix.F_GETLK, &lk); err != nil {
		return 0, false
	}
	if lk.Type == unix.F_UNLCK {
		return 0, false
	}
	return int(lk.Pid), true
}

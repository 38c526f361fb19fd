//go:build linux || darwin || freebsd || netbsd || openbsd || dragonfly

package recovery

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

const lockFileEnv = "TABVAULT_TEST_FCNTL_LOCK"

// TestHelperProcessHoldLock is not a real test. It runs in a child process,
// takes an fcntl write lock on the file named by lockFileEnv the way
// Chromium does, prints "locked" and holds the lock until stdin closes.
func TestHelperProcessHoldLock(t *testing.T) {
	path := os.Getenv(lockFileEnv)
	if path == "" {
		t.Skip("helper process")
	}
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		fmt.Println("open:", err)
		return
	}
	defer f.Close()
	lk := unix.Flock_t{Type: unix.F_WRLCK, Whence: io.SeekStart}
	if err := unix.FcntlFlock(f.Fd(), unix.F_SETLK, &lk); err != nil {
		fmt.Println("lock:", err)
		return
	}
	fmt.Println("locked")
	_, _ = io.Copy(io.Discard, os.Stdin)
}

// holdFcntlLock locks dir/LOCK from another process for the rest of the test.
func holdFcntlLock(t *testing.T, dir string) {
	t.Helper()
	cmd := exec.Command(os.Args[0], "-test.run=^TestHelperProcessHoldLock$")
	cmd.Env = append(os.Environ(), lockFileEnv+"="+filepath.Join(dir, "LOCK"))
	stdin, err := cmd.StdinPipe()
	require.NoError(t, err)
	stdout, err := cmd.StdoutPipe()
	require.NoError(t, err)
	require.NoError(t, cmd.Start())
	t.Cleanup(func() {
		_ = stdin.Close()
		_ = cmd.Wait()
	})

	line, err := bufio.NewReader(stdout).ReadString('\n')
	require.NoError(t, err)
	require.Equal(t, "locked\n", line)
}

func TestForeignLockHolder(t *testing.T) {
	dir := closedFileStore(t, map[string]string{"k": "v"})
	_, held := foreignLockHolder(dir)
	assert.False(t, held)

	_, held = foreignLockHolder(t.TempDir())
	assert.False(t, held, "a directory without LOCK is not held")

	holdFcntlLock(t, dir)
	pid, held := foreignLockHolder(dir)
	assert.True(t, held)
	assert.NotEqual(t, os.Getpid(), pid)
}

func TestOpenSafeCopiesStoreUnderFcntlLock(t *testing.T) {
	dir := closedFileStore(t, map[string]string{"data": exampleRecord})
	holdFcntlLock(t, dir)

	h, err := OpenSafe(dir, nil)
	require.NoError(t, err)
	require.True(t, h.Copied(), "a store locked by another process must be read from a copy")
	assert.Equal(t, dir, h.Source)
	assert.NotEqual(t, dir, h.Path)

	v, err := h.DB.Get([]byte("data"), nil)
	require.NoError(t, err)
	assert.Equal(t, exampleRecord, string(v))
	require.NoError(t, h.Close())
}

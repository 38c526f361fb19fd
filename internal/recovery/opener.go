package recovery

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"go.uber.org/zap"
)

var (
	// ErrStoreUnavailable is returned when the store cannot be opened for a
	// reason other than lock contention.
	ErrStoreUnavailable = errors.New("recovery: store unavailable")

	// ErrStoreLocked marks an open failure caused by another process holding
	// the store. OpenSafe recovers from it by reading a copy.
	ErrStoreLocked = errors.New("recovery: store locked")
)

// openStore is a package-level var to allow test injection.
var openStore = func(path string) (*leveldb.DB, error) {
	return leveldb.OpenFile(path, &opt.Options{ReadOnly: true, ErrorIfMissing: true})
}

// Handle is an open, read-only store. When the original was locked, the
// handle reads a scratch copy that Close removes.
type Handle struct {
	DB      *leveldb.DB
	Path    string // directory actually opened
	Source  string // directory that was requested
	scratch string
}

// Copied reports whether the handle reads a scratch copy of the store.
func (h *Handle) Copied() bool { return h.scratch != "" }

// Close releases the store and removes any scratch copy.
func (h *Handle) Close() error {
	var err error
	if h.DB != nil {
		err = h.DB.Close()
		h.DB = nil
	}
	if h.scratch != "" {
		if rmErr := os.RemoveAll(h.scratch); rmErr != nil && err == nil {
			err = fmt.Errorf("recovery: remove scratch copy: %w", rmErr)
		}
		h.scratch = ""
	}
	return err
}

// OpenSafe opens the store at path read-only. If the browser holds the
// store's lock, either as an fcntl record lock on LOCK or as a lock that makes
// the open fail, the directory tree is copied to a scratch location and the
// copy is opened instead.
func OpenSafe(path string, log *zap.Logger) (*Handle, error) {
	if log == nil {
		log = zap.NewNop()
	}

	var (
		db  *leveldb.DB
		err error
	)
	if pid, held := foreignLockHolder(path); held {
		err = fmt.Errorf("%w: LOCK held by pid %d", ErrStoreLocked, pid)
	} else if db, err = openStore(path); err == nil {
		return &Handle{DB: db, Path: path, Source: path}, nil
	}
	if !isLockError(err) {
		return nil, fmt.Errorf("%w: %s: %v", ErrStoreUnavailable, path, err)
	}

	log.Warn("store is locked by another process, reading a copy",
		zap.String("path", path), zap.Error(err))

	scratch, err := os.MkdirTemp("", "tabvault-recovery-*")
	if err != nil {
		return nil, fmt.Errorf("%w: create scratch dir: %v", ErrStoreUnavailable, err)
	}
	copyPath := filepath.Join(scratch, "store")
	if err := copyTree(path, copyPath); err != nil {
		_ = os.RemoveAll(scratch)
		return nil, fmt.Errorf("%w: copy locked store: %v", ErrStoreUnavailable, err)
	}

	db, err = openStore(copyPath)
	if err != nil {
		_ = os.RemoveAll(scratch)
		return nil, fmt.Errorf("%w: open copied store: %v", ErrStoreUnavailable, err)
	}
	return &Handle{DB: db, Path: copyPath, Source: path, scratch: scratch}, nil
}

// isLockError reports whether err means another process holds the store.
func isLockError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrStoreLocked) ||
		errors.Is(err, syscall.EWOULDBLOCK) ||
		errors.Is(err, syscall.EAGAIN) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, hint := range []string{
		"resource temporarily unavailable",
		"being used by another process",
		"locked",
		"lock held",
	} {
		if strings.Contains(msg, hint) {
			return true
		}
	}
	return false
}

// copyTree copies the regular files and directories under src into dst.
func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		switch {
		case d.IsDir():
			return os.MkdirAll(target, 0o700)
		case d.Type().IsRegular():
			return copyFile(p, target)
		default:
			return nil
		}
	})
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

// Package snapshot keeps versioned copies of the tab archive in a git
// repository. Each snapshot is the whole archive serialized as one canonical
// JSON session and committed; restores feed that session back through the
// idempotent store import, so restoring twice adds nothing.
package snapshot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/HendryAvila/tabvault/internal/model"
	"github.com/HendryAvila/tabvault/internal/render"
	"github.com/HendryAvila/tabvault/internal/store"
)

// DefaultFilename is the snapshot file committed inside the repository.
const DefaultFilename = "tabvault-snapshot.json"

// timeNow is a package-level variable for testability.
var timeNow = time.Now

// gitBinary is a package-level variable for test injection.
var gitBinary = "git"

// ErrUnchanged is returned by Snapshot when the archive matches the last
// committed snapshot.
var ErrUnchanged = errors.New("snapshot: nothing changed since last snapshot")

// SessionReader supplies the archive to snapshot.
type SessionReader interface {
	Session(ctx context.Context) (*model.Session, error)
}

// Importer receives restored sessions.
type Importer interface {
	InsertSession(ctx context.Context, session *model.Session) (*store.InsertStats, error)
}

// Entry is one snapshot commit.
type Entry struct {
	Hash    string `json:"hash"`
	Message string `json:"message"`
}

// Manager runs git in RepoPath and commits Filename.
type Manager struct {
	RepoPath string
	Filename string
	Log      *zap.Logger
}

// New returns a Manager using DefaultFilename when filename is empty.
func New(repoPath, filename string, log *zap.Logger) *Manager {
	if filename == "" {
		filename = DefaultFilename
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{RepoPath: repoPath, Filename: filename, Log: log}
}

// Path returns the snapshot file location.
func (m *Manager) Path() string {
	return filepath.Join(m.RepoPath, m.Filename)
}

// Init creates the repository directory and runs git init in it.
func (m *Manager) Init(ctx context.Context) error {
	if err := os.MkdirAll(m.RepoPath, 0o755); err != nil {
		return fmt.Errorf("snapshot: create repo dir: %w", err)
	}
	if _, err := m.git(ctx, "init"); err != nil {
		return err
	}
	return nil
}

// Snapshot writes the current archive and commits it. It returns the short
// hash of the new commit.
func (m *Manager) Snapshot(ctx context.Context, src SessionReader) (string, error) {
	session, err := src.Session(ctx)
	if err != nil {
		return "", fmt.Errorf("snapshot: read archive: %w", err)
	}

	var buf bytes.Buffer
	if err := render.Write(&buf, render.JSON, session); err != nil {
		return "", fmt.Errorf("snapshot: encode: %w", err)
	}
	if err := os.WriteFile(m.Path(), buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("snapshot: write %s: %w", m.Path(), err)
	}

	if _, err := m.git(ctx, "add", "--", m.Filename); err != nil {
		return "", err
	}
	if _, err := m.git(ctx, "diff", "--cached", "--quiet", "--", m.Filename); err == nil {
		return "", ErrUnchanged
	}

	msg := fmt.Sprintf("tabvault snapshot: %d groups, %d tabs (%s)",
		len(session.Groups), session.TotalTabs(), timeNow().UTC().Format("2006-01-02 15:04:05 UTC"))
	out, err := m.git(ctx, "commit", "-m", msg)
	if err != nil {
		return "", err
	}

	hash := parseCommitHash(out)
	m.Log.Info("snapshot committed",
		zap.String("hash", hash),
		zap.Int("groups", len(session.Groups)),
		zap.Int("tabs", session.TotalTabs()))
	return hash, nil
}

// Restore imports the snapshot file currently in the working tree.
func (m *Manager) Restore(ctx context.Context, dst Importer) (*store.InsertStats, error) {
	data, err := os.ReadFile(m.Path())
	if err != nil {
		return nil, fmt.Errorf("snapshot: read %s: %w", m.Path(), err)
	}
	return m.restore(ctx, dst, data)
}

// RestoreFromCommit imports the snapshot file as it was at commit.
func (m *Manager) RestoreFromCommit(ctx context.Context, dst Importer, commit string) (*store.InsertStats, error) {
	commit = strings.TrimSpace(commit)
	if commit == "" || strings.HasPrefix(commit, "-") || strings.ContainsAny(commit, ": \t\n") {
		return nil, fmt.Errorf("snapshot: invalid commit %q", commit)
	}
	out, err := m.git(ctx, "show", commit+":"+m.Filename)
	if err != nil {
		return nil, err
	}
	return m.restore(ctx, dst, []byte(out))
}

func (m *Manager) restore(ctx context.Context, dst Importer, data []byte) (*store.InsertStats, error) {
	var session model.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("snapshot: decode: %w", err)
	}
	stats, err := dst.InsertSession(ctx, &session)
	if err != nil {
		return nil, fmt.Errorf("snapshot: import: %w", err)
	}
	return stats, nil
}

// List returns up to limit snapshot commits, newest first.
func (m *Manager) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 10
	}
	out, err := m.git(ctx, "log", "--oneline", fmt.Sprintf("-%d", limit), "--", m.Filename)
	if err != nil {
		return nil, err
	}

	entries := []Entry{}
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		hash, msg, _ := strings.Cut(line, " ")
		entries = append(entries, Entry{Hash: hash, Message: msg})
	}
	return entries, nil
}

// parseCommitHash extracts the short hash from the first line of git commit
// output: "[main abc1234] msg" or "[main (root-commit) abc1234] msg".
func parseCommitHash(out string) string {
	first, _, _ := strings.Cut(out, "\n")
	first = strings.TrimPrefix(strings.TrimSpace(first), "[")
	inside, _, ok := strings.Cut(first, "]")
	if !ok {
		return "unknown"
	}
	fields := strings.Fields(inside)
	if len(fields) == 0 {
		return "unknown"
	}
	return fields[len(fields)-1]
}

func (m *Manager) git(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, gitBinary, args...)
	cmd.Dir = m.RepoPath
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("snapshot: git %s: %w: %s", args[0], err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

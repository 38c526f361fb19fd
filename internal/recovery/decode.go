package recovery

import (
	"bytes"
	"encoding/json"
	"fmt"
	"iter"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/syndtr/goleveldb/leveldb/iterator"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"
	"go.uber.org/zap"

	"github.com/HendryAvila/tabvault/internal/model"
)

// rootMarker identifies the extension's root record among unrelated entries.
var rootMarker = []byte("tabGroups")

// EntryStore is the read side of a key-value store: a full scan over all
// entries. *leveldb.DB satisfies it.
type EntryStore interface {
	NewIterator(slice *util.Range, ro *opt.ReadOptions) iterator.Iterator
}

// Encoding tags how a stored value held the root record.
type Encoding int

const (
	// Unrecognized values are not the root record or failed to parse.
	Unrecognized Encoding = iota
	// DirectObject values are the root record as a JSON object.
	DirectObject
	// EscapedString values are a JSON string whose contents are the root record.
	EscapedString
)

func (e Encoding) String() string {
	switch e {
	case DirectObject:
		return "direct"
	case EscapedString:
		return "escaped"
	default:
		return "unrecognized"
	}
}

// ─── Stored schema ───────────────────────────────────────────────────────────

type rootRecord struct {
	TabGroups []storedGroup `json:"tabGroups"`
}

type storedGroup struct {
	ID         string      `json:"id"`
	Title      *string     `json:"title"`
	CreateDate json.Number `json:"createDate"`
	TabsMeta   []storedTab `json:"tabsMeta"`
	Pinned     bool        `json:"pinned"`
	Locked     bool        `json:"locked"`
	Starred    bool        `json:"starred"`
}

type storedTab struct {
	ID      string  `json:"id"`
	URL     string  `json:"url"`
	Title   string  `json:"title"`
	Favicon *string `json:"favicon"`
}

// decodeRoot attempts to read value as the extension's root record. It first
// parses a JSON object directly and, when that fails, unquotes one layer of
// JSON string encoding and parses the contents.
func decodeRoot(value []byte) (*rootRecord, Encoding) {
	if !utf8.Valid(value) || !bytes.Contains(value, rootMarker) {
		return nil, Unrecognized
	}

	if root, ok := parseRoot(value); ok {
		return root, DirectObject
	}

	var inner string
	if err := json.Unmarshal(value, &inner); err != nil {
		return nil, Unrecognized
	}
	if root, ok := parseRoot([]byte(inner)); ok {
		return root, EscapedString
	}
	return nil, Unrecognized
}

func parseRoot(data []byte) (*rootRecord, bool) {
	var root rootRecord
	if err := json.Unmarshal(data, &root); err != nil || root.TabGroups == nil {
		return nil, false
	}
	return &root, true
}

// ─── Decoder ─────────────────────────────────────────────────────────────────

// DecodeReport counts what a scan saw and what it had to skip.
type DecodeReport struct {
	Entries        int `json:"entries"`
	RootRecords    int `json:"root_records"`
	EscapedRecords int `json:"escaped_records"`
	SkippedEntries int `json:"skipped_entries"`
	Groups         int `json:"groups"`
	Tabs           int `json:"tabs"`
	SkippedTabs    int `json:"skipped_tabs"`
	DroppedGroups  int `json:"dropped_groups"`
}

// Decoder extracts tab groups from a store's entries.
type Decoder struct {
	Log *zap.Logger
}

func (d Decoder) log() *zap.Logger {
	if d.Log == nil {
		return zap.NewNop()
	}
	return d.Log
}

// Groups returns a lazy sequence of the tab groups in db, in store order.
// Every iteration starts a new scan and resets report, so the counts always
// describe the latest scan. Malformed entries and tabs are skipped and
// counted in report, which may be nil. The only error yielded is a failure of
// the underlying iterator, after which the sequence ends.
func (d Decoder) Groups(db EntryStore, report *DecodeReport) iter.Seq2[model.TabGroup, error] {
	if report == nil {
		report = &DecodeReport{}
	}
	log := d.log()

	return func(yield func(model.TabGroup, error) bool) {
		*report = DecodeReport{}
		it := db.NewIterator(nil, nil)
		defer it.Release()

		for it.Next() {
			report.Entries++
			value := it.Value()
			root, enc := decodeRoot(value)
			if enc == Unrecognized {
				if bytes.Contains(value, rootMarker) {
					report.SkippedEntries++
					log.Warn("skipping malformed root record", zap.ByteString("key", it.Key()))
				}
				continue
			}
			report.RootRecords++
			if enc == EscapedString {
				report.EscapedRecords++
			}

			for _, sg := range root.TabGroups {
				group, ok := d.convertGroup(sg, report)
				if !ok {
					continue
				}
				report.Groups++
				report.Tabs += len(group.Tabs)
				if !yield(group, nil) {
					return
				}
			}
		}
		if err := it.Error(); err != nil {
			yield(model.TabGroup{}, fmt.Errorf("recovery: iterate store: %w", err))
		}
	}
}

func (d Decoder) convertGroup(sg storedGroup, report *DecodeReport) (model.TabGroup, bool) {
	log := d.log()
	if sg.ID == "" {
		report.DroppedGroups++
		report.SkippedTabs += len(sg.TabsMeta)
		log.Warn("dropping group without id", zap.Int("tabs", len(sg.TabsMeta)))
		return model.TabGroup{}, false
	}

	created := model.FromUnixMillis(parseMillis(sg.CreateDate))
	group := model.TabGroup{
		ID:        sg.ID,
		Label:     nonEmpty(sg.Title),
		CreatedAt: created,
		Tabs:      make([]model.Tab, 0, len(sg.TabsMeta)),
		Pinned:    sg.Pinned,
		Locked:    sg.Locked,
		Starred:   sg.Starred,
	}

	for _, st := range sg.TabsMeta {
		u, err := model.ParseURL(st.URL)
		if err != nil {
			report.SkippedTabs++
			log.Warn("skipping tab with invalid url",
				zap.String("group", sg.ID), zap.String("url", st.URL), zap.Error(err))
			continue
		}
		group.Tabs = append(group.Tabs, model.Tab{
			ID:         st.ID,
			URL:        u,
			Title:      st.Title,
			FaviconURL: nonEmpty(st.Favicon),
			AddedAt:    created,
		})
	}

	if len(group.Tabs) == 0 {
		report.DroppedGroups++
		log.Warn("dropping group with no valid tabs", zap.String("group", sg.ID))
		return model.TabGroup{}, false
	}
	return group, true
}

// Decode scans db once and collects every group into a session.
func (d Decoder) Decode(db EntryStore, source model.Source) (*model.Session, *DecodeReport, error) {
	report := &DecodeReport{}
	session := model.NewSession(source)
	for group, err := range d.Groups(db, report) {
		if err != nil {
			return nil, report, err
		}
		session.Groups = append(session.Groups, group)
	}
	return session, report, nil
}

// parseMillis reads an epoch-millisecond value that may have been stored as a
// float. Unparseable values map to the epoch.
func parseMillis(n json.Number) int64 {
	if n == "" {
		return 0
	}
	if ms, err := n.Int64(); err == nil {
		return ms
	}
	if f, err := strconv.ParseFloat(string(n), 64); err == nil {
		return int64(f)
	}
	return 0
}

func nonEmpty(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	v := *s
	return &v
}

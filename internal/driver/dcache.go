package driver

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/vmihailenco/msgpack/v5"

	"plcc/internal/diag"
	"plcc/internal/source"
	"plcc/internal/version"
)

// Current schema version; increment when CachedRun changes.
const diskCacheSchemaVersion uint16 = 1

// Digest is a SHA-256 cache key.
type Digest [32]byte

func (d Digest) String() string { return hex.EncodeToString(d[:]) }

// DiskCache keeps the diagnostics of earlier checks, keyed by the hash of
// every input and the configuration. Safe for concurrent use.
type DiskCache struct {
	mu  sync.RWMutex
	dir string
}

// CachedRun is the on-disk record of one check.
type CachedRun struct {
	Schema      uint16
	Version     string
	Files       []string
	Diagnostics []CachedDiagnostic
}

// CachedDiagnostic stores spans by path since file ids are per run.
type CachedDiagnostic struct {
	Severity uint8
	Code     uint16
	Message  string
	Span     CachedSpan
	Notes    []CachedNote
}

type CachedSpan struct {
	Path       string
	Start, End uint32
}

type CachedNote struct {
	Span CachedSpan
	Msg  string
}

// OpenDiskCache opens the cache in dir, or under the user cache directory
// when dir is "".
func OpenDiskCache(dir string) (*DiskCache, error) {
	if dir == "" {
		base := os.Getenv("XDG_CACHE_HOME")
		if base == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return nil, fmt.Errorf("diagnostics cache: %w", err)
			}
			base = filepath.Join(home, ".cache")
		}
		dir = filepath.Join(base, "plcc")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("diagnostics cache: %w", err)
	}
	return &DiskCache{dir: dir}, nil
}

func (c *DiskCache) pathFor(key Digest) string {
	return filepath.Join(c.dir, "diag", key.String()+".mp")
}

// Put writes run under key, replacing the file atomically.
func (c *DiskCache) Put(key Digest, run *CachedRun) error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(f.Name())

	run.Schema = diskCacheSchemaVersion
	if err := msgpack.NewEncoder(f).Encode(run); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), p)
}

// Get reads the run stored under key. A record of another schema is a miss.
func (c *DiskCache) Get(key Digest) (*CachedRun, bool, error) {
	if c == nil {
		return nil, false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, err := os.Open(c.pathFor(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer f.Close()
	var run CachedRun
	if err := msgpack.NewDecoder(f).Decode(&run); err != nil {
		return nil, false, err
	}
	if run.Schema != diskCacheSchemaVersion || run.Version != version.Version {
		return nil, false, nil
	}
	return &run, true, nil
}

// DropAll removes every record.
func (c *DiskCache) DropAll() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return os.RemoveAll(filepath.Join(c.dir, "diag"))
}

// cacheKey hashes the compiler version, the configuration fingerprint and
// the path and content hash of every file, in path order.
func cacheKey(fileSet *source.FileSet, ids []source.FileID, fingerprint string) Digest {
	files := make([]*source.File, 0, len(ids))
	for _, id := range ids {
		if f := fileSet.Get(id); f != nil {
			files = append(files, f)
		}
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })

	h := sha256.New()
	_, _ = h.Write([]byte(version.Version))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(fingerprint))
	for _, f := range files {
		_, _ = h.Write([]byte{0})
		_, _ = h.Write([]byte(f.Path))
		_, _ = h.Write(f.Hash[:])
	}
	var out Digest
	copy(out[:], h.Sum(nil))
	return out
}

func toCachedSpan(fileSet *source.FileSet, sp source.Span) CachedSpan {
	out := CachedSpan{Start: sp.Start, End: sp.End}
	if f := fileSet.Get(sp.File); f != nil {
		out.Path = f.Path
	}
	return out
}

func fromCachedSpan(fileSet *source.FileSet, cs CachedSpan) source.Span {
	if cs.Path == "" {
		return source.Span{Start: cs.Start, End: cs.End}
	}
	id, ok := fileSet.GetLatest(cs.Path)
	if !ok {
		return source.Undefined()
	}
	return source.Span{File: id, Start: cs.Start, End: cs.End}
}

func toCachedRun(fileSet *source.FileSet, ids []source.FileID, diags []diag.Diagnostic) *CachedRun {
	run := &CachedRun{Version: version.Version, Diagnostics: make([]CachedDiagnostic, len(diags))}
	for _, id := range ids {
		if f := fileSet.Get(id); f != nil {
			run.Files = append(run.Files, f.Path)
		}
	}
	for i, d := range diags {
		cd := CachedDiagnostic{
			Severity: uint8(d.Severity),
			Code:     uint16(d.Code),
			Message:  d.Message,
			Span:     toCachedSpan(fileSet, d.Primary),
		}
		for _, n := range d.Notes {
			cd.Notes = append(cd.Notes, CachedNote{Span: toCachedSpan(fileSet, n.Span), Msg: n.Msg})
		}
		run.Diagnostics[i] = cd
	}
	return run
}

func fromCachedRun(fileSet *source.FileSet, run *CachedRun) []diag.Diagnostic {
	out := make([]diag.Diagnostic, len(run.Diagnostics))
	for i, cd := range run.Diagnostics {
		d := diag.New(diag.Severity(cd.Severity), diag.Code(cd.Code), fromCachedSpan(fileSet, cd.Span), cd.Message)
		for _, n := range cd.Notes {
			d = d.WithNote(fromCachedSpan(fileSet, n.Span), n.Msg)
		}
		out[i] = d
	}
	return out
}

package duckdb

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/inodb/vibe-gpa/internal/ontology"
)

// OntologyCache keeps a gob-serialized ontology next to a fingerprint of the
// source file it was parsed from:
//
//	{dir}/{name}.gob       (ontology snapshot)
//	{dir}/{name}.gob.meta  (source fingerprint)
type OntologyCache struct {
	dir    string
	name   string
	logger *zap.Logger
}

// NewOntologyCache returns a cache for the source file at path, stored in dir.
// An empty dir places the cache beside the source.
func NewOntologyCache(dir, path string) *OntologyCache {
	if dir == "" {
		dir = filepath.Dir(path)
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return &OntologyCache{dir: dir, name: name, logger: zap.NewNop()}
}

// SetLogger replaces the cache's logger.
func (oc *OntologyCache) SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	oc.logger = l
}

func (oc *OntologyCache) gobPath() string {
	return filepath.Join(oc.dir, oc.name+".gob")
}

func (oc *OntologyCache) metaPath() string {
	return filepath.Join(oc.dir, oc.name+".gob.meta")
}

// Valid reports whether the cached ontology was built from a file with the
// given fingerprint.
func (oc *OntologyCache) Valid(src FileFingerprint) bool {
	meta, err := oc.readMeta()
	if err != nil {
		return false
	}
	for k, v := range src.fields() {
		if meta[k] != v {
			return false
		}
	}
	_, err = os.Stat(oc.gobPath())
	return err == nil
}

// Load decodes the cached ontology.
func (oc *OntologyCache) Load() (*ontology.Ontology, error) {
	f, err := os.Open(oc.gobPath())
	if err != nil {
		return nil, fmt.Errorf("open ontology cache: %w", err)
	}
	defer f.Close()

	var snap ontology.Snapshot
	if err := gob.NewDecoder(f).Decode(&snap); err != nil {
		return nil, fmt.Errorf("decode ontology cache: %w", err)
	}
	return ontology.FromSnapshot(snap)
}

// Write serializes o and records the fingerprint of its source.
func (oc *OntologyCache) Write(o *ontology.Ontology, src FileFingerprint) error {
	if err := os.MkdirAll(oc.dir, 0755); err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}
	f, err := os.Create(oc.gobPath())
	if err != nil {
		return fmt.Errorf("create ontology cache: %w", err)
	}
	if err := gob.NewEncoder(f).Encode(o.Snapshot()); err != nil {
		f.Close()
		os.Remove(oc.gobPath())
		return fmt.Errorf("encode ontology cache: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close ontology cache: %w", err)
	}
	return oc.writeMeta(o.Version(), src)
}

// Clear removes the cached files.
func (oc *OntologyCache) Clear() {
	os.Remove(oc.gobPath())
	os.Remove(oc.metaPath())
}

// LoadOrParse returns the cached ontology when it matches the source file,
// otherwise parses the source with parse and refreshes the cache. A cache
// that cannot be written does not fail the load.
func (oc *OntologyCache) LoadOrParse(path string, parse func(string) (*ontology.Ontology, error)) (*ontology.Ontology, error) {
	src, err := StatFile(path)
	if err != nil {
		return nil, fmt.Errorf("stat ontology: %w", err)
	}
	if oc.Valid(src) {
		o, err := oc.Load()
		if err == nil {
			oc.logger.Debug("ontology cache hit", zap.String("path", oc.gobPath()))
			return o, nil
		}
		oc.logger.Warn("ontology cache unreadable", zap.Error(err))
	}
	oc.logger.Debug("ontology cache miss", zap.String("source", path))

	o, err := parse(path)
	if err != nil {
		return nil, err
	}
	if err := oc.Write(o, src); err != nil {
		oc.logger.Warn("could not write ontology cache", zap.Error(err))
		oc.Clear()
	}
	return o, nil
}

func (oc *OntologyCache) writeMeta(version string, src FileFingerprint) error {
	var b strings.Builder
	for _, k := range []string{"source_size", "source_modtime"} {
		b.WriteString(k + "=" + src.fields()[k] + "\n")
	}
	b.WriteString("version=" + version + "\n")
	b.WriteString("created_at=" + time.Now().UTC().Format(time.RFC3339) + "\n")
	return os.WriteFile(oc.metaPath(), []byte(b.String()), 0644)
}

func (oc *OntologyCache) readMeta() (map[string]string, error) {
	data, err := os.ReadFile(oc.metaPath())
	if err != nil {
		return nil, err
	}

	meta := make(map[string]string)
	for _, line := range strings.Split(string(data), "\n") {
		if k, v, ok := strings.Cut(line, "="); ok {
			meta[k] = v
		}
	}
	return meta, nil
}

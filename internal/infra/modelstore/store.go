// Package modelstore persists trained predictor state (the skill-compatibility
// table plus the success and duration regression coefficients) as
// content-addressed blobs with a JSON manifest, so a run can reuse a prior
// run's trained models instead of retraining from scratch (spec.md §9's
// model persistence note).
//
// Regeneralized from a local LLM model registry (internal/infra/registry):
// the blob-directory-plus-manifest layout and digest addressing are kept;
// the sqlite-backed catalog of pulled models is dropped, since here there is
// exactly one snapshot per (name, tag) and no network pull path to track —
// the manifest file itself is the catalog entry.
package modelstore

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fieldforce/dispatchopt/internal/domain"
)

// Snapshot bundles everything a run needs to skip retraining.
type Snapshot struct {
	SkillCompat    []domain.SkillCompatEntry `json:"skill_compat"`
	SkillBaseline  float64                   `json:"skill_baseline"`
	SuccessWeights []float64                 `json:"success_weights"`
	SuccessBias    float64                   `json:"success_bias"`
	DurationWeights []float64                `json:"duration_weights"`
	DurationBias    float64                  `json:"duration_bias"`
}

// manifest is the on-disk record pointing at a snapshot's content-addressed
// blob. Mirrors the registry package's digest+size manifest shape.
type manifest struct {
	SchemaVersion int    `json:"schema_version"`
	Digest        string `json:"digest"`
	Size          int64  `json:"size"`
}

// Ref names one stored snapshot, e.g. {Name: "default", Tag: "2026-07-31"}.
type Ref struct {
	Name string
	Tag  string
}

func (r Ref) tag() string {
	if r.Tag == "" {
		return "latest"
	}
	return r.Tag
}

func (r Ref) String() string {
	return r.Name + ":" + r.tag()
}

// ParseRef parses a "name:tag" string into a Ref, defaulting tag to latest.
func ParseRef(s string) Ref {
	parts := strings.SplitN(s, ":", 2)
	ref := Ref{Name: parts[0]}
	if len(parts) == 2 {
		ref.Tag = parts[1]
	}
	return ref
}

// Store manages content-addressed snapshot blobs in a local directory.
type Store struct {
	dir string // root directory (contains blobs/ and manifests/)
}

// New creates a Store rooted at dir.
func New(dir string) *Store {
	return &Store{dir: dir}
}

// Init ensures the directory structure exists.
func (s *Store) Init() error {
	for _, d := range []string{s.blobsDir(), s.manifestsDir()} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", d, err)
		}
	}
	return nil
}

func (s *Store) blobsDir() string     { return filepath.Join(s.dir, "blobs") }
func (s *Store) manifestsDir() string { return filepath.Join(s.dir, "manifests") }

// BlobPath returns the filesystem path for a content-addressed blob.
func (s *Store) BlobPath(digest string) string {
	safe := strings.ReplaceAll(digest, ":", "-")
	return filepath.Join(s.blobsDir(), safe)
}

// ManifestPath returns the path for a snapshot's manifest file.
func (s *Store) ManifestPath(ref Ref) string {
	return filepath.Join(s.manifestsDir(), ref.Name, ref.tag())
}

// HasLocal reports whether a snapshot exists locally.
func (s *Store) HasLocal(ref Ref) bool {
	_, err := os.Stat(s.ManifestPath(ref))
	return err == nil
}

// Save writes a snapshot's blob and manifest, overwriting any existing
// snapshot under the same ref.
func (s *Store) Save(ref Ref, snap Snapshot) error {
	if err := s.Init(); err != nil {
		return err
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	digest := "sha256:" + computeSHA256(data)

	blobPath := s.BlobPath(digest)
	if err := os.WriteFile(blobPath, data, 0o644); err != nil {
		return fmt.Errorf("write blob: %w", err)
	}

	man := manifest{SchemaVersion: 1, Digest: digest, Size: int64(len(data))}
	return s.saveManifest(ref, man)
}

// Load reads back a previously saved snapshot.
func (s *Store) Load(ref Ref) (Snapshot, error) {
	man, err := s.loadManifest(ref)
	if err != nil {
		return Snapshot{}, domain.ErrSnapshotNotFound
	}

	data, err := os.ReadFile(s.BlobPath(man.Digest))
	if err != nil {
		return Snapshot{}, domain.ErrSnapshotCorrupted
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("parse snapshot: %w", domain.ErrSnapshotCorrupted)
	}
	return snap, nil
}

// Remove deletes a snapshot's blob and manifest. Missing files are not an
// error — Remove is idempotent.
func (s *Store) Remove(ref Ref) error {
	if man, err := s.loadManifest(ref); err == nil {
		_ = os.Remove(s.BlobPath(man.Digest))
	}
	if err := os.Remove(s.ManifestPath(ref)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// List returns every locally stored snapshot ref, sorted by name then tag.
func (s *Store) List() ([]Ref, error) {
	names, err := os.ReadDir(s.manifestsDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var refs []Ref
	for _, n := range names {
		if !n.IsDir() {
			continue
		}
		tags, err := os.ReadDir(filepath.Join(s.manifestsDir(), n.Name()))
		if err != nil {
			continue
		}
		for _, t := range tags {
			if t.IsDir() {
				continue
			}
			refs = append(refs, Ref{Name: n.Name(), Tag: t.Name()})
		}
	}
	return refs, nil
}

func (s *Store) loadManifest(ref Ref) (manifest, error) {
	data, err := os.ReadFile(s.ManifestPath(ref))
	if err != nil {
		return manifest{}, fmt.Errorf("read manifest: %w", err)
	}
	var man manifest
	if err := json.Unmarshal(data, &man); err != nil {
		return manifest{}, fmt.Errorf("parse manifest: %w", err)
	}
	return man, nil
}

func (s *Store) saveManifest(ref Ref, man manifest) error {
	mpath := s.ManifestPath(ref)
	if err := os.MkdirAll(filepath.Dir(mpath), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(man, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(mpath, data, 0o644)
}

func computeSHA256(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

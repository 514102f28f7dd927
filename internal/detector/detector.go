// Package detector decides whether a job's monitored content changed since
// the previous cycle.
package detector

import (
	"fmt"
	"strings"

	"github.com/agent-007-kali/intel-agent/internal/intel"
)

const snapshotSeparator = "\n\n---\n\n"

// Detector combines page snapshots into one canonical text and digests it.
// The canonical form is a pure function of snapshot content and order, so
// identical pages always produce identical digests across restarts.
type Detector struct {
	hasher intel.Hasher
}

// New builds a Detector on top of a Hasher.
func New(hasher intel.Hasher) *Detector {
	return &Detector{hasher: hasher}
}

// Combine renders snapshots into the canonical comparison text, in the
// order they were produced.
func (d *Detector) Combine(snapshots []intel.Snapshot) string {
	parts := make([]string, 0, len(snapshots))
	for _, s := range snapshots {
		parts = append(parts, fmt.Sprintf("URL: %s\n%s", s.URL, s.Text))
	}
	return strings.Join(parts, snapshotSeparator)
}

// Digest hashes the canonical text of the given snapshots.
func (d *Detector) Digest(snapshots []intel.Snapshot) (string, error) {
	return d.DigestText(d.Combine(snapshots))
}

// DigestText hashes already-combined canonical text.
func (d *Detector) DigestText(text string) (string, error) {
	digest, err := d.hasher.Hash([]byte(text))
	if err != nil {
		return "", fmt.Errorf("hash combined snapshots: %w", err)
	}
	return digest, nil
}

// Detect digests canonical text and compares against the previously stored
// hash. A job with no prior hash always counts as changed.
func (d *Detector) Detect(text, previousHash string) (digest string, changed bool, err error) {
	digest, err = d.DigestText(text)
	if err != nil {
		return "", false, err
	}
	return digest, previousHash == "" || digest != previousHash, nil
}

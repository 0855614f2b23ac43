// Package ledger — the execution provenance ledger.
//
// An append-only, hash-chained record of every decision, evidence
// bundle, and executor-reported claim. Entries are immutable once
// appended; the chain is the tamper-evidence mechanism: verification
// detects mutation, it does not prevent it. The ledger is the only
// mutable state in the decision core and has single-writer discipline:
// concurrent appends must be serialized before they reach it.
package ledger

import (
	"fmt"
	"sync"
	"time"

	"github.com/farsight-labs/warden/pkg/canonicalize"
	"github.com/farsight-labs/warden/pkg/contracts"
)

// EntryKind categorizes ledger entries.
type EntryKind string

const (
	KindDecision      EntryKind = "DECISION"
	KindEvidence      EntryKind = "EVIDENCE"
	KindExecutorClaim EntryKind = "EXECUTOR_CLAIM"
)

// GenesisHash anchors the chain before the first entry.
const GenesisHash = "genesis"

// Entry is an immutable, hash-chained ledger record.
type Entry struct {
	Sequence    uint64         `json:"sequence"`
	Kind        EntryKind      `json:"kind"`
	PayloadHash string         `json:"payload_hash"`
	PrevHash    string         `json:"prev_hash"`
	Timestamp   time.Time      `json:"timestamp"`
	Actor       string         `json:"actor,omitempty"`
	Payload     map[string]any `json:"payload"`
}

// Ledger is an append-only, hash-chained log with a single writer.
type Ledger struct {
	mu       sync.RWMutex
	entries  []Entry
	headHash string
	clock    func() time.Time
}

// New creates an empty ledger.
func New() *Ledger {
	return &Ledger{
		entries:  make([]Entry, 0),
		headHash: GenesisHash,
		clock:    time.Now,
	}
}

// Restore rebuilds a ledger from persisted entries. The chain is
// verified before any entry is accepted; appends continue from the
// restored head.
func Restore(entries []Entry) (*Ledger, error) {
	if err := VerifyEntries(entries); err != nil {
		return nil, err
	}
	l := New()
	l.entries = append(l.entries, entries...)
	if n := len(entries); n > 0 {
		l.headHash = entries[n-1].PayloadHash
	}
	return l, nil
}

// WithClock overrides clock for testing.
func (l *Ledger) WithClock(clock func() time.Time) *Ledger {
	l.clock = clock
	return l
}

// hashInput is the canonical preimage of an entry's payload hash. The
// previous hash participates, which is what chains the entries.
type hashInput struct {
	Sequence uint64         `json:"sequence"`
	Kind     EntryKind      `json:"kind"`
	Payload  map[string]any `json:"payload"`
	PrevHash string         `json:"prev_hash"`
}

// Append adds an entry and returns its sequence number.
func (l *Ledger) Append(kind EntryKind, actor string, payload map[string]any) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	seq := uint64(len(l.entries)) + 1
	payloadHash, err := canonicalize.CanonicalHash(hashInput{
		Sequence: seq,
		Kind:     kind,
		Payload:  payload,
		PrevHash: l.headHash,
	})
	if err != nil {
		return 0, fmt.Errorf("ledger: hashing entry %d: %w", seq, err)
	}

	l.entries = append(l.entries, Entry{
		Sequence:    seq,
		Kind:        kind,
		PayloadHash: payloadHash,
		PrevHash:    l.headHash,
		Timestamp:   l.clock(),
		Actor:       actor,
		Payload:     payload,
	})
	l.headHash = payloadHash

	return seq, nil
}

// Get retrieves an entry by sequence number.
func (l *Ledger) Get(seq uint64) (*Entry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if seq == 0 || seq > uint64(len(l.entries)) {
		return nil, fmt.Errorf("ledger: entry %d not found", seq)
	}
	entry := l.entries[seq-1]
	return &entry, nil
}

// Head returns the current head hash.
func (l *Ledger) Head() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.headHash
}

// Length returns the number of entries.
func (l *Ledger) Length() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Entries returns a read-only snapshot of the full chain, in order, for
// external audit tooling.
func (l *Ledger) Entries() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// VerifyChain recomputes every entry's expected hash from its
// predecessor and returns a ChainIntegrityViolation at the first broken
// link. A nil return means the chain is intact.
func (l *Ledger) VerifyChain() error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return VerifyEntries(l.entries)
}

// VerifyEntries checks an entry sequence loaded from elsewhere (e.g. a
// persisted copy) against the chain rules.
func VerifyEntries(entries []Entry) error {
	prevHash := GenesisHash
	for i, entry := range entries {
		seq := uint64(i) + 1
		if entry.Sequence != seq {
			return &contracts.ChainIntegrityViolation{
				Sequence: seq,
				Detail:   fmt.Sprintf("expected sequence %d, found %d", seq, entry.Sequence),
			}
		}
		if entry.PrevHash != prevHash {
			return &contracts.ChainIntegrityViolation{
				Sequence: seq,
				Detail:   fmt.Sprintf("back-reference %s does not match predecessor %s", entry.PrevHash, prevHash),
			}
		}
		computed, err := canonicalize.CanonicalHash(hashInput{
			Sequence: entry.Sequence,
			Kind:     entry.Kind,
			Payload:  entry.Payload,
			PrevHash: entry.PrevHash,
		})
		if err != nil {
			return &contracts.ChainIntegrityViolation{
				Sequence: seq,
				Detail:   fmt.Sprintf("payload not hashable: %v", err),
			}
		}
		if computed != entry.PayloadHash {
			return &contracts.ChainIntegrityViolation{
				Sequence: seq,
				Detail:   "recorded payload hash does not match recomputed hash",
			}
		}
		prevHash = entry.PayloadHash
	}
	return nil
}

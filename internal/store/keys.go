package store

import (
	"fmt"
	"sync"
	"time"
)

// Separator joins key namespace segments, e.g. "slack::activity::...".
const Separator = "::"

// tsWidth is the fixed decimal width of the millisecond-epoch suffix.
// The width is load-bearing: it makes lexicographic key order equal
// chronological order, which Trim depends on. 13 digits covers epoch
// milliseconds until the year 2286; widening the field changes the key
// format and must not be done silently.
const tsWidth = 13

// Keyer mints timestamp-ordered keys under a fixed prefix. The
// millisecond clock is guarded so two events minted in the same tick
// still produce strictly increasing keys, preserving arrival order.
type Keyer struct {
	prefix string
	now    func() time.Time

	mu   sync.Mutex
	last int64
}

// NewKeyer returns a Keyer minting keys under prefix.
func NewKeyer(prefix string) *Keyer {
	return &Keyer{prefix: prefix, now: time.Now}
}

// Prefix returns the namespace prefix this Keyer mints under.
func (k *Keyer) Prefix() string {
	return k.prefix
}

// Next mints the next key. Safe for concurrent use.
func (k *Keyer) Next() string {
	k.mu.Lock()
	defer k.mu.Unlock()

	ms := k.now().UnixMilli()
	if ms <= k.last {
		ms = k.last + 1
	}
	k.last = ms
	return fmt.Sprintf("%s%s%0*d", k.prefix, Separator, tsWidth, ms)
}

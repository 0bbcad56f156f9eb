package node

import (
	"math/rand"
	"net"
	"sync"
	"time"

	"github.com/nanomesh-go/node/node/p2p"
)

// KeepaliveCutoff is the liveness window past which an active peer is
// pruned into the inactive table (spec §4.5).
const KeepaliveCutoff = 3 * time.Minute

type peerInfo struct {
	lastSeen time.Time
}

// Table holds the active/inactive peer maps (spec §3, §4.5, C6). The zero
// value is not usable; construct with NewTable.
//
// Invariant (spec §3, §8 property 5): an address is never in both maps at
// once. Every method below re-establishes this before returning, matching
// the exclusive-at-mutation/shared-at-read discipline in spec §9.
type Table struct {
	mu sync.RWMutex

	activeOrder []p2p.PeerAddr
	active      map[p2p.PeerAddr]peerInfo

	inactiveOrder []p2p.PeerAddr
	inactive      map[p2p.PeerAddr]peerInfo

	cutoff time.Duration
	now    func() time.Time
}

// NewTable constructs an empty Table with the given aging cutoff.
func NewTable(cutoff time.Duration) *Table {
	return &Table{
		active:   make(map[p2p.PeerAddr]peerInfo),
		inactive: make(map[p2p.PeerAddr]peerInfo),
		cutoff:   cutoff,
		now:      time.Now,
	}
}

// AddOrUpdate records contact with addr (spec §4.5).
//
// If forced is false and addr is currently in the inactive table, the call
// is a no-op and returns false ("not added") — inactive acts as a short-term
// deny list for recently aged-out peers. Otherwise: a previously-inactive
// peer is reclaimed into active with its last_seen preserved; an existing
// active peer has its last_seen bumped to now; a wholly new address is
// inserted with last_seen=now only if CheckAddr(addr) passes. It returns
// true iff addr became active as a result of this call and was not already
// active beforehand.
func (t *Table) AddOrUpdate(addr p2p.PeerAddr, forced bool) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if info, exists := t.inactive[addr]; exists {
		if !forced {
			return false
		}
		t.removeInactiveLocked(addr)
		t.insertActiveLocked(addr, info.lastSeen)
		return true
	}

	if info, exists := t.active[addr]; exists {
		info.lastSeen = t.now()
		t.active[addr] = info
		return false
	}

	if !CheckAddr(addr) {
		return false
	}
	t.insertActiveLocked(addr, t.now())
	return true
}

// Prune moves every active entry whose age exceeds the cutoff into
// inactive, and returns the number moved (spec §4.5).
func (t *Table) Prune() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	deadline := t.now().Add(-t.cutoff)
	var stale []p2p.PeerAddr
	for _, addr := range t.activeOrder {
		if t.active[addr].lastSeen.Before(deadline) {
			stale = append(stale, addr)
		}
	}
	for _, addr := range stale {
		info := t.active[addr]
		t.removeActiveLocked(addr)
		t.insertInactiveLocked(addr, info.lastSeen)
	}
	return len(stale)
}

// RandomPeers samples n addresses with replacement from the active table
// (spec §4.5: "sampling may repeat"). It returns nil if active is empty.
func (t *Table) RandomPeers(n int) []p2p.PeerAddr {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if len(t.activeOrder) == 0 || n <= 0 {
		return nil
	}
	out := make([]p2p.PeerAddr, n)
	for i := range out {
		out[i] = t.activeOrder[rand.Intn(len(t.activeOrder))]
	}
	return out
}

// PeerCount returns the size of the active table.
func (t *Table) PeerCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.activeOrder)
}

// ActivePeers returns a snapshot copy of every active address, in insertion
// order.
func (t *Table) ActivePeers() []p2p.PeerAddr {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]p2p.PeerAddr, len(t.activeOrder))
	copy(out, t.activeOrder)
	return out
}

func (t *Table) insertActiveLocked(addr p2p.PeerAddr, lastSeen time.Time) {
	t.active[addr] = peerInfo{lastSeen: lastSeen}
	t.activeOrder = append(t.activeOrder, addr)
}

func (t *Table) removeActiveLocked(addr p2p.PeerAddr) {
	delete(t.active, addr)
	t.activeOrder = removeAddr(t.activeOrder, addr)
}

func (t *Table) insertInactiveLocked(addr p2p.PeerAddr, lastSeen time.Time) {
	t.inactive[addr] = peerInfo{lastSeen: lastSeen}
	t.inactiveOrder = append(t.inactiveOrder, addr)
}

func (t *Table) removeInactiveLocked(addr p2p.PeerAddr) {
	delete(t.inactive, addr)
	t.inactiveOrder = removeAddr(t.inactiveOrder, addr)
}

func removeAddr(order []p2p.PeerAddr, addr p2p.PeerAddr) []p2p.PeerAddr {
	for i, a := range order {
		if a == addr {
			return append(order[:i], order[i+1:]...)
		}
	}
	return order
}

// reservedIPv4Ranges are the IPv4-mapped ranges CheckAddr rejects (spec §4.5).
var reservedIPv4Ranges = mustParseCIDRs(
	"0.0.0.0/8",
	"127.0.0.0/8",
	"192.0.2.0/24",
	"198.51.100.0/24",
	"203.0.113.0/24",
	"224.0.0.0/4",
	"240.0.0.0/4",
)

func mustParseCIDRs(cidrs ...string) []*net.IPNet {
	out := make([]*net.IPNet, 0, len(cidrs))
	for _, c := range cidrs {
		_, n, err := net.ParseCIDR(c)
		if err != nil {
			panic(err)
		}
		out = append(out, n)
	}
	return out
}

// CheckAddr is the address filter (spec §4.5): it rejects the unspecified
// address, zero port, loopback, multicast addresses, and — for IPv4-mapped
// addresses — the listed reserved ranges.
func CheckAddr(addr p2p.PeerAddr) bool {
	if addr.Port == 0 {
		return false
	}
	ip := net.IP(addr.IP[:])
	if ip.IsUnspecified() || ip.IsLoopback() || ip.IsMulticast() {
		return false
	}
	if ip4 := ip.To4(); ip4 != nil {
		for _, r := range reservedIPv4Ranges {
			if r.Contains(ip4) {
				return false
			}
		}
	}
	return true
}

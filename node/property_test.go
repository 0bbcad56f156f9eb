package node

import (
	"net"
	"testing"
	"time"

	"pgregory.net/rapid"

	"github.com/nanomesh-go/node/node/p2p"
)

func genPeerAddr(t *rapid.T) p2p.PeerAddr {
	octets := rapid.SliceOfN(rapid.IntRange(1, 254), 4, 4).Draw(t, "octets")
	ip := net.IPv4(byte(octets[0]), byte(octets[1]), byte(octets[2]), byte(octets[3]))
	port := rapid.IntRange(1, 65535).Draw(t, "port")
	return p2p.PeerAddrFromUDP(&net.UDPAddr{IP: ip, Port: port})
}

// Peer-map disjointness (spec §8 property 5): no address is ever a member
// of both active and inactive at once, across arbitrary add/prune sequences.
func TestPropertyActiveInactiveDisjoint(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		tbl := NewTable(time.Minute)
		clock := time.Unix(0, 0)
		tbl.now = func() time.Time { return clock }

		steps := rapid.IntRange(1, 30).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			addr := genPeerAddr(t)
			if rapid.Bool().Draw(t, "advance") {
				clock = clock.Add(2 * time.Minute)
			}
			forced := rapid.Bool().Draw(t, "forced")
			tbl.AddOrUpdate(addr, forced)
			if rapid.Bool().Draw(t, "prune") {
				tbl.Prune()
			}

			tbl.mu.RLock()
			for a := range tbl.active {
				if _, ok := tbl.inactive[a]; ok {
					tbl.mu.RUnlock()
					t.Fatalf("address %v present in both tables", a)
				}
			}
			tbl.mu.RUnlock()
		}
	})
}

// RandomPeers only ever returns addresses currently in the active table.
func TestPropertyRandomPeersStaysWithinActiveSet(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		tbl := NewTable(KeepaliveCutoff)
		n := rapid.IntRange(1, 10).Draw(t, "peer_count")
		for i := 0; i < n; i++ {
			tbl.AddOrUpdate(genPeerAddr(t), false)
		}
		if tbl.PeerCount() == 0 {
			return
		}
		active := make(map[p2p.PeerAddr]bool)
		for _, a := range tbl.ActivePeers() {
			active[a] = true
		}
		for _, sampled := range tbl.RandomPeers(20) {
			if !active[sampled] {
				t.Fatalf("RandomPeers returned %v, not a member of the active set", sampled)
			}
		}
	})
}

// CheckAddr is total: it always returns a definite true/false, never panics,
// for any syntactically valid peer address.
func TestPropertyCheckAddrIsTotal(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		addr := genPeerAddr(t)
		_ = CheckAddr(addr) // must not panic
	})
}

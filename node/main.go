package node

import (
	"context"
	"fmt"
	"net"

	"github.com/sirupsen/logrus"

	"github.com/nanomesh-go/node/consensus"
	"github.com/nanomesh-go/node/node/p2p"
)

// Resolver is the DNS-lookup collaborator bootstrap consumes (spec §6,
// external collaborator (iii)). *net.Resolver satisfies it.
type Resolver interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
}

// ResolveSeeds resolves every configured DNS seed name to socket addresses
// at the network's port. A name that fails to resolve, and any returned host
// that is not an IP literal, is skipped without logging; an empty overall
// result is a fatal startup error (spec §6).
func ResolveSeeds(ctx context.Context, resolver Resolver, seeds []string, port uint16) ([]p2p.PeerAddr, error) {
	var out []p2p.PeerAddr
	for _, seed := range seeds {
		hosts, err := resolver.LookupHost(ctx, seed)
		if err != nil {
			continue
		}
		for _, h := range hosts {
			ip := net.ParseIP(h)
			if ip == nil {
				continue
			}
			out = append(out, p2p.PeerAddrFromUDP(&net.UDPAddr{IP: ip, Port: int(port)}))
		}
	}
	if len(out) == 0 {
		return nil, &consensus.FatalStreamError{Msg: "bootstrap DNS resolution produced no seed peers"}
	}
	return out, nil
}

// Bootstrap validates cfg, binds the UDP socket (spec §6: "[::]:PORT with
// IPv4 compatibility enabled"), resolves the seed list, and seeds the new
// Node's peer table with the result.
func Bootstrap(ctx context.Context, cfg Config, resolver Resolver, logger *logrus.Logger) (*Node, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	port := Port(cfg.Network)
	conn, err := net.ListenPacket("udp", fmt.Sprintf("[::]:%d", port))
	if err != nil {
		return nil, fmt.Errorf("bind udp socket: %w", err)
	}
	seeds, err := ResolveSeeds(ctx, resolver, cfg.Seeds, port)
	if err != nil {
		conn.Close()
		return nil, err
	}
	n := NewNode(cfg, conn, logger)
	for _, s := range seeds {
		n.Table.AddOrUpdate(s, true)
	}
	return n, nil
}

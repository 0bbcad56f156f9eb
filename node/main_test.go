package node

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/nanomesh-go/node/consensus"
)

type stubResolver struct {
	hosts map[string][]string
	fail  map[string]bool
}

func (r stubResolver) LookupHost(_ context.Context, host string) ([]string, error) {
	if r.fail[host] {
		return nil, errors.New("lookup failed")
	}
	return r.hosts[host], nil
}

func TestResolveSeedsSkipsFailingSeeds(t *testing.T) {
	resolver := stubResolver{
		hosts: map[string][]string{"good.example": {"203.0.113.10"}},
		fail:  map[string]bool{"bad.example": true},
	}
	out, err := ResolveSeeds(context.Background(), resolver, []string{"bad.example", "good.example"}, 7075)
	if err != nil {
		t.Fatalf("ResolveSeeds: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("len(out)=%d, want 1", len(out))
	}
	if out[0].Port != 7075 {
		t.Fatalf("Port=%d, want 7075", out[0].Port)
	}
}

func TestResolveSeedsAllFailingIsFatal(t *testing.T) {
	resolver := stubResolver{fail: map[string]bool{"bad.example": true}}
	_, err := ResolveSeeds(context.Background(), resolver, []string{"bad.example"}, 7075)
	if err == nil {
		t.Fatalf("expected a fatal error when every seed fails to resolve")
	}
	var fatal *consensus.FatalStreamError
	if !errors.As(err, &fatal) {
		t.Fatalf("expected *consensus.FatalStreamError, got %T", err)
	}
}

func TestResolveSeedsEmptyListIsFatal(t *testing.T) {
	resolver := stubResolver{}
	_, err := ResolveSeeds(context.Background(), resolver, nil, 7075)
	if err == nil {
		t.Fatalf("expected a fatal error for an empty seed list")
	}
}

func TestResolveSeedsSkipsUnparseableAddresses(t *testing.T) {
	resolver := stubResolver{hosts: map[string][]string{"weird.example": {"not-an-ip"}}}
	_, err := ResolveSeeds(context.Background(), resolver, []string{"weird.example"}, 7075)
	if err == nil {
		t.Fatalf("expected a fatal error when no seed yields a parseable address")
	}
}

func TestBootstrapFailsOnInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LogLevel = "not-a-level"
	logger := logrus.New()
	_, err := Bootstrap(context.Background(), cfg, stubResolver{}, logger)
	if err == nil {
		t.Fatalf("expected Bootstrap to reject an invalid config before binding a socket")
	}
}

func TestBootstrapFailsWithNoResolvableSeeds(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Network = 0
	cfg.Network = DefaultConfig().Network
	cfg.Seeds = []string{"unreachable.example"}
	logger := logrus.New()
	_, err := Bootstrap(context.Background(), cfg, stubResolver{}, logger)
	if err == nil {
		t.Fatalf("expected Bootstrap to fail when no seed resolves")
	}
}

func TestBootstrapSeedsPeerTable(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Seeds = []string{"good.example"}
	resolver := stubResolver{hosts: map[string][]string{"good.example": {"8.8.8.8"}}}
	logger := logrus.New()

	n, err := Bootstrap(context.Background(), cfg, resolver, logger)
	if err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	defer n.Conn.Close()

	if n.Table.PeerCount() != 1 {
		t.Fatalf("PeerCount=%d, want 1 seeded peer", n.Table.PeerCount())
	}
}

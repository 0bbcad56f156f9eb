package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/nanomesh-go/node/node"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// multiStringFlag collects a repeatable --seed flag into a slice.
type multiStringFlag []string

func (m *multiStringFlag) String() string {
	if m == nil {
		return ""
	}
	return strings.Join(*m, ",")
}

func (m *multiStringFlag) Set(value string) error {
	*m = append(*m, value)
	return nil
}

// run is the testable entrypoint body (spec §6): parse flags, validate,
// bootstrap, and block until signaled. Exit codes: 0 success, 1 fatal
// error, 2 bad invocation.
func run(args []string, stdout, stderr io.Writer) int {
	defaults := node.DefaultConfig()
	cfg := defaults
	var seeds multiStringFlag

	fs := flag.NewFlagSet("nanomesh-node", flag.ContinueOnError)
	fs.SetOutput(stderr)

	networkFlag := fs.String("network", "live", "network: live|beta|test")
	fs.StringVar(&cfg.LogLevel, "log-level", defaults.LogLevel, "log level: off|error|warn|info|debug|trace")
	fs.Var(&seeds, "seed", "DNS name resolving to bootstrap peers (repeatable)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	cfg.Seeds = seeds

	network, err := node.ParseNetwork(*networkFlag)
	if err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return 2
	}
	cfg.Network = network

	if err := node.ValidateConfig(cfg); err != nil {
		fmt.Fprintf(stderr, "invalid config: %v\n", err)
		return 2
	}

	logger, err := node.NewLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return 2
	}
	logger.SetOutput(stderr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	n, err := node.Bootstrap(ctx, cfg, &defaultResolver{}, logger)
	if err != nil {
		fmt.Fprintf(stderr, "bootstrap failed: %v\n", err)
		return 1
	}

	fmt.Fprintf(stdout, "nanomesh-node: network=%s peers=%d\n", *networkFlag, n.Table.PeerCount())
	if err := n.Run(ctx); err != nil {
		fmt.Fprintf(stderr, "node stopped: %v\n", err)
		return 1
	}
	fmt.Fprintln(stdout, "nanomesh-node: stopped")
	return 0
}

// defaultResolver adapts *net.Resolver's zero value (net.DefaultResolver)
// to node.Resolver.
type defaultResolver struct{}

func (defaultResolver) LookupHost(ctx context.Context, host string) ([]string, error) {
	return net.DefaultResolver.LookupHost(ctx, host)
}

package node

import (
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/nanomesh-go/node/node/p2p"
)

// Config is the node's runtime configuration (spec §6), built from CLI
// flags via DefaultConfig() + field overrides, in the teacher's flat-struct
// shape (node.Config, DefaultConfig(), ValidateConfig(cfg)).
type Config struct {
	Network  p2p.NetworkKind
	LogLevel string
	Seeds    []string
}

// DefaultConfig matches the CLI's documented flag defaults: network=live
// (Main), log-level=info (spec §6).
func DefaultConfig() Config {
	return Config{
		Network:  p2p.NetworkMain,
		LogLevel: "info",
	}
}

// ParseNetwork maps the CLI's --network values onto the wire enum (spec §6).
func ParseNetwork(s string) (p2p.NetworkKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "live":
		return p2p.NetworkMain, nil
	case "beta":
		return p2p.NetworkBeta, nil
	case "test":
		return p2p.NetworkTest, nil
	default:
		return 0, fmt.Errorf("invalid network %q: want live, beta, or test", s)
	}
}

// Port returns the UDP port a network binds to (spec §6).
func Port(n p2p.NetworkKind) uint16 {
	if n == p2p.NetworkBeta {
		return 54000
	}
	return 7075
}

var logLevels = map[string]logrus.Level{
	"error": logrus.ErrorLevel,
	"warn":  logrus.WarnLevel,
	"info":  logrus.InfoLevel,
	"debug": logrus.DebugLevel,
	"trace": logrus.TraceLevel,
}

// ValidateConfig checks cfg's log level (spec §6's --log-level enum) and
// that its network is a known p2p.NetworkKind. Seeds are not checked here.
func ValidateConfig(cfg Config) error {
	level := strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	if level != "off" {
		if _, ok := logLevels[level]; !ok {
			return fmt.Errorf("invalid log_level %q", cfg.LogLevel)
		}
	}
	switch cfg.Network {
	case p2p.NetworkMain, p2p.NetworkBeta, p2p.NetworkTest:
	default:
		return fmt.Errorf("invalid network %v", cfg.Network)
	}
	return nil
}

// NewLogger builds a logrus.Logger at the configured level. "off" has no
// literal logrus equivalent, so it is implemented by discarding output
// rather than filtering on level (spec §10).
func NewLogger(level string) (*logrus.Logger, error) {
	logger := logrus.New()
	level = strings.ToLower(strings.TrimSpace(level))
	if level == "off" {
		logger.SetOutput(io.Discard)
		return logger, nil
	}
	lvl, ok := logLevels[level]
	if !ok {
		return nil, fmt.Errorf("invalid log_level %q", level)
	}
	logger.SetLevel(lvl)
	return logger, nil
}

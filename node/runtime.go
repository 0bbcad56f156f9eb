package node

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nanomesh-go/node/consensus"
	"github.com/nanomesh-go/node/node/p2p"
)

// KeepaliveInterval and PeerPruneInterval drive the two periodic tasks
// (spec §4.6).
const (
	KeepaliveInterval  = 60 * time.Second
	PeerPruneInterval  = 120 * time.Second
	outboundBufferSize = 2048
)

type outboundPacket struct {
	Addr p2p.PeerAddr
	Data []byte
}

// Node runs the three cooperative control loops over a shared peer table
// and a single bounded outbound channel (spec §4.6, C7), grounded on the
// teacher's node/p2p/peer.go Run loop (ctx-cancelable read loop, dispatch by
// kind, continue-on-non-fatal-error).
type Node struct {
	Config Config
	Table  *Table
	Logger *logrus.Logger
	Conn   net.PacketConn

	outbound chan outboundPacket
}

// NewNode wires a Node around an already-bound socket.
func NewNode(cfg Config, conn net.PacketConn, logger *logrus.Logger) *Node {
	return &Node{
		Config:   cfg,
		Table:    NewTable(KeepaliveCutoff),
		Logger:   logger,
		Conn:     conn,
		outbound: make(chan outboundPacket, outboundBufferSize),
	}
}

// Run drives the receive/process, keepalive, prune, and send loops until
// ctx is canceled or one of them returns a *consensus.FatalStreamError
// (spec §7: only a fatal stream error terminates the task set).
func (n *Node) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		<-ctx.Done()
		n.Conn.Close()
	}()

	tasks := []func(context.Context) error{
		n.receiveLoop,
		n.keepaliveLoop,
		n.pruneLoop,
		n.senderLoop,
	}

	errCh := make(chan error, len(tasks))
	var wg sync.WaitGroup
	wg.Add(len(tasks))
	for _, t := range tasks {
		t := t
		go func() {
			defer wg.Done()
			if err := t(ctx); err != nil {
				errCh <- err
				cancel()
			}
		}()
	}
	wg.Wait()
	close(errCh)

	for err := range errCh {
		if err != nil {
			return err
		}
	}
	return nil
}

func (n *Node) receiveLoop(ctx context.Context) error {
	buf := make([]byte, 1500)
	for {
		if ctx.Err() != nil {
			return nil
		}
		size, addr, err := n.Conn.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return &consensus.FatalStreamError{Msg: err.Error()}
		}
		udpAddr, ok := addr.(*net.UDPAddr)
		if !ok {
			continue
		}
		sender := p2p.PeerAddrFromUDP(udpAddr)
		msg, decErr := p2p.DecodeMessage(buf[:size])
		if decErr != nil && n.Logger != nil {
			n.Logger.WithError(decErr).Debug("dropped malformed datagram")
		}
		n.handleMessage(sender, msg)
	}
}

func (n *Node) handleMessage(sender p2p.PeerAddr, msg p2p.Message) {
	if msg.Header.Network != n.Config.Network {
		return
	}
	// The directly-observed sender is recorded unconditionally, bypassing
	// the inactive deny-list (spec §4.6: "record the sender (forced
	// insert)").
	n.Table.AddOrUpdate(sender, true)

	switch msg.Header.Kind {
	case p2p.MessageKindKeepAlive:
		ka, ok := msg.Payload.(p2p.KeepAlivePayload)
		if !ok {
			return
		}
		for _, addr := range ka.Peers {
			if addr.IsZero() || !CheckAddr(addr) {
				continue
			}
			n.sendKeepAlive(addr)
		}
	case p2p.MessageKindPublish, p2p.MessageKindConfirmReq:
		blk := blockFromPayload(msg.Payload)
		if blk != nil && n.Logger != nil {
			n.Logger.WithField("hash", blk.Hash().Hex()).Debug("received block")
		}
	default:
		// No-op: BulkPull/BulkPush/FrontierReq/ConfirmAck carry no
		// handler in this spec (spec §4.6).
	}
}

func blockFromPayload(payload p2p.MessagePayload) *consensus.Block {
	switch p := payload.(type) {
	case p2p.PublishPayload:
		return p.Block
	case p2p.ConfirmReqPayload:
		return p.Block
	default:
		return nil
	}
}

func (n *Node) keepaliveLoop(ctx context.Context) error {
	n.emitKeepAlives()
	ticker := time.NewTicker(KeepaliveInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			n.emitKeepAlives()
		}
	}
}

func (n *Node) emitKeepAlives() {
	for _, addr := range n.Table.ActivePeers() {
		n.sendKeepAlive(addr)
	}
}

func (n *Node) sendKeepAlive(addr p2p.PeerAddr) {
	hdr := p2p.NewHeader(p2p.MessageKindKeepAlive)
	hdr.Network = n.Config.Network
	msg := p2p.Message{
		Header:  hdr,
		Payload: p2p.KeepAlivePayload{Peers: n.Table.RandomPeers(8)},
	}
	data, err := p2p.EncodeMessage(msg)
	if err != nil {
		if n.Logger != nil {
			n.Logger.WithError(err).Warn("failed to encode keepalive")
		}
		return
	}
	n.enqueue(addr, data)
}

func (n *Node) enqueue(addr p2p.PeerAddr, data []byte) {
	select {
	case n.outbound <- outboundPacket{Addr: addr, Data: data}:
	default:
		if n.Logger != nil {
			n.Logger.Warn("outbound channel full, dropping packet")
		}
	}
}

func (n *Node) pruneLoop(ctx context.Context) error {
	ticker := time.NewTicker(PeerPruneInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			moved := n.Table.Prune()
			if moved > 0 && n.Logger != nil {
				n.Logger.WithField("moved", moved).Debug("pruned peers")
			}
		}
	}
}

func (n *Node) senderLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case pkt := <-n.outbound:
			if _, err := n.Conn.WriteTo(pkt.Data, pkt.Addr.UDPAddr()); err != nil && n.Logger != nil {
				n.Logger.WithError(err).Warn("write failed")
			}
		}
	}
}

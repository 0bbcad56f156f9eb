package p2p

import (
	"encoding/binary"
	"fmt"
	"net"
)

// addrChunkSize is the on-wire size of one KeepAlive entry: 16 octets of
// IPv6 address followed by a little-endian 2-octet port (spec §4.4).
const addrChunkSize = 18

// keepAliveEntries is the number of peer slots a KeepAlive payload always
// carries on the wire, padded or truncated to fit (spec §4.4, §8 property 4).
const keepAliveEntries = 8

// PeerAddr is an IPv6 socket address (spec §3's PeerInfo key). IPv4 peers
// are canonicalized to IPv4-mapped IPv6 before being stored as a PeerAddr.
type PeerAddr struct {
	IP   [16]byte
	Port uint16
}

// ZeroAddr is the all-zero sentinel `[::]:0` used to pad short KeepAlive
// lists to exactly keepAliveEntries (spec §4.4).
var ZeroAddr = PeerAddr{}

// IsZero reports whether a is the all-zero sentinel.
func (a PeerAddr) IsZero() bool {
	return a == ZeroAddr
}

func (a PeerAddr) String() string {
	return fmt.Sprintf("[%s]:%d", net.IP(a.IP[:]).String(), a.Port)
}

// PeerAddrFromUDP canonicalizes a net.UDPAddr to a PeerAddr, mapping IPv4
// addresses into IPv4-mapped IPv6 form (spec §3, §6).
func PeerAddrFromUDP(addr *net.UDPAddr) PeerAddr {
	var out PeerAddr
	ip16 := addr.IP.To16()
	copy(out.IP[:], ip16)
	out.Port = uint16(addr.Port)
	return out
}

// UDPAddr converts back to a net.UDPAddr for dialing/sending.
func (a PeerAddr) UDPAddr() *net.UDPAddr {
	ip := make(net.IP, 16)
	copy(ip, a.IP[:])
	return &net.UDPAddr{IP: ip, Port: int(a.Port)}
}

func encodePeerAddr(a PeerAddr) [addrChunkSize]byte {
	var out [addrChunkSize]byte
	copy(out[:16], a.IP[:])
	binary.LittleEndian.PutUint16(out[16:18], a.Port)
	return out
}

func decodePeerAddr(b []byte) PeerAddr {
	var a PeerAddr
	copy(a.IP[:], b[:16])
	a.Port = binary.LittleEndian.Uint16(b[16:18])
	return a
}

package transport

import (
	"encoding/binary"
	"io"
	"net"

	"github.com/glycerine/idem"
	"github.com/sirupsen/logrus"

	"github.com/inference-sim/hybrid-des/internal/deserr"
)

// NewTCPTransport dials and accepts the full mesh of data-plane connections
// plus the collective star rooted at rank 0, then returns a ready
// *TCPTransport. addrs is one "host:port" per rank, addrs[rank] being this
// process's own listen address.
//
// Rendezvous: every rank listens on its own address; for each pair (i, j)
// with i < j, rank j dials rank i (the lower rank always accepts), and the
// dialer writes its own rank plus a collective flag as a 3-byte handshake so
// the acceptor knows which peer slot the connection fills. Every non-root
// rank additionally dials rank 0 once more for its dedicated
// AllGather/Barrier connection.
func NewTCPTransport(rank uint16, size int, addrs []string) (*TCPTransport, error) {
	ln, err := net.Listen("tcp", addrs[rank])
	if err != nil {
		return nil, deserr.ErrTransportError
	}
	defer ln.Close()

	peers := make(map[uint16]net.Conn, size-1)
	rootConns := make([]net.Conn, size)

	// Every higher rank dials us as a data peer; if we are rank 0, every
	// other rank also dials us once more for its collective connection.
	want := size - 1 - int(rank)
	if rank == 0 {
		want += size - 1
	}
	for accepted := 0; accepted < want; accepted++ {
		conn, err := ln.Accept()
		if err != nil {
			return nil, deserr.ErrTransportError
		}
		peerRank, isCollective, err := readHandshake(conn)
		if err != nil {
			return nil, err
		}
		if isCollective {
			rootConns[peerRank] = conn
		} else {
			peers[peerRank] = conn
		}
	}

	for i := 0; i < int(rank); i++ {
		conn, err := net.Dial("tcp", addrs[i])
		if err != nil {
			return nil, deserr.ErrTransportError
		}
		if err := writeHandshake(conn, rank, false); err != nil {
			return nil, err
		}
		peers[uint16(i)] = conn
	}

	var collective net.Conn
	if rank != 0 {
		conn, err := net.Dial("tcp", addrs[0])
		if err != nil {
			return nil, deserr.ErrTransportError
		}
		if err := writeHandshake(conn, rank, true); err != nil {
			return nil, err
		}
		collective = conn
	}

	logrus.Infof("transport: rank %d mesh established with %d peers", rank, len(peers))

	return &TCPTransport{
		rank:       rank,
		size:       size,
		peers:      peers,
		collective: collective,
		isRoot:     rank == 0,
		rootConns:  rootConns,
		halt:       idem.NewHalter(),
	}, nil
}

func writeHandshake(conn net.Conn, rank uint16, collective bool) error {
	buf := make([]byte, 3)
	binary.BigEndian.PutUint16(buf, rank)
	if collective {
		buf[2] = 1
	}
	if _, err := conn.Write(buf); err != nil {
		return deserr.ErrTransportError
	}
	return nil
}

func readHandshake(conn net.Conn) (rank uint16, collective bool, err error) {
	buf := make([]byte, 3)
	if _, err := io.ReadFull(conn, buf); err != nil {
		return 0, false, deserr.ErrTransportError
	}
	return binary.BigEndian.Uint16(buf), buf[2] == 1, nil
}

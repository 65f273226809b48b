package transport

import (
	"encoding/binary"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/glycerine/idem"
	"github.com/sirupsen/logrus"

	"github.com/inference-sim/hybrid-des/internal/deserr"
)

// noBlockDeadline returns a deadline 200 microseconds out, short enough
// that a read with nothing buffered returns promptly rather than blocking
// ReceiveMessages' poll loop.
func noBlockDeadline() time.Time {
	return time.Now().Add(200 * time.Microsecond)
}

// frameLengthPrefix is the 4-byte length prefix every TCP frame carries,
// since TCP has no message boundaries of its own.
const frameLengthPrefix = 4

// TCPTransport is a real multi-process Transport: one long-lived connection
// per peer rank, plus a dedicated connection per rank used only for the
// AllGather/Barrier collectives (gather to rank 0, then broadcast back). Shutdown
// follows glycerine-rpc25519's idem.Halter idiom; net.Conn plumbing is
// stdlib -- see DESIGN.md for why no pack library offers a collective
// primitive.
type TCPTransport struct {
	rank uint16
	size int

	peerMu sync.Mutex
	peers  map[uint16]net.Conn // data-plane connections, keyed by remote rank

	recvMu  sync.Mutex
	pending []Message

	rxCount atomic.Uint32
	txCount atomic.Uint32

	collective net.Conn // connection to rank 0, used only for AllGather/Barrier
	isRoot     bool
	rootConns  []net.Conn // rank 0 only: inbound collective connections, indexed by rank

	halt *idem.Halter
}

// newTCPTransportFromConns constructs a transport for one rank out of size,
// with data-plane connections already dialed/accepted per peerConns (indexed
// by remote rank) and a dedicated collective connection to rank 0 (nil on
// rank 0 itself, which instead holds rootConns). Nothing in the repository
// calls it; the CLI driver goes through NewTCPTransport in dial.go, which
// performs the actual rendezvous.
func newTCPTransportFromConns(rank uint16, size int, peerConns map[uint16]net.Conn, collective net.Conn, rootConns []net.Conn) *TCPTransport {
	return &TCPTransport{
		rank:       rank,
		size:       size,
		peers:      peerConns,
		collective: collective,
		isRoot:     rank == 0,
		rootConns:  rootConns,
		halt:       idem.NewHalter(),
	}
}

func (t *TCPTransport) Rank() uint16 { return t.rank }
func (t *TCPTransport) Size() int    { return t.size }

func writeFrame(conn net.Conn, frame []byte) error {
	hdr := make([]byte, frameLengthPrefix)
	binary.BigEndian.PutUint32(hdr, uint32(len(frame)))
	if _, err := conn.Write(hdr); err != nil {
		return deserr.ErrTransportError
	}
	if _, err := conn.Write(frame); err != nil {
		return deserr.ErrTransportError
	}
	return nil
}

func readFrame(conn net.Conn) ([]byte, error) {
	hdr := make([]byte, frameLengthPrefix)
	if _, err := io.ReadFull(conn, hdr); err != nil {
		return nil, deserr.ErrTransportError
	}
	n := binary.BigEndian.Uint32(hdr)
	buf := make([]byte, n)
	if _, err := io.ReadFull(conn, buf); err != nil {
		return nil, deserr.ErrTransportError
	}
	return buf, nil
}

func (t *TCPTransport) Send(destRank uint16, logicalSendAt, linkDelay int64, contextNodeID uint32, payload []byte) error {
	t.peerMu.Lock()
	conn := t.peers[destRank]
	t.peerMu.Unlock()
	if conn == nil {
		return deserr.ErrTransportError
	}
	frame := encodeEnvelope(destRank, logicalSendAt, linkDelay, contextNodeID, payload)
	if err := writeFrame(conn, frame); err != nil {
		return err
	}
	t.txCount.Add(1)
	return nil
}

// ReceiveMessages polls every peer connection once, non-blocking, draining
// whatever is already buffered by the kernel. A production deployment would
// use a background reader goroutine per connection feeding t.pending; this
// straightforward poll favors explicit, easily-read control flow over
// hidden goroutine fan-out.
func (t *TCPTransport) ReceiveMessages() ([]Message, error) {
	t.peerMu.Lock()
	conns := make([]net.Conn, 0, len(t.peers))
	for _, c := range t.peers {
		conns = append(conns, c)
	}
	t.peerMu.Unlock()

	var out []Message
	for _, c := range conns {
		for {
			if err := c.SetReadDeadline(noBlockDeadline()); err != nil {
				return out, deserr.ErrTransportError
			}
			frame, err := readFrame(c)
			if err != nil {
				break // nothing buffered right now
			}
			_, msg := decodeEnvelope(frame)
			out = append(out, msg)
			t.rxCount.Add(1)
		}
	}
	return out, nil
}

func (t *TCPTransport) TestSendComplete() {}

// AllGather implements the collective via a star topology rooted at rank 0:
// every non-root rank sends its record to root and blocks for the gathered
// array; root collects from all size-1 peers, then broadcasts the full
// array back.
func (t *TCPTransport) AllGather(rec LBTSRecord) ([]LBTSRecord, error) {
	if !t.isRoot {
		if err := writeFrame(t.collective, rec.Encode()); err != nil {
			return nil, err
		}
		frame, err := readFrame(t.collective)
		if err != nil {
			return nil, err
		}
		return decodeLBTSArray(frame), nil
	}

	all := make([]LBTSRecord, t.size)
	all[0] = rec
	for r := 1; r < t.size; r++ {
		frame, err := readFrame(t.rootConns[r])
		if err != nil {
			return nil, err
		}
		all[r] = DecodeLBTSRecord(frame)
	}

	out := encodeLBTSArray(all)
	for r := 1; r < t.size; r++ {
		if err := writeFrame(t.rootConns[r], out); err != nil {
			return nil, err
		}
	}
	return all, nil
}

func encodeLBTSArray(recs []LBTSRecord) []byte {
	buf := make([]byte, 0, len(recs)*LBTSRecordSize)
	for _, r := range recs {
		buf = append(buf, r.Encode()...)
	}
	return buf
}

func decodeLBTSArray(buf []byte) []LBTSRecord {
	n := len(buf) / LBTSRecordSize
	out := make([]LBTSRecord, n)
	for i := 0; i < n; i++ {
		out[i] = DecodeLBTSRecord(buf[i*LBTSRecordSize : (i+1)*LBTSRecordSize])
	}
	return out
}

// Barrier is AllGather with an empty record, discarding the result.
func (t *TCPTransport) Barrier() error {
	_, err := t.AllGather(LBTSRecord{Rank: uint32(t.rank)})
	return err
}

func (t *TCPTransport) RxCount() uint32 { return t.rxCount.Load() }
func (t *TCPTransport) TxCount() uint32 { return t.txCount.Load() }

func (t *TCPTransport) Close() error {
	if t.halt.ReqStop.IsClosed() {
		return nil
	}
	t.halt.ReqStop.Close()
	t.peerMu.Lock()
	for _, c := range t.peers {
		if c != nil {
			if err := c.Close(); err != nil {
				logrus.Debugf("tcp transport: close peer conn: %v", err)
			}
		}
	}
	t.peerMu.Unlock()
	if t.collective != nil {
		if err := t.collective.Close(); err != nil {
			logrus.Debugf("tcp transport: close collective conn: %v", err)
		}
	}
	for _, c := range t.rootConns {
		if c != nil {
			if err := c.Close(); err != nil {
				logrus.Debugf("tcp transport: close root conn: %v", err)
			}
		}
	}
	return nil
}

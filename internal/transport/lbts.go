package transport

import "encoding/binary"

// LBTSRecordSize is the wire size of one LBTSRecord: int64 + 3x uint32 + 1
// byte, packed contiguously. Total length must match on all ranks.
const LBTSRecordSize = 8 + 4 + 4 + 4 + 1

// LBTSRecord is the fixed-size record every rank contributes one of to the
// AllGather collective.
type LBTSRecord struct {
	SmallestTime int64
	RxCount      uint32
	TxCount      uint32
	Rank         uint32
	Finished     bool
}

// Encode writes the record into a fresh LBTSRecordSize-byte slice, using the
// host's native byte order (binary.NativeEndian) -- all ranks of one run
// share one binary, so this is safe without a network byte-order
// conversion.
func (r LBTSRecord) Encode() []byte {
	buf := make([]byte, LBTSRecordSize)
	binary.NativeEndian.PutUint64(buf[0:8], uint64(r.SmallestTime))
	binary.NativeEndian.PutUint32(buf[8:12], r.RxCount)
	binary.NativeEndian.PutUint32(buf[12:16], r.TxCount)
	binary.NativeEndian.PutUint32(buf[16:20], r.Rank)
	if r.Finished {
		buf[20] = 1
	}
	return buf
}

// DecodeLBTSRecord is Encode's inverse. The caller must pass exactly
// LBTSRecordSize bytes.
func DecodeLBTSRecord(buf []byte) LBTSRecord {
	return LBTSRecord{
		SmallestTime: int64(binary.NativeEndian.Uint64(buf[0:8])),
		RxCount:      binary.NativeEndian.Uint32(buf[8:12]),
		TxCount:      binary.NativeEndian.Uint32(buf[12:16]),
		Rank:         binary.NativeEndian.Uint32(buf[16:20]),
		Finished:     buf[20] != 0,
	}
}

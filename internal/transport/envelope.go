package transport

import "encoding/binary"

// envelopeHeaderSize is the fixed prefix every cross-process event carries:
// destRank, logicalSendTime, linkDelay, contextNodeId. linkDelay lets the
// receiving coordinator derive the arrival timestamp without a second
// round-trip.
const envelopeHeaderSize = 2 + 8 + 8 + 4

// encodeEnvelope prepends the fixed header to payload, producing the bytes
// actually handed to Send.
func encodeEnvelope(destRank uint16, logicalSendAt, linkDelay int64, contextNodeID uint32, payload []byte) []byte {
	buf := make([]byte, envelopeHeaderSize+len(payload))
	binary.NativeEndian.PutUint16(buf[0:2], destRank)
	binary.NativeEndian.PutUint64(buf[2:10], uint64(logicalSendAt))
	binary.NativeEndian.PutUint64(buf[10:18], uint64(linkDelay))
	binary.NativeEndian.PutUint32(buf[18:22], contextNodeID)
	copy(buf[envelopeHeaderSize:], payload)
	return buf
}

// decodeEnvelope splits a received frame back into its destination rank and
// a Message carrying the opaque application payload.
func decodeEnvelope(buf []byte) (destRank uint16, msg Message) {
	destRank = binary.NativeEndian.Uint16(buf[0:2])
	msg.LogicalSendAt = int64(binary.NativeEndian.Uint64(buf[2:10]))
	msg.LinkDelay = int64(binary.NativeEndian.Uint64(buf[10:18]))
	msg.ContextNodeID = binary.NativeEndian.Uint32(buf[18:22])
	data := make([]byte, len(buf)-envelopeHeaderSize)
	copy(data, buf[envelopeHeaderSize:])
	msg.Data = data
	return destRank, msg
}

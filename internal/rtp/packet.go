// Package rtp packetizes fixed-size stereo audio chunks into RTP
// packets for AES67 (L24) and a parallel L16 monitor flow, per RFC 3550.
package rtp

import "encoding/binary"

// headerSize is the fixed 12-byte RTP header (no CSRC, no extension).
const headerSize = 12

const rtpVersion = 2

// writeHeader fills the first 12 bytes of buf with an RTP header:
// V=2, P=0, X=0, CC=0, M=0, the given payload type, sequence number,
// timestamp and SSRC.
func writeHeader(buf []byte, payloadType byte, seq uint16, timestamp, ssrc uint32) {
	buf[0] = rtpVersion << 6 // V=2, P=0, X=0, CC=0
	buf[1] = payloadType & 0x7F
	binary.BigEndian.PutUint16(buf[2:4], seq)
	binary.BigEndian.PutUint32(buf[4:8], timestamp)
	binary.BigEndian.PutUint32(buf[8:12], ssrc)
}

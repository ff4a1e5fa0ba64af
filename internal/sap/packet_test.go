package sap

import (
	"encoding/binary"
	"hash/crc32"
	"net"
	"testing"
)

func TestBuildPacketHeaderLayout(t *testing.T) {
	t.Parallel()

	sdp := "v=0\r\n"
	src := net.ParseIP("192.168.1.10")
	pkt := BuildPacket(sdp, src, false)

	if pkt[0] != flagVersion1 {
		t.Errorf("flags byte: got %#02x, want %#02x (announce)", pkt[0], flagVersion1)
	}
	if pkt[1] != 0x00 {
		t.Errorf("auth length byte: got %#02x, want 0x00", pkt[1])
	}

	wantHash := uint16(crc32.ChecksumIEEE([]byte(sdp)) & 0xFFFF)
	gotHash := binary.BigEndian.Uint16(pkt[2:4])
	if gotHash != wantHash {
		t.Errorf("message id hash: got %#04x, want %#04x", gotHash, wantHash)
	}

	gotIP := net.IP(pkt[4:8])
	if !gotIP.Equal(src.To4()) {
		t.Errorf("source ip: got %v, want %v", gotIP, src)
	}

	rest := string(pkt[8:])
	if rest[:len(payloadMIMEType)] != payloadMIMEType {
		t.Errorf("payload type string: got %q, want %q", rest[:len(payloadMIMEType)], payloadMIMEType)
	}
	if rest[len(payloadMIMEType):] != sdp {
		t.Errorf("SDP body: got %q, want %q", rest[len(payloadMIMEType):], sdp)
	}
}

func TestBuildPacketDeleteFlag(t *testing.T) {
	t.Parallel()

	pkt := BuildPacket("v=0\r\n", net.ParseIP("0.0.0.0"), true)
	if pkt[0] != flagVersion1|flagDelete {
		t.Errorf("flags byte: got %#02x, want %#02x (delete)", pkt[0], flagVersion1|flagDelete)
	}
}

func TestBuildPacketHandlesNilSourceIP(t *testing.T) {
	t.Parallel()

	pkt := BuildPacket("v=0\r\n", nil, false)
	if !net.IP(pkt[4:8]).Equal(net.IPv4zero.To4()) {
		t.Errorf("source ip for nil input: got %v, want 0.0.0.0", net.IP(pkt[4:8]))
	}
}

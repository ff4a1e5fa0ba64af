// Package sap builds SDP session descriptions and announces them over
// SAP (RFC 2974).
package sap

import (
	"fmt"
	"strings"
)

// Flavor selects which of a slot's two RTP flows an SDP describes.
type Flavor int

const (
	// FlavorAES67 describes the L24 flow, payload type 98.
	FlavorAES67 Flavor = iota
	// FlavorMonitor describes the L16 flow, payload type 11, always
	// built on demand and never announced over SAP.
	FlavorMonitor
)

// Params carries everything BuildSDP needs to render one slot's session
// description. PTPGrandmasterID is left empty to omit the ts-refclk
// line (the PTP_GMID environment variable is unset).
type Params struct {
	SSRC             uint32
	StreamName       string
	SourceIP         string
	MulticastIP      string
	MulticastPort    int
	PTPDomain        int
	PTPGrandmasterID string
}

// BuildSDP renders the session description for flavor with CRLF line
// endings. The AES67 and monitor flavors differ only in the m= port/
// payload type and the rtpmap line.
func BuildSDP(p Params, flavor Flavor) string {
	port := p.MulticastPort
	payloadType := 98
	codec := "L24/48000/2"
	if flavor == FlavorMonitor {
		port += 2
		payloadType = 11
		codec = "L16/48000/2"
	}

	var b strings.Builder
	line := func(s string) {
		b.WriteString(s)
		b.WriteString("\r\n")
	}

	line("v=0")
	line(fmt.Sprintf("o=- %d 0 IN IP4 %s", p.SSRC, p.SourceIP))
	line(fmt.Sprintf("s=%s", p.StreamName))
	line(fmt.Sprintf("c=IN IP4 %s/32", p.MulticastIP))
	line("t=0 0")
	line("a=recvonly")
	line(fmt.Sprintf("a=clock-domain:PTPv2 %d", p.PTPDomain))
	line(fmt.Sprintf("m=audio %d RTP/AVP %d", port, payloadType))
	line(fmt.Sprintf("a=rtpmap:%d %s", payloadType, codec))
	line("a=ptime:1")
	line("a=mediaclk:direct=0")
	if p.PTPGrandmasterID != "" {
		line(fmt.Sprintf("a=ts-refclk:ptp=IEEE1588-2008:%s:%d", p.PTPGrandmasterID, p.PTPDomain))
	}

	return b.String()
}

package slot

import (
	"os"
	"strconv"
	"strings"
)

// ptpGMID returns the PTP_GMID environment variable, used to populate
// the SDP ts-refclk line; empty means omit it.
func ptpGMID() string {
	return strings.TrimSpace(os.Getenv("PTP_GMID"))
}

// ptpDomain returns the PTP_DOMAIN environment variable as an integer,
// defaulting to 0.
func ptpDomain() int {
	v := strings.TrimSpace(os.Getenv("PTP_DOMAIN"))
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

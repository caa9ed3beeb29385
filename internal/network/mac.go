package network

import (
	"crypto/rand"
	"fmt"
	"net"
)

// RandomMAC returns a random locally administered unicast MAC address in
// lower-case colon notation.
func RandomMAC() (string, error) {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate MAC: %w", err)
	}
	// Set the locally administered bit, clear the multicast bit.
	buf[0] = (buf[0] | 0x02) &^ 0x01
	return net.HardwareAddr(buf).String(), nil
}

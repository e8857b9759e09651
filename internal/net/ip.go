package net

import (
	"log"
	"net"
)

// GetOutgoingIP finds the local address other participants should dial,
// for share links.
func GetOutgoingIP() string {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		// Offline networks: fall back to an interface address.
		ip := firstIPv4()
		if ip.IsLoopback() {
			log.Println("[NET] no suitable local IP found, the share link only works on this machine")
		}
		return ip.String()
	}
	defer conn.Close()
	return conn.LocalAddr().(*net.UDPAddr).IP.String()
}

package domain

import (
	"fmt"
	"net"
	"strconv"
)

// AnyNetworkID matches every chain id
const AnyNetworkID = "*"

// NetworkConfig holds the connection and compiler settings of one network.
// It is loaded once before a run and shared read-only by every step.
type NetworkConfig struct {
	Name            string `json:"name"`
	Host            string `json:"host,omitempty"`
	Port            int    `json:"port,omitempty"`
	URL             string `json:"url,omitempty"`
	NetworkID       string `json:"networkId"`
	Gas             uint64 `json:"gas"`
	GasPrice        uint64 `json:"gasPrice"`
	CompilerVersion string `json:"compilerVersion"`
}

// RPCURL returns the endpoint to dial
func (n NetworkConfig) RPCURL() string {
	if n.URL != "" {
		return n.URL
	}
	return fmt.Sprintf("http://%s", net.JoinHostPort(n.Host, strconv.Itoa(n.Port)))
}

// MatchesChainID reports whether chainID is acceptable for this network
func (n NetworkConfig) MatchesChainID(chainID uint64) bool {
	if n.NetworkID == "" || n.NetworkID == AnyNetworkID {
		return true
	}
	return n.NetworkID == strconv.FormatUint(chainID, 10)
}

// IsLocal reports whether the network points at a node on this machine
func (n NetworkConfig) IsLocal() bool {
	switch n.Host {
	case "127.0.0.1", "localhost", "::1":
		return n.URL == ""
	}
	return false
}

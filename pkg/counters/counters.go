// Package counters keeps the relay-wide tally of protocol events and drop
// reasons.
package counters

import (
	"sort"
	"sync"
)

const (
	InvalidPacket     = "INVALID_PACKET"
	NoClientIDFail    = "NO_CLIENTID_FAIL"
	NoClientIntfMAC   = "NO_CLIENT_INTF_MAC"
	NoLinkLocalFail   = "NO_LINKLOCAL_FAIL"
	NoLinkLocalGW     = "NO_LINKLOCAL_GW"
	NoMatchingIntf    = "NO_MATCHING_INTF"
	NoServerInfo      = "NO_SERVER_INFO"
	NoServerIP        = "NO_SERVER_IP"
	OptionMissingFail = "OPTION_MISSING_FAIL"
	NoRelayAgentIP    = "NO_RELAY_AGENT_IP"
	UnresolvedServer  = "UNRESOLVED_SERVER"
	NoEgressLocation  = "NO_EGRESS_LOCATION"
	IgnoredVLAN       = "IGNORED_VLAN"
	Unsupported       = "UNSUPPORTED_MESSAGE"
)

// Set is a group of named accumulators. Every increment goes through one
// mutex so concurrent packet workers never lose updates.
type Set struct {
	mu     sync.Mutex
	values map[string]uint64
}

func New() *Set {
	return &Set{values: make(map[string]uint64)}
}

func (s *Set) Inc(name string) {
	s.Add(name, 1)
}

func (s *Set) Add(name string, n uint64) {
	s.mu.Lock()
	s.values[name] += n
	s.mu.Unlock()
}

func (s *Set) Get(name string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.values[name]
}

func (s *Set) Snapshot() map[string]uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]uint64, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// Names returns the counters seen so far in sorted order.
func (s *Set) Names() []string {
	s.mu.Lock()
	names := make([]string, 0, len(s.values))
	for k := range s.values {
		names = append(names, k)
	}
	s.mu.Unlock()
	sort.Strings(names)
	return names
}

func (s *Set) Reset() {
	s.mu.Lock()
	s.values = make(map[string]uint64)
	s.mu.Unlock()
}

// Package network lists the IPv4 interfaces a DDP sender can reach the
// receiver on, and the broadcast targets available to the Art-Net bridge.
package network

import (
	"fmt"
	"net"
	"sort"
	"strconv"
	"strings"
)

// Interface is one IPv4 address on an up, non-loopback interface.
type Interface struct {
	Name      string `json:"name"`
	Address   string `json:"address"`
	Broadcast string `json:"broadcast"`
	Kind      string `json:"kind"` // "ethernet", "wifi", "other"
}

// Kind guesses the interface type from common naming conventions.
func Kind(ifaceName string) string {
	name := strings.ToLower(ifaceName)

	switch {
	case name == "en0":
		// en0 is typically WiFi on macOS
		return "wifi"
	case strings.HasPrefix(name, "wlan"),
		strings.HasPrefix(name, "wl"),
		strings.Contains(name, "wifi"),
		strings.Contains(name, "wireless"):
		return "wifi"
	case strings.HasPrefix(name, "eth"),
		strings.HasPrefix(name, "en"):
		return "ethernet"
	}
	return "other"
}

// Broadcast computes the IPv4 broadcast address for ip/mask, or nil.
func Broadcast(ip net.IP, mask net.IPMask) net.IP {
	ip4 := ip.To4()
	if ip4 == nil || mask == nil {
		return nil
	}
	if len(mask) == 16 {
		mask = mask[12:16]
	}
	if len(mask) != 4 {
		return nil
	}

	broadcast := make(net.IP, 4)
	for i := 0; i < 4; i++ {
		broadcast[i] = ip4[i] | ^mask[i]
	}
	return broadcast
}

// Interfaces returns the usable IPv4 interfaces, ethernet first, then wifi,
// then everything else, each group ordered by name.
func Interfaces() ([]Interface, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("failed to get network interfaces: %w", err)
	}

	var result []Interface
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		result = append(result, fromAddrs(iface.Name, addrs)...)
	}

	sortInterfaces(result)
	return result, nil
}

// fromAddrs keeps the IPv4 addresses of one interface that have a distinct
// broadcast address. Point-to-point links are skipped.
func fromAddrs(name string, addrs []net.Addr) []Interface {
	var result []Interface
	for _, addr := range addrs {
		ipNet, ok := addr.(*net.IPNet)
		if !ok {
			continue
		}
		ip4 := ipNet.IP.To4()
		if ip4 == nil {
			continue
		}
		broadcast := Broadcast(ip4, ipNet.Mask)
		if broadcast == nil || broadcast.Equal(ip4) {
			continue
		}
		result = append(result, Interface{
			Name:      name,
			Address:   ip4.String(),
			Broadcast: broadcast.String(),
			Kind:      Kind(name),
		})
	}
	return result
}

func sortInterfaces(ifaces []Interface) {
	rank := map[string]int{"ethernet": 0, "wifi": 1}
	kindRank := func(kind string) int {
		if r, ok := rank[kind]; ok {
			return r
		}
		return 2
	}
	sort.SliceStable(ifaces, func(i, j int) bool {
		ri, rj := kindRank(ifaces[i].Kind), kindRank(ifaces[j].Kind)
		if ri != rj {
			return ri < rj
		}
		return ifaces[i].Name < ifaces[j].Name
	})
}

// ListenAddresses returns "ip:port" for every interface in ifaces.
func ListenAddresses(ifaces []Interface, port int) []string {
	addrs := make([]string, 0, len(ifaces))
	for _, iface := range ifaces {
		addrs = append(addrs, net.JoinHostPort(iface.Address, strconv.Itoa(port)))
	}
	return addrs
}

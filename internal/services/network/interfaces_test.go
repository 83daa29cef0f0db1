package network

import (
	"net"
	"testing"
)

func TestBroadcast(t *testing.T) {
	tests := []struct {
		name     string
		ip       net.IP
		mask     net.IPMask
		expected string
	}{
		{"/24", net.ParseIP("192.168.1.100"), net.IPv4Mask(255, 255, 255, 0), "192.168.1.255"},
		{"/16", net.ParseIP("172.16.5.10"), net.IPv4Mask(255, 255, 0, 0), "172.16.255.255"},
		{"/8", net.ParseIP("10.0.0.5"), net.IPv4Mask(255, 0, 0, 0), "10.255.255.255"},
		{"/28", net.ParseIP("192.168.1.20"), net.IPv4Mask(255, 255, 255, 240), "192.168.1.31"},
		{"16-byte mask", net.ParseIP("192.168.2.9"), net.CIDRMask(120, 128), "192.168.2.255"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Broadcast(tt.ip, tt.mask)
			if result == nil {
				t.Fatalf("Broadcast returned nil")
			}
			if result.String() != tt.expected {
				t.Errorf("Broadcast(%s, %v) = %s, want %s", tt.ip, tt.mask, result, tt.expected)
			}
		})
	}
}

func TestBroadcast_InvalidInputs(t *testing.T) {
	if Broadcast(nil, net.IPv4Mask(255, 255, 255, 0)) != nil {
		t.Error("Broadcast(nil, mask) should return nil")
	}
	if Broadcast(net.ParseIP("192.168.1.1"), nil) != nil {
		t.Error("Broadcast(ip, nil) should return nil")
	}
	if Broadcast(net.ParseIP("::1"), net.IPv4Mask(255, 255, 255, 0)) != nil {
		t.Error("Broadcast(ipv6, mask) should return nil")
	}
	if Broadcast(net.ParseIP("10.0.0.1"), net.IPMask{255, 255}) != nil {
		t.Error("Broadcast with a short mask should return nil")
	}
}

func TestKind(t *testing.T) {
	tests := map[string]string{
		"en0":       "wifi",
		"wlan0":     "wifi",
		"wlp3s0":    "wifi",
		"eth0":      "ethernet",
		"enp0s31f6": "ethernet",
		"en5":       "ethernet",
		"docker0":   "other",
		"utun2":     "other",
	}
	for name, want := range tests {
		if got := Kind(name); got != want {
			t.Errorf("Kind(%q) = %q, want %q", name, got, want)
		}
	}
}

func TestFromAddrs(t *testing.T) {
	addrs := []net.Addr{
		&net.IPNet{IP: net.ParseIP("192.168.1.10"), Mask: net.IPv4Mask(255, 255, 255, 0)},
		&net.IPNet{IP: net.ParseIP("10.8.0.2"), Mask: net.IPv4Mask(255, 255, 255, 255)},
		&net.IPNet{IP: net.ParseIP("fe80::1"), Mask: net.CIDRMask(64, 128)},
		&net.IPAddr{IP: net.ParseIP("192.168.9.9")},
	}

	got := fromAddrs("eth0", addrs)
	if len(got) != 1 {
		t.Fatalf("fromAddrs returned %d interfaces, want 1: %+v", len(got), got)
	}
	want := Interface{Name: "eth0", Address: "192.168.1.10", Broadcast: "192.168.1.255", Kind: "ethernet"}
	if got[0] != want {
		t.Errorf("fromAddrs = %+v, want %+v", got[0], want)
	}
}

func TestSortInterfaces(t *testing.T) {
	ifaces := []Interface{
		{Name: "docker0", Kind: "other"},
		{Name: "wlan0", Kind: "wifi"},
		{Name: "eth1", Kind: "ethernet"},
		{Name: "eth0", Kind: "ethernet"},
	}
	sortInterfaces(ifaces)

	want := []string{"eth0", "eth1", "wlan0", "docker0"}
	for i, name := range want {
		if ifaces[i].Name != name {
			t.Errorf("position %d = %s, want %s", i, ifaces[i].Name, name)
		}
	}
}

func TestInterfaces_ValidFields(t *testing.T) {
	ifaces, err := Interfaces()
	if err != nil {
		t.Fatalf("Interfaces() error: %v", err)
	}
	for _, iface := range ifaces {
		if net.ParseIP(iface.Address).To4() == nil {
			t.Errorf("%s: invalid address %q", iface.Name, iface.Address)
		}
		if net.ParseIP(iface.Broadcast).To4() == nil {
			t.Errorf("%s: invalid broadcast %q", iface.Name, iface.Broadcast)
		}
	}
}

func TestListenAddresses(t *testing.T) {
	got := ListenAddresses([]Interface{{Address: "192.168.1.10"}, {Address: "10.0.0.2"}}, 4048)
	want := []string{"192.168.1.10:4048", "10.0.0.2:4048"}
	if len(got) != len(want) {
		t.Fatalf("ListenAddresses = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ListenAddresses[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

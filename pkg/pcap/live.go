//go:build cgo

package pcap

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"
)

const (
	snapshotLen int32 = 65535
	promiscuous       = true
	readTimeout       = 500 * time.Millisecond
)

// LiveSource captures frames from a network interface.
type LiveSource struct {
	handle *pcap.Handle
}

// OpenLive opens an interface, given by name or by one of its IP addresses,
// and installs a BPF filter for TCP traffic on port.
func OpenLive(nameOrIP string, port uint16) (*LiveSource, error) {
	name, err := resolveInterface(nameOrIP)
	if err != nil {
		return nil, err
	}
	handle, err := pcap.OpenLive(name, snapshotLen, promiscuous, readTimeout)
	if err != nil {
		return nil, fmt.Errorf("error opening device %s: %w", name, err)
	}
	if err := handle.SetBPFFilter(fmt.Sprintf("tcp port %d", port)); err != nil {
		handle.Close()
		return nil, fmt.Errorf("could not set up filter on device %s: %w", name, err)
	}
	return &LiveSource{handle: handle}, nil
}

// LinkType returns the link type of the device.
func (s *LiveSource) LinkType() layers.LinkType {
	return s.handle.LinkType()
}

// Packets returns the channel of captured frames. It is closed after Close.
func (s *LiveSource) Packets() chan gopacket.Packet {
	return gopacket.NewPacketSource(s.handle, s.handle.LinkType()).Packets()
}

// Close stops the capture.
func (s *LiveSource) Close() {
	s.handle.Close()
}

// Interface describes a capture device.
type Interface struct {
	Name        string
	Description string
	Addresses   []string
}

// ListInterfaces returns the devices libpcap can capture on.
func ListInterfaces() ([]Interface, error) {
	devs, err := pcap.FindAllDevs()
	if err != nil {
		return nil, fmt.Errorf("failed to list interfaces: %w", err)
	}
	out := make([]Interface, 0, len(devs))
	for _, d := range devs {
		iface := Interface{Name: d.Name, Description: d.Description}
		for _, a := range d.Addresses {
			iface.Addresses = append(iface.Addresses, a.IP.String())
		}
		out = append(out, iface)
	}
	return out, nil
}

// FormatInterface renders one line of the interface listing.
func FormatInterface(iface Interface) string {
	addr := "N/A"
	if len(iface.Addresses) > 0 {
		addr = strings.Join(iface.Addresses, ", ")
	}
	return fmt.Sprintf("    -> Name: '%s'   IP address: %s", iface.Name, addr)
}

func resolveInterface(nameOrIP string) (string, error) {
	ifaces, err := ListInterfaces()
	if err != nil {
		return "", err
	}
	for _, iface := range ifaces {
		if iface.Name == nameOrIP {
			return iface.Name, nil
		}
		for _, a := range iface.Addresses {
			if a == nameOrIP {
				return iface.Name, nil
			}
		}
	}
	return "", fmt.Errorf("couldn't find interface by provided IP address or name: %s", nameOrIP)
}

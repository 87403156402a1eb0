//go:build !cgo

package pcap

import (
	"errors"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

var errNoLibpcap = errors.New("live capture requires a cgo build with libpcap")

// LiveSource is unavailable without cgo.
type LiveSource struct{}

func OpenLive(string, uint16) (*LiveSource, error) {
	return nil, errNoLibpcap
}

func (s *LiveSource) LinkType() layers.LinkType     { return layers.LinkTypeEthernet }
func (s *LiveSource) Packets() chan gopacket.Packet { return nil }
func (s *LiveSource) Close()                        {}

// Interface describes a capture device.
type Interface struct {
	Name        string
	Description string
	Addresses   []string
}

func ListInterfaces() ([]Interface, error) {
	return nil, errNoLibpcap
}

func FormatInterface(iface Interface) string {
	return "    -> Name: '" + iface.Name + "'"
}

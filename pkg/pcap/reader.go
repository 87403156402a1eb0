package pcap

import (
	"bufio"
	"bytes"
	"fmt"
	"os"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

// Source is anything that yields decoded frames until it is exhausted or closed.
type Source interface {
	Packets() chan gopacket.Packet
	LinkType() layers.LinkType
	Close()
}

type dataSource interface {
	gopacket.PacketDataSource
	LinkType() layers.LinkType
}

var pcapngMagic = []byte{0x0a, 0x0d, 0x0d, 0x0a}

// Reader reads frames from a pcap or pcapng file.
type Reader struct {
	file *os.File
	src  dataSource
}

// NewReader opens filePath and picks the pcap or pcapng decoder from the
// file's magic number.
func NewReader(filePath string) (*Reader, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open capture file: %w", err)
	}

	br := bufio.NewReader(file)
	magic, err := br.Peek(4)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to read capture file header: %w", err)
	}

	var src dataSource
	if bytes.Equal(magic, pcapngMagic) {
		src, err = pcapgo.NewNgReader(br, pcapgo.DefaultNgReaderOptions)
	} else {
		src, err = pcapgo.NewReader(br)
	}
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to parse capture file %s: %w", filePath, err)
	}
	return &Reader{file: file, src: src}, nil
}

// LinkType returns the link type declared by the file.
func (r *Reader) LinkType() layers.LinkType {
	return r.src.LinkType()
}

// Packets returns a channel of decoded frames, closed at end of file.
func (r *Reader) Packets() chan gopacket.Packet {
	return gopacket.NewPacketSource(r.src, r.src.LinkType()).Packets()
}

// Close closes the underlying file.
func (r *Reader) Close() {
	r.file.Close()
}

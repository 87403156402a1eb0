package pcap

import (
	"fmt"
	"os"
	"sync"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

// Dumper appends frames to a pcap file.
type Dumper struct {
	mu     sync.Mutex
	file   *os.File
	writer *pcapgo.Writer
	count  int
}

// NewDumper creates filePath and writes the pcap file header.
func NewDumper(filePath string, snapLen uint32, linkType layers.LinkType) (*Dumper, error) {
	file, err := os.Create(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	w := pcapgo.NewWriter(file)
	if err := w.WriteFileHeader(snapLen, linkType); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to write pcap header: %w", err)
	}
	return &Dumper{file: file, writer: w}, nil
}

// Write appends one frame with its original capture info.
func (d *Dumper) Write(packet gopacket.Packet) error {
	ci := packet.Metadata().CaptureInfo
	data := packet.Data()
	if ci.CaptureLength == 0 {
		ci.CaptureLength = len(data)
		ci.Length = len(data)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.writer.WritePacket(ci, data); err != nil {
		return fmt.Errorf("failed to write packet: %w", err)
	}
	d.count++
	return nil
}

// Count returns the number of frames written so far.
func (d *Dumper) Count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.count
}

// Close flushes and closes the file.
func (d *Dumper) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.file.Close()
}

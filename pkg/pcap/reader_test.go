package pcap

import (
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func httpFrame(t *testing.T, srcPort, dstPort uint16, payload string) []byte {
	t.Helper()
	eth := &layers.Ethernet{
		SrcMAC:       net.HardwareAddr{0x02, 0, 0, 0, 0, 1},
		DstMAC:       net.HardwareAddr{0x02, 0, 0, 0, 0, 2},
		EthernetType: layers.EthernetTypeIPv4,
	}
	ip := &layers.IPv4{
		Version:  4,
		TTL:      64,
		Protocol: layers.IPProtocolTCP,
		SrcIP:    net.IPv4(192, 168, 0, 10),
		DstIP:    net.IPv4(93, 184, 216, 34),
	}
	tcp := &layers.TCP{SrcPort: layers.TCPPort(srcPort), DstPort: layers.TCPPort(dstPort), ACK: true, Window: 1024}
	require.NoError(t, tcp.SetNetworkLayerForChecksum(ip))

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	require.NoError(t, gopacket.SerializeLayers(buf, opts, eth, ip, tcp, gopacket.Payload([]byte(payload))))
	return buf.Bytes()
}

func captureInfo(data []byte) gopacket.CaptureInfo {
	return gopacket.CaptureInfo{Timestamp: time.Unix(1700000000, 0), CaptureLength: len(data), Length: len(data)}
}

func drain(src Source) []gopacket.Packet {
	var out []gopacket.Packet
	for p := range src.Packets() {
		out = append(out, p)
	}
	return out
}

func TestReader_Pcap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "http.pcap")
	dumper, err := NewDumper(path, 65535, layers.LinkTypeEthernet)
	require.NoError(t, err)

	frames := [][]byte{
		httpFrame(t, 50000, 80, "GET / HTTP/1.1\r\nHost: example.com\r\n\r\n"),
		httpFrame(t, 80, 50000, "HTTP/1.1 200 OK\r\n\r\n"),
	}
	for _, f := range frames {
		p := gopacket.NewPacket(f, layers.LayerTypeEthernet, gopacket.Default)
		p.Metadata().CaptureInfo = captureInfo(f)
		require.NoError(t, dumper.Write(p))
	}
	assert.Equal(t, 2, dumper.Count())
	require.NoError(t, dumper.Close())

	reader, err := NewReader(path)
	require.NoError(t, err)
	defer reader.Close()
	assert.Equal(t, layers.LinkTypeEthernet, reader.LinkType())

	packets := drain(reader)
	require.Len(t, packets, 2)
	assert.Equal(t, frames[0], packets[0].Data())
	assert.NotNil(t, packets[1].Layer(layers.LayerTypeTCP))
}

func TestReader_Pcapng(t *testing.T) {
	path := filepath.Join(t.TempDir(), "http.pcapng")
	f, err := os.Create(path)
	require.NoError(t, err)

	w, err := pcapgo.NewNgWriter(f, layers.LinkTypeEthernet)
	require.NoError(t, err)
	frame := httpFrame(t, 50000, 8080, "GET /a HTTP/1.1\r\nHost: b\r\n\r\n")
	require.NoError(t, w.WritePacket(captureInfo(frame), frame))
	require.NoError(t, w.Flush())
	require.NoError(t, f.Close())

	reader, err := NewReader(path)
	require.NoError(t, err)
	defer reader.Close()

	packets := drain(reader)
	require.Len(t, packets, 1)
	assert.Equal(t, frame, packets[0].Data())
}

func TestReader_Errors(t *testing.T) {
	_, err := NewReader(filepath.Join(t.TempDir(), "missing.pcap"))
	assert.Error(t, err)

	garbage := filepath.Join(t.TempDir(), "garbage.pcap")
	require.NoError(t, os.WriteFile(garbage, []byte("definitely not a capture file"), 0644))
	_, err = NewReader(garbage)
	assert.Error(t, err)

	short := filepath.Join(t.TempDir(), "short.pcap")
	require.NoError(t, os.WriteFile(short, []byte{0xd4}, 0644))
	_, err = NewReader(short)
	assert.Error(t, err)
}

func TestDumper_FillsMissingCaptureInfo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.pcap")
	dumper, err := NewDumper(path, 65535, layers.LinkTypeEthernet)
	require.NoError(t, err)

	frame := httpFrame(t, 1, 80, "GET / HTTP/1.1\r\n\r\n")
	require.NoError(t, dumper.Write(gopacket.NewPacket(frame, layers.LayerTypeEthernet, gopacket.Default)))
	require.NoError(t, dumper.Close())

	reader, err := NewReader(path)
	require.NoError(t, err)
	defer reader.Close()
	packets := drain(reader)
	require.Len(t, packets, 1)
	assert.Equal(t, len(frame), packets[0].Metadata().CaptureLength)
}

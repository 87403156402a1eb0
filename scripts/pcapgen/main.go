package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net"
	"os"
	"strings"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

var (
	methods  = []string{"GET", "GET", "GET", "POST", "PUT", "DELETE", "HEAD"}
	statuses = []string{"200 OK", "200 OK", "200 OK", "301 Moved Permanently", "304 Not Modified", "404 Not Found", "500 Internal Server Error"}
)

func main() {
	outputFile := flag.String("o", "http.pcap", "Output pcap file path")
	exchanges := flag.Int("c", 1000, "Number of request/response exchanges to generate")
	hostList := flag.String("hosts", "example.com,api.example.com,static.example.org", "Comma-separated Host header values")
	port := flag.Int("p", 80, "Server TCP port")
	noHost := flag.Float64("nohost", 0.02, "Fraction of requests sent without a Host header")
	flag.Parse()

	hosts := strings.Split(*hostList, ",")

	f, err := os.Create(*outputFile)
	if err != nil {
		log.Fatalf("Failed to create output file: %v", err)
	}
	defer f.Close()

	pcapWriter := pcapgo.NewWriter(f)
	if err := pcapWriter.WriteFileHeader(65536, layers.LinkTypeEthernet); err != nil {
		log.Fatalf("Failed to write pcap header: %v", err)
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	clientIP := net.IP{192, 168, 1, 10}
	serverIP := net.IP{93, 184, 216, 34}
	ts := time.Now()

	log.Printf("Generating %d exchanges into %s...", *exchanges, *outputFile)

	for i := 0; i < *exchanges; i++ {
		clientPort := layers.TCPPort(rng.Intn(65535-1024) + 1024)
		serverPort := layers.TCPPort(*port)

		host := hosts[rng.Intn(len(hosts))]
		request := fmt.Sprintf("%s /item/%d HTTP/1.1\r\n", methods[rng.Intn(len(methods))], i)
		if rng.Float64() >= *noHost {
			request += "Host: " + host + "\r\n"
		}
		request += "User-Agent: pcapgen\r\nAccept: */*\r\n\r\n"

		body := strings.Repeat("x", rng.Intn(1200))
		response := fmt.Sprintf("HTTP/1.1 %s\r\nContent-Type: text/plain\r\nContent-Length: %d\r\n\r\n%s",
			statuses[rng.Intn(len(statuses))], len(body), body)

		ts = ts.Add(time.Duration(rng.Intn(5000)) * time.Microsecond)
		writeFrame(pcapWriter, ts, clientIP, serverIP, clientPort, serverPort, request)
		ts = ts.Add(time.Duration(rng.Intn(20000)) * time.Microsecond)
		writeFrame(pcapWriter, ts, serverIP, clientIP, serverPort, clientPort, response)

		if (i+1)%100000 == 0 {
			log.Printf("Generated %d exchanges...", i+1)
		}
	}

	log.Printf("Successfully generated %d exchanges into %s.", *exchanges, *outputFile)
}

func writeFrame(w *pcapgo.Writer, ts time.Time, srcIP, dstIP net.IP, srcPort, dstPort layers.TCPPort, payload string) {
	ethLayer := &layers.Ethernet{
		SrcMAC:       net.HardwareAddr{0x00, 0x11, 0x22, 0x33, 0x44, 0x55},
		DstMAC:       net.HardwareAddr{0x00, 0x66, 0x77, 0x88, 0x99, 0xAA},
		EthernetType: layers.EthernetTypeIPv4,
	}
	ipLayer := &layers.IPv4{
		SrcIP:    srcIP,
		DstIP:    dstIP,
		Version:  4,
		TTL:      64,
		Protocol: layers.IPProtocolTCP,
	}
	tcpLayer := &layers.TCP{
		SrcPort: srcPort,
		DstPort: dstPort,
		PSH:     true,
		ACK:     true,
		Window:  14600,
	}
	if err := tcpLayer.SetNetworkLayerForChecksum(ipLayer); err != nil {
		log.Fatalf("Failed to set network layer: %v", err)
	}

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{
		ComputeChecksums: true,
		FixLengths:       true,
	}
	if err := gopacket.SerializeLayers(buf, opts, ethLayer, ipLayer, tcpLayer, gopacket.Payload(payload)); err != nil {
		log.Fatalf("Failed to serialize layers: %v", err)
	}

	ci := gopacket.CaptureInfo{
		Timestamp:     ts,
		CaptureLength: len(buf.Bytes()),
		Length:        len(buf.Bytes()),
	}
	if err := w.WritePacket(ci, buf.Bytes()); err != nil {
		log.Fatalf("Failed to write packet: %v", err)
	}
}

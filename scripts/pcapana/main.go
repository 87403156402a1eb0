package main

import (
	"flag"
	"fmt"
	"log"

	"HttpSpectra/internal/engine/protocol"
	"HttpSpectra/internal/model"
	"HttpSpectra/pkg/pcap"
)

func main() {
	port := flag.Int("p", 80, "TCP port carrying HTTP traffic")
	limit := flag.Int("n", 10, "Number of HTTP events to print")
	flag.Parse()
	if flag.NArg() < 1 {
		fmt.Println("Usage: go run ./scripts/pcapana/main.go [-p port] [-n count] <path_to_pcap_file>")
		return
	}

	reader, err := pcap.NewReader(flag.Arg(0))
	if err != nil {
		log.Fatal(err)
	}
	defer reader.Close()

	classifier := protocol.NewClassifier(uint16(*port))
	i := 0
	for packet := range reader.Packets() {
		ev := classifier.Classify(packet)
		switch ev.Kind {
		case model.EventRequest:
			fmt.Printf("[%s] %-8s %-7s host=%q len=%d flow=%s\n",
				ev.Timestamp.Format("15:04:05.000"), ev.Kind, ev.Method, ev.Host, ev.ByteSize, ev.Flow)
		case model.EventResponse:
			fmt.Printf("[%s] %-8s %-7s status=%q len=%d flow=%s\n",
				ev.Timestamp.Format("15:04:05.000"), ev.Kind, "", ev.Status(), ev.ByteSize, ev.Flow)
		default:
			continue
		}
		i++
		if i >= *limit {
			break
		}
	}
}

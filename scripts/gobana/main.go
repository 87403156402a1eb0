package main

import (
	"fmt"
	"log"
	"os"

	"HttpSpectra/internal/engine/stats"
	"HttpSpectra/internal/model"
	"HttpSpectra/internal/writer"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run ./scripts/gobana/main.go <hosts.dat>")
		os.Exit(1)
	}

	hosts, err := writer.ReadHosts(os.Args[1])
	if err != nil {
		log.Fatalf("%v", err)
	}

	fmt.Printf("Decoded %d hosts:\n", len(hosts))
	snapshot := model.SnapshotFromHosts(hosts)
	for _, line := range stats.RenderSummary(snapshot, model.EmptySnapshot()) {
		fmt.Println(line)
	}
}

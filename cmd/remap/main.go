package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/Smart-Speaker/sf-data-service/internal/config"
	"github.com/Smart-Speaker/sf-data-service/internal/remap"
)

// main reshapes a finished export document into the loader-ready CSV set.
func main() {
	cfg := config.LoadRemap()

	var inputJSON string
	flag.StringVar(&inputJSON, "input", cfg.InputJSON, "export document path")
	flag.Parse()

	m := &remap.Remapper{}
	sum, err := m.Run(remap.Options{
		InputJSON:   inputJSON,
		OutputDir:   cfg.OutputDir,
		FixedUserID: cfg.FixedUserID,
	})
	if err != nil {
		log.Fatalf("remap: %v", err)
	}

	fmt.Printf("Wrote %d entry rows, %d pricebooks, %d products -> %s\n",
		sum.Entries, sum.Pricebooks, sum.Products, cfg.OutputDir)
}

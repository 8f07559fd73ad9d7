// Package main provides the mingpt checkpoint inspection CLI.
package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/born-ml/mingpt/internal/serialization"
)

const version = "v0.1.0"

func main() {
	if len(os.Args) < 2 {
		usage()
		return
	}

	switch os.Args[1] {
	case "version":
		fmt.Printf("mingpt %s\n", version)
	case "info":
		if len(os.Args) != 3 {
			usage()
			os.Exit(2)
		}
		if err := info(os.Args[2]); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Println("mingpt - byte-level GPT in Go")
	fmt.Printf("Version: %s\n\n", version)
	fmt.Println("Commands:")
	fmt.Println("  version           Show version")
	fmt.Println("  info <file.born>  Show checkpoint header and tensors")
}

func info(path string) error {
	ckpt, err := serialization.LoadFile(path, serialization.ReaderOptions{})
	if err != nil {
		return err
	}
	h := ckpt.Header
	fmt.Printf("Format:   v%d (%s)\n", h.FormatVersion, h.Creator)
	fmt.Printf("Model:    %s\n", h.ModelType)
	fmt.Printf("Created:  %s\n", h.CreatedAt)

	keys := make([]string, 0, len(h.Metadata))
	for k := range h.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("  %s = %s\n", k, h.Metadata[k])
	}

	fmt.Printf("\nTensors (%d):\n", len(h.Tensors))
	for _, t := range h.Tensors {
		fmt.Printf("  %-40s %-8s %v\n", t.Name, t.DType, t.Shape)
	}
	return nil
}

// Command nsbrowse loads raw ACPI table images (e.g. dumps produced by
// acpidump or copied out of /sys/firmware/acpi/tables), builds the ACPI
// namespace from them and starts an interactive browser for the resulting
// tree.
//
// Usage:
//
//	nsbrowse DSDT.aml [SSDT1.aml ...]
package main

import (
	"fmt"
	"os"
	"unsafe"

	"goacpi/aml"
	"goacpi/ns"
	"goacpi/table"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "usage: %s <table image> [table image ...]\n", os.Args[0])
		os.Exit(1)
	}

	resolver := new(table.FileResolver)
	for _, path := range os.Args[1:] {
		if err := resolver.LoadFile(path); err != nil {
			fmt.Fprintf(os.Stderr, "nsbrowse: %s: %s\n", path, err.Error())
			os.Exit(1)
		}
	}

	// Table dumps rarely include the FADT; synthesize an empty one so the
	// bootstrap can proceed.
	if resolver.LookupTable("FACP", 0) == nil {
		payload := make([]byte, unsafe.Sizeof(table.FADT{})-unsafe.Sizeof(table.SDTHeader{}))
		if err := resolver.Add(table.Build("FACP", 2, payload)); err != nil {
			fmt.Fprintf(os.Stderr, "nsbrowse: could not synthesize FADT: %s\n", err.Error())
			os.Exit(1)
		}
	}

	logFile, err := os.CreateTemp("", "nsbrowse-*.log")
	if err != nil {
		fmt.Fprintf(os.Stderr, "nsbrowse: %s\n", err)
		os.Exit(1)
	}
	defer logFile.Close()

	nsp := ns.Create(ns.Config{
		Tables:      resolver,
		Interpreter: aml.NewLoader(logFile),
		ErrWriter:   logFile,
	})

	if err := browse(nsp); err != nil {
		fmt.Fprintf(os.Stderr, "nsbrowse: %s\n", err)
		os.Exit(1)
	}

	fmt.Printf("namespace log written to %s\n", logFile.Name())
}

package main

import (
	"os"

	"dxf-normalizer/internal/cli"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// ============================================================
// DXF Normalizer
// ============================================================

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}

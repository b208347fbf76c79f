// =============================================================================
// Plan Cost Extractor - Main Entry Point
// =============================================================================
//
// USAGE:
//   costscan scan        - Scan extracted plan text for cost tables
//   costscan patterns    - List the registered table dialects
//   costscan validate    - Validate configuration and profiles
//   costscan version     - Display the application version
//
// ARCHITECTURE:
//   - cmd/                : CLI command definitions (Cobra)
//   - internal/costtable  : The detection engine
//   - internal/           : Pipeline, audit, writers, configuration
//   - pkg/utils           : File discovery, archival, run logs
//   - profiles/           : Per-document-family YAML profiles
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/plan-cost-extractor/cmd"
)

func main() {
	cmd.Execute()
}

// cmd/tools/registry-check/main.go
package main

import (
	"flag"
	"fmt"
	"os"

	"place-intelligence/internal/common/validation"
	"place-intelligence/pkg/registry"
)

func main() {
	validateCmd := flag.NewFlagSet("validate", flag.ExitOnError)
	exportCmd := flag.NewFlagSet("export", flag.ExitOnError)

	validatePath := validateCmd.String("path", "", "Registry file to check (empty checks the embedded registry)")
	exportOut := exportCmd.String("out", "configs/activity-registry.json", "Where to write the embedded registry")

	if len(os.Args) < 2 {
		help()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "validate":
		_ = validateCmd.Parse(os.Args[2:])
		n, err := validateRegistry(*validatePath)
		if err != nil {
			fmt.Printf("Registry validation failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Registry validation passed. Found %d activities.\n", n)

	case "export":
		_ = exportCmd.Parse(os.Args[2:])
		reg, err := registry.Default()
		if err != nil {
			fmt.Printf("Error loading embedded registry: %v\n", err)
			os.Exit(1)
		}
		if err := reg.Save(*exportOut); err != nil {
			fmt.Printf("Error exporting registry: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Wrote %d activities to %s\n", len(reg.Activities), *exportOut)

	case "help":
		fallthrough
	default:
		help()
	}
}

// validateRegistry runs the structural checks and compiles every input schema the way
// worker-manager does at startup.
func validateRegistry(path string) (int, error) {
	reg, err := registry.Load(path)
	if err != nil {
		return 0, fmt.Errorf("failed to load registry: %w", err)
	}
	if err := reg.Check(); err != nil {
		return 0, err
	}

	v := validation.NewValidator()
	for _, a := range reg.Activities {
		if err := v.Register(a.TaskType, a.InputSchema); err != nil {
			return 0, fmt.Errorf("activity %s input schema: %w", a.ID, err)
		}
	}
	return len(reg.Activities), nil
}

func help() {
	fmt.Println(`
Usage: registry-check <command> [flags]

Commands:
  validate  Check a registry file, or the embedded one, and compile its input schemas
  export    Write the embedded registry to disk for BPMN tooling
  help      Show this help message

Examples:
  registry-check validate
  registry-check validate -path configs/activity-registry.json
  registry-check export -out configs/activity-registry.json`)
}

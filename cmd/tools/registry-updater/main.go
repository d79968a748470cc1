// cmd/tools/registry-updater/main.go
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"portfolio-workers/internal/common/config"
	"portfolio-workers/pkg/registry"
)

const defaultRegistryPath = "configs/activity-registry.json"

func main() {
	if len(os.Args) < 2 {
		help()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "add":
		err = runAdd(os.Args[2:])
	case "update":
		err = runUpdate(os.Args[2:])
	case "validate":
		err = runValidate(os.Args[2:])
	case "help":
		help()
		return
	default:
		help()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runAdd(args []string) error {
	cmd := flag.NewFlagSet("add", flag.ExitOnError)
	path := cmd.String("path", defaultRegistryPath, "Path to registry file")
	id := cmd.String("id", "", "Activity ID (e.g., sign-off)")
	displayName := cmd.String("displayName", "", "Display Name (e.g., Sign Off)")
	description := cmd.String("description", "", "Description")
	category := cmd.String("category", "", "Category (submission, sampling, gateway, evidence, workqueue)")
	taskType := cmd.String("taskType", "", "Camunda Task Type; defaults to id")
	version := cmd.String("version", "1.0.0", "Version")
	status := cmd.String("status", "planned", "Implementation Status (planned, in-progress, completed, verified)")
	_ = cmd.Parse(args)

	if *id == "" || *displayName == "" || *category == "" {
		cmd.Usage()
		return fmt.Errorf("id, displayName and category are required for add")
	}
	if *taskType == "" {
		*taskType = *id
	}

	reg, err := registry.LoadRegistry(*path)
	if os.IsNotExist(err) {
		reg, err = &registry.ActivityRegistry{Version: "1.0.0"}, nil
	}
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}

	if err := reg.Add(registry.Activity{
		ID:                   *id,
		DisplayName:          *displayName,
		Description:          *description,
		Category:             *category,
		Version:              *version,
		TaskType:             *taskType,
		ImplementationStatus: *status,
		InputSchema:          map[string]interface{}{},
		OutputSchema:         map[string]interface{}{},
		ErrorCodes:           []string{},
		Timeout:              "10s",
		Workflows:            []string{},
		Tags:                 []string{},
	}); err != nil {
		return err
	}
	if err := reg.Validate(); err != nil {
		return err
	}
	if err := reg.Save(*path, time.Now()); err != nil {
		return err
	}
	fmt.Printf("Added activity: %s\n", *id)
	return nil
}

func runUpdate(args []string) error {
	cmd := flag.NewFlagSet("update", flag.ExitOnError)
	path := cmd.String("path", defaultRegistryPath, "Path to registry file")
	id := cmd.String("id", "", "Activity ID to update")
	field := cmd.String("field", "", "Field to update (status, version, displayName, description, category, timeout, retries)")
	value := cmd.String("value", "", "New value for the field")
	_ = cmd.Parse(args)

	if *id == "" || *field == "" || *value == "" {
		cmd.Usage()
		return fmt.Errorf("id, field and value are required for update")
	}

	reg, err := registry.LoadRegistry(*path)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}
	activity, ok := reg.Find(*id)
	if !ok {
		return fmt.Errorf("activity with ID %s not found", *id)
	}

	switch *field {
	case "status":
		activity.ImplementationStatus = *value
	case "version":
		activity.Version = *value
	case "displayName":
		activity.DisplayName = *value
	case "description":
		activity.Description = *value
	case "category":
		activity.Category = *value
	case "timeout":
		activity.Timeout = *value
	case "retries":
		retries, err := strconv.Atoi(*value)
		if err != nil {
			return fmt.Errorf("invalid retries value: %w", err)
		}
		activity.Retries = retries
	default:
		return fmt.Errorf("unknown field: %s", *field)
	}

	if err := reg.Validate(); err != nil {
		return err
	}
	if err := reg.Save(*path, time.Now()); err != nil {
		return err
	}
	fmt.Printf("Updated activity %s, field %s to %s\n", *id, *field, *value)
	return nil
}

// runValidate checks the registry itself and, with -config, that every
// registered task type has a worker entry in the service configuration.
func runValidate(args []string) error {
	cmd := flag.NewFlagSet("validate", flag.ExitOnError)
	path := cmd.String("path", defaultRegistryPath, "Path to registry file")
	configPath := cmd.String("config", "", "Optional config.yaml to cross-check worker entries")
	_ = cmd.Parse(args)

	reg, err := registry.LoadRegistry(*path)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}
	if err := reg.Validate(); err != nil {
		return fmt.Errorf("registry validation failed: %w", err)
	}

	if *configPath != "" {
		cfg, err := config.LoadFromFile(*configPath)
		if err != nil {
			return err
		}
		configured := make(map[string]bool, len(cfg.Workers))
		for taskType := range cfg.Workers {
			configured[taskType] = true
		}
		if missing := reg.MissingWorkers(configured); len(missing) > 0 {
			return fmt.Errorf("task types without a worker config entry: %v", missing)
		}
	}

	fmt.Printf("Registry validation passed. Found %d activities.\n", len(reg.Activities))
	return nil
}

func help() {
	fmt.Println(`
Usage: registry-updater <command> [flags]

Commands:
  add      Add a new activity to the registry
  update   Update an existing activity's field
  validate Validate the registry file
  help     Show this help message

Examples:
  registry-updater add -id sign-off -displayName "Sign Off" -category submission
  registry-updater update -id sign-off -field status -value completed
  registry-updater validate -path configs/activity-registry.json -config configs/config.yaml

Use 'registry-updater <command> -h' for more information about a command.
`)
}

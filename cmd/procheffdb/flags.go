package main

import "flag"

// Flags holds all command-line flags
type Flags struct {
	// General
	Config  *string
	Version *bool
	Help    *bool

	// Config templates
	CreateConfigEmbedded *bool
	CreateConfigServer   *bool
	CreateConfigDual     *bool

	// Schema commands
	Init     *bool
	Migrate  *bool
	Rollback *bool

	// Repository commands
	Cleanup *bool
	Stats   *int
	Search  *string
	Status  *string

	// Command options
	Output *string
	Limit  *int
}

// ParseFlags parses command-line flags
func ParseFlags() *Flags {
	flags := &Flags{
		Config:  flag.String("config", "config.yaml", "Path to YAML config file"),
		Version: flag.Bool("version", false, "Show version"),
		Help:    flag.Bool("help", false, "Show help"),

		CreateConfigEmbedded: flag.Bool("create-config-embedded", false, "Create sample embedded-mode config"),
		CreateConfigServer:   flag.Bool("create-config-server", false, "Create sample server-mode config"),
		CreateConfigDual:     flag.Bool("create-config-dual", false, "Create sample dual-mode config"),

		Init:     flag.Bool("init", false, "Initialize repository schema on all active engines"),
		Migrate:  flag.Bool("migrate", false, "Apply pending migrations"),
		Rollback: flag.Bool("rollback", false, "Roll back the most recent migration"),

		Cleanup: flag.Bool("cleanup", false, "Delete expired data pool entries"),
		Stats:   flag.Int("stats", 0, "Show cost stats for the trailing N days"),
		Search:  flag.String("search", "", "Full-text search over analysis results"),
		Status:  flag.String("status", "", "List analysis results with the given status"),

		Output: flag.String("output", "", "Output file (XLSX export for --stats)"),
		Limit:  flag.Int("limit", 20, "Result limit for --search and --status"),
	}

	flag.Parse()
	return flags
}

// commandWasSpecified checks if any command was specified
func commandWasSpecified(flags *Flags) bool {
	return *flags.Init ||
		*flags.Migrate ||
		*flags.Rollback ||
		*flags.Cleanup ||
		*flags.Stats > 0 ||
		*flags.Search != "" ||
		*flags.Status != ""
}

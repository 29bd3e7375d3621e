package main

import "fmt"

const version = "3.1.0"

// PrintVersion prints version information
func PrintVersion() {
	fmt.Printf("procheffdb version %s\n", version)
	fmt.Println("ProCheff - tender analysis persistence core")
}

// PrintHelp prints comprehensive help information
func PrintHelp() {
	fmt.Println("ProCheff DB - persistence and schema evolution CLI")
	fmt.Printf("Version: %s\n\n", version)

	fmt.Println("USAGE:")
	fmt.Println("  procheffdb [command] [options]")
	fmt.Println()

	fmt.Println("COMMANDS:")
	fmt.Println()

	fmt.Println("  Schema:")
	fmt.Println("    --init                     Initialize repository schema on all active engines")
	fmt.Println("    --migrate                  Apply pending migrations (backup taken first)")
	fmt.Println("    --rollback                 Roll back the most recent migration")
	fmt.Println()

	fmt.Println("  Repository:")
	fmt.Println("    --cleanup                  Delete expired data pool entries")
	fmt.Println("    --stats <days>             Show cost stats for the trailing N days")
	fmt.Println("    --search <query>           Full-text search over analysis results")
	fmt.Println("    --status <status>          List results: pending, processing, completed, failed")
	fmt.Println()

	fmt.Println("OPTIONS:")
	fmt.Println()

	fmt.Println("  General:")
	fmt.Println("    --config <file>            Configuration file (default: config.yaml)")
	fmt.Println("    --output <file>            Write --stats report to XLSX file")
	fmt.Println("    --limit <n>                Result limit for --search and --status (default: 20)")
	fmt.Println()

	fmt.Println("  Config templates:")
	fmt.Println("    --create-config-embedded   Create sample config for embedded SQLite mode")
	fmt.Println("    --create-config-server     Create sample config for pooled PostgreSQL mode")
	fmt.Println("    --create-config-dual       Create sample config for dual mode")
	fmt.Println()

	fmt.Println("ENVIRONMENT:")
	fmt.Println("  PROCHEFF_DB_MODE             Override backend mode (embedded|server|dual)")
	fmt.Println("  PROCHEFF_DB_PATH             Override embedded database file path")
	fmt.Println("  PROCHEFF_PG_HOST/PORT/DATABASE/USER/PASSWORD")
	fmt.Println("                               Override PostgreSQL connection settings")
	fmt.Println("  PROCHEFF_REDIS_ADDRESS       Enable event publishing to Redis")
	fmt.Println()

	fmt.Println("EXAMPLES:")
	fmt.Println("  procheffdb --create-config-embedded")
	fmt.Println("  procheffdb --migrate --config config.yaml")
	fmt.Println("  procheffdb --stats 30 --output costs.xlsx")
	fmt.Println("  procheffdb --search \"yemek hizmeti\" --limit 10")
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aydarnuman/procheff-v3-sub001/cmd/procheffdb/commands"
	"github.com/aydarnuman/procheff-v3-sub001/pkg/analysis"
	"github.com/aydarnuman/procheff-v3-sub001/pkg/audit"
	"github.com/aydarnuman/procheff-v3-sub001/pkg/db"
	"github.com/aydarnuman/procheff-v3-sub001/pkg/eventlog"

	// Engine registration
	_ "github.com/aydarnuman/procheff-v3-sub001/pkg/db/postgres"
	_ "github.com/aydarnuman/procheff-v3-sub001/pkg/db/sqlite"
)

func main() {
	// Bind lifecycle to termination signals so shutdown always
	// checkpoints the embedded engine and drains the pool
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	flags := ParseFlags()

	if *flags.Version {
		PrintVersion()
		os.Exit(0)
	}
	if *flags.Help {
		PrintHelp()
		os.Exit(0)
	}

	if *flags.CreateConfigEmbedded {
		createConfigTemplate("embedded")
		return
	}
	if *flags.CreateConfigServer {
		createConfigTemplate("server")
		return
	}
	if *flags.CreateConfigDual {
		createConfigTemplate("dual")
		return
	}

	if !commandWasSpecified(flags) {
		PrintHelp()
		os.Exit(1)
	}

	config, err := LoadConfig(*flags.Config)
	if err != nil {
		fatal("Failed to load config: %v", err)
	}

	auditLog, closeAudit := buildAuditLogger(config)
	defer closeAudit()

	universalCfg := config.BuildUniversalConfig()
	universalCfg.OnWarning = func(op string, err error) {
		fmt.Fprintf(os.Stderr, "⚠️  Warning: %s: %v\n", op, err)
		auditLog.LogFailure(ctx, audit.OpMirror, err).WithResource(op)
	}

	database, err := db.NewUniversal(ctx, universalCfg)
	if err != nil {
		fatal("Failed to connect: %v", err)
	}
	defer func() {
		if err := database.Close(context.Background()); err != nil {
			fmt.Fprintf(os.Stderr, "⚠️  Warning: shutdown failed: %v\n", err)
		}
	}()

	auditLog.LogSuccess(ctx, audit.OpConnect).WithResource(string(database.GetMode()))

	if config.Audit.Enabled && config.Audit.Database {
		dbAppender := audit.NewDatabaseAppender(database, parseAuditLevel(config.Audit.Level))
		if err := dbAppender.EnsureSchema(ctx); err != nil {
			fatal("Failed to prepare audit table: %v", err)
		}
		if logger, ok := auditLog.(*audit.AuditLogger); ok {
			logger.AddAppender(dbAppender)
		}
	}

	var events *eventlog.RedisPublisher
	if config.Redis.Enabled {
		events = eventlog.NewRedisPublisher(config.BuildRedisConfig())
		defer events.Close()
		if err := events.Ping(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "⚠️  Warning: Redis is not reachable, events disabled: %v\n", err)
			events = nil
		}
	}

	repo := analysis.NewRepository(database)

	var cmdErr error
	switch {
	case *flags.Init:
		cmdErr = commands.InitSchema(ctx, database)

	case *flags.Migrate:
		cmdErr = commands.RunMigrations(ctx, database, commands.MigrateOptions{
			ScriptDir: config.Migrations.Dir,
			BackupDir: config.Migrations.BackupDir,
			Audit:     auditLog,
		})

	case *flags.Rollback:
		cmdErr = commands.RollbackMigration(ctx, database, commands.MigrateOptions{
			ScriptDir: config.Migrations.Dir,
			BackupDir: config.Migrations.BackupDir,
			Audit:     auditLog,
		})

	case *flags.Cleanup:
		cmdErr = commands.CleanupDataPools(ctx, repo, auditLog, events)

	case *flags.Stats > 0:
		cmdErr = commands.ShowCostStats(ctx, repo, *flags.Stats, *flags.Output)

	case *flags.Search != "":
		cmdErr = commands.SearchResults(ctx, repo, *flags.Search, *flags.Limit)

	case *flags.Status != "":
		cmdErr = commands.ListByStatus(ctx, repo, *flags.Status, *flags.Limit)
	}

	if cmdErr != nil {
		fatal("Command failed: %v", cmdErr)
	}
}

// buildAuditLogger assembles the audit logger from configuration
func buildAuditLogger(config *Config) (audit.Logger, func()) {
	if !config.Audit.Enabled {
		return audit.NewNullLogger(), func() {}
	}

	level := parseAuditLevel(config.Audit.Level)

	var appenders []audit.Appender
	if config.Audit.Console {
		appenders = append(appenders, audit.NewConsoleAppender(level))
	}
	if config.Audit.File != "" {
		fileAppender, err := audit.NewFileAppender(audit.FileAppenderConfig{
			FilePath:  config.Audit.File,
			MaxSizeMB: config.Audit.MaxSize,
			Level:     level,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "⚠️  Warning: audit file disabled: %v\n", err)
		} else {
			appenders = append(appenders, fileAppender)
		}
	}
	if len(appenders) == 0 {
		appenders = append(appenders, audit.NewNullAppender())
	}

	logger := audit.NewLogger(audit.LoggerConfig{
		AsyncMode: false,
		OnError: func(err error) {
			fmt.Fprintf(os.Stderr, "⚠️  Warning: audit write failed: %v\n", err)
		},
	}, appenders...)

	return logger, func() { logger.Close() }
}

func parseAuditLevel(level string) audit.Level {
	switch level {
	case "minimal":
		return audit.LevelMinimal
	case "full":
		return audit.LevelFull
	default:
		return audit.LevelStandard
	}
}

// createConfigTemplate creates a sample configuration file
func createConfigTemplate(mode string) {
	config := CreateSampleConfig(mode)

	if err := SaveConfig("config.yaml", config); err != nil {
		fatal("Failed to save config: %v", err)
	}

	fmt.Printf("✓ Created sample %s config: config.yaml\n", mode)
	fmt.Println("Edit the file with your database settings and run:")
	fmt.Println("  procheffdb --init --config config.yaml")
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

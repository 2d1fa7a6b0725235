//go:build mage
// +build mage

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"

	"respec/internal/config"
	"respec/internal/database"
	"respec/internal/metrics"
)

const binary = "bin/respec"

// Build builds the respec binary
func Build() error {
	mg.Deps(Vet, Test)

	fmt.Printf("Building %s...\n", binary)
	return sh.RunV("go", "build",
		"-o", binary,
		"-ldflags", "-s -w",
		".")
}

// Test runs Go unit tests with the race detector
func Test() error {
	fmt.Println("Running Go tests...")
	return sh.RunV("go", "test", "-race", "-coverprofile=coverage.out", "./...")
}

// Cover prints per-function coverage from the last test run
func Cover() error {
	mg.Deps(Test)
	return sh.RunV("go", "tool", "cover", "-func=coverage.out")
}

// Vet runs go vet
func Vet() error {
	fmt.Println("Running go vet...")
	return sh.RunV("go", "vet", "./...")
}

// Lint runs golangci-lint
func Lint() error {
	fmt.Println("Running linters...")
	return sh.RunV("golangci-lint", "run", "./...")
}

// InitDB creates the configured database and applies the schema
func InitDB() error {
	cfg, err := config.Load(os.Getenv("RESPEC_CONFIG"))
	if err != nil {
		return err
	}
	ctx := context.Background()

	repo, err := database.OpenRepository(ctx, cfg.Database.Path, cfg.Database.CacheSize)
	if err != nil {
		return fmt.Errorf("failed to init %s: %w", cfg.Database.Path, err)
	}
	defer repo.Close()

	if err := metrics.NewHistogram(repo.DB()).EnsureSchema(ctx); err != nil {
		return err
	}
	fmt.Printf("  ✓ Initialized %s\n", cfg.Database.Path)
	return nil
}

// ValidateSchema checks the configured database has every required table
func ValidateSchema() error {
	mg.Deps(InitDB)

	cfg, err := config.Load(os.Getenv("RESPEC_CONFIG"))
	if err != nil {
		return err
	}
	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	for _, table := range []string{"loops", "loop_events", "documents", "latency_histogram"} {
		var exists bool
		err := db.QueryRow(`SELECT EXISTS(SELECT 1 FROM sqlite_master WHERE type='table' AND name=?)`, table).Scan(&exists)
		if err != nil {
			return fmt.Errorf("failed to check table %s: %w", table, err)
		}
		if !exists {
			return fmt.Errorf("missing required table %q in %s", table, cfg.Database.Path)
		}
		fmt.Printf("  ✓ %s\n", table)
	}
	return nil
}

// Check runs vet, lint, tests and the build
func Check() error {
	mg.Deps(Vet, Lint, Test, Build)
	fmt.Println("✅ All checks passed")
	return nil
}

// Clean removes build artifacts
func Clean() error {
	fmt.Println("Cleaning...")
	if err := os.RemoveAll("bin"); err != nil {
		return err
	}
	return os.RemoveAll("coverage.out")
}

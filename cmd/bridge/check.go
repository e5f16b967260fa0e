package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the configuration and Jenkins connectivity",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			return fmt.Errorf("configuration file not found: %s", configPath)
		}

		app, err := buildCore(os.Stdout)
		if err != nil {
			return err
		}

		passed := 0
		fmt.Println("Checking configuration...")
		fmt.Println()

		fmt.Println("✓ Configuration file loaded and validated")
		passed++

		ctx := context.Background()
		if err := app.client.CheckAccessibility(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "✗ Jenkins is not accessible at %s: %v\n", app.cfg.Jenkins.BaseURL, err)
			return fmt.Errorf("1 check failed")
		}
		fmt.Printf("✓ Jenkins is accessible at %s\n", app.cfg.Jenkins.BaseURL)
		passed++

		if app.cfg.Server.ResolveAPIKey() == "" {
			fmt.Println("⚠ Warning: no API key configured, REST API will run unauthenticated")
		} else {
			fmt.Println("✓ REST API key configured")
			passed++
		}

		fmt.Println()
		fmt.Printf("Summary: %d checks passed\n", passed)
		return nil
	},
}

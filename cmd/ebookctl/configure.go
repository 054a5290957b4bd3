package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/mmcdole/ebookctl/internal/adapter"
	"github.com/mmcdole/ebookctl/internal/adapter/remote"
	"github.com/mmcdole/ebookctl/internal/tui/styles"
)

// clearSpinnerLine clears the spinner line from the terminal
const clearSpinnerLine = "\r                                    \r"

var configureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Set the ebookgen server and save the config file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := adapter.LoadConfig(configFile)
		if err != nil {
			// Start over from defaults when the existing file is unusable
			fmt.Fprintf(os.Stderr, "warning: %v\n", err)
			cfg = adapter.DefaultConfig()
		}

		url := serverURL
		if url == "" {
			url, err = promptServer(os.Stdin, cfg)
			if err != nil {
				return err
			}
		} else {
			cfg.API.URL = url
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := checkServerWithSpinner(cmd.Context(), cfg.API); err != nil {
				return err
			}
		}

		if err := adapter.SaveConfig(cfg, configFile); err != nil {
			return err
		}
		fmt.Println()
		fmt.Println(color.GreenString("✓ Configuration saved!"))
		fmt.Printf("Server: %s\n", url)
		return nil
	},
}

// promptServer loops until the entered URL is valid and answers
func promptServer(in io.Reader, cfg *adapter.Config) (string, error) {
	reader := bufio.NewReader(in)
	current := cfg.API.URL
	for {
		fmt.Printf("Enter your ebookgen server URL [%s]: ", current)
		input, err := reader.ReadString('\n')
		if err != nil && input == "" {
			return "", fmt.Errorf("failed to read input: %w", err)
		}
		url := strings.TrimSpace(input)
		if url == "" {
			url = current
		}

		cfg.API.URL = url
		if err := cfg.Validate(); err != nil {
			fmt.Printf("%v. Please try again.\n", err)
			continue
		}

		fmt.Println()
		if err := checkServerWithSpinner(context.Background(), cfg.API); err != nil {
			fmt.Printf("\n✗ %v\n", err)
			fmt.Println("Please check the URL and try again.")
			fmt.Println()
			continue
		}
		return url, nil
	}
}

// checkServerWithSpinner lists books on the server behind a spinner
func checkServerWithSpinner(ctx context.Context, api adapter.APIConfig) error {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	api.ReadRetries = 0
	client := remote.NewClient(api, adapter.NullLogger())

	type result struct {
		count int
		err   error
	}
	resultCh := make(chan result, 1)

	go func() {
		books, err := client.ListBooks(ctx)
		resultCh <- result{len(books), err}
	}()

	frame := 0
	fmt.Printf("\r%s Contacting server...", styles.SpinnerFrames[frame])

	ticker := time.NewTicker(80 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case res := <-resultCh:
			fmt.Print(clearSpinnerLine)
			if res.err != nil {
				if remote.IsOffline(res.err) {
					return fmt.Errorf("could not reach %s", api.URL)
				}
				return fmt.Errorf("server check failed: %w", res.err)
			}
			fmt.Printf("✓ Connected: %d books\n", res.count)
			return nil

		case <-ticker.C:
			frame++
			fmt.Printf("\r%s Contacting server...", styles.SpinnerFrames[frame%len(styles.SpinnerFrames)])

		case <-ctx.Done():
			fmt.Print(clearSpinnerLine)
			return fmt.Errorf("server check timed out")
		}
	}
}

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the local job history",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete the local job history",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := adapter.LoadConfig(configFile)
		if err != nil {
			return err
		}
		if cfg.Cache.Dir == "" {
			fmt.Println("Job history is kept in memory; nothing to clear.")
			return nil
		}
		if err := adapter.ClearCache(cfg.Cache.Dir); err != nil {
			return err
		}
		fmt.Printf("Cleared %s\n", cfg.Cache.Dir)
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheClearCmd)
	rootCmd.AddCommand(configureCmd, cacheCmd)
}

// Copyright 2024 CapFS Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package commands

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"capfs/internal/storage"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// SetVersion sets the version info for --version flag
func SetVersion(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = getVersionString()
}

// getVersionString returns the version string with build info
func getVersionString() string {
	buildDate := formatBuildDate(date)
	if strings.HasSuffix(version, "-dev") {
		// Dev build: include epoch and commit for troubleshooting
		return fmt.Sprintf("%s (%s, epoch: %s, commit: %s)", version, buildDate, date, commit)
	}
	return fmt.Sprintf("%s (%s)", version, buildDate)
}

// formatBuildDate converts epoch timestamp to readable date
func formatBuildDate(epoch string) string {
	ts, err := strconv.ParseInt(epoch, 10, 64)
	if err != nil {
		return epoch
	}
	return time.Unix(ts, 0).Format("2006-01-02")
}

var storeFlag string

var rootCmd = &cobra.Command{
	Use:   "capfs",
	Short: "Single-file virtual filesystem with typed handles",
	Long: `capfs keeps a whole directory tree in a single SQLite-backed store file
and exposes it through walk/stat/read/write operations. Use it to capture,
inspect, and replay project trees without touching the host filesystem.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}

		cfg, err := LoadProjectConfig(".")
		if err != nil {
			return fmt.Errorf("failed to load project config: %w", err)
		}
		applyLogging(cfg)
		return nil
	},
}

// applyLogging configures logrus from the project config. Logging is off by
// default; an unknown level falls back to info.
func applyLogging(cfg *ProjectConfig) {
	if cfg == nil || !cfg.LoggingEnabled() {
		log.SetLevel(log.PanicLevel)
		return
	}
	level, err := log.ParseLevel(cfg.LogLevel())
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.SetVersionTemplate("capfs version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&storeFlag, "store", "", "path to the store file (default: from project config)")
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// openStore opens the store named by --store or the project config.
func openStore() (*storage.Store, error) {
	path, err := resolveStorePath()
	if err != nil {
		return nil, err
	}
	return storage.Open(path)
}

// resolveStorePath picks the store file path: the --store flag wins, then
// the project config, then the default location under .capfs.
func resolveStorePath() (string, error) {
	if storeFlag != "" {
		return storeFlag, nil
	}
	cfg, err := LoadProjectConfig(".")
	if err != nil {
		return "", err
	}
	if cfg == nil {
		return "", fmt.Errorf("no project here: run 'capfs init' first or pass --store")
	}
	return cfg.StorePath("."), nil
}

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
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"capfs/internal/artifacts"
	"capfs/internal/storage"
)

var initCmd = &cobra.Command{
	Use:   "init [directory]",
	Short: "Initialize a capfs project",
	Long: `Initialize a new capfs project in the specified directory (or current directory).

Creates a .capfs directory with a default configuration file and an empty
store. Similar to 'git init', this prepares the directory for capfs operations.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	targetDir := "."
	if len(args) > 0 {
		targetDir = args[0]
	}
	absDir, err := filepath.Abs(targetDir)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	projectDir := filepath.Join(absDir, ProjectDirName)
	if _, err := os.Stat(projectDir); err == nil {
		fmt.Printf("Reinitialized existing capfs project in %s\n", projectDir)
	} else {
		if err := os.MkdirAll(projectDir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s directory: %w", ProjectDirName, err)
		}
		fmt.Printf("Initialized empty capfs project in %s\n", projectDir)
	}

	configPath := filepath.Join(projectDir, "config.yaml")
	if _, err := os.Stat(configPath); err == nil {
		fmt.Printf("  config.yaml already exists (not modified)\n")
	} else {
		if err := os.WriteFile(configPath, artifacts.ProjectConfig, 0o644); err != nil {
			return fmt.Errorf("failed to write config.yaml: %w", err)
		}
		fmt.Printf("  created config.yaml\n")
	}

	cfg, err := LoadProjectConfigFromPath(configPath)
	if err != nil {
		return err
	}
	storePath := cfg.StorePath(absDir)
	if _, err := os.Stat(storePath); err == nil {
		fmt.Printf("  store already exists (not modified)\n")
		return nil
	}
	store, err := storage.Create(storePath)
	if err != nil {
		return fmt.Errorf("failed to create store: %w", err)
	}
	defer store.Close()
	fmt.Printf("  created %s\n", filepath.Base(storePath))
	return nil
}

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

	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show store information",
	Args:  cobra.NoArgs,
	RunE:  runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

func runInfo(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()
	version, err := store.SchemaVersion(ctx)
	if err != nil {
		return err
	}
	count, err := store.NodeCount(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Store:          %s\n", store.Path())
	fmt.Printf("Instance ID:    %s\n", store.InstanceID())
	fmt.Printf("Schema version: %s\n", version)
	fmt.Printf("Nodes:          %d\n", count)
	return nil
}

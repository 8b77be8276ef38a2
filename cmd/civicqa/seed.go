// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/civicqa/internal/store"
	"github.com/pdiddy/civicqa/pkg/types"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load fixture records into the local record store",
	Long: `Seed reads a YAML file of report, safety and post records and upserts
them into the SQLite store read by the store-backed sources. Records with an
existing kind and key are replaced.`,
	RunE: runSeed,
}

func runSeed(cmd *cobra.Command, args []string) error {
	file, _ := cmd.Flags().GetString("file")
	if file == "" {
		return fmt.Errorf("--file is required")
	}

	st, err := store.NewStore(appConfig.Store)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := context.Background()
	summary, err := st.Seed(ctx, file, logger)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "Seeded %d of %d records into %s\n", summary.Loaded, summary.Total(), appConfig.Store.Path)
	for _, kind := range types.SourceKinds {
		n, err := st.Count(ctx, kind)
		if err != nil {
			return err
		}
		if n > 0 {
			fmt.Fprintf(os.Stdout, "  %-7s %d\n", kind, n)
		}
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%d record(s) failed to load", summary.Failed)
	}
	return nil
}

func init() {
	seedCmd.Flags().String("file", "", "YAML file of records to load")

	rootCmd.AddCommand(seedCmd)
}

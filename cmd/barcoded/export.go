package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

func newExportCmd(opts *rootOptions) *cobra.Command {
	var orgID, output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write an organization's barcodes as CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			if orgID == "" {
				return errors.New("--organization is required")
			}
			cfg, log, err := opts.load()
			if err != nil {
				return err
			}
			defer log.Sync()

			a, err := newApp(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer a.Close()

			table, err := a.service.Export(cmd.Context(), orgID)
			if err != nil {
				return fmt.Errorf("export %s: %w", orgID, err)
			}

			var w io.Writer = cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			if err := writeCSV(w, table); err != nil {
				return err
			}
			log.Info("export finished", "organization_id", orgID, "rows", len(table)-1)
			return nil
		},
	}
	cmd.Flags().StringVar(&orgID, "organization", "", "organization id to export")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	return cmd
}

func writeCSV(w io.Writer, table [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(table); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

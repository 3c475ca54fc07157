package main

import (
	"fmt"
	"io"
	"strconv"

	"satellite-catalog/db"
	"satellite-catalog/pkg/ontology"
	"satellite-catalog/pkg/services/managers"
	"satellite-catalog/pkg/services/views"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

func newInitCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the catalog database, populate constellations and rebuild views",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger(opts.verbose)
			h, _, err := opts.openCatalog(log)
			if err != nil {
				return err
			}
			defer h.Close()

			printViews(cmd.OutOrStdout(), h.Views())
			return nil
		},
	}
}

func newHistoryCmd(opts *rootOptions) *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List downloads recorded in the trailing window",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger(opts.verbose)
			h, _, err := opts.openCatalog(log)
			if err != nil {
				return err
			}
			defer h.Close()

			downloads, err := h.DownloadHistory(days)
			if err != nil {
				return err
			}
			printDownloads(cmd.OutOrStdout(), downloads)
			return nil
		},
	}
	cmd.Flags().IntVar(&days, "days", 7, "size of the trailing window in days")
	return cmd
}

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the catalog schema version",
	}

	open := func() (*db.Service, error) {
		s, err := opts.settings()
		if err != nil {
			return nil, err
		}
		cfg := db.DefaultConfig()
		cfg.DBPath = s.DBPath
		cfg.AutoInitialize = false
		cfg.Logger = newLogger(opts.verbose)
		return db.New(cfg)
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			RunE: func(cmd *cobra.Command, args []string) error {
				svc, err := open()
				if err != nil {
					return err
				}
				defer svc.Close()
				if err := svc.MigrateUp(); err != nil {
					return err
				}
				return printVersion(cmd.OutOrStdout(), svc)
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the applied migration version",
			RunE: func(cmd *cobra.Command, args []string) error {
				svc, err := open()
				if err != nil {
					return err
				}
				defer svc.Close()
				return printVersion(cmd.OutOrStdout(), svc)
			},
		},
	)
	return cmd
}

func printVersion(w io.Writer, svc *db.Service) error {
	version, dirty, err := svc.MigrateVersion()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "schema version %d (dirty: %t)\n", version, dirty)
	return err
}

func newTable(w io.Writer, header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_CENTER)
	table.SetAutoFormatHeaders(false)
	table.SetBorder(true)
	table.SetHeader(header)
	return table
}

func printViews(w io.Writer, vs []views.View) {
	table := newTable(w, []string{"View", "Kind", "Constellation"})
	for _, v := range vs {
		constellation := v.Constellation
		if constellation == "" {
			constellation = "-"
		}
		table.Append([]string{v.Name, v.Kind, constellation})
	}
	table.Render()
}

func printDownloads(w io.Writer, downloads []ontology.Download) {
	table := newTable(w, []string{"Product", "Constellation", "Type", "Status", "Downloaded", "Size\n(MB)"})
	for _, d := range downloads {
		size := "-"
		if d.FileSizeMB != nil {
			size = strconv.FormatFloat(*d.FileSizeMB, 'f', 1, 64)
		}
		table.Append([]string{
			d.ProductID,
			d.Constellation,
			d.ProductType,
			d.Status,
			managers.FormatTime(d.DownloadTime),
			size,
		})
	}
	table.Render()
	fmt.Fprintf(w, "%d download(s)\n", len(downloads))
}

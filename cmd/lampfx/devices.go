package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/nerrad567/gray-logic-lampfx/internal/device"
)

// defaultHistoryLimit caps --history output.
const defaultHistoryLimit = 20

func newDevicesCmd(configPath *string) *cobra.Command {
	var (
		history string
		limit   int
	)

	cmd := &cobra.Command{
		Use:   "devices",
		Short: "List lamp arrays recorded in the device inventory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}

			db, err := openDatabase(cmd.Context(), cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()

			inv := device.NewSQLiteInventory(db.DB)
			if history != "" {
				sightings, err := inv.History(cmd.Context(), history, limit)
				if err != nil {
					return fmt.Errorf("reading history: %w", err)
				}
				return printSightings(cmd.OutOrStdout(), sightings)
			}

			records, err := inv.List(cmd.Context())
			if err != nil {
				return fmt.Errorf("listing devices: %w", err)
			}
			return printDevices(cmd.OutOrStdout(), records)
		},
	}
	cmd.Flags().StringVar(&history, "history", "", "show attach/detach history for a device id")
	cmd.Flags().IntVar(&limit, "limit", defaultHistoryLimit, "maximum history entries")
	return cmd
}

var (
	attachedLabel = color.New(color.FgGreen).SprintFunc()
	detachedLabel = color.New(color.Faint).SprintFunc()
)

func printDevices(w io.Writer, records []device.Record) error {
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "no lamp arrays recorded")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tLAMPS\tSTATE\tFIRST SEEN\tLAST SEEN")
	for _, r := range records {
		state := detachedLabel("detached")
		if r.Attached {
			state = attachedLabel("attached")
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\n",
			r.ID, r.LampCount, state,
			r.FirstSeen.Local().Format(time.DateTime),
			r.LastSeen.Local().Format(time.DateTime),
		)
	}
	return tw.Flush()
}

func printSightings(w io.Writer, sightings []device.Sighting) error {
	if len(sightings) == 0 {
		_, err := fmt.Fprintln(w, "no sightings recorded")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tDEVICE\tEVENT\tLAMPS")
	for _, s := range sightings {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n",
			s.CreatedAt.Local().Format(time.DateTime), s.DeviceID, s.Event, s.LampCount)
	}
	return tw.Flush()
}

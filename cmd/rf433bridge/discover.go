package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nerrad567/gray-logic-rf433/internal/discovery"
)

func newDiscoverCmd() *cobra.Command {
	scanner := discovery.NewScanner()
	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Find RF433 bridges advertised on the local network",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			bridges, err := scanner.Scan(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(bridges) == 0 {
				fmt.Fprintln(out, "no bridges found")
				return nil
			}
			st := newStyles(out)
			for _, b := range bridges {
				fmt.Fprintln(out, st.formatBridge(b))
			}
			return nil
		},
	}
	cmd.Flags().DurationVarP(&scanner.Timeout, "timeout", "t", 5*time.Second, "How long to browse")
	cmd.Flags().StringVar(&scanner.Service, "service", discovery.DefaultService, "DNS-SD service type")
	return cmd
}

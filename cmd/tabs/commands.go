package tabs

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/ValentinKolb/syncstore/lib/tabpool"
	"github.com/spf13/cobra"
)

var (
	listCmd = &cobra.Command{
		Use:   "list",
		Short: "Lists all tab nodes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, rec := range tracker.Nodes() {
				if rec.Free() {
					fmt.Printf("node=%d, free\n", rec.NodeID)
				} else {
					fmt.Printf("node=%d, tab=%d\n", rec.NodeID, rec.TabID)
				}
			}
			stats, err := json.Marshal(tracker.Pool().Stats())
			if err != nil {
				return err
			}
			fmt.Println(string(stats))
			return nil
		},
	}
	openCmd = &cobra.Command{
		Use:   "open [tab]",
		Short: "Assigns a node to a tab",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tab, err := parseID(args[0], "tab")
			if err != nil {
				return err
			}
			node, err := tracker.OpenTab(tabpool.TabID(tab))
			if err != nil {
				return err
			}
			fmt.Printf("tab=%d, node=%d\n", tab, node)
			return nil
		},
	}
	moveCmd = &cobra.Command{
		Use:   "move [node] [tab]",
		Short: "Associates a tab with a specific node",
		Long:  "Associates the tab with the node. A previous node of the tab is freed, as is a tab previously associated with the node.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			node, err := parseID(args[0], "node")
			if err != nil {
				return err
			}
			tab, err := parseID(args[1], "tab")
			if err != nil {
				return err
			}
			if err := tracker.MoveTab(tabpool.NodeID(node), tabpool.TabID(tab)); err != nil {
				return err
			}
			fmt.Println("move successfully")
			return nil
		},
	}
	closeCmd = &cobra.Command{
		Use:   "close [tab]",
		Short: "Frees the node of a tab",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tab, err := parseID(args[0], "tab")
			if err != nil {
				return err
			}
			if err := tracker.CloseTab(tabpool.TabID(tab)); err != nil {
				return err
			}
			fmt.Println("close successfully")
			return nil
		},
	}
	compactCmd = &cobra.Command{
		Use:   "compact",
		Short: "Removes surplus free nodes",
		Long: fmt.Sprintf("Removes the largest free nodes until %d are left, if more than %d are free.",
			tabpool.LowWatermark, tabpool.HighWatermark),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			removed, err := tracker.Compact()
			if err != nil {
				return err
			}
			fmt.Printf("removed %d nodes\n", len(removed))
			return nil
		},
	}
)

// parseID parses a non-negative node or tab id
func parseID(arg, name string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number: %w", name, err)
	}
	if id < 0 {
		return 0, fmt.Errorf("%s must not be negative, got %d", name, id)
	}
	return id, nil
}

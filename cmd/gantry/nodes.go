package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	"connectrpc.com/connect"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/gantryhq/gantry/pkg/rpc"
)

func nodesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "nodes",
		Short: "List nodes that are online",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
			defer cancel()

			resp, err := newClient().ListNodes(ctx, connect.NewRequest(&rpc.ListNodesRequest{}))
			if err != nil {
				return fmt.Errorf("failed to list nodes: %w", err)
			}
			if len(resp.Msg.Nodes) == 0 && outputFormat == "table" {
				fmt.Println("No nodes online")
				return nil
			}

			switch outputFormat {
			case "json":
				return outputJSON(os.Stdout, resp.Msg.Nodes)
			case "table":
				return writeNodesTable(os.Stdout, resp.Msg.Nodes)
			default:
				return fmt.Errorf("unsupported output format: %s", outputFormat)
			}
		},
	}
}

func writeNodesTable(w io.Writer, nodes []rpc.NodeInfo) error {
	table := tablewriter.NewWriter(w)
	table.Header("Name", "Driver", "Servers")
	for _, n := range nodes {
		if err := table.Append([]string{n.Name, n.Driver, strconv.Itoa(n.Servers)}); err != nil {
			return err
		}
	}
	return table.Render()
}

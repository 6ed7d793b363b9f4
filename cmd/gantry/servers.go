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

	"github.com/gantryhq/gantry/pkg/driver"
	"github.com/gantryhq/gantry/pkg/rpc"
)

func serversCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "servers",
		Short: "Manage game servers",
	}
	cmd.AddCommand(serversListCmd())
	cmd.AddCommand(serversCreateCmd())
	return cmd
}

func serversListCmd() *cobra.Command {
	var node string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List servers created through the controller",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
			defer cancel()

			resp, err := newClient().ListServers(ctx, connect.NewRequest(&rpc.ListServersRequest{Node: node}))
			if err != nil {
				return fmt.Errorf("failed to list servers: %w", err)
			}
			if len(resp.Msg.Servers) == 0 && outputFormat == "table" {
				fmt.Println("No servers found")
				return nil
			}

			switch outputFormat {
			case "json":
				return outputJSON(os.Stdout, resp.Msg.Servers)
			case "table":
				return writeServersTable(os.Stdout, resp.Msg.Servers)
			default:
				return fmt.Errorf("unsupported output format: %s", outputFormat)
			}
		},
	}

	cmd.Flags().StringVar(&node, "node", "", "Only list servers on this node")
	return cmd
}

type createFlags struct {
	node      string
	image     string
	env       []string
	egg       uint32
	startup   string
	resources driver.Resources
}

func serversCreateCmd() *cobra.Command {
	var f createFlags

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a server on a node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := f.request(args[0])
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
			defer cancel()

			resp, err := newClient().CreateServer(ctx, connect.NewRequest(req))
			if err != nil {
				return fmt.Errorf("failed to create server: %w", err)
			}

			switch outputFormat {
			case "json":
				return outputJSON(os.Stdout, resp.Msg.Server)
			case "table":
				return writeServersTable(os.Stdout, []rpc.ServerInfo{resp.Msg.Server})
			default:
				return fmt.Errorf("unsupported output format: %s", outputFormat)
			}
		},
	}

	cmd.Flags().StringVar(&f.node, "node", "", "Node to create the server on (required)")
	cmd.Flags().StringVar(&f.image, "image", "", "Container image")
	cmd.Flags().StringArrayVarP(&f.env, "env", "e", nil, "Environment variable KEY=VALUE (repeatable, order kept)")
	cmd.Flags().Uint32Var(&f.egg, "egg", 0, "Override the node's egg")
	cmd.Flags().StringVar(&f.startup, "startup", "", "Override the node's startup command")
	cmd.Flags().Uint32Var(&f.resources.Memory, "memory", 1024, "Memory limit in MiB")
	cmd.Flags().Uint32Var(&f.resources.Swap, "swap", 0, "Swap limit in MiB")
	cmd.Flags().Uint32Var(&f.resources.Disk, "disk", 5120, "Disk limit in MiB")
	cmd.Flags().Uint32Var(&f.resources.IO, "io", 500, "Block IO weight (10-1000)")
	cmd.Flags().Uint32Var(&f.resources.CPU, "cpu", 100, "CPU limit in percent of one core")
	_ = cmd.MarkFlagRequired("node")

	return cmd
}

func (f createFlags) request(name string) (*rpc.CreateServerRequest, error) {
	env, err := parseEnv(f.env)
	if err != nil {
		return nil, err
	}
	if f.resources.IO != 0 && (f.resources.IO < 10 || f.resources.IO > 1000) {
		return nil, fmt.Errorf("--io must be between 10 and 1000, got %d", f.resources.IO)
	}

	var settings []driver.KeyValue
	if f.egg != 0 {
		settings = append(settings, driver.KeyValue{Key: "egg", Value: strconv.FormatUint(uint64(f.egg), 10)})
	}
	if f.startup != "" {
		settings = append(settings, driver.KeyValue{Key: "startup", Value: f.startup})
	}

	return &rpc.CreateServerRequest{
		Node:      f.node,
		Name:      name,
		Resources: f.resources,
		Deployment: driver.Deployment{
			Image:       f.image,
			Environment: env,
			Settings:    settings,
		},
	}, nil
}

func writeServersTable(w io.Writer, servers []rpc.ServerInfo) error {
	table := tablewriter.NewWriter(w)
	table.Header("ID", "Name", "Node", "Address", "Panel ID", "Created")
	for _, s := range servers {
		row := []string{
			shortID(s.ID),
			s.Name,
			s.Node,
			s.Address,
			strconv.FormatUint(uint64(s.PanelID), 10),
			formatTimestamp(s.CreatedAt),
		}
		if err := table.Append(row); err != nil {
			return err
		}
	}
	return table.Render()
}

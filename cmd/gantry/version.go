package main

import (
	"context"
	"fmt"

	"connectrpc.com/connect"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/gantryhq/gantry/pkg/rpc"
	"github.com/gantryhq/gantry/pkg/version"
)

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show controller and client versions",
		RunE: func(cmd *cobra.Command, args []string) error {
			spinner, _ := pterm.DefaultSpinner.Start(fmt.Sprintf("Requesting version info from controller %s...", controllerAddr))

			ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
			defer cancel()

			remote, protocol, err := fetchVersions(ctx, newClient())
			if err != nil {
				spinner.Fail(err.Error())
				return err
			}
			spinner.Success("Version info retrieved")

			pterm.DefaultSection.Println("Controller")
			pterm.Info.Printfln("Version:          %s", remote)
			pterm.Info.Printfln("Protocol version: %d", protocol)
			pterm.DefaultSection.Println("Client")
			pterm.Info.Printfln("Version:          %s", version.String())
			pterm.Info.Printfln("Protocol version: %d", version.Protocol)

			if !version.Compatible(protocol) {
				pterm.Warning.Printfln("controller speaks protocol %d, this client speaks %d", protocol, version.Protocol)
			}
			return nil
		},
	}
}

// fetchVersions asks for both versions. Either call failing fails the
// whole query.
func fetchVersions(ctx context.Context, client rpc.ControllerServiceClient) (string, uint32, error) {
	v, err := client.GetControllerVersion(ctx, connect.NewRequest(&rpc.GetControllerVersionRequest{}))
	if err != nil {
		return "", 0, fmt.Errorf("failed to get controller version: %w", err)
	}
	p, err := client.GetProtocolVersion(ctx, connect.NewRequest(&rpc.GetProtocolVersionRequest{}))
	if err != nil {
		return "", 0, fmt.Errorf("failed to get protocol version: %w", err)
	}
	return v.Msg.Version, p.Msg.Protocol, nil
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nvstore/nvstore/pkg/profile"
	"github.com/nvstore/nvstore/pkg/snapshot"
)

func newExportCmd() *cobra.Command {
	var codecName string
	cmd := &cobra.Command{
		Use:   "export FILE",
		Short: "Export the settings region to a snapshot file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			codec, err := snapshot.ParseCodec(codecName)
			if err != nil {
				return err
			}

			p, err := profile.Load(profilePath)
			if err != nil {
				return err
			}
			device, err := p.OpenDevice()
			if err != nil {
				return err
			}
			defer device.Close()

			if err := snapshot.ExportFile(device, p.RegionOffset, p.RegionSize, args[0], codec); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d bytes to %s (%s)\n", p.RegionSize, args[0], codec)
			return nil
		},
	}
	cmd.Flags().StringVar(&codecName, "codec", "zstd", "snapshot compression (none, zstd, snappy)")
	return cmd
}

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Restore the settings region from a snapshot file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := profile.Load(profilePath)
			if err != nil {
				return err
			}
			device, err := p.OpenDevice()
			if err != nil {
				return err
			}
			defer device.Close()

			if err := snapshot.ImportFile(device, p.RegionOffset, p.RegionSize, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %s into region [%d, %d)\n", args[0], p.RegionOffset, p.RegionOffset+p.RegionSize)
			return nil
		},
	}
}

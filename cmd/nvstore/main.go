// Command nvstore manages flash-backed settings images from the host: it
// inspects and edits settings stores inside flash image files described
// by a device profile, and snapshots regions for provisioning.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nvstore/nvstore/pkg/common/log"
	"github.com/nvstore/nvstore/pkg/flash"
	"github.com/nvstore/nvstore/pkg/profile"
	"github.com/nvstore/nvstore/pkg/settings"
	"github.com/nvstore/nvstore/pkg/stats"
	"github.com/nvstore/nvstore/pkg/telemetry"
)

var (
	profilePath string
	logLevel    string
)

var rootCmd = &cobra.Command{
	Use:   "nvstore",
	Short: "Manage flash-backed settings images",
	Long: `nvstore inspects and edits fixed-schema settings stores stored in
flash image files. A device profile (YAML) describes the image path,
region geometry, header identity, and the default entries.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	rootCmd.PersistentFlags().StringVarP(&profilePath, "profile", "p", "device.yaml", "device profile file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(
		newPrintCmd(),
		newGetCmd(),
		newPutIntCmd(),
		newPutBoolCmd(),
		newPutStringCmd(),
		newSaveCmd(),
		newEraseCmd(),
		newExportCmd(),
		newImportCmd(),
		newStatsCmd(),
		newShellCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func newLogger() log.Logger {
	level, err := log.ParseLevel(logLevel)
	if err != nil {
		level = log.LevelInfo
	}
	return log.NewStandardLogger(log.WithLevel(level))
}

type session struct {
	profile *profile.Profile
	device  flash.Device
	store   *settings.Store
	stats   stats.Collector
	tel     telemetry.Telemetry
}

// openSession loads the profile, opens its image, and opens the settings
// store over it.
func openSession() (*session, error) {
	p, err := profile.Load(profilePath)
	if err != nil {
		return nil, err
	}

	device, err := p.OpenDevice()
	if err != nil {
		return nil, err
	}

	collector := stats.NewAtomicCollector()
	telCfg := telemetry.DefaultConfig()
	telCfg.LoadFromEnv()
	tel, err := telemetry.New(telCfg)
	if err != nil {
		device.Close()
		return nil, err
	}

	opts := p.StoreOptions()
	opts.Logger = newLogger()
	opts.Stats = collector
	opts.Telemetry = tel

	store, err := settings.Open(device, opts)
	if err != nil {
		tel.Shutdown(context.Background())
		device.Close()
		return nil, err
	}

	return &session{profile: p, device: device, store: store, stats: collector, tel: tel}, nil
}

func (s *session) Close() error {
	s.store.Close()
	s.tel.Shutdown(context.Background())
	return s.device.Close()
}

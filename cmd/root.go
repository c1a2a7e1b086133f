package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/bnema/eitype/internal/config"
	"github.com/bnema/eitype/internal/input"
	"github.com/bnema/eitype/internal/keymap"
	"github.com/bnema/eitype/internal/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var (
	configFile string
	verbose    bool

	rootCmd = &cobra.Command{
		Use:   "ei-type",
		Short: "ei-type - type text into the focused Wayland window",
		Long: `ei-type types text read from standard input, or sends a single key
combination, into the focused window of a Wayland compositor. Keys are
injected over the EI (libei) input emulation protocol on a socket handed
out by the compositor, or through a uinput virtual keyboard.`,
		Example: `  echo "hello world" | ei-type
  ei-type --key ctrl+v
  ei-type -d 20 < notes.txt`,
		Args:              cobra.NoArgs,
		SilenceUsage:      true,
		PersistentPreRunE: initConfig,
		RunE:              runType,
	}
)

// Execute runs the root command. SIGINT and SIGTERM cancel session
// establishment.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.Version = Version
	rootCmd.SetVersionTemplate(`{{with .Name}}{{printf "%s " .}}{{end}}{{printf "version %s\n" .Version}}`)

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default: ei-type.toml in /etc/ei-type, ~/.config/ei-type or .)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose debug output")
	rootCmd.PersistentFlags().String("backend", config.DefaultConfig.Backend, "injection backend: eis or uinput")
	rootCmd.PersistentFlags().String("socket", "", "EIS socket path (default: $LIBEI_SOCKET, then KWin over D-Bus)")

	rootCmd.Flags().IntP("delay", "d", config.DefaultConfig.Typing.DelayMS, "inter-key delay in milliseconds")
	rootCmd.Flags().StringP("key", "k", "", "send a key combo (e.g. ctrl+v, enter) instead of typing stdin")
}

// bindFlags maps command line flags onto config keys. It runs on every
// execution since viper.Reset drops earlier bindings.
func bindFlags(cmd *cobra.Command) error {
	root := cmd.Root()
	bindings := map[string]*pflag.Flag{
		"backend":         root.PersistentFlags().Lookup("backend"),
		"eis.socket":      root.PersistentFlags().Lookup("socket"),
		"typing.delay_ms": root.Flags().Lookup("delay"),
	}
	for key, flag := range bindings {
		if err := viper.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("failed to bind --%s: %w", flag.Name, err)
		}
	}
	return nil
}

func initConfig(cmd *cobra.Command, args []string) error {
	if configFile != "" {
		config.SetConfigPath(configFile)
	}
	if err := bindFlags(cmd); err != nil {
		return err
	}
	if err := config.Init(); err != nil {
		return err
	}
	cfg := config.Get()
	logger.Configure(cfg.Logging.LogLevel, verbose)
	logger.Debug("configuration loaded", "file", config.GetConfigPath(), "backend", cfg.Backend)
	return nil
}

func runType(cmd *cobra.Command, args []string) error {
	cfg := config.Get()
	combo, _ := cmd.Flags().GetString("key")

	// Validate before touching the compositor so a bad combo sends nothing
	if combo != "" {
		if _, err := keymap.ParseCombo(combo); err != nil {
			return err
		}
	}

	// stdin is read up front: a session left waiting on a slow pipe would
	// miss the server's pings
	var text string
	if combo == "" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
		text = string(data)
		if text == "" {
			logger.Debug("nothing to type")
			return nil
		}
	}

	sink, closeSink, err := openSink(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer closeSink()

	driver := input.NewDriver(sink, cfg.Delay(), input.WithLogger(logger.Logger))
	if combo != "" {
		if err := driver.SendCombo(combo); err != nil {
			return fmt.Errorf("key combo failed: %w", err)
		}
		return nil
	}
	if err := driver.TypeText(text); err != nil {
		return fmt.Errorf("typing failed: %w", err)
	}
	return nil
}

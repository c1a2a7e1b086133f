package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/bnema/eitype/internal/config"
	"github.com/bnema/eitype/internal/logger"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage ei-type configuration",
	Long:  `Show, locate and write the ei-type configuration file.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Get()

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		rows := [][2]string{
			{"config file", config.GetConfigPath()},
			{"backend", cfg.Backend},
			{"typing.delay_ms", fmt.Sprint(cfg.Typing.DelayMS)},
			{"eis.client_name", cfg.EIS.ClientName},
			{"eis.poll_interval_ms", fmt.Sprint(cfg.EIS.PollIntervalMS)},
			{"eis.max_poll_timeouts", fmt.Sprint(cfg.EIS.MaxPollTimeouts)},
			{"eis.device_selection", cfg.EIS.DeviceSelection},
			{"eis.socket", orDefault(cfg.EIS.Socket, "$LIBEI_SOCKET, then KWin")},
			{"eis.capabilities", fmt.Sprint(cfg.EIS.Capabilities)},
			{"uinput.device_path", cfg.Uinput.DevicePath},
			{"uinput.device_name", cfg.Uinput.DeviceName},
			{"uinput.settle_ms", fmt.Sprint(cfg.Uinput.SettleMS)},
			{"logging.log_level", orDefault(cfg.Logging.LogLevel, "$LOG_LEVEL")},
		}
		for _, row := range rows {
			if _, err := fmt.Fprintf(w, "%s\t%s\n", row[0], row[1]); err != nil {
				return err
			}
		}
		return w.Flush()
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the configuration file path",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), config.GetConfigPath())
		return err
	},
}

var configSaveCmd = &cobra.Command{
	Use:   "save",
	Short: "Save current configuration to file",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath := config.GetConfigPath()
		if _, err := os.Stat(configPath); err == nil {
			force, _ := cmd.Flags().GetBool("force")
			if !force {
				logger.Infof("Configuration file already exists at: %s", configPath)
				logger.Info("Use --force to overwrite")
				return nil
			}
		}

		if err := config.Save(); err != nil {
			return err
		}
		logger.Infof("Configuration saved to: %s", configPath)
		return nil
	},
}

func orDefault(value, fallback string) string {
	if value == "" {
		return "(" + fallback + ")"
	}
	return value
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configSaveCmd)

	configSaveCmd.Flags().Bool("force", false, "Force overwrite existing configuration")

	rootCmd.AddCommand(configCmd)
}

/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/allbin/serterm/internal/logger"
)

// Configuration keys shared by flags, environment and config file.
const (
	keyStateFile = "state"
	keyLogLevel  = "log.level"
	keyLogFormat = "log.format"
	keyLogFile   = "log.file"
)

var (
	cfgFile string

	appLogger   = slog.New(slog.DiscardHandler)
	closeLogger = func() error { return nil }
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "serterm",
	Short: "Interactive serial port terminal",
	Long: `serterm lists serial ports, connects to one at a chosen baud rate and
shows a live, timestamped view of the traffic in both directions.

Running serterm without a subcommand starts the interactive terminal with
the port and baud rate from the previous session.

Configuration is read from flags, SERTERM_* environment variables and
$XDG_CONFIG_HOME/serterm/config.yaml, in that order of precedence.`,
	SilenceUsage: true,
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return closeLogger()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runConnect(cmd, "")
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Set here rather than in the literal: setupLogger refers back to rootCmd
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return setupLogger(cmd)
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default $XDG_CONFIG_HOME/serterm/config.yaml)")
	rootCmd.PersistentFlags().String("state", "", "state file holding the last port and baud rate")
	rootCmd.PersistentFlags().String("log-level", "info", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "text", "log format: text or json")
	rootCmd.PersistentFlags().String("log-file", "", "log destination: stderr, stdout, none or a file path")

	mustBind(rootCmd, keyStateFile, "state")
	mustBind(rootCmd, keyLogLevel, "log-level")
	mustBind(rootCmd, keyLogFormat, "log-format")
	mustBind(rootCmd, keyLogFile, "log-file")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if dir, err := os.UserConfigDir(); err == nil {
		viper.AddConfigPath(filepath.Join(dir, "serterm"))
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("SERTERM")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			fmt.Fprintf(os.Stderr, "Warning: reading config: %v\n", err)
		}
	}
}

// mustBind binds a flag of cmd, persistent or local, to a viper key.
func mustBind(cmd *cobra.Command, key, name string) {
	flag := cmd.PersistentFlags().Lookup(name)
	if flag == nil {
		flag = cmd.Flags().Lookup(name)
	}
	if err := viper.BindPFlag(key, flag); err != nil {
		panic(err)
	}
}

// setupLogger builds the process logger. The interactive terminal owns the
// screen, so it logs nowhere unless a destination is set explicitly.
func setupLogger(cmd *cobra.Command) error {
	output := viper.GetString(keyLogFile)
	if output == "" {
		output = logger.OutputStderr
		if interactive(cmd) {
			output = logger.OutputNone
		}
	}

	l, closer, err := logger.New(logger.Config{
		Level:  viper.GetString(keyLogLevel),
		Format: viper.GetString(keyLogFormat),
		Output: output,
	})
	if err != nil {
		return err
	}
	appLogger = l
	closeLogger = closer
	return nil
}

func interactive(cmd *cobra.Command) bool {
	return cmd == rootCmd || cmd == connectCmd
}

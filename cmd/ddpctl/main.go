// Package main is ddpctl, a command-line DDP sender and status query tool.
package main

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bbernstein/lacylights-ddp/pkg/ddp"
)

// Version is set at build time.
var Version = "0.1.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// newRootCmd builds the command tree. Flags are bound into a private viper
// instance so values can also come from a config file or DDP_* variables.
func newRootCmd() *cobra.Command {
	v := viper.New()
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:   "ddpctl",
		Short: "Send DDP frames and query DDP devices",
		Long: `ddpctl talks to DDP (Distributed Display Protocol) receivers over UDP.

Examples:
  # Stream random frames for 30 pixels to a local receiver
  ddpctl send --pixels 30

  # Ask a receiver for its status document
  ddpctl query --host 192.168.1.50`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(v, cfgFile)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.ddpctl.yaml)")
	flags.StringP("host", "H", "127.0.0.1", "Receiver host")
	flags.IntP("port", "p", ddp.DefaultPort, "Receiver UDP port")
	flags.DurationP("timeout", "t", ddp.DefaultQueryTimeout, "Query timeout")
	flags.BoolP("verbose", "v", false, "Enable verbose output")

	for _, name := range []string{"host", "port", "timeout", "verbose"} {
		_ = v.BindPFlag(name, flags.Lookup(name))
	}

	rootCmd.AddCommand(newSendCmd(v))
	rootCmd.AddCommand(newQueryCmd(v))
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "ddpctl version %s\n", Version)
		},
	})

	return rootCmd
}

func initConfig(v *viper.Viper, cfgFile string) error {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(home)
		v.SetConfigName(".ddpctl")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("DDP")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// the default config file is optional
		if _, ok := err.(viper.ConfigFileNotFoundError); ok && cfgFile == "" {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	if v.GetBool("verbose") {
		fmt.Fprintln(os.Stderr, "Using config file:", v.ConfigFileUsed())
	}
	return nil
}

// targetAddr returns host:port from the bound flags.
func targetAddr(v *viper.Viper) string {
	return net.JoinHostPort(v.GetString("host"), strconv.Itoa(v.GetInt("port")))
}

// queryTimeout returns the configured timeout, falling back to the default.
func queryTimeout(v *viper.Viper) time.Duration {
	if d := v.GetDuration("timeout"); d > 0 {
		return d
	}
	return ddp.DefaultQueryTimeout
}

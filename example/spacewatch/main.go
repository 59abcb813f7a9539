// Command spacewatch follows the live event stream of a spaces platform and
// can attach to the terminal of a running space.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	eventstream "github.com/devspaces/eventstream-go"
)

var (
	configFile string
	logger     zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "spacewatch",
	Short: "Follow live updates from a spaces platform",
	Long: `spacewatch connects to the event stream of a spaces platform and prints
every change to spaces, templates, volumes and users as it happens.`,
	SilenceUsage:      true,
	PersistentPreRunE: setupCommand,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is $HOME/.spacewatch.yaml)")
	rootCmd.PersistentFlags().String("url", "", "base URL of the platform, e.g. https://spaces.example.com")
	rootCmd.PersistentFlags().String("token", "", "API token")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")

	for _, name := range []string{"url", "token", "verbose"} {
		if err := viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name)); err != nil {
			panic(fmt.Sprintf("Failed to bind %s flag: %v", name, err))
		}
	}

	rootCmd.AddCommand(newWatchCmd(), newTerminalCmd())
}

// initConfig reads in config file and SPACES_* environment variables.
func initConfig() {
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)
		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".spacewatch")
	}

	viper.SetEnvPrefix("spaces")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func setupCommand(_ *cobra.Command, _ []string) error {
	level := zerolog.InfoLevel
	if viper.GetBool("verbose") {
		level = zerolog.DebugLevel
	}
	logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().
		Timestamp().
		Logger()
	eventstream.SetLogger(zerologAdapter{logger: logger})

	if viper.GetString("url") == "" {
		return fmt.Errorf("missing platform URL: pass --url or set SPACES_URL")
	}
	return nil
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// Package cli provides the command-line interface for MacSnap
package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile    string
	configsDir string
	logFile    string
	verbosity  string
	timeout    time.Duration
	notify     bool
	version    string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "macsnap",
	Short: "Declarative software setup for your Mac",
	Long: `MacSnap applies YAML-defined software and system configuration items
in dependency order. Each item may define install, validate, configure and
uninstall scripts; MacSnap resolves dependencies, runs the right scripts per
item, and reports per-item outcomes.`,

	Run: func(cmd *cobra.Command, args []string) {
		if v, _ := cmd.Flags().GetBool("version"); v {
			fmt.Printf("macsnap v%s\n", version)
			return
		}
		cmd.Help()
	},
}

// Execute runs the CLI
func Execute(v string) error {
	version = v

	// Initialize the root command explicitly (avoiding init())
	initializeRootCommand()

	return rootCmd.Execute()
}

// initializeRootCommand sets up the root command and its flags.
// This replaces the init() function to make initialization explicit and testable.
func initializeRootCommand() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: macsnap.config.yaml)")
	rootCmd.PersistentFlags().StringVar(&configsDir, "configs", "configs", "directory containing item definitions")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "append logs to this file")
	rootCmd.PersistentFlags().StringVarP(&verbosity, "verbosity", "v", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 5*time.Minute, "per-script execution timeout")
	rootCmd.PersistentFlags().BoolVar(&notify, "notify", false, "send a desktop notification when a batch finishes")

	rootCmd.Flags().Bool("version", false, "Print version information and quit")

	// Add subcommands
	rootCmd.AddCommand(newListCmd())
	rootCmd.AddCommand(newValidateCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newInstallCmd())
	rootCmd.AddCommand(newUninstallCmd())
	rootCmd.AddCommand(newConfigureCmd())
	rootCmd.AddCommand(newWatchCmd())
	rootCmd.AddCommand(newVersionCmd())
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName("macsnap.config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("MACSNAP")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		if viper.IsSet("configsDir") && !rootCmd.PersistentFlags().Changed("configs") {
			configsDir = viper.GetString("configsDir")
		}
		if viper.IsSet("logFile") && !rootCmd.PersistentFlags().Changed("log-file") {
			logFile = viper.GetString("logFile")
		}
		if viper.IsSet("timeout") && !rootCmd.PersistentFlags().Changed("timeout") {
			timeout = viper.GetDuration("timeout")
		}
		if viper.IsSet("notify") && !rootCmd.PersistentFlags().Changed("notify") {
			notify = viper.GetBool("notify")
		}
	}
}

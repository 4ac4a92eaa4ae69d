package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/arc-language/bake"
	"github.com/arc-language/bake/pkg/core"
	"github.com/arc-language/bake/pkg/logging"
	"github.com/spf13/cobra"
)

var (
	cfgFile     string
	shelfRoot   string
	cachePath   string
	recipesPath string
	verbosity   int
	debug       bool
	config      *core.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "bake",
	Short: "Build native libraries from source",
	Long: `bake - a source-based package manager for native libraries

bake downloads a recipe's source archive, builds it into its own prefix
and links the results into a shared shelf of bin, lib and include
directories.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute executes the root command
func Execute() error {
	return ExecuteContext(context.Background())
}

// ExecuteContext executes the root command with ctx available to every
// subcommand
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $XDG_CONFIG_HOME/bake/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&shelfRoot, "shelf", "", "shelf root directory")
	rootCmd.PersistentFlags().StringVar(&cachePath, "cache", "", "download and source cache directory")
	rootCmd.PersistentFlags().StringVar(&recipesPath, "recipes", "", "directory of TOML recipe files")
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "increase verbosity (-v progress, -vv debug, -vvv trace)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	// Add commands
	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(uninstallCmd)
	rootCmd.AddCommand(linkCmd)
	rootCmd.AddCommand(unlinkCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(envCmd)
	rootCmd.AddCommand(versionCmd)
}

func initConfig() {
	var err error
	config, err = core.LoadConfig(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		config = core.DefaultConfig()
	}

	// Override config with flags
	if shelfRoot != "" {
		config.ShelfRoot = shelfRoot
	}
	if cachePath != "" {
		config.CachePath = cachePath
	}
	if recipesPath != "" {
		config.RecipesPath = recipesPath
	}
	if verbosity > config.Verbosity {
		config.Verbosity = verbosity
	}
	if debug {
		config.Debug = true
	}
	if config.Debug && config.Verbosity < 2 {
		config.Verbosity = 2
	}

	logging.SetupLogger(config.Verbosity)
}

// newManager builds a manager from the loaded configuration
func newManager() (*bake.Manager, error) {
	if config == nil {
		config = core.DefaultConfig()
	}
	mgr, err := bake.NewManager(config)
	if err != nil {
		return nil, fmt.Errorf("initializing bake: %w", err)
	}
	return mgr, nil
}

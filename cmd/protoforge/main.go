package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"protoforge/internal/config"
	"protoforge/internal/load"
	"protoforge/internal/logging"
	"protoforge/internal/proto"
	"protoforge/internal/registry"
)

var (
	// Global flags
	configPath string
	rootDir    string
	verbose    bool
	strict     bool

	cfg *config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "protoforge",
	Short: "protoforge - prototype composition and resolution engine",
	Long: `protoforge resolves YAML prototype documents — template inheritance,
nested children, and schematics — into cycle-free trees, and realizes those
trees as concrete entities in an in-memory world.

Documents live under a prototype root directory as *.prototype.yaml files.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if rootDir != "" {
			cfg.Paths.Root = rootDir
		}
		if verbose {
			cfg.Logging.Level = "debug"
		}
		if strict {
			cfg.Resolver.CyclePolicy = "escalate"
		}
		return logging.Initialize(cfg.Logging.Level, cfg.Logging.JSON)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file")
	rootCmd.PersistentFlags().StringVarP(&rootDir, "root", "r", "", "prototype root directory (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&strict, "strict", false, "escalate prototype cycles instead of cancelling the build")

	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(treeCmd)
	rootCmd.AddCommand(spawnCmd)
	rootCmd.AddCommand(removeCmd)
	rootCmd.AddCommand(watchCmd)
}

// newSession wires up the store, registry, and loader for one command run.
func newSession() (*proto.MemStore, *registry.Registry, *load.Loader, error) {
	store := proto.NewMemStore()
	reg := registry.New()
	loader, err := load.NewLoader(cfg, store, reg)
	if err != nil {
		return nil, nil, nil, err
	}
	return store, reg, loader, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"protoforge/internal/load"
	"protoforge/internal/logging"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Load prototypes and keep them registered as files change",
	Long: `Loads everything under the prototype root, then watches the directory
tree for document changes. Modified documents are re-registered and their
dependents re-resolved; removed documents are unregistered.`,
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	_, _, loader, err := newSession()
	if err != nil {
		return err
	}

	// Broken documents should not stop the watch loop; they may be fixed
	// while we are watching.
	if err := loader.LoadAll(cmd.Context()); err != nil {
		logging.Get(logging.CategoryBoot).Warnf("initial load: %v", err)
	}

	watcher, err := load.NewWatcher(loader, cfg.Debounce())
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := watcher.Start(ctx); err != nil {
		return err
	}
	fmt.Printf("watching %s (ctrl-c to stop)\n", loader.Root())

	<-ctx.Done()
	watcher.Stop()

	stats := watcher.Stats()
	fmt.Printf("reloads=%d removals=%d errors=%d\n", stats.Reloads, stats.Removals, stats.Errors)
	return nil
}

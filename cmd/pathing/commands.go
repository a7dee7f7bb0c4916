package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"pathing/internal/pack"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

var (
	loadTicks   int
	loadMap     int
	configWrite bool
)

// loadCmd loads a pack once and prints the resulting entity table
var loadCmd = &cobra.Command{
	Use:   "load [pack.yaml]",
	Short: "Load a marker pack and show the live entities",
	Args:  cobra.ExactArgs(1),
	RunE:  runLoad,
}

// watchCmd keeps a pack loaded and reloads it when the file changes
var watchCmd = &cobra.Command{
	Use:   "watch [pack.yaml]",
	Short: "Load a marker pack and reload it on change",
	Long: `Loads the pack, then runs the update loop at loader.tick_rate until
interrupted. Edits to the manifest unload and reload the pack.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

// interactCmd interacts with one marker
var interactCmd = &cobra.Command{
	Use:   "interact [pack.yaml] [guid]",
	Short: "Interact with a marker as if the player pressed the interact key",
	Args:  cobra.ExactArgs(2),
	RunE:  runInteract,
}

// hiddenCmd lists persisted hide records
var hiddenCmd = &cobra.Command{
	Use:   "hidden",
	Short: "List markers hidden by a timed behavior",
	Args:  cobra.NoArgs,
	RunE:  runHidden,
}

// sweepCmd deletes expired hide records
var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Delete expired hide records from the store",
	Args:  cobra.NoArgs,
	RunE:  runSweep,
}

// toggleCmd switches a category namespace on or off
var toggleCmd = &cobra.Command{
	Use:   "toggle [namespace] [on|off]",
	Short: "Enable or disable a category namespace",
	Args:  cobra.ExactArgs(2),
	RunE:  runToggle,
}

// configCmd prints the effective configuration
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfig,
}

func commandContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	return ctx, cancel
}

func loadPack(ctx context.Context, w io.Writer, o *overlay, path string) error {
	collection, err := pack.ReadFile(path)
	if err != nil {
		return err
	}
	res, err := o.shared.Load(ctx, collection)
	if err != nil {
		return err
	}
	printLoadResult(w, path, res)
	return nil
}

func runLoad(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	o, err := openOverlay(cfg)
	if err != nil {
		return err
	}
	defer o.Close()

	if err := loadPack(ctx, cmd.OutOrStdout(), o, args[0]); err != nil {
		return err
	}
	o.shared.ChangeMap(loadMap)

	for i := 0; i < loadTicks; i++ {
		o.shared.Update()
	}
	printEntities(cmd.OutOrStdout(), o)
	return nil
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	o, err := openOverlay(cfg)
	if err != nil {
		return err
	}
	defer o.Close()

	if err := loadPack(ctx, cmd.OutOrStdout(), o, args[0]); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	reload := func(ctx context.Context, path string) {
		if err := o.shared.Unload(ctx); err != nil {
			logger.Warn("unload before reload failed", zap.Error(err))
			return
		}
		if err := loadPack(ctx, out, o, path); err != nil {
			logger.Error("reload failed", zap.String("path", path), zap.Error(err))
		}
	}
	w, err := pack.NewWatcher(args[0], cfg.GetWatchDebounce(), reload)
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := w.Start(ctx); err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	defer w.Stop()

	fmt.Fprintln(cmd.OutOrStdout(), "Watching for changes. Press Ctrl+C to stop")

	ticker := time.NewTicker(cfg.GetTickRate())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Info("Received shutdown signal")
			return nil
		case <-ticker.C:
			o.shared.Update()
		}
	}
}

func runInteract(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	guid, err := pack.ParseGUID(args[1])
	if err != nil {
		return err
	}

	o, err := openOverlay(cfg)
	if err != nil {
		return err
	}
	defer o.Close()

	if err := loadPack(ctx, cmd.OutOrStdout(), o, args[0]); err != nil {
		return err
	}
	o.shared.ChangeMap(loadMap)

	if err := o.shared.Interact(ctx, guid); err != nil {
		return err
	}
	o.shared.Update()
	printEntities(cmd.OutOrStdout(), o)
	return nil
}

func runHidden(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	svc := newServices(cfg)
	db, vs, err := openStore(cfg, svc)
	if err != nil {
		return err
	}
	defer db.Close()
	defer vs.Close()

	if err := vs.Start(ctx); err != nil {
		return err
	}
	printRecords(cmd.OutOrStdout(), vs.Records(), svc.Now())
	return nil
}

func runSweep(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	svc := newServices(cfg)
	db, vs, err := openStore(cfg, svc)
	if err != nil {
		return err
	}
	defer db.Close()
	defer vs.Close()

	n, err := vs.Sweep(ctx, svc.Now())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "swept %d expired records\n", n)
	return nil
}

func runToggle(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	var inactive bool
	switch state := strings.ToLower(args[1]); state {
	case "on":
	case "off":
		inactive = true
	default:
		return fmt.Errorf("expected on or off, got %q", state)
	}

	o, err := openOverlay(cfg)
	if err != nil {
		return err
	}
	defer o.Close()

	if err := o.shared.SetCategoryInactive(ctx, args[0], inactive); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", strings.ToLower(args[0]), strings.ToLower(args[1]))
	return nil
}

func runConfig(cmd *cobra.Command, args []string) error {
	if configWrite {
		if err := cfg.Save(configPath); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", configPath)
		return nil
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}

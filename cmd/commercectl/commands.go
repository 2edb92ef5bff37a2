package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vde76ru/module-sub000/internal/app"
	"github.com/vde76ru/module-sub000/internal/application/catalogsync"
	"github.com/vde76ru/module-sub000/internal/domain/procurement"
	"github.com/vde76ru/module-sub000/internal/infrastructure/config"
	"github.com/vde76ru/module-sub000/internal/infrastructure/logger"
)

type options struct {
	configPath string
	logLevel   string
	migrate    bool
	tenant     string
}

// action runs against an opened application and returns what to print
type action func(ctx context.Context, a *app.App, args []string) (any, error)

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "commercectl",
		Short:         "Manual triggers for the commerce middleware",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Config file (default: ./config.toml or /etc/commerce/config.toml)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	root.PersistentFlags().BoolVar(&opts.migrate, "migrate", false, "Bring the schema up to date before running")
	root.PersistentFlags().StringVarP(&opts.tenant, "tenant", "t", "", "Tenant ID")

	root.AddCommand(
		newSyncCmd(opts),
		newTestConnectionCmd(opts),
		newProcurementCmd(opts),
		newPricesCmd(opts),
		newOutboxCmd(opts),
	)
	return root
}

func newSyncCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "sync <supplier-id>",
		Short: "Import a supplier catalog now",
		Args:  cobra.ExactArgs(1),
		RunE: opts.tenantScoped(func(ctx context.Context, a *app.App, tenantID uuid.UUID, args []string) (any, error) {
			supplierID, err := parseID("supplier", args[0])
			if err != nil {
				return nil, err
			}
			return a.Sync.Sync(ctx, tenantID, supplierID, catalogsync.TriggerManual)
		}),
	}
}

func newTestConnectionCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "test-connection <supplier-id>",
		Short: "Check that a supplier API accepts the stored credentials",
		Args:  cobra.ExactArgs(1),
		RunE: opts.tenantScoped(func(ctx context.Context, a *app.App, tenantID uuid.UUID, args []string) (any, error) {
			supplierID, err := parseID("supplier", args[0])
			if err != nil {
				return nil, err
			}
			return a.Sync.TestConnection(ctx, tenantID, supplierID)
		}),
	}
}

func newProcurementCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "procurement",
		Short: "Procurement runs and supplier order status",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "run <channel-id>",
			Short: "Run procurement for one sales channel",
			Args:  cobra.ExactArgs(1),
			RunE: opts.tenantScoped(func(ctx context.Context, a *app.App, tenantID uuid.UUID, args []string) (any, error) {
				channelID, err := parseID("channel", args[0])
				if err != nil {
					return nil, err
				}
				return a.Procurement.Run(ctx, tenantID, channelID, procurement.TriggerManual)
			}),
		},
		&cobra.Command{
			Use:   "poll-status",
			Short: "Refresh the status of purchase orders sent to suppliers",
			Args:  cobra.NoArgs,
			RunE: opts.run(func(ctx context.Context, a *app.App, _ []string) (any, error) {
				return a.Procurement.RefreshSentOrders(ctx)
			}),
		},
	)
	return cmd
}

func newPricesCmd(opts *options) *cobra.Command {
	var channel string
	recalc := &cobra.Command{
		Use:   "recalc",
		Short: "Recalculate channel prices for a tenant or one channel",
		Args:  cobra.NoArgs,
		RunE: opts.tenantScoped(func(ctx context.Context, a *app.App, tenantID uuid.UUID, _ []string) (any, error) {
			if channel == "" {
				return a.Pricing.RecalculateTenant(ctx, tenantID)
			}
			channelID, err := parseID("channel", channel)
			if err != nil {
				return nil, err
			}
			return a.Pricing.RecalculateChannel(ctx, tenantID, channelID)
		}),
	}
	recalc.Flags().StringVar(&channel, "channel", "", "Only this sales channel")

	cmd := &cobra.Command{
		Use:   "prices",
		Short: "Channel price maintenance",
	}
	cmd.AddCommand(recalc)
	return cmd
}

func newOutboxCmd(opts *options) *cobra.Command {
	var all bool
	retry := &cobra.Command{
		Use:   "retry [entry-id]",
		Short: "Requeue a dead outbox entry, or every one with --all",
		Args:  cobra.MaximumNArgs(1),
		RunE: opts.run(func(ctx context.Context, a *app.App, args []string) (any, error) {
			if all {
				n, err := a.OutboxAdmin.RetryAllDead(ctx)
				if err != nil {
					return nil, err
				}
				return map[string]int64{"retried": n}, nil
			}
			if len(args) == 0 {
				return nil, fmt.Errorf("entry id required unless --all is set")
			}
			id, err := parseID("entry", args[0])
			if err != nil {
				return nil, err
			}
			return a.OutboxAdmin.RetryDead(ctx, id)
		}),
	}
	retry.Flags().BoolVar(&all, "all", false, "Requeue every dead entry")

	cmd := &cobra.Command{
		Use:   "outbox",
		Short: "Inspect and replay the event outbox",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "stats",
			Short: "Count outbox entries by status",
			Args:  cobra.NoArgs,
			RunE: opts.run(func(ctx context.Context, a *app.App, _ []string) (any, error) {
				return a.OutboxAdmin.Stats(ctx)
			}),
		},
		retry,
		&cobra.Command{
			Use:   "drain",
			Short: "Deliver one batch of pending entries to the event handlers",
			Args:  cobra.NoArgs,
			RunE: opts.run(func(ctx context.Context, a *app.App, _ []string) (any, error) {
				if err := a.Bus.Start(ctx); err != nil {
					return nil, err
				}
				defer func() { _ = a.Bus.Stop(context.WithoutCancel(ctx)) }()
				return map[string]int{"processed": a.Processor.ProcessOnce(ctx)}, nil
			}),
		},
	)
	return cmd
}

// run opens the application, runs fn and prints its result as JSON
func (o *options) run(fn action) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadFile(o.configPath)
		if err != nil {
			return err
		}
		log, err := logger.New(&logger.Config{Level: o.logLevel, Format: "console", Output: "stderr"})
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		var appOpts []app.Option
		if !o.migrate {
			appOpts = append(appOpts, app.WithoutMigrations())
		}
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		a, err := app.New(ctx, cfg, log, appOpts...)
		if err != nil {
			return err
		}
		defer func() {
			if err := a.Close(); err != nil {
				log.Warn("Failed to release resources", zap.Error(err))
			}
		}()

		result, err := fn(ctx, a, args)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
}

// tenantScoped is run for commands that need --tenant. The flag is checked
// before anything is opened.
func (o *options) tenantScoped(fn func(ctx context.Context, a *app.App, tenantID uuid.UUID, args []string) (any, error)) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if o.tenant == "" {
			return fmt.Errorf("--tenant is required")
		}
		tenantID, err := parseID("tenant", o.tenant)
		if err != nil {
			return err
		}
		return o.run(func(ctx context.Context, a *app.App, args []string) (any, error) {
			return fn(ctx, a, tenantID, args)
		})(cmd, args)
	}
}

func parseID(what, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s id %q: %w", what, raw, err)
	}
	return id, nil
}

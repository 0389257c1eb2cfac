// Package commands wires the console's cobra command tree. The root command
// loads configuration, seeds the in-memory repositories from CSV fixtures
// and hands the application services to the subcommands.
package commands

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/serpops/plancore/pkg/application/services/allocation"
	"github.com/serpops/plancore/pkg/application/services/lifecycle"
	"github.com/serpops/plancore/pkg/application/services/schedule"
	"github.com/serpops/plancore/pkg/domain/repositories"
	"github.com/serpops/plancore/pkg/infrastructure/config"
	"github.com/serpops/plancore/pkg/infrastructure/events"
	"github.com/serpops/plancore/pkg/infrastructure/metrics"
	"github.com/serpops/plancore/pkg/infrastructure/repositories/csv"
	"github.com/serpops/plancore/pkg/infrastructure/repositories/memory"
	"github.com/serpops/plancore/pkg/interfaces/cli/output"
)

// App carries the wired services the subcommands run against.
type App struct {
	Config   config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer

	Lifecycle  *lifecycle.Service
	Schedule   *schedule.Service
	Allocation *allocation.Service
	Plans      repositories.PlanRepository

	TenantID int64
}

// NewRootCommand builds the plancore command tree.
func NewRootCommand() *cobra.Command {
	app := &App{}
	var configPath, format string

	root := &cobra.Command{
		Use:           "plancore",
		Short:         "Plan lifecycle and quantity reconciliation console",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.initialize(cmd, configPath, format)
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config file")
	root.PersistentFlags().StringVar(&format, "format", output.FormatText, "output format: text, json")
	root.PersistentFlags().Int64Var(&app.TenantID, "tenant", 1, "tenant id to operate on")

	root.AddCommand(newPlanCommand(app))
	root.AddCommand(newEventCommand(app))
	root.AddCommand(newShipmentCommand(app))
	return root
}

func (a *App) initialize(cmd *cobra.Command, configPath, format string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	a.Config = cfg

	logger, err := cfg.NewLogger(os.Stderr)
	if err != nil {
		return err
	}
	a.Logger = logger

	a.Renderer, err = output.NewRenderer(cmd.OutOrStdout(), format)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollectorWith(registry)
	if cfg.Metrics.Enabled {
		go a.serveMetrics(registry, cfg.Metrics.ListenAddr)
	}

	planRepo := memory.NewPlanRepository()
	eventRepo := memory.NewEventRepository()
	taskRepo := memory.NewTaskRepository()
	orderRepo := memory.NewOrderRepository()
	shipmentRepo := memory.NewShipmentRepository()
	if err := a.seed(cmd, cfg.Data, planRepo, eventRepo, taskRepo, orderRepo, shipmentRepo); err != nil {
		return err
	}

	store := events.NewInMemoryEventStore()
	a.Plans = planRepo
	a.Lifecycle = lifecycle.NewService(planRepo, eventRepo, store, collector, logger)
	a.Schedule = schedule.NewService(planRepo, eventRepo, taskRepo, store, collector, logger)
	a.Allocation = allocation.NewService(orderRepo, shipmentRepo, store, collector, logger)
	return nil
}

func (a *App) seed(
	cmd *cobra.Command,
	data config.DataConfig,
	planRepo *memory.PlanRepository,
	eventRepo *memory.EventRepository,
	taskRepo *memory.TaskRepository,
	orderRepo *memory.OrderRepository,
	shipmentRepo *memory.ShipmentRepository,
) error {
	loader := csv.NewLoader()
	ctx := cmd.Context()

	if data.PlansFile != "" {
		plans, err := loader.LoadPlans(data.PlansFile)
		if err != nil {
			return err
		}
		for _, plan := range plans {
			if _, err := planRepo.CreatePlan(ctx, plan); err != nil {
				return fmt.Errorf("seeding plan %d: %w", plan.ID, err)
			}
		}
	}
	if data.EventsFile != "" {
		loaded, err := loader.LoadEvents(data.EventsFile)
		if err != nil {
			return err
		}
		if err := eventRepo.SeedEvents(loaded); err != nil {
			return err
		}
	}
	if data.TasksFile != "" {
		tasks, err := loader.LoadTasks(data.TasksFile)
		if err != nil {
			return err
		}
		taskRepo.SeedTasks(tasks)
	}
	if data.OrdersFile != "" {
		orders, err := loader.LoadOrders(data.OrdersFile)
		if err != nil {
			return err
		}
		orderRepo.SeedOrders(orders)
	}
	if data.ShipmentsFile != "" {
		shipments, err := loader.LoadShipments(data.ShipmentsFile)
		if err != nil {
			return err
		}
		for _, shipment := range shipments {
			if _, err := shipmentRepo.CreateShipment(ctx, shipment); err != nil {
				return fmt.Errorf("seeding shipment %d: %w", shipment.ID, err)
			}
		}
	}
	return nil
}

func (a *App) serveMetrics(registry *prometheus.Registry, addr string) {
	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	if err := http.ListenAndServe(addr, mux); err != nil {
		a.Logger.Error("metrics endpoint failed", "addr", addr, "error", err)
	}
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/despensa-next/internal/config"
	"github.com/despensa-next/internal/logger"
	"github.com/despensa-next/internal/models"
	"github.com/despensa-next/internal/provider"
	"github.com/despensa-next/internal/repository"
	"github.com/despensa-next/internal/service"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "procure",
	Short: "Despensa procurement CLI",
	Long: `procure operates the grocery procurement engine from a terminal.
- consolidate: sum actionable order lines into procurement tasks (per product, variant and delivery date).
- tasks: list procurement tasks with their progress.
- cutoff: show which delivery date the current procurement shift is responsible for.`,
	SilenceUsage: true,
}

func main() {
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	_ = viper.BindPFlag("cli.json", rootCmd.PersistentFlags().Lookup("json"))
	rootCmd.AddCommand(consolidateCmd(), tasksCmd(), cutoffCmd())
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

// withContainer 加载配置与数据库后执行命令
func withContainer(ctx context.Context, fn func(ctx context.Context, c *provider.Container) error) error {
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}, false); err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	if err := models.AutoMigrate(); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	container := provider.NewContainer(cfg)
	defer container.Close()
	if ctx == nil {
		ctx = context.Background()
	}
	return fn(logger.WithFields(ctx, "source", "cli"), container)
}

func consolidateCmd() *cobra.Command {
	var (
		date     string
		allDates bool
		async    bool
		operator string
	)
	cmd := &cobra.Command{
		Use:   "consolidate",
		Short: "Consolidate demand into procurement tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			input := service.ConsolidateInput{AllDates: allDates}
			if strings.TrimSpace(date) != "" {
				parsed, err := models.ParseDate(date)
				if err != nil {
					return fmt.Errorf("invalid --date: %w", err)
				}
				input.DeliveryDate = &parsed
			}
			return withContainer(cmd.Context(), func(ctx context.Context, c *provider.Container) error {
				if async {
					result, err := c.ConsolidationDispatcher.Dispatch(ctx, input, operator)
					if err != nil {
						return err
					}
					if viper.GetBool("cli.json") {
						return printJSON(result)
					}
					fmt.Printf("queued run %s (task %s, queue %s)\n", result.RunID, result.TaskID, result.Queue)
					return nil
				}
				report, err := c.ConsolidationService.Consolidate(ctx, input)
				if err != nil && report == nil {
					return err
				}
				if viper.GetBool("cli.json") {
					if jsonErr := printJSON(report); jsonErr != nil {
						return jsonErr
					}
					return err
				}
				renderReport(report)
				return err
			})
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "delivery date (YYYY-MM-DD); defaults to the cutoff rule")
	cmd.Flags().BoolVar(&allDates, "all", false, "consolidate every delivery date")
	cmd.Flags().BoolVar(&async, "async", false, "enqueue the run on the worker queue")
	cmd.Flags().StringVar(&operator, "operator", "cli", "operator recorded on async runs")
	return cmd
}

func tasksCmd() *cobra.Command {
	var (
		date     string
		status   string
		page     int
		pageSize int
	)
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "List procurement tasks with progress",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := repository.TaskListFilter{Page: page, PageSize: pageSize, Status: strings.TrimSpace(status)}
			if strings.TrimSpace(date) != "" {
				parsed, err := models.ParseDate(date)
				if err != nil {
					return fmt.Errorf("invalid --date: %w", err)
				}
				filter.DeliveryDate = &parsed
			}
			return withContainer(cmd.Context(), func(ctx context.Context, c *provider.Container) error {
				items, total, err := c.ProcurementTaskService.List(ctx, filter)
				if err != nil {
					return err
				}
				if viper.GetBool("cli.json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Date", "Product", "Variant", "Requested", "Purchased", "Remaining", "Overage", "Unit", "Status"})
				for _, item := range items {
					variant := ""
					if item.VariantLabel != nil {
						variant = *item.VariantLabel
					}
					name := item.ProductName
					if name == "" {
						name = fmt.Sprintf("#%d", item.ProductID)
					}
					if item.OriginalProductID != nil {
						name = fmt.Sprintf("%s (sub #%d)", name, *item.OriginalProductID)
					}
					tw.AppendRow(table.Row{
						item.TaskID,
						item.DeliveryDate.String(),
						name,
						variant,
						item.Requested.String(),
						item.Purchased.String(),
						item.Remaining.String(),
						item.Overage.String(),
						item.Unit,
						item.Status,
					})
				}
				tw.AppendFooter(table.Row{"", "", "", "", "", "", "", "", "total", total})
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "delivery date filter (YYYY-MM-DD)")
	cmd.Flags().StringVar(&status, "status", "", "status filter (pending, partial, completed)")
	cmd.Flags().IntVar(&page, "page", 1, "page")
	cmd.Flags().IntVar(&pageSize, "page-size", 50, "page size")
	return cmd
}

func cutoffCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cutoff",
		Short: "Show the delivery date the current shift works for",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd.Context(), func(ctx context.Context, c *provider.Container) error {
				resolution := c.CutoffService.Resolve(ctx)
				if viper.GetBool("cli.json") {
					return printJSON(resolution)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendRows([]table.Row{
					{"delivery_date", resolution.DeliveryDate.String()},
					{"cutoff_enabled", resolution.Enabled},
					{"cutoff_hour", resolution.CutoffHour},
					{"source", resolution.Source},
					{"evaluated_at", resolution.EvaluatedAt.Format("2006-01-02 15:04:05 MST")},
				})
				tw.Render()
				return nil
			})
		},
	}
}

func renderReport(report *service.ConsolidationReport) {
	date := "all"
	if report.DeliveryDate != nil {
		date = report.DeliveryDate.String()
	}
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.SetTitle("run " + report.RunID)
	tw.AppendHeader(table.Row{"Date", "Lines", "Keys", "Created", "Updated", "Unchanged", "Failed", "Result"})
	tw.AppendRow(table.Row{date, report.LinesRead, report.Keys, report.Created, report.Updated, report.Unchanged, len(report.Failures), report.Result()})
	tw.Render()

	if len(report.Failures) == 0 {
		return
	}
	fw := table.NewWriter()
	fw.SetOutputMirror(os.Stdout)
	fw.AppendHeader(table.Row{"Product", "Variant", "Date", "Error"})
	for _, failure := range report.Failures {
		variant := ""
		if failure.VariantLabel != nil {
			variant = *failure.VariantLabel
		}
		fw.AppendRow(table.Row{failure.Key.ProductID, variant, failure.Key.DeliveryDate.String(), failure.Error})
	}
	fw.Render()
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Command labelctl runs the drug label tool server over stdio and offers
// one-shot enhancement, search and warming from the shell.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/zatekoja/druglabels/backend/internal/api/tools"
	"github.com/zatekoja/druglabels/backend/internal/app"
	"github.com/zatekoja/druglabels/backend/internal/application/services"
	"github.com/zatekoja/druglabels/backend/internal/domain/repositories"
	"github.com/zatekoja/druglabels/backend/internal/infrastructure/observability"
	"github.com/zatekoja/druglabels/backend/pkg/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdin, os.Stdout).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(in io.Reader, out io.Writer) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "labelctl",
		Short:        "Drug label enhancement and tool server",
		SilenceUsage: true,
	}
	rootCmd.SetOut(out)

	rootCmd.AddCommand(mcpCmd(in))
	rootCmd.AddCommand(enhanceCmd())
	rootCmd.AddCommand(searchCmd())
	rootCmd.AddCommand(warmCmd())
	return rootCmd
}

// withApp loads configuration, wires the application and runs fn. Logs go to
// stderr so stdout carries only command output.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	observability.InitLogger(cfg.OTEL.ServiceName, cfg.Env, cmd.ErrOrStderr())

	ctx := cmd.Context()
	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(ctx, a)
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func mcpCmd(in io.Reader) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the tool protocol over stdin/stdout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				return tools.ServeStdio(ctx, a.Tools, in, cmd.OutOrStdout())
			})
		},
	}
}

func enhanceCmd() *cobra.Command {
	var generic string

	cmd := &cobra.Command{
		Use:   "enhance [drug name]",
		Short: "Print enhanced content for a drug",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				result := a.Enhancement.ResolveEnhancedContent(ctx, args[0], generic)
				if result.Outcome != services.OutcomeFound {
					return fmt.Errorf("%s: %w", result.Outcome, result.Err)
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "source: %s\n", result.Source)
				return printJSON(cmd, result.Content)
			})
		},
	}

	cmd.Flags().StringVar(&generic, "generic", "", "generic name to disambiguate the brand")
	return cmd
}

func searchCmd() *cobra.Command {
	var filter repositories.DrugSearchFilter

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search the drug label catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				page, err := a.Catalog.Search(ctx, filter.Normalize())
				if err != nil {
					return err
				}
				return printJSON(cmd, page)
			})
		},
	}

	cmd.Flags().StringVar(&filter.Query, "query", "", "match brand or generic name")
	cmd.Flags().StringVar(&filter.Labeler, "labeler", "", "filter by labeler")
	cmd.Flags().IntVar(&filter.Page, "page", repositories.DefaultSearchPage, "page number")
	cmd.Flags().IntVar(&filter.Limit, "limit", repositories.DefaultSearchLimit, "results per page")
	return cmd
}

func warmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "warm",
		Short: "Pre-generate enhanced content for every drug label",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				stats, err := a.Warming.WarmAll(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd, stats)
			})
		},
	}
}

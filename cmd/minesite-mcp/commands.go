package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ironsheep/minesite-mcp/internal/export"
	"github.com/ironsheep/minesite-mcp/internal/httpapi"
	"github.com/ironsheep/minesite-mcp/internal/server"
	"github.com/ironsheep/minesite-mcp/internal/service"
)

type globalFlags struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	var g globalFlags

	rootCmd := &cobra.Command{
		Use:   "minesite-mcp",
		Short: "Surface-mining disturbance detection from satellite imagery and elevation",
		Long: `minesite-mcp finds open-pit and quarry disturbance inside a region of interest
by combining spectral indices from a cloud-masked median composite with terrain
depth and slope. Results are GeoJSON polygons that can be previewed and exported
to GeoJSON files, SQLite or PostGIS.

Run "serve" to expose the detector as MCP tools over stdin/stdout.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&g.configPath, "config", "", "config file (default $MINESITE_CONFIG or ~/.config/minesite/config.json)")
	rootCmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "override the configured log level")

	rootCmd.AddCommand(newServeCmd(&g))
	rootCmd.AddCommand(newHTTPCmd(&g))
	rootCmd.AddCommand(newDetectCmd(&g))
	rootCmd.AddCommand(newVersionCmd())
	return rootCmd
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func newServeCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server over stdin/stdout",
		Long: `Run the MCP server. It communicates via the MCP protocol over stdin/stdout;
configure it in your MCP client. Logs go to stderr.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			a, err := newApp(ctx, g.configPath, g.logLevel)
			if err != nil {
				return err
			}
			defer a.Close()

			return server.New(a.svc, Version, a.log).Run(ctx)
		},
	}
}

func newHTTPCmd(g *globalFlags) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "http",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			a, err := newApp(ctx, g.configPath, g.logLevel)
			if err != nil {
				return err
			}
			defer a.Close()

			if addr == "" {
				addr = a.cfg.HTTP.Addr
			}
			return httpapi.NewServer(addr, a.svc, Version, a.log).Start(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	return cmd
}

func newDetectCmd(g *globalFlags) *cobra.Command {
	var (
		start      string
		end        string
		format     string
		output     string
		annotate   bool
		bestEffort bool
	)

	cmd := &cobra.Command{
		Use:   "detect <roi.geojson>",
		Short: "Detect mining disturbance in a region and print GeoJSON",
		Long: `Detect mining disturbance inside the region read from a GeoJSON file and write
the resulting FeatureCollection to stdout. With --export the features are also
written to a GeoJSON file, SQLite database or PostGIS table.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			roi, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read region: %w", err)
			}

			a, err := newApp(ctx, g.configPath, g.logLevel)
			if err != nil {
				return err
			}
			defer a.Close()

			req := service.DetectRequest{
				Window: service.Window{ROI: roi, Start: start, End: end},
			}
			if cmd.Flags().Changed("annotate") {
				req.Annotate = &annotate
			}
			if cmd.Flags().Changed("best-effort") {
				req.BestEffort = &bestEffort
			}

			resp, err := a.svc.Detect(ctx, req)
			if err != nil {
				return err
			}
			for _, w := range resp.Warnings {
				a.log.Warn().Str("stage", w.Stage).Msg(w.Message)
			}
			a.log.Info().
				Int("features", resp.Count).
				Float64("total_area_m2", resp.TotalArea).
				Str("elapsed", resp.Elapsed).
				Msg("detection complete")

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(resp.Features); err != nil {
				return err
			}

			if format == "" {
				return nil
			}
			handle, err := a.svc.Export(service.ExportRequest{
				RunID:  resp.RunID,
				Format: export.Format(format),
				Path:   output,
			})
			if err != nil {
				return err
			}
			st, err := a.exporter.Wait(ctx, handle.ID)
			if err != nil {
				return err
			}
			if st.State == export.StateFailed {
				return fmt.Errorf("export failed: %s", st.Error)
			}
			a.log.Info().Str("job", st.ID).Str("format", string(st.Format)).Msg("export complete")
			return nil
		},
	}
	cmd.Flags().StringVar(&start, "start", "", "first acquisition date, YYYY-MM-DD (default from config)")
	cmd.Flags().StringVar(&end, "end", "", "end of the acquisition window, exclusive, YYYY-MM-DD")
	cmd.Flags().StringVar(&format, "export", "", "also export to geojson, sqlite or postgis")
	cmd.Flags().StringVarP(&output, "output", "o", "", "export file path (default in export.output_dir)")
	cmd.Flags().BoolVar(&annotate, "annotate", false, "match features against mapped quarries")
	cmd.Flags().BoolVar(&bestEffort, "best-effort", false, "retry vectorization at a coarser scale when it exceeds limits")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "minesite-mcp %s\n", Version)
			fmt.Fprintf(out, "  Build time: %s\n", BuildTime)
			fmt.Fprintf(out, "  Git commit: %s\n", GitCommit)
		},
	}
}

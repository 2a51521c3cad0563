package main

import (
	"fmt"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/spf13/cobra"

	"github.com/yi-nology/mediaedge/biz/dal/db"
	"github.com/yi-nology/mediaedge/biz/handler"
	"github.com/yi-nology/mediaedge/biz/handler/version"
	"github.com/yi-nology/mediaedge/biz/middleware"
	"github.com/yi-nology/mediaedge/biz/router"
	"github.com/yi-nology/mediaedge/pkg/config"
	"github.com/yi-nology/mediaedge/pkg/database"
	"github.com/yi-nology/mediaedge/pkg/metrics"
)

// Set with -ldflags "-X main.Version=... -X main.GitCommit=... -X main.BuildTime=...".
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

func main() {
	version.AppVersion = Version
	version.AppGitCommit = GitCommit
	version.AppBuildTime = BuildTime

	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "mediaedge",
		Short:         "On-demand image transformation and file delivery edge",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "Path to the YAML config file")

	root.AddCommand(newServeCommand(&configPath))
	root.AddCommand(newLambdaCommand(&configPath))
	root.AddCommand(newPurgeCommand(&configPath))
	root.AddCommand(newMigrateCommand(&configPath))
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Run: func(cmd *cobra.Command, args []string) {
			info := version.Current()
			fmt.Fprintf(cmd.OutOrStdout(), "%s (commit %s, built %s)\n", info.Version, info.GitCommit, info.BuildTime)
		},
	})
	return root
}

func newServeCommand(configPath *string) *cobra.Command {
	var address string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, *configPath)
			if err != nil {
				return err
			}
			if address != "" {
				a.cfg.Server.Address = address
			}

			h := server.New(
				server.WithHostPorts(a.cfg.Server.Address),
				server.WithRedirectTrailingSlash(false),
				server.WithRedirectFixedPath(false),
			)
			h.Use(
				middleware.RequestID(),
				middleware.Recovery(),
				middleware.Logging(),
				middleware.CORS(&a.cfg.CORS),
			)

			opts := router.Options{AdminToken: a.cfg.Admin.Token}
			if a.metrics {
				opts.MetricsPath = a.cfg.Metrics.Path
				opts.Metrics = metrics.Handler()
			}
			if opts.AdminToken == "" {
				hlog.CtxInfof(ctx, "admin token not set, admin routes disabled")
			}
			router.RegisterRoutes(h, handler.NewEdgeHandler(a.service), handler.NewAdminHandler(a.service), opts)

			hlog.CtxInfof(ctx, "mediaedge %s listening on %s", version.AppVersion, a.cfg.Server.Address)
			h.Spin()
			return nil
		},
	}
	cmd.Flags().StringVar(&address, "address", "", "Override server.address")
	return cmd
}

func newLambdaCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "lambda",
		Short: "Serve Lambda function URL invocations",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			lambda.Start(handler.NewLambdaHandler(a.service).Handle)
			return nil
		},
	}
}

func newPurgeCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "purge <original-key>",
		Short: "Delete every cached derivative of an original",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, *configPath)
			if err != nil {
				return err
			}
			n, err := a.service.PurgeDerivatives(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "purged %d derivative(s) of %s\n", n, args[0])
			return nil
		},
	}
}

func newMigrateCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the derivative ledger tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			conn, err := database.Open(cfg.Database)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			if err := db.NewDerivativeDAO().Migrate(cmd.Context(), conn); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "ledger tables are up to date")
			return nil
		},
	}
}

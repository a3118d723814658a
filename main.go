package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/foomo/docserver/config"
	"github.com/foomo/docserver/deploy"
	"github.com/foomo/docserver/docstore"
	"github.com/foomo/docserver/mcp"
	"github.com/foomo/docserver/server"
	"github.com/foomo/docserver/service"
	"github.com/foomo/docserver/service/vo"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/afero"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

var version = "dev"

func main() {
	var (
		configPath string
		isDebug    bool
	)

	app := &cli.App{
		Name:    "docserver",
		Version: version,
		Usage:   "Serve versioned, localized documentation over HTTP and MCP",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Value:       "docserver.yaml",
				Usage:       "path to the YAML config file",
				EnvVars:     []string{"DOCSERVER_CONFIG"},
				Destination: &configPath,
			},
			&cli.BoolFlag{
				Name:        "debug",
				Value:       false,
				Usage:       "show debug information",
				Destination: &isDebug,
			},
		},
		Commands: []*cli.Command{
			serveCommand(&configPath, &isDebug),
			refreshCommand(&configPath, &isDebug),
			stdioCommand(&configPath, &isDebug),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setup(configPath string, isDebug bool) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(afero.NewOsFs(), configPath)
	if err != nil {
		return nil, nil, err
	}
	if isDebug {
		cfg.Log.Level = "debug"
	}
	logger, err := newLogger(cfg.Log.Level)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return cfg, logger, nil
}

func newLogger(level string) (*zap.Logger, error) {
	if level == "debug" {
		return zap.NewDevelopment()
	}
	zapConfig := zap.NewProductionConfig()
	if err := zapConfig.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}
	return zapConfig.Build()
}

func newService(cfg *config.Config, logger *zap.Logger) service.Service {
	return service.NewService(afero.NewOsFs(), service.Settings{
		Root:            cfg.DocsRoot,
		ContentSelector: cfg.ContentSelector,
	}, logger.Named("service"))
}

func serveCommand(configPath *string, isDebug *bool) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "serve the documentation API and listen for deploy messages",
		Action: func(c *cli.Context) error {
			cfg, logger, err := setup(*configPath, *isDebug)
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			serviceInstance := newService(cfg, logger)
			s := server.New(logger.Named("server"), serviceInstance, server.Options{
				RedirectURL:    cfg.RedirectURL,
				AllowedOrigins: cfg.CORS.AllowedOrigins,
				RateLimit: server.RateLimit{
					Requests: cfg.RateLimit.Requests,
					Window:   cfg.RateLimit.Window,
				},
			})
			if cfg.MCP.Enabled {
				s.Handle(cfg.MCP.Endpoint, mcp.NewHTTPHandler(mcp.NewServer(serviceInstance, logger.Named("mcp")), cfg.MCP.Endpoint))
				logger.Info("mcp endpoint enabled", zap.String("endpoint", cfg.MCP.Endpoint))
			}

			errs := make(chan error, 2)
			if cfg.Deploy.Enabled {
				consumer, err := deploy.Dial(cfg.Deploy.URL, deploy.Binding{
					Exchange:   cfg.Deploy.Exchange,
					RoutingKey: cfg.Deploy.RoutingKey,
					Durable:    cfg.Deploy.Durable,
				})
				if err != nil {
					return err
				}
				defer consumer.Close()

				listener := deploy.NewListener(logger.Named("deploy"), deploy.ScriptRunner{
					Shell:  cfg.Deploy.Shell,
					Script: cfg.Deploy.Script,
				}, deploy.Options{
					Platform: cfg.Deploy.Platform,
					Notifier: s.Events(),
				})
				go func() {
					if err := listener.Run(ctx, consumer.Deliveries()); !errors.Is(err, context.Canceled) {
						errs <- fmt.Errorf("deploy listener stopped: %w", err)
					}
				}()
				logger.Info("deploy listener started", zap.String("exchange", cfg.Deploy.Exchange), zap.String("routingKey", cfg.Deploy.RoutingKey))
			}

			httpServer := &http.Server{
				Addr:              cfg.Addr(),
				Handler:           s,
				ReadHeaderTimeout: 10 * time.Second,
			}
			go func() {
				logger.Info("starting server", zap.String("addr", httpServer.Addr), zap.String("docsRoot", cfg.DocsRoot))
				if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errs <- err
				}
			}()

			select {
			case <-ctx.Done():
				logger.Info("shutting down")
			case err = <-errs:
				logger.Error("server stopped", zap.Error(err))
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if shutdownErr := httpServer.Shutdown(shutdownCtx); shutdownErr != nil {
				return errors.Join(err, shutdownErr)
			}
			return err
		},
	}
}

func refreshCommand(configPath *string, isDebug *bool) *cli.Command {
	return &cli.Command{
		Name:  "refresh",
		Usage: "warm the local documentation store from the API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "version",
				Usage: "documentation version to fetch",
			},
			&cli.StringFlag{
				Name:  "language",
				Usage: "documentation language to fetch",
			},
		},
		Action: func(c *cli.Context) error {
			cfg, logger, err := setup(*configPath, *isDebug)
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			path, err := cfg.StorePath()
			if err != nil {
				return err
			}
			persister, err := docstore.OpenSQLite(path)
			if err != nil {
				return fmt.Errorf("failed to open store %s: %w", path, err)
			}
			store, err := docstore.Open(c.Context, docstore.NewClient(cfg.APIURL, &http.Client{Timeout: 30 * time.Second}), docstore.Options{
				Versions:  cfg.Store.Versions,
				Languages: cfg.Store.Languages,
				Persister: persister,
				Logger:    logger.Named("docstore"),
			})
			if err != nil {
				persister.Close()
				return err
			}
			defer store.Close()

			if v := c.String("version"); v != "" {
				store.SetVersion(c.Context, v)
			}
			if l := c.String("language"); l != "" {
				store.SetLanguage(c.Context, l)
			}
			if !store.Refresh(c.Context) {
				return cli.Exit("refresh failed, keeping cached documentation", 1)
			}

			for _, docType := range vo.DocTypes() {
				index, _ := store.GetIndex(c.Context, false, docType)
				logger.Info("store refreshed",
					zap.String("version", store.Version()),
					zap.String("language", store.Language()),
					zap.String("type", docType.String()),
					zap.Int("categories", len(index)),
				)
			}
			return nil
		},
	}
}

func stdioCommand(configPath *string, isDebug *bool) *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "serve the MCP tools over stdio",
		Action: func(c *cli.Context) error {
			cfg, logger, err := setup(*configPath, *isDebug)
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			logger.Info("starting MCP server in stdio mode")
			return mcpserver.ServeStdio(mcp.NewServer(newService(cfg, logger), logger.Named("mcp")))
		},
	}
}

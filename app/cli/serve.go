package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"taskforest/app/controllers"
	"taskforest/app/routes"
)

const shutdownTimeout = 30 * time.Second

func (c *CLI) serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.serve(cmd.Context())
		},
	}
}

func (c *CLI) serve(ctx context.Context) error {
	d, err := buildDeps(ctx, c.cfg, c.logger)
	if err != nil {
		return err
	}
	defer d.Close(context.Background())

	router := mux.NewRouter()
	routes.RegisterRoutes(router,
		controllers.NewTaskController(d.service, c.logger),
		controllers.NewUserController(d.service, c.logger),
		routes.Options{IdentityHeader: c.cfg.IdentityHeader, Logger: c.logger},
	)

	srv := &http.Server{
		Addr:              c.cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		c.logger.Info("server listening", zap.String("addr", srv.Addr), zap.String("backend", c.cfg.StoreBackend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	c.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	c.logger.Info("server stopped")
	return nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/davidmdm/x/xcontext"

	"github.com/kubepilot/kubepilot/internal"
	"github.com/kubepilot/kubepilot/internal/api"
	"github.com/kubepilot/kubepilot/internal/k8s"
	"github.com/kubepilot/kubepilot/internal/keda"
	"github.com/kubepilot/kubepilot/internal/template"
	"github.com/kubepilot/kubepilot/pkg/pilot"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func run() error {
	ctx, done := xcontext.WithSignalCancelation(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer done()

	cfg, err := GetConfig()
	if err != nil {
		return fmt.Errorf("failed to parse configuration: %w", err)
	}

	ctx = internal.WithDebugFlag(ctx, &cfg.Debug)

	logger := logrus.New()

	gateway, err := k8s.NewClientFromKubeConfig(cfg.KubeconfigPath)
	if err != nil {
		return fmt.Errorf("failed to initialize cluster gateway: %w", err)
	}

	client := pilot.NewClient(gateway, template.NewStore(cfg.TemplateDir))

	// The process must not accept traffic with an unreachable cluster backend.
	message, err := client.CheckCluster(ctx)
	if err != nil {
		return fmt.Errorf("failed to reach cluster: %w", err)
	}
	logger.Info(message)

	if cfg.KedaChartPath != "" {
		if err := keda.NewInstaller(gateway).Install(ctx, cfg.KedaChartPath); err != nil {
			return fmt.Errorf("failed to install autoscaler controller: %w", err)
		}
		logger.Infof("autoscaler controller installed in namespace %q", keda.Namespace)
	}

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: api.NewEngine(client, logger),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Infof("listening on %s", server.Addr)
		serverErrors <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	return nil
}

package main

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/kardianos/service"
	"github.com/spf13/cobra"

	"github.com/flemzord/toolgate/pkg/app"
)

// program adapts the gateway to the OS service manager. Start must not
// block, so the gateway runs on its own goroutine until Stop cancels it.
type program struct {
	params app.RunParams

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan error
}

func (p *program) Start(s service.Service) error {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	p.mu.Lock()
	p.cancel, p.done = cancel, done
	p.mu.Unlock()

	go func() {
		err := app.RunContext(ctx, p.params)
		if err != nil {
			if logger, lErr := s.Logger(nil); lErr == nil {
				_ = logger.Error(err)
			}
		}
		done <- err
	}()
	return nil
}

func (p *program) Stop(service.Service) error {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	return <-done
}

func serviceConfig(cfgPath string) *service.Config {
	args := []string{"service", "run"}
	if cfgPath != "" {
		if abs, err := filepath.Abs(cfgPath); err == nil {
			cfgPath = abs
		}
		args = append(args, "--config", cfgPath)
	}
	return &service.Config{
		Name:        "toolgate",
		DisplayName: "toolgate",
		Description: "Discovery-first tool invocation gateway for LLM agents",
		Arguments:   args,
	}
}

func newService(cmd *cobra.Command) (service.Service, error) {
	cfgPath, _ := cmd.Flags().GetString("config")
	prg := &program{params: runParams(cmd, app.ModeHTTP)}
	return service.New(prg, serviceConfig(cfgPath))
}

func serviceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "service",
		Short: "Manage toolgate as an OS service",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Run under the service manager",
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := newService(cmd)
			if err != nil {
				return err
			}
			return svc.Run()
		},
	})

	for _, action := range service.ControlAction {
		cmd.AddCommand(&cobra.Command{
			Use:   action,
			Short: fmt.Sprintf("%s the toolgate service", action),
			RunE: func(cmd *cobra.Command, _ []string) error {
				svc, err := newService(cmd)
				if err != nil {
					return err
				}
				if err := service.Control(svc, action); err != nil {
					return fmt.Errorf("service %s: %w", action, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "service %s: ok\n", action)
				return nil
			},
		})
	}
	return cmd
}

package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"elapsed_timer/internal/service"

	"github.com/spf13/cobra"
)

var masterCmd = &cobra.Command{
	Use:   "master",
	Short: "Run the button panel node",
	Long:  `Polls the power and reset buttons and sends control phrases to the slave; logs whatever the slave sends back.`,
	RunE:  runMaster,
}

func runMaster(cmd *cobra.Command, args []string) error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}
	log = log.Named(string(roleMaster))

	tr, err := openLink(cfg, roleMaster, log)
	if err != nil {
		log.Errorw("failed to open link", "err", err)
		return err
	}
	if tr == nil {
		return errors.New("master needs a link: set link.kind to serial or nats")
	}
	defer func() { _ = tr.Close() }()

	panel := service.NewPanel(
		service.NewSysfsButton(cfg.Master.GPIORoot, cfg.Master.PowerPin),
		service.NewSysfsButton(cfg.Master.GPIORoot, cfg.Master.ResetPin),
		tr,
		service.PanelOptions{
			PollInterval: cfg.Master.PollInterval,
			Logger:       log,
		},
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go panel.Monitor(ctx)
	log.Infow("panel running", "power_pin", cfg.Master.PowerPin, "reset_pin", cfg.Master.ResetPin)
	panel.Run(ctx)

	log.Infow("shutting down panel...")
	return nil
}

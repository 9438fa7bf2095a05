package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"mushlight/internal/config"
	"mushlight/internal/controller"
	"mushlight/internal/export"
	"mushlight/internal/frame"
	"mushlight/internal/hardware/ws281x"
	"mushlight/internal/pattern"
	"mushlight/internal/pipeline"
)

const (
	healthPollInterval = time.Second
	fpsLogInterval     = 5 * time.Second
)

func newRunCommand(configFlag *string) *cobra.Command {
	var patternFlag string
	var brightnessFlag int

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Drive the LED strips until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(*configFlag, patternFlag, brightnessFlag)
		},
	}

	cmd.Flags().StringVarP(&patternFlag, "pattern", "p", "",
		"Initial pattern (overrides startup config)")
	cmd.Flags().IntVarP(&brightnessFlag, "brightness", "b", -1,
		"Global brightness 0-255 (overrides startup config)")

	return cmd
}

func runDaemon(configPath, patternOverride string, brightnessOverride int) error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}
	config.Normalize(cfg)

	if brightnessOverride > 255 {
		return fmt.Errorf("brightness %d out of range 0-255", brightnessOverride)
	}
	brightness := cfg.EffectiveBrightness()
	if brightnessOverride >= 0 {
		brightness = brightnessOverride
	}

	patternName := cfg.Startup.Pattern
	if patternOverride != "" {
		patternName = patternOverride
	}

	// ------------------------------------------------------------
	// HARDWARE AND PIPELINE CONSTRUCTION
	// ------------------------------------------------------------

	layouts := make([]ws281x.StripLayout, 0, len(cfg.Strips))
	for _, s := range cfg.Strips {
		layouts = append(layouts, ws281x.StripLayout{
			ID:       s.ID,
			GPIOPin:  s.GPIOPin,
			LEDCount: s.LEDCount,
		})
	}
	dev, err := ws281x.Open(ws281x.Options{
		FreqHz: cfg.Hardware.FreqHz,
		Invert: cfg.Hardware.Invert,
		Strips: layouts,
	})
	if err != nil {
		return err
	}

	ctrl := controller.New(pattern.Builtin(), logger)
	for _, s := range cfg.Strips {
		sink, err := dev.Strip(s.ID)
		if err != nil {
			_ = ctrl.Cleanup()
			return err
		}
		p, err := pipeline.New(pipeline.Config{
			Name:       s.ID,
			LEDCount:   s.LEDCount,
			Brightness: brightness,
		}, sink, logger)
		if err != nil {
			_ = ctrl.Cleanup()
			return err
		}
		if err := ctrl.Add(p); err != nil {
			_ = ctrl.Cleanup()
			return err
		}
		logger.Info("strip configured",
			"strip", s.ID, "gpio", s.GPIOPin, "leds", s.LEDCount, "location", s.Location)
	}

	if err := ctrl.SetAllPatterns(patternName); err != nil {
		_ = ctrl.Cleanup()
		return err
	}
	applyStartupParams(ctrl, cfg, patternName, logger)

	// ------------------------------------------------------------
	// RUN UNTIL SIGNAL OR FATAL HEALTH
	// ------------------------------------------------------------

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := ctrl.Start(); err != nil {
		_ = ctrl.Cleanup()
		return err
	}
	logger.Info("all pipelines started", "pattern", patternName, "brightness", brightness)

	if cfg.Metrics.ExportPath != "" {
		exp, err := export.New(cfg.Metrics.ExportPath,
			time.Duration(cfg.Metrics.ExportIntervalS)*time.Second, ctrl, logger)
		if err != nil {
			_ = ctrl.Cleanup()
			return err
		}
		go exp.Run(ctx)
		logger.Info("metrics export enabled",
			"path", cfg.Metrics.ExportPath, "interval_s", cfg.Metrics.ExportIntervalS)
	}

	supervise(ctx, ctrl, logger)

	logger.Info("shutting down")
	if err := ctrl.Cleanup(); err != nil {
		logger.Error("cleanup finished with errors", "err", err)
	}
	logger.Info("shutdown complete")
	return nil
}

// applyStartupParams pushes the configured parameter overrides for the active
// pattern to every strip. A bad override is logged, not fatal: the pattern
// keeps its default for that parameter.
func applyStartupParams(ctrl *controller.Controller, cfg *config.Config, patternName string, logger *slog.Logger) {
	overrides := cfg.Startup.PatternParams[patternName]
	for param, setting := range overrides {
		value := pattern.Number(setting.Number)
		if setting.IsColor {
			value = pattern.Color(frame.RGB{
				R: setting.Color[0],
				G: setting.Color[1],
				B: setting.Color[2],
			})
		}
		for _, strip := range ctrl.Strips() {
			if err := ctrl.SetParam(strip, param, value); err != nil {
				logger.Error("startup parameter rejected",
					"pattern", patternName, "param", param, "err", err)
			}
		}
	}
}

// supervise polls pipeline health once per second and returns when either the
// context is canceled or any strip reports a fatal condition.
func supervise(ctx context.Context, ctrl *controller.Controller, logger *slog.Logger) {
	ticker := time.NewTicker(healthPollInterval)
	defer ticker.Stop()

	lastFPSLog := time.Now()

	for {
		select {
		case <-ctx.Done():
			logger.Info("shutdown signal received")
			return

		case <-ticker.C:
			health := ctrl.Health()
			for strip, h := range health {
				if !h.Running || h.Fatal() {
					logger.Error("pipeline unhealthy, initiating shutdown",
						"strip", strip,
						"running", h.Running,
						"pattern_alive", h.PatternAlive,
						"spi_alive", h.SPIAlive,
						"pattern_errors", h.PatternErrors,
						"spi_errors", h.SPIErrors)
					return
				}
			}

			if time.Since(lastFPSLog) >= fpsLogInterval {
				for strip, h := range health {
					logger.Info("status",
						"strip", strip,
						"fps", fmt.Sprintf("%.1f", h.FPS),
						"frames", h.FramesTransmitted)
				}
				lastFPSLog = time.Now()
			}
		}
	}
}

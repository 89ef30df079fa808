package config

import (
	"log/slog"
	"time"

	"github.com/civicpulse/pulse/pkg/domain/model"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

// Scheduler holds archive sweep configuration
type Scheduler struct {
	Interval        time.Duration
	WindowOpenHour  int64
	WindowCloseHour int64
}

// Flags returns CLI flags for Scheduler configuration
func (s *Scheduler) Flags() []cli.Flag {
	window := model.DefaultArchiveWindow()
	return []cli.Flag{
		&cli.DurationFlag{
			Name:        "sweep-interval",
			Usage:       "How often the archive sweep fires",
			Category:    "Scheduler",
			Value:       time.Hour,
			Sources:     cli.EnvVars("PULSE_SWEEP_INTERVAL"),
			Destination: &s.Interval,
		},
		&cli.Int64Flag{
			Name:        "archive-window-open",
			Usage:       "Hour on Sunday (local) from which a scheduled sweep may archive",
			Category:    "Scheduler",
			Value:       int64(window.OpenHour),
			Sources:     cli.EnvVars("PULSE_ARCHIVE_WINDOW_OPEN"),
			Destination: &s.WindowOpenHour,
		},
		&cli.Int64Flag{
			Name:        "archive-window-close",
			Usage:       "Hour on Monday (local) until which a scheduled sweep may archive",
			Category:    "Scheduler",
			Value:       int64(window.CloseHour),
			Sources:     cli.EnvVars("PULSE_ARCHIVE_WINDOW_CLOSE"),
			Destination: &s.WindowCloseHour,
		},
	}
}

// Window builds the validated archive safety window
func (s *Scheduler) Window() (model.ArchiveWindow, error) {
	window := model.ArchiveWindow{
		OpenHour:  int(s.WindowOpenHour),
		CloseHour: int(s.WindowCloseHour),
	}
	if err := window.Validate(); err != nil {
		return model.ArchiveWindow{}, goerr.Wrap(err, "invalid archive window")
	}
	return window, nil
}

// Validate validates the scheduler configuration
func (s *Scheduler) Validate() error {
	if s.Interval < time.Minute {
		return goerr.New("sweep interval must be at least one minute",
			goerr.V("interval", s.Interval))
	}
	_, err := s.Window()
	return err
}

// LogValue returns structured log value
func (s Scheduler) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Duration("interval", s.Interval),
		slog.Int64("windowOpenHour", s.WindowOpenHour),
		slog.Int64("windowCloseHour", s.WindowCloseHour),
	)
}

package cmd

import (
	"context"
	"fmt"

	"github.com/bnema/eitype/internal/config"
	"github.com/bnema/eitype/internal/input"
	"github.com/bnema/eitype/internal/logger"
	"github.com/bnema/eitype/internal/portal"
	"github.com/bnema/eitype/internal/session"
)

// openSink opens the configured backend. The returned func releases it.
func openSink(ctx context.Context, cfg *config.Config) (input.Sink, func(), error) {
	switch cfg.Backend {
	case config.BackendUinput:
		sink, err := input.NewUinputSink(cfg.Uinput.DevicePath, cfg.Uinput.DeviceName, cfg.UinputSettle())
		if err != nil {
			return nil, nil, err
		}
		logger.Debug("using uinput backend", "device", cfg.Uinput.DevicePath)
		return sink, func() {
			if err := sink.Close(); err != nil {
				logger.Warn("failed to close virtual keyboard", "error", err)
			}
		}, nil

	case config.BackendEIS:
		s, handoff, err := openSession(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		return s, func() {
			if err := s.Close(); err != nil {
				logger.Debug("failed to close session", "error", err)
			}
			if err := handoff.Close(); err != nil {
				logger.Debug("failed to release session bus", "error", err)
			}
		}, nil
	}
	return nil, nil, fmt.Errorf("unknown backend %q", cfg.Backend)
}

// openSession obtains the EIS socket and establishes a session on it
func openSession(ctx context.Context, cfg *config.Config) (*session.Session, *portal.Handoff, error) {
	selection, err := session.ParseDeviceSelection(cfg.EIS.DeviceSelection)
	if err != nil {
		return nil, nil, err
	}

	handoff, err := portal.Connect(ctx, cfg.EIS.Socket, cfg.EIS.Capabilities)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to obtain EIS socket: %w", err)
	}
	logger.Debug("obtained EIS socket", "source", handoff.Source, "cookie", handoff.Cookie)

	s, err := session.Establish(ctx, handoff.Conn, session.Options{
		Name:            cfg.EIS.ClientName,
		PollInterval:    cfg.PollInterval(),
		MaxPollTimeouts: cfg.EIS.MaxPollTimeouts,
		DeviceSelection: selection,
		Logger:          logger.Logger,
	})
	if err != nil {
		_ = handoff.Close()
		return nil, nil, fmt.Errorf("failed to get keyboard device: %w", err)
	}
	return s, handoff, nil
}

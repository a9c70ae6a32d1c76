package main

import (
	"fmt"

	"github.com/nerrad567/gray-logic-rf433/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-rf433/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-rf433/internal/rf433"
	"github.com/nerrad567/gray-logic-rf433/internal/rf433/periphgpio"
)

// receiver is an initialised device plus the GPIO handles it owns.
type receiver struct {
	dev   *rf433.Device
	probe *periphgpio.Probe
}

// openReceiver opens the data pin (and probe pin if configured) and
// initialises the decoder. extra options are appended after the defaults.
func openReceiver(cfg *config.Config, log *logging.Logger, extra ...rf433.Option) (*receiver, error) {
	rc, err := cfg.ReceiverConfig()
	if err != nil {
		return nil, fmt.Errorf("receiver config: %w", err)
	}

	pin, err := periphgpio.Open(rc.Pin)
	if err != nil {
		return nil, fmt.Errorf("opening receive pin: %w", err)
	}

	opts := []rf433.Option{rf433.WithLogger(log.With("component", "receiver"))}

	r := &receiver{}
	if cfg.Receiver.ProbePin != "" {
		r.probe, err = periphgpio.OpenProbe(cfg.Receiver.ProbePin)
		if err != nil {
			return nil, fmt.Errorf("opening probe pin: %w", err)
		}
		opts = append(opts, rf433.WithProbe(r.probe.Toggle))
		log.Info("edge probe enabled", "pin", cfg.Receiver.ProbePin)
	}
	opts = append(opts, extra...)

	r.dev, err = rf433.Init(rc, pin, opts...)
	if err != nil {
		r.closeProbe()
		return nil, err
	}

	log.Info("receiver initialised",
		"pin", rc.Pin,
		"protocol", rc.Variant.String(),
		"zero_us", rc.ZeroThresholdUS,
		"one_us", rc.OneThresholdUS,
		"preamble_min", rc.PreambleMin,
		"raw_length", rc.RawLength,
	)
	return r, nil
}

func (r *receiver) Close() error {
	err := r.dev.Close()
	r.closeProbe()
	return err
}

func (r *receiver) closeProbe() {
	if r.probe != nil {
		_ = r.probe.Close()
	}
}

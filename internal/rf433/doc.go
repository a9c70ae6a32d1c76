// Package rf433 decodes 433 MHz On-Off-Keyed transmissions from GPIO edge timings.
//
// A receiver module (e.g. a cheap superheterodyne board) drives a GPIO pin
// high while it sees carrier. Every edge on that pin is timestamped, the
// interval since the previous edge is classified into a symbol, and the
// symbol stream is framed, validated and handed to a single consumer.
//
// # Pipeline
//
//	Pin edge ──► EdgeCapture ──► interval queue ──► worker goroutine
//	                                                 │
//	                                  Assembler ◄────┘ (Classify)
//	                                      │ full raw buffer
//	                                  Validator ──► Delivery ──► Read()
//
// EdgeCapture runs on the pin's edge callback and never blocks: a full
// queue drops the newest interval and bumps a counter. The worker owns the
// Assembler and Validator, so neither needs locking.
//
// # Protocols
//
// Two representative variants are supported:
//
//   - VariantSwitch: plain nibble encoding used by cheap remote switches
//     (48 raw symbols, 12 data bits: system, device A..E, on/off).
//   - VariantSensor: differential-pair encoding used by TFA-style
//     temperature/humidity/wind sensors (128 raw symbols, 64-bit word).
//
// # Usage
//
//	dev, err := rf433.Init(cfg, pin, rf433.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	defer dev.Close()
//
//	if err := dev.StartReceiving(); err != nil {
//	    return err
//	}
//
//	frames := make([]rf433.Frame, 1)
//	n, err := dev.Read(ctx, frames, 1)
//
// Thread Safety: Device, Delivery and EdgeCapture are safe for concurrent
// use. Assembler and Validator are owned by a single goroutine.
package rf433

package rf433

import "errors"

// ReplayResult is the outcome of decoding a recorded interval stream.
type ReplayResult struct {
	Frames           []Frame
	Intervals        int
	EncodingErrors   int
	ValidationErrors int
	Duplicates       int
	Desyncs          uint64
	Truncated        uint64
}

// Replay runs recorded intervals through a fresh Assembler and Validator
// without a pin or worker. It is the offline twin of a receiving Device
// and accepts the same configuration.
func Replay(cfg Config, intervals []uint32) (ReplayResult, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return ReplayResult{}, err
	}

	asm := NewAssembler(cfg.Thresholds(), cfg.PreambleMin, cfg.RawLength)
	val := NewValidator(cfg.Variant, cfg.DedupWindow)
	res := ReplayResult{Intervals: len(intervals)}

	for _, iv := range intervals {
		raw, full := asm.Feed(iv)
		if !full {
			continue
		}
		f, ok, err := val.Validate(raw)
		switch {
		case errors.Is(err, ErrEncoding):
			res.EncodingErrors++
		case errors.Is(err, ErrValidation):
			res.ValidationErrors++
		case errors.Is(err, ErrDuplicate):
			res.Duplicates++
		case err == nil && ok:
			res.Frames = append(res.Frames, f)
		}
	}

	res.Desyncs = asm.Desyncs()
	res.Truncated = asm.Truncated()
	return res, nil
}

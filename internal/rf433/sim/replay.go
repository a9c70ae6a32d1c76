package sim

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ParseIntervals reads a sniffer dump: one interval in microseconds per
// line. Anything after the first field (symbol annotations) is ignored, as
// are blank lines and lines starting with '#'.
func ParseIntervals(r io.Reader) ([]uint32, error) {
	var out []uint32

	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		field := strings.Fields(text)[0]
		v, err := strconv.ParseUint(field, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("sim: line %d: invalid interval %q: %w", line, field, err)
		}
		out = append(out, uint32(v))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("sim: reading intervals: %w", err)
	}
	return out, nil
}

package coordinator

import (
	"fmt"
	"strings"
	"time"

	"github.com/zeebo/xxh3"

	"hexpi/internal/digits"
)

const hexAlphabet = "0123456789ABCDEF"

// Result is the outcome of a completed computation.
type Result struct {
	Start    int64             `json:"start"`
	Count    int64             `json:"count"`
	Digits   []byte            `json:"-"`
	Hex      string            `json:"hex"`
	Shards   []digits.Progress `json:"shards"`
	Pauses   int               `json:"pauses"`
	Elapsed  time.Duration     `json:"elapsed"`
	Checksum uint64            `json:"checksum"`
}

func newResult(start int64, out []byte, shards []digits.Progress, pauses int, elapsed time.Duration) *Result {
	return &Result{
		Start:    start,
		Count:    int64(len(out)),
		Digits:   out,
		Hex:      FormatHex(out),
		Shards:   shards,
		Pauses:   pauses,
		Elapsed:  elapsed,
		Checksum: xxh3.Hash(out),
	}
}

// FormatHex renders digit values 0-15 as uppercase hexadecimal characters.
func FormatHex(values []byte) string {
	var b strings.Builder
	b.Grow(len(values))
	for _, v := range values {
		b.WriteByte(hexAlphabet[v&0xF])
	}
	return b.String()
}

// FormatDecimal renders digit values as space-separated decimal numbers.
func FormatDecimal(values []byte) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprintf("%d", v)
	}
	return strings.Join(parts, " ")
}

// Report returns a human-readable summary of the computation.
func (r *Result) Report() string {
	report := fmt.Sprintf(`
================================================================================
                    HEX DIGITS OF PI: [%d, %d)
================================================================================

EXECUTION SUMMARY
-----------------
  Digits:         %d
  Workers:        %d
  Pauses:         %d
  Duration:       %v
  Checksum:       %016x

SHARDS
------
`,
		r.Start,
		r.Start+r.Count,
		r.Count,
		len(r.Shards),
		r.Pauses,
		r.Elapsed.Round(time.Millisecond),
		r.Checksum,
	)

	for _, s := range r.Shards {
		report += fmt.Sprintf("  worker-%-4d %-24s %8d digits  %s\n", s.ID, s.Range, s.Computed, s.State)
	}

	report += "\n================================================================================\n"
	return report
}

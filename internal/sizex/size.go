// Package sizex converts between the byte counts stored in the database and
// the megabyte/gigabyte figures shown to users.
//
// Units are binary: 1 MB = 1024 KB, 1 GB = 1024 MB.
package sizex

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/dustin/go-humanize"
)

const (
	MiB int64 = 1 << 20
	GiB int64 = 1 << 30
)

// GB reports b as fractional gigabytes.
func GB(b int64) float64 {
	return float64(b) / float64(GiB)
}

// FromGB converts whole or fractional gigabytes to bytes.
func FromGB(gb float64) int64 {
	return int64(math.Round(gb * float64(GiB)))
}

// FormatMB renders b the way catalog entries display sizes, e.g. "586.05 MB".
func FormatMB(b int64) string {
	return fmt.Sprintf("%.2f MB", float64(b)/float64(MiB))
}

// Human renders b with an IEC suffix ("1.2 GiB").
func Human(b int64) string {
	if b < 0 {
		return "-" + humanize.IBytes(uint64(-b))
	}
	return humanize.IBytes(uint64(b))
}

// ParseLegacy parses size strings such as "586.051 MB", "1.2 GB" or a bare
// number (taken as megabytes). Decimal suffixes are read as binary units.
func ParseLegacy(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty size")
	}

	if v, err := strconv.ParseFloat(s, 64); err == nil {
		if v < 0 {
			return 0, fmt.Errorf("negative size %q", s)
		}
		return int64(math.Round(v * float64(MiB))), nil
	}

	i := strings.IndexFunc(s, unicode.IsLetter)
	if i <= 0 {
		return 0, fmt.Errorf("invalid size %q", s)
	}
	num, unit := strings.TrimSpace(s[:i]), strings.TrimSpace(s[i:])

	switch u := strings.ToUpper(unit); u {
	case "KB", "MB", "GB", "TB":
		unit = u[:1] + "iB"
	}

	n, err := humanize.ParseBytes(num + " " + unit)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	if n > math.MaxInt64 {
		return 0, fmt.Errorf("size %q overflows", s)
	}
	return int64(n), nil
}

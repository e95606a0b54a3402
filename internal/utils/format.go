// Package utils provides shared utility functions
package utils

import (
	"fmt"

	"github.com/dustin/go-humanize"
)

// FormatBytes converts bytes to human-readable IEC format (e.g., "1.5 GiB")
func FormatBytes(bytes uint64) string {
	return humanize.IBytes(bytes)
}

// FormatFileSize converts file size (int64) to human-readable format
func FormatFileSize(size int64) string {
	if size < 0 {
		return FormatBytes(0)
	}
	return FormatBytes(uint64(size))
}

// ParseByteSize parses sizes such as "10GiB", "512 MB" or "1024"
func ParseByteSize(s string) (int64, error) {
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("parse size %q: %w", s, err)
	}
	if n > 1<<62 {
		return 0, fmt.Errorf("parse size %q: too large", s)
	}
	return int64(n), nil
}

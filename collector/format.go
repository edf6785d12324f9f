package collector

import (
	"fmt"
	"time"
	"unicode/utf8"
)

// ClampString limits str to n bytes. A string that does not fit is cut and,
// when n > 6, ends in "..". The empty string renders as "-".
func ClampString(str string, n int) string {
	if str == "" {
		return "-"
	}
	if len(str) <= n {
		return str
	}
	if n > 6 {
		return cut(str, n-2) + ".."
	}
	return cut(str, max(n, 0))
}

// cut returns the longest prefix of str of at most n bytes that does not
// split a rune.
func cut(str string, n int) string {
	for n > 0 && !utf8.RuneStart(str[n]) {
		n--
	}
	return str[:n]
}

var bytePrefixes = [...]string{"", "K", "M", "G", "T"}

// PrettyBytes formats b in base-1024 units with two decimals, for example
// "2.00 KB". A target of 1 to 4 forces K, M, G or T; 0 picks the largest
// unit not exceeding b.
func PrettyBytes(b uint64, target int) string {
	mag := target
	if mag <= 0 {
		mag = 0
		for mag < len(bytePrefixes)-1 && b>>(10*(mag+1)) > 0 {
			mag++
		}
	}
	mag = min(mag, len(bytePrefixes)-1)
	v := float64(b) / float64(uint64(1)<<(10*mag))
	return fmt.Sprintf("%.2f %sB", v, bytePrefixes[mag])
}

// TimeFlags selects the parts printed by PrettyTime.
type TimeFlags uint8

const (
	TimeDate TimeFlags = 1 << iota
	TimeClock

	TimeDateTime = TimeDate | TimeClock
)

// PrettyTime formats t as "2006-01-02", "15:04:05" or both.
func PrettyTime(t time.Time, flags TimeFlags) string {
	switch flags {
	case TimeDate:
		return t.Format(time.DateOnly)
	case TimeClock:
		return t.Format(time.TimeOnly)
	case TimeDateTime:
		return t.Format(time.DateTime)
	}
	return ""
}

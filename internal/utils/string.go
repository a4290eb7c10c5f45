package utils

import "strconv"

// FormatWithCommas renders an integer with thousands separators for CLI output
func FormatWithCommas(n int) string {
	s := strconv.Itoa(n)
	start := 0
	if s[0] == '-' {
		start = 1
	}

	digits := len(s) - start
	if digits <= 3 {
		return s
	}

	var out []byte
	out = append(out, s[:start]...)
	lead := digits % 3
	if lead > 0 {
		out = append(out, s[start:start+lead]...)
	}
	for i := start + lead; i < len(s); i += 3 {
		if len(out) > start {
			out = append(out, ',')
		}
		out = append(out, s[i:i+3]...)
	}
	return string(out)
}

// Package racetime formats race times kept in milliseconds.
package racetime

import "fmt"

// Format renders ms as [h:]m:ss.mmm. Non-positive values render as "-".
func Format(ms int64) string {
	if ms <= 0 {
		return "-"
	}
	h := ms / 3_600_000
	m := ms / 60_000 % 60
	s := ms / 1000 % 60
	milli := ms % 1000
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d.%03d", h, m, s, milli)
	}
	return fmt.Sprintf("%d:%02d.%03d", m, s, milli)
}

// Delta renders an improvement as a signed seconds value, e.g. "-0.512".
func Delta(ms int64) string {
	sign := "+"
	if ms < 0 {
		sign, ms = "-", -ms
	}
	return fmt.Sprintf("%s%d.%03d", sign, ms/1000, ms%1000)
}

// Total renders a long duration in ms as "Nd Nh Nm Ns".
func Total(ms int64) string {
	if ms <= 0 {
		return "0s"
	}
	sec := ms / 1000
	d, h, m, s := sec/86_400, sec/3600%24, sec/60%60, sec%60
	switch {
	case d > 0:
		return fmt.Sprintf("%dd %dh %dm %ds", d, h, m, s)
	case h > 0:
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	case m > 0:
		return fmt.Sprintf("%dm %ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}

package view

import (
	"cmp"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	time.DateOnly,
}

// texts returns the textual representation of v, one entry per element for lists.
func texts(v any) []string {
	switch val := v.(type) {
	case nil:
		return nil
	case string:
		return []string{val}
	case []string:
		return val
	case time.Time:
		if val.IsZero() {
			return nil
		}
		return []string{val.UTC().Format(time.RFC3339)}
	case fmt.Stringer:
		return []string{val.String()}
	}
	if f, ok := number(v); ok {
		return []string{strconv.FormatFloat(f, 'f', -1, 64)}
	}
	if b, ok := v.(bool); ok {
		return []string{strconv.FormatBool(b)}
	}
	return []string{fmt.Sprint(v)}
}

func number(v any) (float64, bool) {
	switch val := v.(type) {
	case int:
		return float64(val), true
	case int32:
		return float64(val), true
	case int64:
		return float64(val), true
	case uint:
		return float64(val), true
	case float32:
		return float64(val), true
	case float64:
		return val, true
	case *float64:
		if val == nil {
			return 0, false
		}
		return *val, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		return f, err == nil
	}
	return 0, false
}

// ParseTime parses s as one of the accepted ISO-8601 layouts; zone-less values are UTC.
func ParseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// millis converts a time value to its epoch-millisecond representation.
func millis(v any) (int64, bool) {
	switch val := v.(type) {
	case time.Time:
		if val.IsZero() {
			return 0, false
		}
		return val.UnixMilli(), true
	case *time.Time:
		if val == nil || val.IsZero() {
			return 0, false
		}
		return val.UnixMilli(), true
	case int64:
		return val, true
	case string:
		if t, ok := ParseTime(val); ok {
			return t.UnixMilli(), true
		}
	}
	return 0, false
}

func boolean(v any) (bool, bool) {
	switch val := v.(type) {
	case bool:
		return val, true
	case *bool:
		if val == nil {
			return false, false
		}
		return *val, true
	case string:
		b, err := strconv.ParseBool(val)
		return b, err == nil
	}
	return false, false
}

// compareValues orders a and b according to kind. Missing or malformed values sort first.
func compareValues(kind Kind, a, b any) int {
	switch kind {
	case Number:
		fa, oka := number(a)
		fb, okb := number(b)
		if c := compareValid(oka, okb); c != 0 || !oka {
			return c
		}
		return cmp.Compare(fa, fb)
	case Time:
		ma, oka := millis(a)
		mb, okb := millis(b)
		if c := compareValid(oka, okb); c != 0 || !oka {
			return c
		}
		return cmp.Compare(ma, mb)
	case Bool:
		ba, oka := boolean(a)
		bb, okb := boolean(b)
		if c := compareValid(oka, okb); c != 0 || !oka {
			return c
		}
		switch {
		case ba == bb:
			return 0
		case !ba:
			return -1
		}
		return 1
	}
	return strings.Compare(strings.Join(texts(a), " "), strings.Join(texts(b), " "))
}

func compareValid(oka, okb bool) int {
	switch {
	case oka == okb:
		return 0
	case !oka:
		return -1
	}
	return 1
}

// matches reports whether the value v of a field of the given kind equals want.
// Date-only wants match any time of that (UTC) day.
func matches(kind Kind, v any, want string) bool {
	switch kind {
	case Number:
		got, ok := number(v)
		w, wok := number(want)
		return ok && wok && got == w
	case Time:
		got, ok := millis(v)
		if !ok {
			return false
		}
		w, wok := ParseTime(want)
		if !wok {
			return false
		}
		if _, err := time.Parse(time.DateOnly, strings.TrimSpace(want)); err == nil {
			day := w.UnixMilli()
			return got >= day && got < day+int64(24*time.Hour/time.Millisecond)
		}
		return got == w.UnixMilli()
	case Bool:
		got, ok := boolean(v)
		w, wok := boolean(want)
		return ok && wok && got == w
	}
	for _, s := range texts(v) {
		if s == want {
			return true
		}
	}
	return false
}

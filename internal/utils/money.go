package utils

import (
	"strconv"
	"strings"
)

// FormatAmount renders minor-unit amounts with thousand separators, e.g. "150.000".
func FormatAmount(amount int64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	str := strconv.FormatInt(amount, 10)
	var out strings.Builder
	out.WriteString(sign)
	for i, c := range str {
		if i != 0 && (len(str)-i)%3 == 0 {
			out.WriteByte('.')
		}
		out.WriteRune(c)
	}
	return out.String()
}

// MultiplyAmount returns unit*count, refusing results that overflow int64.
func MultiplyAmount(unit int64, count int) (int64, bool) {
	if unit < 0 || count < 0 {
		return 0, false
	}
	if count == 0 || unit == 0 {
		return 0, true
	}
	total := unit * int64(count)
	if total/int64(count) != unit {
		return 0, false
	}
	return total, true
}

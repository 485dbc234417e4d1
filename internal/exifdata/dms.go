package exifdata

import (
	"fmt"
	"regexp"
	"strconv"
)

// dmsPattern matches sexagesimal descriptions of the form
// `30 deg 15' 50.34" N`. Separators between the numeric tokens are
// arbitrary; only the token order and the trailing hemisphere matter.
var dmsPattern = regexp.MustCompile(`^\s*(\d+(?:\.\d+)?)\s*deg[^0-9.]*(\d+(?:\.\d+)?)[^0-9.]*(\d+(?:\.\d+)?)[^NSEW]*([NSEW])`)

// ToDecimal converts a sexagesimal coordinate description to signed
// decimal degrees. The result is negated for the S and W hemispheres.
// Malformed input returns ok=false; a numeric parse failure never
// escapes as NaN.
func ToDecimal(dms string) (float64, bool) {
	m := dmsPattern.FindStringSubmatch(dms)
	if m == nil {
		return 0, false
	}

	deg, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	min, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return 0, false
	}
	sec, err := strconv.ParseFloat(m[3], 64)
	if err != nil {
		return 0, false
	}

	decimal := deg + min/60 + sec/3600
	if m[4] == "S" || m[4] == "W" {
		decimal = -decimal
	}
	return decimal, true
}

// FormatDMS renders degree/minute/second components into the
// description string ToDecimal parses.
func FormatDMS(deg, min, sec float64, ref string) string {
	return fmt.Sprintf("%.0f deg %.0f' %.2f\" %s", deg, min, sec, ref)
}

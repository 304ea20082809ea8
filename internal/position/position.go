// Package position implements the fractional-position codec used to order
// tasks within a tasklist. Positions are ASCII decimal digit strings read as
// the fractional part of a number in [0, 1): "5" < "54" < "6". Two adjacent
// positions always have room for a new one in between, computed digit by
// digit without ever materializing the full decimal expansion of either
// operand.
//
// Grounded on _examples/original_source/src/streaming.rs (streaming_add,
// streaming_halve, streaming_midpoint), translated from the Rust iterator
// pipeline into a single buffered pass over the digit strings.
package position

import "strings"

// Sentinel is the smallest representable position, reserved as a left
// anchor that no real task is ever assigned. Every task position synced
// from the remote is bumped forward of it on intake.
const Sentinel = "0"

// bumpDigits is the number of digits new intake is bumped past Sentinel by,
// i.e. new positions start at roughly 10^-20.
const bumpDigits = 20

var bumpValue = strings.Repeat("0", bumpDigits-1) + "1"

// Bump returns a position strictly after x, advanced by a small fixed
// fraction. Applied to every task position received from the remote, and
// used to place a local task that has no successor.
func Bump(x string) string {
	return Add(x, bumpValue)
}

// Add returns the digit-wise sum of two fractional digit strings, treating
// each as 0.d1d2d3... The shorter string is padded with trailing zeros. The
// result may be one digit longer than the longer input if the addition
// carries out past the most significant digit; that leading "1" is then the
// integer part of the sum, not a fractional digit (Midpoint accounts for it).
func Add(x, y string) string {
	n := len(x)
	if len(y) > n {
		n = len(y)
	}

	out := make([]byte, 0, n+1)
	havePrev := false
	var prev byte
	nines := 0

	flush := func(asNine bool) {
		c := byte('0')
		if asNine {
			c = '9'
		}
		for ; nines > 0; nines-- {
			out = append(out, c)
		}
	}

	digitAt := func(s string, i int) int {
		if i >= len(s) {
			return 0
		}
		return int(s[i] - '0')
	}

	for i := 0; i < n; i++ {
		sum := digitAt(x, i) + digitAt(y, i)
		switch {
		case sum == 9:
			nines++
		case sum < 9:
			if havePrev {
				out = append(out, prev)
			}
			flush(true)
			prev = byte('0' + sum)
			havePrev = true
		default: // 10..18, carries into the digit to the left
			if havePrev {
				out = append(out, prev+1)
			} else {
				out = append(out, '1')
			}
			flush(false)
			prev = byte('0' + (sum - 10))
			havePrev = true
		}
	}
	if havePrev {
		out = append(out, prev)
	}
	flush(true) // an unresolved trailing run of 9s never receives a carry

	return string(out)
}

// Halve returns x/2, treating x as 0.d1d2d3...
func Halve(x string) string {
	out := make([]byte, 0, len(x)+1)
	carry := false
	for i := 0; i < len(x); i++ {
		d := int(x[i] - '0')
		v := d / 2
		if carry {
			v += 5
		}
		carry = d%2 == 1
		out = append(out, byte('0'+v))
	}
	if carry {
		out = append(out, '5')
	}
	return string(out)
}

// Midpoint returns a position strictly between x and y (x < y assumed,
// compared as digit strings with implicit trailing zero padding).
func Midpoint(x, y string) string {
	sum := Add(x, y)
	half := Halve(sum)
	n := len(x)
	if len(y) > n {
		n = len(y)
	}
	if len(sum) > n {
		// The sum carried into a leading "1"; Halve read it as the first
		// fractional digit, so drop the leading "0" of its result.
		half = half[1:]
	}
	return half
}

// Less reports whether a sorts strictly before b under the padded digit
// string ordering positions use throughout this package.
func Less(a, b string) bool {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		da, db := 0, 0
		if i < len(a) {
			da = int(a[i] - '0')
		}
		if i < len(b) {
			db = int(b[i] - '0')
		}
		if da != db {
			return da < db
		}
	}
	return false
}

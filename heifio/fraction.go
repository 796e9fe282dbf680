package heifio

import (
	"fmt"
	"math"
)

// Fraction is a signed rational used by the cropping geometry. The zero
// denominator marks an invalid value; arithmetic that would overflow int32
// saturates to invalid instead of wrapping. The zero value Fraction{} (0/0)
// is therefore invalid; 0/1 is the valid zero.
type Fraction struct {
	Num int32
	Den int32
}

func NewFraction(num, den int32) Fraction {
	return Fraction{Num: num, Den: den}.normalize()
}

func (f Fraction) String() string {
	return fmt.Sprintf("%d/%d", f.Num, f.Den)
}

func (f Fraction) Valid() bool {
	return f.Den != 0
}

var invalidFraction = Fraction{}

func (f Fraction) normalize() Fraction {
	if f.Den == 0 {
		return invalidFraction
	}
	if f.Den < 0 {
		if f.Num == math.MinInt32 || f.Den == math.MinInt32 {
			return invalidFraction
		}
		f.Num, f.Den = -f.Num, -f.Den
	}
	return f
}

func gcd64(a, b int64) int64 {
	if a < 0 {
		a = -a
	}
	if b < 0 {
		b = -b
	}
	for b != 0 {
		a, b = b, a%b
	}
	if a == 0 {
		return 1
	}
	return a
}

// reduce folds an int64 rational back into int32 range, reducing by the gcd
// first and saturating to the invalid fraction when it still does not fit.
func reduce(num, den int64) Fraction {
	if den == 0 {
		return invalidFraction
	}
	g := gcd64(num, den)
	num /= g
	den /= g
	if num > math.MaxInt32 || num < math.MinInt32 || den > math.MaxInt32 || den < math.MinInt32 {
		return invalidFraction
	}
	return Fraction{Num: int32(num), Den: int32(den)}.normalize()
}

func (f Fraction) Add(o Fraction) Fraction {
	if !f.Valid() || !o.Valid() {
		return invalidFraction
	}
	return reduce(int64(f.Num)*int64(o.Den)+int64(o.Num)*int64(f.Den), int64(f.Den)*int64(o.Den))
}

func (f Fraction) Sub(o Fraction) Fraction {
	if !o.Valid() {
		return invalidFraction
	}
	return f.Add(Fraction{Num: -o.Num, Den: o.Den}.normalize())
}

func (f Fraction) AddInt(v int32) Fraction {
	return f.Add(Fraction{Num: v, Den: 1})
}

func (f Fraction) SubInt(v int32) Fraction {
	return f.Add(Fraction{Num: -v, Den: 1})
}

func (f Fraction) DivInt(v int32) Fraction {
	if !f.Valid() || v == 0 {
		return invalidFraction
	}
	return reduce(int64(f.Num), int64(f.Den)*int64(v))
}

// RoundDown is the floor of the rational.
func (f Fraction) RoundDown() int32 {
	if !f.Valid() {
		return 0
	}
	q := f.Num / f.Den
	if f.Num%f.Den != 0 && f.Num < 0 {
		q--
	}
	return q
}

// RoundUp is the ceiling of the rational.
func (f Fraction) RoundUp() int32 {
	if !f.Valid() {
		return 0
	}
	q := f.Num / f.Den
	if f.Num%f.Den != 0 && f.Num > 0 {
		q++
	}
	return q
}

// Round rounds half away from zero.
func (f Fraction) Round() int32 {
	if !f.Valid() {
		return 0
	}
	num := int64(f.Num) * 2
	den := int64(f.Den) * 2
	if num >= 0 {
		num += int64(f.Den)
	} else {
		num -= int64(f.Den)
	}
	return int32(num / den)
}

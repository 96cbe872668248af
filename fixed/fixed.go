package fixed

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
)

// Scale is the number of decimal fraction digits carried by every
// FixedPoint128. It is fixed for the whole protocol and must never vary
// between nodes.
const Scale = 18

var (
	ErrDivisionByZero = errors.New("division by zero")
	ErrDomain         = errors.New("domain error")
	ErrOverflow       = errors.New("fixed-point overflow")
	ErrUnderflow      = errors.New("fixed-point underflow")
	ErrParse          = errors.New("malformed fixed-point literal")
)

var (
	scaleFactor = new(big.Int).Exp(big.NewInt(10), big.NewInt(Scale), nil)
	maxMantissa = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 127), big.NewInt(1))
	minMantissa = new(big.Int).Neg(maxMantissa)
)

// FixedPoint128 is a signed decimal with Scale fraction digits and a
// mantissa bounded to 128 bits. The zero value is 0. Values are immutable;
// every operation returns a fresh value and fails with a sentinel error
// instead of wrapping.
type FixedPoint128 struct {
	m *big.Int
}

func New(mantissa *big.Int) (FixedPoint128, error) {
	v := FixedPoint128{m: new(big.Int).Set(mantissa)}
	if err := v.checkRange(); err != nil {
		return FixedPoint128{}, err
	}
	return v, nil
}

func FromInt64(i int64) FixedPoint128 {
	return FixedPoint128{m: new(big.Int).Mul(big.NewInt(i), scaleFactor)}
}

func FromUint64(u uint64) FixedPoint128 {
	m := new(big.Int).SetUint64(u)
	return FixedPoint128{m: m.Mul(m, scaleFactor)}
}

func Zero() FixedPoint128 { return FixedPoint128{} }

func One() FixedPoint128 { return FromInt64(1) }

func (v FixedPoint128) mant() *big.Int {
	if v.m == nil {
		return new(big.Int)
	}
	return v.m
}

func (v FixedPoint128) checkRange() error {
	m := v.mant()
	if m.Cmp(maxMantissa) > 0 {
		return ErrOverflow
	}
	if m.Cmp(minMantissa) < 0 {
		return ErrUnderflow
	}
	return nil
}

func (v FixedPoint128) Sign() int { return v.mant().Sign() }

func (v FixedPoint128) IsZero() bool { return v.mant().Sign() == 0 }

func (v FixedPoint128) Cmp(o FixedPoint128) int { return v.mant().Cmp(o.mant()) }

func (v FixedPoint128) Equal(o FixedPoint128) bool { return v.Cmp(o) == 0 }

// Mantissa returns a copy of the raw scaled integer.
func (v FixedPoint128) Mantissa() *big.Int { return new(big.Int).Set(v.mant()) }

func (v FixedPoint128) Neg() FixedPoint128 {
	return FixedPoint128{m: new(big.Int).Neg(v.mant())}
}

func (v FixedPoint128) Add(o FixedPoint128) (FixedPoint128, error) {
	r := FixedPoint128{m: new(big.Int).Add(v.mant(), o.mant())}
	if err := r.checkRange(); err != nil {
		return FixedPoint128{}, err
	}
	return r, nil
}

func (v FixedPoint128) Sub(o FixedPoint128) (FixedPoint128, error) {
	r := FixedPoint128{m: new(big.Int).Sub(v.mant(), o.mant())}
	if err := r.checkRange(); err != nil {
		return FixedPoint128{}, err
	}
	return r, nil
}

func (v FixedPoint128) Mul(o FixedPoint128) (FixedPoint128, error) {
	p := new(big.Int).Mul(v.mant(), o.mant())
	r := FixedPoint128{m: roundDiv(p, scaleFactor)}
	if err := r.checkRange(); err != nil {
		return FixedPoint128{}, err
	}
	return r, nil
}

func (v FixedPoint128) Div(o FixedPoint128) (FixedPoint128, error) {
	if o.IsZero() {
		return FixedPoint128{}, ErrDivisionByZero
	}
	num := new(big.Int).Mul(v.mant(), scaleFactor)
	r := FixedPoint128{m: roundDiv(num, o.mant())}
	if err := r.checkRange(); err != nil {
		return FixedPoint128{}, err
	}
	return r, nil
}

// Sqrt computes the square root rounded to the nearest representable
// value. A tie cannot occur: the midpoint test compares an even quantity
// against an odd one.
func (v FixedPoint128) Sqrt() (FixedPoint128, error) {
	if v.Sign() < 0 {
		return FixedPoint128{}, ErrDomain
	}
	t := new(big.Int).Mul(v.mant(), scaleFactor)
	q := new(big.Int).Sqrt(t)
	// round up when t - q^2 > ((q+1)^2 - t) <=> 2*(t-q^2) > 2q+1
	d := new(big.Int).Sub(t, new(big.Int).Mul(q, q))
	d.Lsh(d, 1)
	bound := new(big.Int).Lsh(q, 1)
	bound.Add(bound, big.NewInt(1))
	if d.Cmp(bound) > 0 {
		q.Add(q, big.NewInt(1))
	}
	r := FixedPoint128{m: q}
	if err := r.checkRange(); err != nil {
		return FixedPoint128{}, err
	}
	return r, nil
}

// Pow raises v to a non-negative integer exponent by repeated squaring,
// rounding at every multiplication. Pow(v, 0) is 1 for every v.
func (v FixedPoint128) Pow(n uint64) (FixedPoint128, error) {
	acc := One()
	base := v
	var err error
	for n > 0 {
		if n&1 == 1 {
			acc, err = acc.Mul(base)
			if err != nil {
				return FixedPoint128{}, err
			}
		}
		n >>= 1
		if n == 0 {
			break
		}
		base, err = base.Mul(base)
		if err != nil {
			return FixedPoint128{}, err
		}
	}
	return acc, nil
}

// EvalSeries evaluates sum(coeffs[i] * x^i) by Horner's scheme. The
// coefficient slice bounds the degree; amortization-like curves are
// expressed as truncated series through this entry point.
func EvalSeries(x FixedPoint128, coeffs []FixedPoint128) (FixedPoint128, error) {
	if len(coeffs) == 0 {
		return Zero(), nil
	}
	acc := coeffs[len(coeffs)-1]
	for i := len(coeffs) - 2; i >= 0; i-- {
		p, err := acc.Mul(x)
		if err != nil {
			return FixedPoint128{}, err
		}
		acc, err = p.Add(coeffs[i])
		if err != nil {
			return FixedPoint128{}, err
		}
	}
	return acc, nil
}

// Ratio returns num/den where num and den are exact integers. Division
// happens last so no intermediate precision is dropped below Scale.
func Ratio(num, den uint64) (FixedPoint128, error) {
	if den == 0 {
		return FixedPoint128{}, ErrDivisionByZero
	}
	n := new(big.Int).SetUint64(num)
	n.Mul(n, scaleFactor)
	r := FixedPoint128{m: roundDiv(n, new(big.Int).SetUint64(den))}
	if err := r.checkRange(); err != nil {
		return FixedPoint128{}, err
	}
	return r, nil
}

// roundDiv divides num by den rounding half to even on the magnitude.
// den must be non-zero.
func roundDiv(num, den *big.Int) *big.Int {
	neg := (num.Sign() < 0) != (den.Sign() < 0)
	a := new(big.Int).Abs(num)
	d := new(big.Int).Abs(den)
	q, r := new(big.Int), new(big.Int)
	q.QuoRem(a, d, r)
	r.Lsh(r, 1)
	switch r.Cmp(d) {
	case 1:
		q.Add(q, big.NewInt(1))
	case 0:
		if q.Bit(0) == 1 {
			q.Add(q, big.NewInt(1))
		}
	}
	if neg {
		q.Neg(q)
	}
	return q
}

// String renders the canonical text form: optional sign, integer digits,
// a dot, and exactly Scale fraction digits. This is the only numeric
// rendering that may enter a canonical encoding.
func (v FixedPoint128) String() string {
	m := v.mant()
	sign := ""
	abs := new(big.Int).Abs(m)
	if m.Sign() < 0 {
		sign = "-"
	}
	ip, fp := new(big.Int).QuoRem(abs, scaleFactor, new(big.Int))
	return fmt.Sprintf("%s%s.%018s", sign, ip.String(), fp.String())
}

func (v FixedPoint128) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

func (v *FixedPoint128) UnmarshalText(dat []byte) error {
	p, err := Parse(string(dat))
	if err != nil {
		return err
	}
	v.m = p.m
	return nil
}

// Parse reads a decimal literal with at most Scale fraction digits.
func Parse(s string) (FixedPoint128, error) {
	if s == "" {
		return FixedPoint128{}, ErrParse
	}
	neg := false
	switch s[0] {
	case '-':
		neg = true
		s = s[1:]
	case '+':
		s = s[1:]
	}
	ip := s
	fp := ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		ip, fp = s[:i], s[i+1:]
		if fp == "" {
			return FixedPoint128{}, ErrParse
		}
	}
	if ip == "" || len(fp) > Scale {
		return FixedPoint128{}, ErrParse
	}
	for _, c := range ip + fp {
		if c < '0' || c > '9' {
			return FixedPoint128{}, ErrParse
		}
	}
	m, ok := new(big.Int).SetString(ip, 10)
	if !ok {
		return FixedPoint128{}, ErrParse
	}
	m.Mul(m, scaleFactor)
	if fp != "" {
		f, ok := new(big.Int).SetString(fp, 10)
		if !ok {
			return FixedPoint128{}, ErrParse
		}
		f.Mul(f, new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(Scale-len(fp))), nil))
		m.Add(m, f)
	}
	if neg {
		m.Neg(m)
	}
	v := FixedPoint128{m: m}
	if err := v.checkRange(); err != nil {
		return FixedPoint128{}, err
	}
	return v, nil
}

func MustParse(s string) FixedPoint128 {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

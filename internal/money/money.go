package money

import (
	"math"
	"math/big"
	"sync"

	"BankLedger/internal/fault"
)

// All amounts are integers in the smallest value unit. Intermediate products
// are computed in big.Int (int128 discipline) so principal*rate*elapsed can
// never silently wrap before the final range check.

const (
	// BpsScale is the basis-point denominator: 10_000 bps == 100%.
	BpsScale = 10_000

	// YearSeconds is the accrual year: 365 days, no leap handling.
	YearSeconds = 365 * 86_400
)

var bigIntPool = &sync.Pool{
	New: func() interface{} {
		return new(big.Int)
	},
}

func getBig() *big.Int {
	return bigIntPool.Get().(*big.Int)
}

func putBig(v *big.Int) {
	v.SetInt64(0)
	bigIntPool.Put(v)
}

// CheckedAdd returns a+b or an overflow fault.
func CheckedAdd(a, b int64) (int64, error) {
	if b > 0 && a > math.MaxInt64-b {
		return 0, fault.New(fault.KindOverflow, "", "add overflow: %d + %d", a, b)
	}
	if b < 0 && a < math.MinInt64-b {
		return 0, fault.New(fault.KindOverflow, "", "add overflow: %d + %d", a, b)
	}
	return a + b, nil
}

// CheckedSub returns a-b or an overflow fault.
func CheckedSub(a, b int64) (int64, error) {
	if b == math.MinInt64 {
		return 0, fault.New(fault.KindOverflow, "", "sub overflow: %d - %d", a, b)
	}
	return CheckedAdd(a, -b)
}

// MulDiv computes a*b/denom with truncation toward zero, overflow-checked.
func MulDiv(a, b, denom int64) (int64, error) {
	if denom == 0 {
		return 0, fault.New(fault.KindValidation, "", "zero denominator")
	}

	num := getBig()
	defer putBig(num)
	tmp := getBig()
	defer putBig(tmp)

	num.Mul(big.NewInt(a), big.NewInt(b))
	num.Quo(num, tmp.SetInt64(denom))

	if !num.IsInt64() {
		return 0, fault.New(fault.KindOverflow, "", "muldiv overflow: %d * %d / %d", a, b, denom)
	}
	return num.Int64(), nil
}

// Accrue converts principal, an annual rate in basis points, and elapsed
// seconds into simple interest prorated over a 365-day year. The result is
// floor-truncated to the smallest unit, so repeated accrual over sub-intervals
// never exceeds one accrual over the whole interval. Negative elapsed time
// accrues nothing.
func Accrue(principal, annualRateBps, elapsedSeconds int64) (int64, error) {
	if principal < 0 {
		return 0, fault.New(fault.KindValidation, "accrue", "negative principal: %d", principal)
	}
	if annualRateBps < 0 {
		return 0, fault.New(fault.KindValidation, "accrue", "negative rate: %d bps", annualRateBps)
	}
	if elapsedSeconds <= 0 || principal == 0 || annualRateBps == 0 {
		return 0, nil
	}

	// interest = principal * rateBps * elapsed / (BpsScale * YearSeconds)
	num := getBig()
	defer putBig(num)
	tmp := getBig()
	defer putBig(tmp)

	num.Mul(big.NewInt(principal), big.NewInt(annualRateBps))
	num.Mul(num, tmp.SetInt64(elapsedSeconds))
	num.Quo(num, tmp.SetInt64(BpsScale*int64(YearSeconds)))

	if !num.IsInt64() {
		return 0, fault.New(fault.KindOverflow, "accrue",
			"interest exceeds representable range: principal=%d rate=%d elapsed=%d",
			principal, annualRateBps, elapsedSeconds)
	}
	return num.Int64(), nil
}

// CollateralRequired returns the minimum collateral for a loan amount at the
// given percentage, rounded up so rounding can never under-collateralize.
func CollateralRequired(amount, percent int64) (int64, error) {
	if percent <= 0 || percent > 100 {
		return 0, fault.New(fault.KindValidation, "collateral", "percent out of range: %d", percent)
	}

	num := getBig()
	defer putBig(num)
	tmp := getBig()
	defer putBig(tmp)

	num.Mul(big.NewInt(amount), big.NewInt(percent))
	num.Add(num, tmp.SetInt64(99))
	num.Quo(num, tmp.SetInt64(100))

	if !num.IsInt64() {
		return 0, fault.New(fault.KindOverflow, "collateral", "collateral overflow: %d * %d%%", amount, percent)
	}
	return num.Int64(), nil
}

package timex

import (
	"time"

	"mycobrain-go/x/mathx"
)

// NowMs returns Unix milliseconds as int64.
func NowMs() int64 { return time.Now().UnixMilli() }

// SymbolPeriodMs returns the millisecond symbol period for a requested
// symbol rate. rateHz==0 is coerced to 1 to avoid division by zero.
func SymbolPeriodMs(rateHz uint32) uint32 {
	if rateHz == 0 {
		rateHz = 1
	}
	p := mathx.RoundDiv(uint32(1000), rateHz)
	if p == 0 {
		p = 1
	}
	return p
}

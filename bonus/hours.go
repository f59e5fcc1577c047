package bonus

import (
	"github.com/shopspring/decimal"
	"github.com/warp/bizops-engine/generic"
	"github.com/warp/bizops-engine/normalize"
)

// Hours is one employee's billable and pro-bono time.
type Hours struct {
	Billable decimal.Decimal
	ProBono  decimal.Decimal
}

// Eligible returns billable hours plus pro-bono hours capped at ProBonoCap.
func (h Hours) Eligible() decimal.Decimal {
	return h.Billable.Add(generic.MinDecimal(h.ProBono, ProBonoCap))
}

// Project scales year-to-date hours to a full year. elapsed and daysInYear
// are day counts; elapsed must be positive.
func (h Hours) Project(elapsed, daysInYear int) Hours {
	if elapsed <= 0 {
		return Hours{Billable: decimal.Zero, ProBono: decimal.Zero}
	}
	days := decimal.NewFromInt(int64(daysInYear))
	el := decimal.NewFromInt(int64(elapsed))
	return Hours{
		Billable: h.Billable.Mul(days).Div(el),
		ProBono:  h.ProBono.Mul(days).Div(el),
	}
}

// TallyHours sums billable and pro-bono hours per staff name for entries
// dated within period. Leave and non-billable time is ignored, and so are
// entries with no date.
func TallyHours(entries []normalize.TimeEntry, period generic.Period) map[string]Hours {
	out := make(map[string]Hours)
	for _, e := range entries {
		if e.StaffName == "" || !period.Contains(e.Date) {
			continue
		}
		h, ok := out[e.StaffName]
		if !ok {
			h = Hours{Billable: decimal.Zero, ProBono: decimal.Zero}
		}
		switch e.Class {
		case normalize.ClassBillable:
			h.Billable = h.Billable.Add(e.Hours)
		case normalize.ClassProBono:
			h.ProBono = h.ProBono.Add(e.Hours)
		default:
			continue
		}
		out[e.StaffName] = h
	}
	return out
}

package dues

// Rollup adds up team statuses into one city-wide status. Percentages are
// recomputed from the totals, never averaged.
func Rollup(statuses ...TeamStatus) TeamStatus {
	var out TeamStatus
	for _, st := range statuses {
		out.Expected = out.Expected.Add(st.Expected)
		out.PaidTotal = out.PaidTotal.Add(st.PaidTotal)
		out.PaidCount += st.PaidCount
		out.ActiveCount += st.ActiveCount
	}
	out.HeadcountPercent = percent(int64(out.PaidCount), int64(out.ActiveCount))
	out.CurrencyPercent = percent(out.PaidTotal.Cents, out.Expected.Cents)
	return out
}

// Package dues computes monthly dues owed by members.
//
// Every function here is a pure computation over the snapshot it is given:
// nothing is cached between calls and the inputs are never modified, so the
// functions are safe to call concurrently.
//
// Couples share one due. Two members form a couple when both pay monthly, are
// active, share a non-empty family name and their family group holds exactly
// one Titular and one Spouse. The partners split the flat amount, the titular
// taking the odd cent.
package dues

import (
	"errors"
	"fmt"

	"tesouraria/internal/core"
)

// ErrInvalidConfig is returned when the flat monthly amount is negative.
var ErrInvalidConfig = errors.New("invalid dues configuration")

// TeamStatus summarizes collection of one reference month for a set of members.
//
// HeadcountPercent is the share of active members with at least one payment;
// CurrencyPercent is the share of the expected amount actually collected.
// They differ whenever payment amounts differ from the expected ones.
type TeamStatus struct {
	Expected         core.Money `json:"expected"`
	PaidTotal        core.Money `json:"paid_total"`
	PaidCount        int        `json:"paid_count"`
	ActiveCount      int        `json:"active_count"`
	HeadcountPercent float64    `json:"headcount_percent"`
	CurrencyPercent  float64    `json:"currency_percent"`
}

// MemberDue is one row of a payment ledger: what a member owes for the month
// and what was recorded.
type MemberDue struct {
	MemberID  string     `json:"member_id"`
	Name      string     `json:"name"`
	PartnerID string     `json:"partner_id,omitempty"`
	Expected  core.Money `json:"expected"`
	Paid      core.Money `json:"paid"`
	IsPaid    bool       `json:"is_paid"`
	Exempt    bool       `json:"exempt"`
}

func checkFlat(flat core.Money) error {
	if flat.IsNegative() {
		return fmt.Errorf("%w: flat amount %s is negative", ErrInvalidConfig, flat.Decimal())
	}
	return nil
}

// ExpectedAmount returns the total dues owed by members for one month.
//
// Members who do not pay monthly or are not active contribute nothing and
// are removed before couples are matched. A couple owes one flat amount
// between them, so the total is exact even when flat has an odd number of cents.
func ExpectedAmount(members []core.Member, flat core.Money) (core.Money, error) {
	if err := checkFlat(flat); err != nil {
		return core.Money{}, err
	}
	paying := payingSet(members)
	partner := couples(paying)
	units := int64(len(paying) - len(partner)/2)
	return flat.Mul(units), nil
}

// ExpectedAmountForMember returns what member owes when evaluated inside
// scope: zero when exempt, its share of the flat amount when part of a
// couple, the full flat amount otherwise. member need not be present in
// scope. Partners split an odd cent with the titular taking it.
func ExpectedAmountForMember(member core.Member, scope []core.Member, flat core.Money) (core.Money, error) {
	if err := checkFlat(flat); err != nil {
		return core.Money{}, err
	}
	if !eligible(member) {
		return core.Money{}, nil
	}

	paying := payingSet(scope)
	idx := -1
	for i, m := range paying {
		if sameMember(m, member) {
			idx = i
			break
		}
	}
	if idx < 0 {
		paying = append(paying, member)
		idx = len(paying) - 1
	} else {
		paying[idx] = member
	}

	if _, paired := couples(paying)[idx]; paired {
		return share(member, flat), nil
	}
	return flat, nil
}

// IsPaidForMonth reports whether any payment matches memberID and the
// reference month key exactly. Keys are compared as strings: "3/2026" and
// "03/2026" are different months here.
func IsPaidForMonth(memberID, referenceMonth string, payments []core.Payment) bool {
	for _, p := range payments {
		if p.MemberID == memberID && p.ReferenceMonth == referenceMonth {
			return true
		}
	}
	return false
}

// AggregateTeamStatus compares what the active members of a team owe for
// referenceMonth with the payments recorded for them.
func AggregateTeamStatus(members []core.Member, payments []core.Payment, referenceMonth string, flat core.Money) (TeamStatus, error) {
	if err := checkFlat(flat); err != nil {
		return TeamStatus{}, err
	}

	active := make([]core.Member, 0, len(members))
	activeIDs := make(map[string]struct{}, len(members))
	for _, m := range dedupe(members) {
		if m.Status != core.StatusActive {
			continue
		}
		active = append(active, m)
		activeIDs[m.ID] = struct{}{}
	}

	expected, err := ExpectedAmount(active, flat)
	if err != nil {
		return TeamStatus{}, err
	}

	var paidTotal core.Money
	paid := make(map[string]struct{})
	for _, p := range payments {
		if p.ReferenceMonth != referenceMonth {
			continue
		}
		if _, ok := activeIDs[p.MemberID]; !ok {
			continue
		}
		paidTotal = paidTotal.Add(p.Amount)
		paid[p.MemberID] = struct{}{}
	}

	st := TeamStatus{
		Expected:    expected,
		PaidTotal:   paidTotal,
		PaidCount:   len(paid),
		ActiveCount: len(active),
	}
	st.HeadcountPercent = percent(int64(st.PaidCount), int64(st.ActiveCount))
	st.CurrencyPercent = percent(st.PaidTotal.Cents, st.Expected.Cents)
	return st, nil
}

// Breakdown lists, for every member in scope, the expected due for
// referenceMonth next to what was paid. Rows keep the input order.
func Breakdown(members []core.Member, payments []core.Payment, referenceMonth string, flat core.Money) ([]MemberDue, error) {
	if err := checkFlat(flat); err != nil {
		return nil, err
	}

	all := dedupe(members)
	var paying []core.Member
	var rowOf []int
	for i, m := range all {
		if eligible(m) {
			paying = append(paying, m)
			rowOf = append(rowOf, i)
		}
	}
	partnerOf := make(map[int]int)
	for i, j := range couples(paying) {
		partnerOf[rowOf[i]] = rowOf[j]
	}

	paidBy := make(map[string]core.Money)
	for _, p := range payments {
		if p.ReferenceMonth == referenceMonth {
			paidBy[p.MemberID] = paidBy[p.MemberID].Add(p.Amount)
		}
	}

	rows := make([]MemberDue, 0, len(all))
	for i, m := range all {
		row := MemberDue{
			MemberID: m.ID,
			Name:     m.Name,
			Paid:     paidBy[m.ID],
			IsPaid:   IsPaidForMonth(m.ID, referenceMonth, payments),
			Exempt:   !m.PaysMonthly,
		}
		if eligible(m) {
			if j, ok := partnerOf[i]; ok {
				row.PartnerID = all[j].ID
				row.Expected = share(m, flat)
			} else {
				row.Expected = flat
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func percent(part, whole int64) float64 {
	if whole <= 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}

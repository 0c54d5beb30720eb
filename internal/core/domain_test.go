package core

import (
	"testing"
	"time"
)

func TestMemberValidate(t *testing.T) {
	good := Member{Name: "Ana Silva", Status: StatusActive, Relationship: RelTitular, CPF: "529.982.247-25"}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Member{
		{Name: "", Status: StatusActive},
		{Name: "a", Status: "ghost"},
		{Name: "a", Status: StatusActive, Relationship: "cousin"},
		{Name: "a", Status: StatusActive, CPF: "123.456.789-00"},
		{Name: "a", Status: StatusActive, BirthDate: Date{Time: time.Now().AddDate(1, 0, 0)}},
	}
	for i, m := range bads {
		if err := m.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestParseMemberStatusAndRelationship(t *testing.T) {
	st, err := ParseMemberStatus(" Ativo ")
	if err != nil || st != StatusActive {
		t.Fatalf("expected active, got %q (err=%v)", st, err)
	}
	if st, _ := ParseMemberStatus(""); st != StatusPending {
		t.Fatalf("empty status should default to pending, got %q", st)
	}
	if _, err := ParseMemberStatus("banned"); err == nil {
		t.Fatalf("expected error for unknown status")
	}

	rel, err := ParseRelationship("Cônjuge")
	if err != nil || rel != RelSpouse {
		t.Fatalf("expected spouse, got %q (err=%v)", rel, err)
	}
	if rel, err := ParseRelationship(""); err != nil || rel != "" {
		t.Fatalf("empty relationship should be allowed, got %q (err=%v)", rel, err)
	}
}

func TestPaymentValidate(t *testing.T) {
	good := Payment{MemberID: "m1", Amount: Money{Cents: 5000}, ReferenceMonth: "3/2026", Status: PaymentPaid}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	exempt := Payment{MemberID: "m1", ReferenceMonth: "3/2026", Status: PaymentExempt}
	if err := exempt.Validate(); err != nil {
		t.Fatalf("exempt payment with zero amount should be ok, got %v", err)
	}

	bads := []Payment{
		{MemberID: "", Amount: Money{Cents: 1}, ReferenceMonth: "3/2026", Status: PaymentPaid},
		{MemberID: "m1", Amount: Money{Cents: 0}, ReferenceMonth: "3/2026", Status: PaymentPaid},
		{MemberID: "m1", Amount: Money{Cents: 1}, ReferenceMonth: "13/2026", Status: PaymentPaid},
		{MemberID: "m1", Amount: Money{Cents: 1}, ReferenceMonth: "3/2026", Status: "refunded"},
	}
	for i, p := range bads {
		if err := p.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestLedgerEntrySigned(t *testing.T) {
	in := LedgerEntry{Kind: EntryCredit, Amount: Money{Cents: 100}}
	out := LedgerEntry{Kind: EntryDebit, Amount: Money{Cents: 40}}
	if got := in.Signed().Add(out.Signed()); got.Cents != 60 {
		t.Fatalf("expected 60, got %d", got.Cents)
	}
}

func TestMonthRef(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"3/2026", "3/2026", true},
		{"03/2026", "3/2026", true},
		{"12/2025", "12/2025", true},
		{"0/2026", "", false},
		{"3-2026", "", false},
		{"3/26", "", false},
		{"+3/2026", "", false},
		{"-3/2026", "", false},
		{" 3/2026", "3/2026", true},
		{"3/+202", "", false},
		{"3 /2026", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := NormalizeMonthKey(tc.in)
		if tc.ok && (err != nil || got != tc.want) {
			t.Fatalf("%q expected %q, got %q (err=%v)", tc.in, tc.want, got, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}

	dec := MonthRef{Year: 2025, Month: 12}
	if next := dec.Next(); next.Key() != "1/2026" {
		t.Fatalf("expected 1/2026, got %s", next.Key())
	}
}

func TestValidateCPF(t *testing.T) {
	valid := []string{"529.982.247-25", "11144477735", "111.444.777-35"}
	for _, s := range valid {
		if err := ValidateCPF(s); err != nil {
			t.Fatalf("%q expected valid, got %v", s, err)
		}
	}
	invalid := []string{"", "123", "111.111.111-11", "529.982.247-26", "52998224752"}
	for _, s := range invalid {
		if err := ValidateCPF(s); err == nil {
			t.Fatalf("%q expected invalid", s)
		}
	}
	if got := FormatCPF("52998224725"); got != "529.982.247-25" {
		t.Fatalf("unexpected format %q", got)
	}
}

func TestComputeMemberStats(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	members := []Member{
		{ID: "1", Name: "Bia", Status: StatusActive, BirthDate: NewDate(2010, 3, 20)},  // 15, birthday this month
		{ID: "2", Name: "Caio", Status: StatusActive, BirthDate: NewDate(1996, 3, 10)}, // 30 today
		{ID: "3", Name: "Davi", Status: StatusInactive, BirthDate: NewDate(1960, 1, 1)},
		{ID: "4", Name: "Eva", Status: StatusPending},
		{ID: "5", Name: "Fia", Status: StatusPending, BirthDate: NewDate(2027, 3, 1)},
	}

	stats := ComputeMemberStats(members, now)
	if stats.Total != 5 || stats.ByStatus[StatusActive] != 2 || stats.ByStatus[StatusInactive] != 1 {
		t.Fatalf("unexpected counts %+v", stats)
	}

	counts := map[string]int{}
	bucketed := 0
	for _, b := range stats.AgeBuckets {
		counts[b.Label] = b.Count
		bucketed += b.Count
	}
	if bucketed != stats.Total {
		t.Fatalf("buckets hold %d members, want %d", bucketed, stats.Total)
	}
	if counts["0-17"] != 1 || counts["30-44"] != 1 || counts["60+"] != 1 || counts["unknown"] != 2 {
		t.Fatalf("unexpected buckets %+v", stats.AgeBuckets)
	}

	if len(stats.Birthdays) != 2 || stats.Birthdays[0].Name != "Caio" || stats.Birthdays[1].Age != 16 {
		t.Fatalf("unexpected birthdays %+v", stats.Birthdays)
	}
}

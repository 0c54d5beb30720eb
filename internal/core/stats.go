package core

import (
	"sort"
	"time"
)

// DefaultAgeBuckets are the ranges shown on the members dashboard.
func DefaultAgeBuckets() []AgeBucket {
	return []AgeBucket{
		{Label: "0-17", Min: 0, Max: 17},
		{Label: "18-29", Min: 18, Max: 29},
		{Label: "30-44", Min: 30, Max: 44},
		{Label: "45-59", Min: 45, Max: 59},
		{Label: "60+", Min: 60, Max: -1},
	}
}

// AgeAt returns the age in whole years of someone born on birth at time now.
func AgeAt(birth Date, now time.Time) int {
	age := now.Year() - birth.Year()
	if now.Month() < birth.Month() || (now.Month() == birth.Month() && now.Day() < birth.Day()) {
		age--
	}
	return age
}

// ComputeMemberStats counts members by status, age bucket and the
// birthdays falling in now's month. Members without a birth date, or born
// after now, are counted in an "unknown" bucket.
func ComputeMemberStats(members []Member, now time.Time) MemberStats {
	stats := MemberStats{
		Total:      len(members),
		ByStatus:   make(map[MemberStatus]int),
		AgeBuckets: DefaultAgeBuckets(),
		Birthdays:  []Birthday{},
	}
	unknown := AgeBucket{Label: "unknown", Min: -1, Max: -1}

	for _, m := range members {
		stats.ByStatus[m.Status]++

		if m.BirthDate.IsZero() {
			unknown.Count++
			continue
		}
		age := AgeAt(m.BirthDate, now)
		if age < 0 {
			unknown.Count++
			continue
		}
		for i := range stats.AgeBuckets {
			b := &stats.AgeBuckets[i]
			if age >= b.Min && (b.Max < 0 || age <= b.Max) {
				b.Count++
				break
			}
		}

		if m.BirthDate.Month() == now.Month() {
			stats.Birthdays = append(stats.Birthdays, Birthday{
				MemberID: m.ID,
				Name:     m.Name,
				Day:      m.BirthDate.Day(),
				Age:      now.Year() - m.BirthDate.Year(),
			})
		}
	}

	if unknown.Count > 0 {
		stats.AgeBuckets = append(stats.AgeBuckets, unknown)
	}
	sort.SliceStable(stats.Birthdays, func(i, j int) bool {
		if stats.Birthdays[i].Day != stats.Birthdays[j].Day {
			return stats.Birthdays[i].Day < stats.Birthdays[j].Day
		}
		return stats.Birthdays[i].Name < stats.Birthdays[j].Name
	})
	return stats
}

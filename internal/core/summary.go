package core

// AgeBucket counts members whose age falls in [Min, Max]. Max < 0 means open-ended.
type AgeBucket struct {
	Label string `json:"label"`
	Min   int    `json:"min"`
	Max   int    `json:"max"`
	Count int    `json:"count"`
}

// Birthday is a member whose birthday falls in the month being summarized.
type Birthday struct {
	MemberID string `json:"member_id"`
	Name     string `json:"name"`
	Day      int    `json:"day"`
	Age      int    `json:"age"`
}

// MemberStats is a compact summary of a member population.
type MemberStats struct {
	Total      int                  `json:"total"`
	ByStatus   map[MemberStatus]int `json:"by_status"`
	AgeBuckets []AgeBucket          `json:"age_buckets"`
	Birthdays  []Birthday           `json:"birthdays"`
}

// CashBook is the ledger of a city for a date range.
type CashBook struct {
	CityID         string        `json:"city_id"`
	From           Date          `json:"from"`
	To             Date          `json:"to"`
	OpeningBalance Money         `json:"opening_balance"`
	TotalIn        Money         `json:"total_in"`
	TotalOut       Money         `json:"total_out"`
	ClosingBalance Money         `json:"closing_balance"`
	Entries        []LedgerEntry `json:"entries"`
}

// TeamSales is the ticket tally of one team for an event.
type TeamSales struct {
	TeamID  string `json:"team_id"`
	Tickets int    `json:"tickets"`
	Revenue Money  `json:"revenue"`
}

// SalesSummary compares an event's ticket sales with its goal.
type SalesSummary struct {
	Event       Event       `json:"event"`
	Tickets     int         `json:"tickets"`
	Revenue     Money       `json:"revenue"`
	GoalPercent float64     `json:"goal_percent"`
	ByTeam      []TeamSales `json:"by_team"`
}

package core

import (
	"errors"
	"strings"
	"time"
)

const (
	StatusActive   MemberStatus = "active"
	StatusInactive MemberStatus = "inactive"
	StatusPending  MemberStatus = "pending"
	StatusInvited  MemberStatus = "invited"
	StatusAwaiting MemberStatus = "awaiting"
)

const (
	RelTitular Relationship = "titular"
	RelSpouse  Relationship = "spouse"
	RelChild   Relationship = "child"
	RelParent  Relationship = "parent"
	RelOther   Relationship = "other"
)

const (
	PaymentPaid    PaymentStatus = "paid"
	PaymentPending PaymentStatus = "pending"
	PaymentExempt  PaymentStatus = "exempt"
)

const (
	EntryCredit EntryKind = "credit"
	EntryDebit  EntryKind = "debit"
)

const dateLayout = "2006-01-02"

type (
	MemberStatus  string
	Relationship  string
	PaymentStatus string
	EntryKind     string

	Date struct {
		time.Time
	}

	City struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		State string `json:"state"`
	}

	Team struct {
		ID     string `json:"id"`
		CityID string `json:"city_id"`
		Name   string `json:"name"`
	}

	Member struct {
		ID           string       `json:"id"`
		Name         string       `json:"name"`
		FamilyName   string       `json:"family_name,omitempty"`
		Relationship Relationship `json:"relationship,omitempty"`
		TeamID       string       `json:"team_id,omitempty"`
		CityID       string       `json:"city_id,omitempty"`
		Status       MemberStatus `json:"status"`
		PaysMonthly  bool         `json:"pays_monthly"`
		CPF          string       `json:"cpf,omitempty"`
		Email        string       `json:"email,omitempty"`
		Phone        string       `json:"phone,omitempty"`
		BirthDate    Date         `json:"birth_date"`
		CEP          string       `json:"cep,omitempty"`
		Address      string       `json:"address,omitempty"`
	}

	Payment struct {
		ID             string        `json:"id"`
		MemberID       string        `json:"member_id"`
		TeamID         string        `json:"team_id,omitempty"`
		Amount         Money         `json:"amount"`
		Date           Date          `json:"date"`
		ReferenceMonth string        `json:"reference_month"`
		Status         PaymentStatus `json:"status"`
		LaunchedBy     string        `json:"launched_by,omitempty"`
	}

	// LedgerEntry is one line of a city's cash book.
	LedgerEntry struct {
		ID          string    `json:"id"`
		CityID      string    `json:"city_id"`
		Date        Date      `json:"date"`
		Kind        EntryKind `json:"kind"`
		Description string    `json:"description"`
		Category    string    `json:"category,omitempty"`
		Amount      Money     `json:"amount"`
		PaymentID   string    `json:"payment_id,omitempty"`
	}

	Event struct {
		ID          string `json:"id"`
		CityID      string `json:"city_id"`
		Name        string `json:"name"`
		Date        Date   `json:"date"`
		TicketPrice Money  `json:"ticket_price"`
		TicketGoal  int    `json:"ticket_goal"`
	}

	EventSale struct {
		ID       string `json:"id"`
		EventID  string `json:"event_id"`
		TeamID   string `json:"team_id,omitempty"`
		MemberID string `json:"member_id,omitempty"`
		Buyer    string `json:"buyer,omitempty"`
		Quantity int    `json:"quantity"`
		Amount   Money  `json:"amount"`
		Date     Date   `json:"date"`
	}
)

var (
	ErrInvalidDay          = errors.New("invalid day")
	ErrInvalidMonth        = errors.New("invalid month")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrEmptyName           = errors.New("empty name")
	ErrEmptyDescription    = errors.New("empty description")
	ErrInvalidStatus       = errors.New("invalid status")
	ErrInvalidRelationship = errors.New("invalid relationship")
	ErrInvalidEntryKind    = errors.New("invalid entry kind")
	ErrMissingReference    = errors.New("missing reference")
	ErrInvalidQuantity     = errors.New("invalid quantity")
)

var statusAliases = map[string]MemberStatus{
	"active":     StatusActive,
	"ativo":      StatusActive,
	"inactive":   StatusInactive,
	"inativo":    StatusInactive,
	"pending":    StatusPending,
	"pendente":   StatusPending,
	"invited":    StatusInvited,
	"convidado":  StatusInvited,
	"awaiting":   StatusAwaiting,
	"aguardando": StatusAwaiting,
}

var relationshipAliases = map[string]Relationship{
	"titular": RelTitular,
	"spouse":  RelSpouse,
	"conjuge": RelSpouse,
	"cônjuge": RelSpouse,
	"esposa":  RelSpouse,
	"esposo":  RelSpouse,
	"child":   RelChild,
	"filho":   RelChild,
	"filha":   RelChild,
	"parent":  RelParent,
	"pai":     RelParent,
	"mae":     RelParent,
	"mãe":     RelParent,
	"other":   RelOther,
	"outro":   RelOther,
}

// ParseMemberStatus accepts the canonical value or its Portuguese label.
// An empty string parses as Pending.
func ParseMemberStatus(s string) (MemberStatus, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return StatusPending, nil
	}
	if st, ok := statusAliases[s]; ok {
		return st, nil
	}
	return "", ErrInvalidStatus
}

// ParseRelationship accepts the canonical value or its Portuguese label.
// An empty string is allowed and means the relationship is unknown.
func ParseRelationship(s string) (Relationship, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "", nil
	}
	if rel, ok := relationshipAliases[s]; ok {
		return rel, nil
	}
	return "", ErrInvalidRelationship
}

func (s MemberStatus) Valid() bool {
	switch s {
	case StatusActive, StatusInactive, StatusPending, StatusInvited, StatusAwaiting:
		return true
	}
	return false
}

func (r Relationship) Valid() bool {
	switch r {
	case "", RelTitular, RelSpouse, RelChild, RelParent, RelOther:
		return true
	}
	return false
}

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPaid, PaymentPending, PaymentExempt:
		return true
	}
	return false
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a date in YYYY-MM-DD format.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t}, nil
}

// IsEmpty returns true if the date is zero (optional dates)
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.Format(dateLayout) + `"`), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(data), `"`)
	if raw == "" || raw == "null" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(raw)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (c City) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	return nil
}

func (t Team) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return ErrEmptyName
	}
	if strings.TrimSpace(t.CityID) == "" {
		return errors.New("team must belong to a city")
	}
	return nil
}

func (m Member) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return ErrEmptyName
	}
	if len(m.Name) > 200 {
		return errors.New("name too long (max 200 characters)")
	}
	if !m.Status.Valid() {
		return ErrInvalidStatus
	}
	if !m.Relationship.Valid() {
		return ErrInvalidRelationship
	}
	if m.CPF != "" {
		if err := ValidateCPF(m.CPF); err != nil {
			return err
		}
	}
	if !m.BirthDate.IsZero() && m.BirthDate.After(time.Now()) {
		return errors.New("birth date cannot be in the future")
	}
	return nil
}

func (p Payment) Validate() error {
	if strings.TrimSpace(p.MemberID) == "" {
		return ErrMissingReference
	}
	if _, err := ParseMonthRef(p.ReferenceMonth); err != nil {
		return err
	}
	if !p.Status.Valid() {
		return ErrInvalidStatus
	}
	if p.Status == PaymentExempt {
		if p.Amount.IsNegative() {
			return ErrInvalidAmount
		}
		return nil
	}
	return p.Amount.Validate()
}

func (e LedgerEntry) Validate() error {
	if strings.TrimSpace(e.CityID) == "" {
		return ErrMissingReference
	}
	if e.Date.IsZero() {
		return errors.New("date cannot be zero")
	}
	if e.Kind != EntryCredit && e.Kind != EntryDebit {
		return ErrInvalidEntryKind
	}
	if len(strings.TrimSpace(e.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(e.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	return e.Amount.Validate()
}

// Signed returns the entry amount with debits negated.
func (e LedgerEntry) Signed() Money {
	if e.Kind == EntryDebit {
		return Money{Cents: -e.Amount.Cents}
	}
	return e.Amount
}

func (e Event) Validate() error {
	if strings.TrimSpace(e.Name) == "" {
		return ErrEmptyName
	}
	if strings.TrimSpace(e.CityID) == "" {
		return ErrMissingReference
	}
	if e.TicketPrice.IsNegative() {
		return ErrInvalidAmount
	}
	if e.TicketGoal < 0 {
		return ErrInvalidQuantity
	}
	return nil
}

func (s EventSale) Validate() error {
	if strings.TrimSpace(s.EventID) == "" {
		return ErrMissingReference
	}
	if s.Quantity <= 0 {
		return ErrInvalidQuantity
	}
	if s.Amount.IsNegative() {
		return ErrInvalidAmount
	}
	return nil
}

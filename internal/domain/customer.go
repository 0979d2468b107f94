package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// CustomerType is the Stage-2 classification discriminant.
type CustomerType string

const (
	CustomerIndividual   CustomerType = "INDIVIDUAL"
	CustomerOrganization CustomerType = "ORGANIZATION"
	CustomerUnknown      CustomerType = "UNKNOWN"
)

// Explicit customer type codes used by the case store.
const (
	TypeCodeIndividual   = "01"
	TypeCodeOrganization = "02"
)

// CustomerProfile is the unified identity record for one customer id.
// Fetched fresh per pipeline run; never cached across runs.
type CustomerProfile struct {
	CustID    string
	AccountID string
	Name      string
	IDNumber  string
	BirthDate string

	Nationality   string
	Address       string
	DetailAddress string

	Job              string
	WorkplaceName    string
	WorkplaceAddress string

	Phone string
	Email string

	// TypeCode is authoritative when present; TypeLabel is the localized
	// fallback ("개인"/"법인" substring match).
	TypeCode  string
	TypeLabel string

	KYCCompletedAt string
}

// Classify resolves the customer type. An explicit type code wins; otherwise
// the localized label is matched; otherwise UNKNOWN.
func (p *CustomerProfile) Classify() CustomerType {
	switch p.TypeCode {
	case TypeCodeIndividual:
		return CustomerIndividual
	case TypeCodeOrganization:
		return CustomerOrganization
	}
	if strings.Contains(p.TypeLabel, "개인") {
		return CustomerIndividual
	}
	if strings.Contains(p.TypeLabel, "법인") || strings.Contains(p.TypeLabel, "단체") {
		return CustomerOrganization
	}
	return CustomerUnknown
}

// Corporate relation type codes, in descending priority.
const (
	RelationOwner   = "OWNER"
	RelationOfficer = "OFFICER"
	RelationOther   = "OTHER"
)

// RelationPriority maps a relation code to its sort priority (lower first).
func RelationPriority(code string) int {
	switch code {
	case RelationOwner:
		return 0
	case RelationOfficer:
		return 1
	default:
		return 2
	}
}

// OrgRelation is a beneficial-owner/officer relation of an organization.
type OrgRelation struct {
	CustID       string
	Name         string
	IDNumber     string
	RelationCode string
	StakePct     *float64
}

// TickerVolume is a per-ticker transaction breakdown line.
type TickerVolume struct {
	Ticker string          `json:"ticker"`
	Amount decimal.Decimal `json:"amount"`
	Count  int             `json:"count"`
}

// Counterparty is an internal-transfer counterparty of an individual
// subject, aggregated over the investigation window.
type Counterparty struct {
	CustID     string
	Deposit    decimal.Decimal
	Withdrawal decimal.Decimal
	TxCount    int

	// Profile is nil when the enrichment fetch failed; the counterparty
	// still appears with identity fields empty.
	Profile *CustomerProfile
	Tickers []TickerVolume
}

// Total returns deposit + withdrawal, the Stage-2 ranking amount.
func (c *Counterparty) Total() decimal.Decimal {
	return c.Deposit.Add(c.Withdrawal)
}

// RelatedPartyKind discriminates the two origins of a related party.
type RelatedPartyKind string

const (
	PartyOrgRelation  RelatedPartyKind = "ORG_RELATION"
	PartyCounterparty RelatedPartyKind = "COUNTERPARTY"
)

// RelatedParty is the tagged union over the two origins. Exactly one of
// Org and Counterparty is set, matching Kind. Flattening to the wide
// single-row shape happens only at the Dataset Store boundary.
type RelatedParty struct {
	Kind         RelatedPartyKind
	Org          *OrgRelation
	Counterparty *Counterparty
}

// MatchCategory names an identity attribute shared with a duplicate
// candidate.
type MatchCategory string

const (
	MatchAddress          MatchCategory = "ADDRESS"
	MatchWorkplaceName    MatchCategory = "WORKPLACE_NAME"
	MatchWorkplaceAddress MatchCategory = "WORKPLACE_ADDRESS"
	MatchPhoneSuffix      MatchCategory = "PHONE_SUFFIX"
)

// CustomerRef is a minimal customer reference returned by attribute-match
// searches.
type CustomerRef struct {
	CustID string
	Name   string
}

// DuplicateCandidate is another customer flagged as a possible shared
// identity, annotated with every attribute category it matched.
type DuplicateCandidate struct {
	CustID  string
	Name    string
	Matches []MatchCategory
}

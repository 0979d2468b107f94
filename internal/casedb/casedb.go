// Package casedb implements the read-only case store (store #1) on
// PostgreSQL. Sessions are marked read-only at the connection level; the
// query registry additionally rejects non-read statements before dispatch.
package casedb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/opensource-finance/harrier/internal/domain"
	"github.com/opensource-finance/harrier/internal/query"
)

// ErrNotFound indicates a required single-row lookup returned nothing.
var ErrNotFound = errors.New("record not found")

const timeLayout = "2006-01-02 15:04:05"

// Store implements domain.CaseStore over database/sql.
type Store struct {
	db       *sql.DB
	driver   string
	registry *query.Registry
	timeout  time.Duration
}

// New opens the case database with a session-level read-only default.
func New(cfg domain.CaseDBConfig) (*Store, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s options='-c default_transaction_read_only=on'",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, sslMode(cfg.SSLMode),
	)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open case db: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Second)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping case db: %w", err)
	}

	return NewWithDB(db, "postgres", time.Duration(cfg.QueryTimeout)*time.Second)
}

// NewWithDB wraps an existing handle. Tests use this with a SQLite fixture.
func NewWithDB(db *sql.DB, driver string, timeout time.Duration) (*Store, error) {
	reg, err := query.NewRegistry(queries)
	if err != nil {
		db.Close()
		return nil, err
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Store{db: db, driver: driver, registry: reg, timeout: timeout}, nil
}

func sslMode(mode string) string {
	if mode == "" {
		return "disable"
	}
	return mode
}

// queryRows resolves a named template, applies the per-query timeout and
// dispatches. The caller owns the returned rows and must close them on all
// exit paths.
func (s *Store) queryRows(ctx context.Context, name string, args ...any) (*sql.Rows, context.CancelFunc, error) {
	sqlText, err := s.registry.Resolve(name, len(args))
	if err != nil {
		return nil, nil, err
	}
	if s.driver == "postgres" {
		sqlText = query.Rebind(sqlText)
	}
	qctx, cancel := context.WithTimeout(ctx, s.timeout)
	rows, err := s.db.QueryContext(qctx, sqlText, args...)
	if err != nil {
		cancel()
		return nil, nil, fmt.Errorf("query %s: %w", name, err)
	}
	return rows, cancel, nil
}

// AlertRows fetches all rule-trigger rows sharing the alert's case.
func (s *Store) AlertRows(ctx context.Context, alertID string) ([]domain.AlertRow, error) {
	rows, cancel, err := s.queryRows(ctx, "alert_rows", alertID)
	if err != nil {
		return nil, err
	}
	defer cancel()
	defer rows.Close()

	var out []domain.AlertRow
	for rows.Next() {
		var r domain.AlertRow
		var triggered, txStart, txEnd sql.NullString
		var reported sql.NullBool
		if err := rows.Scan(&r.AlertID, &r.CaseID, &r.RuleID, &r.CustID,
			&triggered, &txStart, &txEnd, &reported); err != nil {
			return nil, fmt.Errorf("scan alert row: %w", err)
		}
		r.TriggeredAt = triggered.String
		r.TxStart = txStart.String
		r.TxEnd = txEnd.String
		r.Reported = reported.Bool
		out = append(out, r)
	}
	return out, rows.Err()
}

func scanComboStats(rows *sql.Rows) (domain.RuleComboStats, error) {
	var s domain.RuleComboStats
	var firstSeen, lastSeen, patterns sql.NullString
	if err := rows.Scan(&s.Key, &s.Occurrences, &s.DistinctCustomers,
		&firstSeen, &lastSeen, &s.Reported, &s.Unreported, &patterns); err != nil {
		return s, fmt.Errorf("scan combo stats: %w", err)
	}
	s.FirstSeen = firstSeen.String
	s.LastSeen = lastSeen.String
	if patterns.Valid && patterns.String != "" {
		// Pattern tags are stored as a JSON array; a corrupt value loses
		// the tags, not the row.
		_ = json.Unmarshal([]byte(patterns.String), &s.Patterns)
	}
	return s, nil
}

// RuleComboStats fetches exact-match statistics for a combination key.
func (s *Store) RuleComboStats(ctx context.Context, key string) (*domain.RuleComboStats, error) {
	rows, cancel, err := s.queryRows(ctx, "combo_exact", key)
	if err != nil {
		return nil, err
	}
	defer cancel()
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	stats, err := scanComboStats(rows)
	if err != nil {
		return nil, err
	}
	return &stats, rows.Err()
}

// RuleCombosContaining fetches statistics for every historical combination
// containing the given rule id.
func (s *Store) RuleCombosContaining(ctx context.Context, ruleID string) ([]domain.RuleComboStats, error) {
	rows, cancel, err := s.queryRows(ctx, "combo_containing", ruleID)
	if err != nil {
		return nil, err
	}
	defer cancel()
	defer rows.Close()

	var out []domain.RuleComboStats
	for rows.Next() {
		stats, err := scanComboStats(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, stats)
	}
	return out, rows.Err()
}

// Profile fetches the unified customer profile.
func (s *Store) Profile(ctx context.Context, custID string) (*domain.CustomerProfile, error) {
	rows, cancel, err := s.queryRows(ctx, "customer_profile", custID)
	if err != nil {
		return nil, err
	}
	defer cancel()
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: customer %s", ErrNotFound, custID)
	}

	var p domain.CustomerProfile
	var accountID, name, idNumber, birthDate, nationality, address, detailAddr,
		job, wpName, wpAddr, phone, email, typeCode, typeLabel, kycAt sql.NullString
	if err := rows.Scan(&p.CustID, &accountID, &name, &idNumber, &birthDate,
		&nationality, &address, &detailAddr,
		&job, &wpName, &wpAddr,
		&phone, &email, &typeCode, &typeLabel, &kycAt); err != nil {
		return nil, fmt.Errorf("scan customer profile: %w", err)
	}
	p.AccountID = accountID.String
	p.Name = name.String
	p.IDNumber = idNumber.String
	p.BirthDate = birthDate.String
	p.Nationality = nationality.String
	p.Address = address.String
	p.DetailAddress = detailAddr.String
	p.Job = job.String
	p.WorkplaceName = wpName.String
	p.WorkplaceAddress = wpAddr.String
	p.Phone = phone.String
	p.Email = email.String
	p.TypeCode = typeCode.String
	p.TypeLabel = typeLabel.String
	p.KYCCompletedAt = kycAt.String
	return &p, rows.Err()
}

// OrgRelations fetches ownership/officer relations, ordered by relation
// priority then stake descending with nulls last.
func (s *Store) OrgRelations(ctx context.Context, custID string) ([]domain.OrgRelation, error) {
	rows, cancel, err := s.queryRows(ctx, "org_relations", custID)
	if err != nil {
		return nil, err
	}
	defer cancel()
	defer rows.Close()

	var out []domain.OrgRelation
	for rows.Next() {
		var r domain.OrgRelation
		var name, idNumber sql.NullString
		var stake sql.NullFloat64
		if err := rows.Scan(&r.CustID, &name, &idNumber, &r.RelationCode, &stake); err != nil {
			return nil, fmt.Errorf("scan org relation: %w", err)
		}
		r.Name = name.String
		r.IDNumber = idNumber.String
		if stake.Valid {
			v := stake.Float64
			r.StakePct = &v
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// TransferCounterparties fetches internal-transfer counterparties over the
// window, ranked by total amount descending.
func (s *Store) TransferCounterparties(ctx context.Context, custID string, window domain.TimeWindow, limit int) ([]domain.Counterparty, error) {
	rows, cancel, err := s.queryRows(ctx, "transfer_counterparties",
		custID, window.Start.Format(timeLayout), window.End.Format(timeLayout), limit)
	if err != nil {
		return nil, err
	}
	defer cancel()
	defer rows.Close()

	var out []domain.Counterparty
	for rows.Next() {
		var cp domain.Counterparty
		var deposit, withdrawal float64
		if err := rows.Scan(&cp.CustID, &deposit, &withdrawal, &cp.TxCount); err != nil {
			return nil, fmt.Errorf("scan counterparty: %w", err)
		}
		cp.Deposit = decimal.NewFromFloat(deposit)
		cp.Withdrawal = decimal.NewFromFloat(withdrawal)
		out = append(out, cp)
	}
	return out, rows.Err()
}

// CounterpartyTickers fetches the per-ticker breakdown between the subject
// and one counterparty over the window.
func (s *Store) CounterpartyTickers(ctx context.Context, custID, counterpartyID string, window domain.TimeWindow) ([]domain.TickerVolume, error) {
	rows, cancel, err := s.queryRows(ctx, "counterparty_tickers",
		custID, counterpartyID, window.Start.Format(timeLayout), window.End.Format(timeLayout))
	if err != nil {
		return nil, err
	}
	defer cancel()
	defer rows.Close()

	var out []domain.TickerVolume
	for rows.Next() {
		var tv domain.TickerVolume
		var amount float64
		if err := rows.Scan(&tv.Ticker, &amount, &tv.Count); err != nil {
			return nil, fmt.Errorf("scan ticker volume: %w", err)
		}
		tv.Amount = decimal.NewFromFloat(amount)
		out = append(out, tv)
	}
	return out, rows.Err()
}

// CustomersMatching fetches customers sharing one identity attribute value.
func (s *Store) CustomersMatching(ctx context.Context, category domain.MatchCategory, value string) ([]domain.CustomerRef, error) {
	var name string
	args := []any{value}
	switch category {
	case domain.MatchAddress:
		name = "dup_address"
		args = []any{value, value}
	case domain.MatchWorkplaceName:
		name = "dup_workplace_name"
	case domain.MatchWorkplaceAddress:
		name = "dup_workplace_address"
	case domain.MatchPhoneSuffix:
		name = "dup_phone_suffix"
	default:
		return nil, fmt.Errorf("unsupported match category: %s", category)
	}

	rows, cancel, err := s.queryRows(ctx, name, args...)
	if err != nil {
		return nil, err
	}
	defer cancel()
	defer rows.Close()

	var out []domain.CustomerRef
	for rows.Next() {
		var ref domain.CustomerRef
		var refName sql.NullString
		if err := rows.Scan(&ref.CustID, &refName); err != nil {
			return nil, fmt.Errorf("scan customer ref: %w", err)
		}
		ref.Name = refName.String
		out = append(out, ref)
	}
	return out, rows.Err()
}

// AccessEvents fetches login/IP events for one account over an inclusive
// calendar-date range.
func (s *Store) AccessEvents(ctx context.Context, accountID, fromDate, toDate string) ([]domain.AccessEvent, error) {
	rows, cancel, err := s.queryRows(ctx, "access_events", accountID, fromDate, toDate)
	if err != nil {
		return nil, err
	}
	defer cancel()
	defer rows.Close()

	var out []domain.AccessEvent
	for rows.Next() {
		var e domain.AccessEvent
		var country, channel, ip, result sql.NullString
		if err := rows.Scan(&e.AccountID, &e.Timestamp, &country, &channel, &ip, &result); err != nil {
			return nil, fmt.Errorf("scan access event: %w", err)
		}
		e.Country = country.String
		e.Channel = channel.String
		e.IPAddress = ip.String
		e.ResultCode = result.String
		out = append(out, e)
	}
	return out, rows.Err()
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the underlying handle.
func (s *Store) Close() error {
	return s.db.Close()
}

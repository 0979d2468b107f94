// Package ledgerdb implements the read-only trade/transfer ledger archive
// (store #2) on SQLite. The archive file is opened read-only and every
// statement passes the read-query guard before dispatch.
package ledgerdb

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/opensource-finance/harrier/internal/domain"
	"github.com/opensource-finance/harrier/internal/query"
)

const dateLayout = "2006-01-02"

// ledgerPage fetches one page of raw ledger rows for an account. Trade
// date/time and numerics stay text; the aggregation engine coerces them.
const ledgerPage = `
	SELECT account_id, ticker, trade_date, trade_time, tx_kind,
	       quantity, unit_price, amount, amount_krw, from_addr, to_addr
	FROM ledger_entries
	WHERE account_id = ? AND trade_date >= ? AND trade_date <= ?
	ORDER BY trade_date, trade_time, rowid
	LIMIT ? OFFSET ?
`

// Store implements domain.LedgerStore.
type Store struct {
	db        *sql.DB
	timeout   time.Duration
	batchSize int
}

// New opens the ledger archive read-only.
func New(cfg domain.LedgerDBConfig) (*Store, error) {
	path := cfg.Path
	if path == "" {
		path = "./ledger.db"
	}

	dsn := fmt.Sprintf("file:%s?mode=ro&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open ledger db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping ledger db: %w", err)
	}

	return NewWithDB(db, time.Duration(cfg.QueryTimeout)*time.Second, cfg.BatchSize)
}

// NewWithDB wraps an existing handle. Tests use this with a writable
// fixture they populate first.
func NewWithDB(db *sql.DB, timeout time.Duration, batchSize int) (*Store, error) {
	if err := query.CheckReadOnly(ledgerPage); err != nil {
		db.Close()
		return nil, err
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 5000
	}
	return &Store{db: db, timeout: timeout, batchSize: batchSize}, nil
}

// LedgerRows fetches the raw ledger for one account over [start, end],
// paging in bounded batches so a year-long investigation does not
// materialize in one unbounded fetch.
func (s *Store) LedgerRows(ctx context.Context, accountID string, start, end time.Time) ([]domain.RawLedgerRow, error) {
	var out []domain.RawLedgerRow
	offset := 0
	for {
		page, err := s.fetchPage(ctx, accountID, start, end, offset)
		if err != nil {
			return nil, err
		}
		out = append(out, page...)
		if len(page) < s.batchSize {
			return out, nil
		}
		offset += s.batchSize
	}
}

func (s *Store) fetchPage(ctx context.Context, accountID string, start, end time.Time, offset int) ([]domain.RawLedgerRow, error) {
	qctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	rows, err := s.db.QueryContext(qctx, ledgerPage,
		accountID, start.Format(dateLayout), end.Format(dateLayout), s.batchSize, offset)
	if err != nil {
		return nil, fmt.Errorf("query ledger page: %w", err)
	}
	defer rows.Close()

	out := make([]domain.RawLedgerRow, 0, s.batchSize)
	for rows.Next() {
		var r domain.RawLedgerRow
		var qty, price, amount, amountKRW, from, to sql.NullString
		if err := rows.Scan(&r.AccountID, &r.Ticker, &r.TradeDate, &r.TradeTime, &r.Kind,
			&qty, &price, &amount, &amountKRW, &from, &to); err != nil {
			return nil, fmt.Errorf("scan ledger row: %w", err)
		}
		r.Quantity = qty.String
		r.UnitPrice = price.String
		r.Amount = amount.String
		r.AmountKRW = amountKRW.String
		r.FromAddr = from.String
		r.ToAddr = to.String
		out = append(out, r)
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

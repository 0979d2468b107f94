package casedb

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/opensource-finance/harrier/internal/domain"
)

const fixtureSchema = `
	CREATE TABLE aml_alerts (
		alert_id     TEXT PRIMARY KEY,
		case_id      TEXT NOT NULL,
		rule_id      TEXT NOT NULL,
		cust_id      TEXT NOT NULL,
		triggered_at TEXT,
		tx_start     TEXT,
		tx_end       TEXT,
		reported     INTEGER
	);
	CREATE TABLE rule_combo_history (
		combo_key          TEXT PRIMARY KEY,
		occurrences        INTEGER,
		distinct_customers INTEGER,
		first_seen         TEXT,
		last_seen          TEXT,
		reported_cnt       INTEGER,
		unreported_cnt     INTEGER,
		patterns           TEXT
	);
	CREATE TABLE customers (
		cust_id           TEXT PRIMARY KEY,
		account_id        TEXT,
		name              TEXT,
		id_number         TEXT,
		birth_date        TEXT,
		nationality       TEXT,
		address           TEXT,
		detail_address    TEXT,
		job               TEXT,
		workplace_name    TEXT,
		workplace_address TEXT,
		phone             TEXT,
		email             TEXT,
		cust_type_code    TEXT,
		cust_type_label   TEXT,
		kyc_completed_at  TEXT
	);
	CREATE TABLE corp_relations (
		cust_id         TEXT NOT NULL,
		related_cust_id TEXT NOT NULL,
		relation_code   TEXT NOT NULL,
		stake_pct       REAL
	);
	CREATE TABLE internal_transfers (
		cust_id         TEXT NOT NULL,
		counterparty_id TEXT NOT NULL,
		direction       TEXT NOT NULL,
		ticker          TEXT,
		amount_krw      REAL,
		tx_at           TEXT NOT NULL
	);
	CREATE TABLE access_events (
		account_id  TEXT NOT NULL,
		occurred_at TEXT NOT NULL,
		country     TEXT,
		channel     TEXT,
		ip_addr     TEXT,
		result_code TEXT
	);
`

func fixtureStore(t *testing.T) (*Store, *sql.DB) {
	t.Helper()

	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "case.db"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec(fixtureSchema); err != nil {
		t.Fatal(err)
	}

	store, err := NewWithDB(db, "sqlite", time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store, db
}

func mustExec(t *testing.T, db *sql.DB, sqlText string, args ...any) {
	t.Helper()
	if _, err := db.Exec(sqlText, args...); err != nil {
		t.Fatal(err)
	}
}

func TestAlertRows(t *testing.T) {
	store, db := fixtureStore(t)
	ctx := context.Background()

	mustExec(t, db, `INSERT INTO aml_alerts VALUES
		('AL-2', 'CS-1', 'RULE_B', 'C-1', '2025-02-01 09:00:00', '2025-01-01 00:00:00', '2025-01-31 00:00:00', 0),
		('AL-1', 'CS-1', 'RULE_A', 'C-1', '2025-02-01 10:00:00', '2025-01-05 00:00:00', '2025-02-10 00:00:00', 1),
		('AL-9', 'CS-9', 'RULE_Z', 'C-9', '2025-02-02 09:00:00', NULL, NULL, 0)`)

	rows, err := store.AlertRows(ctx, "AL-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2 (whole case, other cases excluded)", len(rows))
	}
	// triggered_at ordering: AL-2 fired first
	if rows[0].AlertID != "AL-2" || rows[1].AlertID != "AL-1" {
		t.Errorf("order = %s, %s", rows[0].AlertID, rows[1].AlertID)
	}
	if !rows[1].Reported || rows[0].Reported {
		t.Errorf("reported flags = %v, %v", rows[0].Reported, rows[1].Reported)
	}

	none, err := store.AlertRows(ctx, "AL-MISSING")
	if err != nil {
		t.Fatal(err)
	}
	if len(none) != 0 {
		t.Errorf("unknown alert rows = %d", len(none))
	}
}

func TestRuleComboStats(t *testing.T) {
	store, db := fixtureStore(t)
	ctx := context.Background()

	mustExec(t, db, `INSERT INTO rule_combo_history VALUES
		('RULE_A,RULE_B', 12, 9, '2023-05-01', '2025-01-15', 4, 8,
		 '[{"code":"P01","text":"분할 거래"}]'),
		('RULE_A,RULE_C', 3, 3, '2024-01-01', '2024-06-01', 1, 2, NULL),
		('RULE_D', 7, 5, '2022-01-01', '2024-12-01', 0, 7, 'not-json')`)

	t.Run("exact hit", func(t *testing.T) {
		stats, err := store.RuleComboStats(ctx, "RULE_A,RULE_B")
		if err != nil {
			t.Fatal(err)
		}
		if stats == nil {
			t.Fatal("stats = nil")
		}
		if stats.Occurrences != 12 || stats.DistinctCustomers != 9 {
			t.Errorf("stats = %+v", stats)
		}
		if len(stats.Patterns) != 1 || stats.Patterns[0].Code != "P01" {
			t.Errorf("patterns = %+v", stats.Patterns)
		}
	})

	t.Run("exact miss is nil not error", func(t *testing.T) {
		stats, err := store.RuleComboStats(ctx, "RULE_X")
		if err != nil {
			t.Fatal(err)
		}
		if stats != nil {
			t.Errorf("stats = %+v", stats)
		}
	})

	t.Run("corrupt patterns lose tags not row", func(t *testing.T) {
		stats, err := store.RuleComboStats(ctx, "RULE_D")
		if err != nil {
			t.Fatal(err)
		}
		if stats == nil || stats.Patterns != nil {
			t.Errorf("stats = %+v", stats)
		}
	})

	t.Run("containing", func(t *testing.T) {
		combos, err := store.RuleCombosContaining(ctx, "RULE_A")
		if err != nil {
			t.Fatal(err)
		}
		if len(combos) != 2 {
			t.Fatalf("combos = %+v, want the two RULE_A combinations", combos)
		}
		// a whole-id match is required; a bare prefix must not match
		combos, err = store.RuleCombosContaining(ctx, "RULE")
		if err != nil {
			t.Fatal(err)
		}
		if len(combos) != 0 {
			t.Errorf("partial rule id matched %d combos", len(combos))
		}
	})
}

func TestProfile(t *testing.T) {
	store, db := fixtureStore(t)
	ctx := context.Background()

	mustExec(t, db, `INSERT INTO customers VALUES
		('C-1', 'ACC-1', '홍길동', '900101-1234567', '1990-01-01', 'KR',
		 '서울시 강남구 테헤란로 1', '101동 202호', '회사원', '한빛상사', '서울시 중구 을지로 2',
		 '010-1234-5678', 'hong@example.com', '01', '개인', '2024-03-01 10:00:00')`)

	p, err := store.Profile(ctx, "C-1")
	if err != nil {
		t.Fatal(err)
	}
	if p.Name != "홍길동" || p.AccountID != "ACC-1" || p.Phone != "010-1234-5678" {
		t.Errorf("profile = %+v", p)
	}
	if p.Classify() != domain.CustomerIndividual {
		t.Errorf("type = %s", p.Classify())
	}

	_, err = store.Profile(ctx, "C-MISSING")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestOrgRelations(t *testing.T) {
	store, db := fixtureStore(t)
	ctx := context.Background()

	mustExec(t, db, `INSERT INTO customers (cust_id, name, id_number) VALUES
		('C-10', '김대표', '800101-1000000'),
		('C-11', '이이사', '810101-1000000'),
		('C-12', '박주주', '820101-1000000')`)
	mustExec(t, db, `INSERT INTO corp_relations VALUES
		('C-ORG', 'C-11', 'OFFICER', NULL),
		('C-ORG', 'C-12', 'OWNER', 30.0),
		('C-ORG', 'C-10', 'OWNER', 55.5)`)

	rels, err := store.OrgRelations(ctx, "C-ORG")
	if err != nil {
		t.Fatal(err)
	}
	if len(rels) != 3 {
		t.Fatalf("relations = %d", len(rels))
	}
	// owners first, larger stake first, then officers
	if rels[0].CustID != "C-10" || rels[1].CustID != "C-12" || rels[2].CustID != "C-11" {
		t.Errorf("order = %s, %s, %s", rels[0].CustID, rels[1].CustID, rels[2].CustID)
	}
	if rels[0].StakePct == nil || *rels[0].StakePct != 55.5 {
		t.Errorf("stake = %v", rels[0].StakePct)
	}
	if rels[2].StakePct != nil {
		t.Errorf("officer stake = %v, want nil", rels[2].StakePct)
	}
	if rels[0].Name != "김대표" {
		t.Errorf("joined name = %s", rels[0].Name)
	}
}

func TestTransferCounterparties(t *testing.T) {
	store, db := fixtureStore(t)
	ctx := context.Background()

	mustExec(t, db, `INSERT INTO internal_transfers VALUES
		('C-1', 'C-2', 'D', 'BTC', 1000000, '2025-01-10 09:00:00'),
		('C-1', 'C-2', 'W', 'BTC',  500000, '2025-01-11 09:00:00'),
		('C-1', 'C-3', 'D', 'ETH', 9000000, '2025-01-12 09:00:00'),
		('C-1', 'C-4', 'D', 'XRP',  100000, '2024-06-01 09:00:00')`)

	window := domain.TimeWindow{
		Start: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC),
	}

	cps, err := store.TransferCounterparties(ctx, "C-1", window, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(cps) != 2 {
		t.Fatalf("counterparties = %+v, want 2 inside the window", cps)
	}
	if cps[0].CustID != "C-3" || cps[1].CustID != "C-2" {
		t.Errorf("ranking = %s, %s", cps[0].CustID, cps[1].CustID)
	}
	if !cps[1].Deposit.Equal(decimal.NewFromInt(1000000)) {
		t.Errorf("C-2 deposit = %s", cps[1].Deposit)
	}
	if !cps[1].Withdrawal.Equal(decimal.NewFromInt(500000)) {
		t.Errorf("C-2 withdrawal = %s", cps[1].Withdrawal)
	}
	if cps[1].TxCount != 2 {
		t.Errorf("C-2 tx count = %d", cps[1].TxCount)
	}

	tickers, err := store.CounterpartyTickers(ctx, "C-1", "C-2", window)
	if err != nil {
		t.Fatal(err)
	}
	if len(tickers) != 1 || tickers[0].Ticker != "BTC" || tickers[0].Count != 2 {
		t.Errorf("tickers = %+v", tickers)
	}
}

func TestCustomersMatching(t *testing.T) {
	store, db := fixtureStore(t)
	ctx := context.Background()

	mustExec(t, db, `INSERT INTO customers
		(cust_id, name, address, detail_address, workplace_name, workplace_address, phone) VALUES
		('C-1', '홍길동', '서울시 강남구 테헤란로 1', '101동', '한빛상사', '을지로 2', '010-1234-5678'),
		('C-2', '김철수', '서울시 강남구 테헤란로 1', '202동', '두리상사', '을지로 9', '010-9999-5678'),
		('C-3', '이영희', '부산시 해운대구',         '서울시 강남구 테헤란로 1', '한빛상사', '을지로 2', '010-0000-0000')`)

	t.Run("address matches detail address too", func(t *testing.T) {
		refs, err := store.CustomersMatching(ctx, domain.MatchAddress, "서울시 강남구 테헤란로 1")
		if err != nil {
			t.Fatal(err)
		}
		if len(refs) != 3 {
			t.Errorf("refs = %+v", refs)
		}
	})

	t.Run("workplace name", func(t *testing.T) {
		refs, err := store.CustomersMatching(ctx, domain.MatchWorkplaceName, "한빛상사")
		if err != nil {
			t.Fatal(err)
		}
		if len(refs) != 2 || refs[0].CustID != "C-1" || refs[1].CustID != "C-3" {
			t.Errorf("refs = %+v", refs)
		}
	})

	t.Run("phone suffix", func(t *testing.T) {
		refs, err := store.CustomersMatching(ctx, domain.MatchPhoneSuffix, "5678")
		if err != nil {
			t.Fatal(err)
		}
		if len(refs) != 2 {
			t.Errorf("refs = %+v", refs)
		}
	})

	t.Run("unsupported category", func(t *testing.T) {
		if _, err := store.CustomersMatching(ctx, domain.MatchCategory("EMAIL"), "x"); err == nil {
			t.Error("unsupported category must fail")
		}
	})
}

func TestAccessEvents(t *testing.T) {
	store, db := fixtureStore(t)
	ctx := context.Background()

	mustExec(t, db, `INSERT INTO access_events VALUES
		('ACC-1', '2025-01-15 23:10:00', 'KR', 'MOBILE', '203.0.113.7', 'OK'),
		('ACC-1', '2025-01-10 08:00:00', 'US', 'WEB',    '198.51.100.2', 'OK'),
		('ACC-1', '2024-12-01 08:00:00', 'KR', 'WEB',    '203.0.113.7', 'OK'),
		('ACC-2', '2025-01-12 08:00:00', 'KR', 'WEB',    '203.0.113.9', 'FAIL')`)

	events, err := store.AccessEvents(ctx, "ACC-1", "2025-01-01", "2025-01-31")
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 2 {
		t.Fatalf("events = %+v, want 2 in range", events)
	}
	if events[0].Country != "US" || events[1].Country != "KR" {
		t.Errorf("order = %s, %s", events[0].Country, events[1].Country)
	}
	if events[1].IPAddress != "203.0.113.7" || events[1].Channel != "MOBILE" {
		t.Errorf("event = %+v", events[1])
	}
}

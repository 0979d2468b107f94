package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/opensource-finance/harrier/internal/domain"
	"github.com/opensource-finance/harrier/internal/pipeline"
)

type stubCaseStore struct {
	rows     []domain.AlertRow
	profiles map[string]*domain.CustomerProfile
}

func (s *stubCaseStore) AlertRows(ctx context.Context, alertID string) ([]domain.AlertRow, error) {
	return s.rows, nil
}

func (s *stubCaseStore) RuleComboStats(ctx context.Context, key string) (*domain.RuleComboStats, error) {
	return nil, nil
}

func (s *stubCaseStore) RuleCombosContaining(ctx context.Context, ruleID string) ([]domain.RuleComboStats, error) {
	return nil, nil
}

func (s *stubCaseStore) Profile(ctx context.Context, custID string) (*domain.CustomerProfile, error) {
	p, ok := s.profiles[custID]
	if !ok {
		return nil, errors.New("profile unavailable")
	}
	return p, nil
}

func (s *stubCaseStore) OrgRelations(ctx context.Context, custID string) ([]domain.OrgRelation, error) {
	return nil, nil
}

func (s *stubCaseStore) TransferCounterparties(ctx context.Context, custID string, window domain.TimeWindow, limit int) ([]domain.Counterparty, error) {
	return nil, nil
}

func (s *stubCaseStore) CounterpartyTickers(ctx context.Context, custID, counterpartyID string, window domain.TimeWindow) ([]domain.TickerVolume, error) {
	return nil, nil
}

func (s *stubCaseStore) CustomersMatching(ctx context.Context, category domain.MatchCategory, value string) ([]domain.CustomerRef, error) {
	return nil, nil
}

func (s *stubCaseStore) AccessEvents(ctx context.Context, accountID, fromDate, toDate string) ([]domain.AccessEvent, error) {
	return nil, nil
}

func (s *stubCaseStore) Ping(ctx context.Context) error { return nil }
func (s *stubCaseStore) Close() error                   { return nil }

type stubLedgerStore struct{}

func (s *stubLedgerStore) LedgerRows(ctx context.Context, accountID string, start, end time.Time) ([]domain.RawLedgerRow, error) {
	return nil, nil
}

func (s *stubLedgerStore) Ping(ctx context.Context) error { return nil }
func (s *stubLedgerStore) Close() error                   { return nil }

func testServer() *Server {
	cases := &stubCaseStore{
		rows: []domain.AlertRow{
			{AlertID: "AL-1", CaseID: "CS-1", RuleID: "RULE_A", CustID: "C-1",
				TxStart: "2025-01-01 00:00:00", TxEnd: "2025-01-31 00:00:00"},
		},
		profiles: map[string]*domain.CustomerProfile{
			"C-1": {CustID: "C-1", AccountID: "ACC-1", Name: "홍길동", TypeCode: domain.TypeCodeIndividual},
		},
	}
	ledgers := &stubLedgerStore{}
	pipe := pipeline.New(cases, ledgers, nil, nil, domain.PipelineConfig{}, time.Minute)
	return NewServer(domain.ServerConfig{}, pipe, cases, ledgers, nil, "test")
}

func TestInvestigate(t *testing.T) {
	srv := testServer()

	t.Run("success", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/investigations",
			strings.NewReader(`{"alertId":"AL-1"}`))
		rec := httptest.NewRecorder()
		srv.Router().ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
		}
		if !strings.Contains(rec.Body.String(), `"success":true`) {
			t.Errorf("body = %s", rec.Body.String())
		}
	})

	t.Run("masked export hides names", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/investigations",
			strings.NewReader(`{"alertId":"AL-1","masked":true}`))
		rec := httptest.NewRecorder()
		srv.Router().ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		if strings.Contains(rec.Body.String(), "홍길동") {
			t.Error("masked response leaks the subject name")
		}
	})

	t.Run("missing alert id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/investigations", strings.NewReader(`{}`))
		rec := httptest.NewRecorder()
		srv.Router().ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("invalid body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/investigations", strings.NewReader(`{`))
		rec := httptest.NewRecorder()
		srv.Router().ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})
}

func TestInvestigateNotFound(t *testing.T) {
	cases := &stubCaseStore{}
	ledgers := &stubLedgerStore{}
	pipe := pipeline.New(cases, ledgers, nil, nil, domain.PipelineConfig{}, time.Minute)
	srv := NewServer(domain.ServerConfig{}, pipe, cases, ledgers, nil, "test")

	req := httptest.NewRequest(http.MethodPost, "/investigations",
		strings.NewReader(`{"alertId":"AL-MISSING"}`))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), pipeline.KindNotFound) {
		t.Errorf("body missing error kind: %s", rec.Body.String())
	}
}

func TestHealthAndReady(t *testing.T) {
	srv := testServer()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("health status = %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/ready", nil)
	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("ready status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := testServer()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("metrics status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "harrier_runs_started_total") {
		t.Error("pipeline counters missing from metrics output")
	}
}

package casedb

import "github.com/opensource-finance/harrier/internal/query"

// Named query templates for the case store. All temporal columns are text
// in the source schema; they are parsed (and bad values dropped) in the
// pipeline, never here.
var queries = []query.Query{
	{
		Name:   "alert_rows",
		Params: 1,
		SQL: `
			SELECT a.alert_id, a.case_id, a.rule_id, a.cust_id,
			       a.triggered_at, a.tx_start, a.tx_end, a.reported
			FROM aml_alerts a
			WHERE a.case_id = (SELECT case_id FROM aml_alerts WHERE alert_id = ?)
			ORDER BY a.triggered_at, a.rule_id
		`,
	},
	{
		Name:   "combo_exact",
		Params: 1,
		SQL: `
			SELECT combo_key, occurrences, distinct_customers,
			       first_seen, last_seen, reported_cnt, unreported_cnt, patterns
			FROM rule_combo_history
			WHERE combo_key = ?
		`,
	},
	{
		Name:   "combo_containing",
		Params: 1,
		SQL: `
			SELECT combo_key, occurrences, distinct_customers,
			       first_seen, last_seen, reported_cnt, unreported_cnt, patterns
			FROM rule_combo_history
			WHERE ',' || combo_key || ',' LIKE '%,' || ? || ',%'
		`,
	},
	{
		Name:   "customer_profile",
		Params: 1,
		SQL: `
			SELECT cust_id, account_id, name, id_number, birth_date,
			       nationality, address, detail_address,
			       job, workplace_name, workplace_address,
			       phone, email, cust_type_code, cust_type_label, kyc_completed_at
			FROM customers
			WHERE cust_id = ?
		`,
	},
	{
		Name:   "org_relations",
		Params: 1,
		SQL: `
			SELECT r.related_cust_id, c.name, c.id_number, r.relation_code, r.stake_pct
			FROM corp_relations r
			LEFT JOIN customers c ON c.cust_id = r.related_cust_id
			WHERE r.cust_id = ?
			ORDER BY CASE r.relation_code
			           WHEN 'OWNER' THEN 0
			           WHEN 'OFFICER' THEN 1
			           ELSE 2
			         END,
			         r.stake_pct DESC NULLS LAST,
			         r.related_cust_id
		`,
	},
	{
		Name:   "transfer_counterparties",
		Params: 4,
		SQL: `
			SELECT counterparty_id,
			       COALESCE(SUM(CASE WHEN direction = 'D' THEN amount_krw ELSE 0 END), 0) AS deposit,
			       COALESCE(SUM(CASE WHEN direction = 'W' THEN amount_krw ELSE 0 END), 0) AS withdrawal,
			       COUNT(*) AS tx_count
			FROM internal_transfers
			WHERE cust_id = ? AND tx_at >= ? AND tx_at <= ?
			GROUP BY counterparty_id
			ORDER BY COALESCE(SUM(amount_krw), 0) DESC, counterparty_id
			LIMIT ?
		`,
	},
	{
		Name:   "counterparty_tickers",
		Params: 4,
		SQL: `
			SELECT ticker, COALESCE(SUM(amount_krw), 0) AS amount, COUNT(*) AS tx_count
			FROM internal_transfers
			WHERE cust_id = ? AND counterparty_id = ? AND tx_at >= ? AND tx_at <= ?
			GROUP BY ticker
			ORDER BY amount DESC, ticker
		`,
	},
	{
		Name:   "dup_address",
		Params: 2,
		SQL: `
			SELECT cust_id, name FROM customers
			WHERE address = ? OR detail_address = ?
			ORDER BY cust_id
		`,
	},
	{
		Name:   "dup_workplace_name",
		Params: 1,
		SQL: `
			SELECT cust_id, name FROM customers
			WHERE workplace_name = ?
			ORDER BY cust_id
		`,
	},
	{
		Name:   "dup_workplace_address",
		Params: 1,
		SQL: `
			SELECT cust_id, name FROM customers
			WHERE workplace_address = ?
			ORDER BY cust_id
		`,
	},
	{
		Name:   "dup_phone_suffix",
		Params: 1,
		SQL: `
			SELECT cust_id, name FROM customers
			WHERE phone LIKE '%' || ?
			ORDER BY cust_id
		`,
	},
	{
		Name:   "access_events",
		Params: 3,
		SQL: `
			SELECT account_id, occurred_at, country, channel, ip_addr, result_code
			FROM access_events
			WHERE account_id = ?
			  AND substr(occurred_at, 1, 10) >= ?
			  AND substr(occurred_at, 1, 10) <= ?
			ORDER BY occurred_at
		`,
	},
}

package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/opensource-finance/harrier/internal/domain"
)

// accountRef is an account surfaced during Stage 2, tagged with its origin
// for the access-history stage.
type accountRef struct {
	AccountID   string
	DisplayName string
	Origin      domain.AccessOrigin
}

// identityResult is the Stage-2 output.
type identityResult struct {
	Profile    *domain.CustomerProfile
	Type       domain.CustomerType
	Parties    []domain.RelatedParty
	Duplicates []domain.DuplicateCandidate
	Accounts   []accountRef
}

// resolveIdentity is Stage 2: profile fetch and classification, then the
// classification-dependent network branch and the duplicate-identity
// search. Only the profile fetch is fatal; enrichments fail soft.
func (p *Pipeline) resolveIdentity(ctx context.Context, custID string, window *domain.TimeWindow) (*identityResult, error) {
	profile, err := p.cases.Profile(ctx, custID)
	if err != nil {
		return nil, fmt.Errorf("fetch profile %s: %w", custID, err)
	}

	res := &identityResult{
		Profile: profile,
		Type:    profile.Classify(),
	}
	if profile.AccountID != "" {
		res.Accounts = append(res.Accounts, accountRef{
			AccountID:   profile.AccountID,
			DisplayName: profile.Name,
			Origin:      domain.OriginPrimary,
		})
	}

	switch res.Type {
	case domain.CustomerOrganization:
		relations, err := p.cases.OrgRelations(ctx, custID)
		if err != nil {
			slog.Warn("org relations fetch failed", "cust_id", custID, "error", err)
		}
		for i := range relations {
			res.Parties = append(res.Parties, domain.RelatedParty{
				Kind: domain.PartyOrgRelation,
				Org:  &relations[i],
			})
		}

	case domain.CustomerIndividual:
		if window != nil {
			counterparties := p.resolveCounterparties(ctx, custID, *window)
			for i := range counterparties {
				cp := &counterparties[i]
				res.Parties = append(res.Parties, domain.RelatedParty{
					Kind:         domain.PartyCounterparty,
					Counterparty: cp,
				})
				if cp.Profile != nil && cp.Profile.AccountID != "" {
					res.Accounts = append(res.Accounts, accountRef{
						AccountID:   cp.Profile.AccountID,
						DisplayName: cp.Profile.Name,
						Origin:      domain.OriginRelated,
					})
				}
			}
		}
	}

	res.Duplicates = p.resolveDuplicates(ctx, profile)
	return res, nil
}

// resolveCounterparties fetches the top internal-transfer counterparties
// and enriches each over a bounded worker pool. Results are collected by
// index so the ranking order survives the fan-out. A counterparty whose
// profile fetch fails still appears, identity fields empty.
func (p *Pipeline) resolveCounterparties(ctx context.Context, custID string, window domain.TimeWindow) []domain.Counterparty {
	counterparties, err := p.cases.TransferCounterparties(ctx, custID, window, p.cfg.CounterpartyLimit)
	if err != nil {
		slog.Warn("counterparty fetch failed", "cust_id", custID, "error", err)
		return nil
	}
	if len(counterparties) == 0 {
		return nil
	}

	workers := p.cfg.CounterpartyWorkers
	if workers <= 0 {
		workers = 5
	}

	results := make([]domain.Counterparty, len(counterparties))
	var wg sync.WaitGroup
	sem := make(chan struct{}, workers)

	for i, cp := range counterparties {
		wg.Add(1)
		go func(idx int, cp domain.Counterparty) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			profile, err := p.cases.Profile(ctx, cp.CustID)
			if err != nil {
				slog.Warn("counterparty profile fetch failed",
					"cust_id", custID,
					"counterparty_id", cp.CustID,
					"error", err,
				)
			} else {
				cp.Profile = profile
			}

			tickers, err := p.cases.CounterpartyTickers(ctx, custID, cp.CustID, window)
			if err != nil {
				slog.Warn("counterparty ticker fetch failed",
					"counterparty_id", cp.CustID,
					"error", err,
				)
			} else {
				cp.Tickers = tickers
			}

			results[idx] = cp
		}(i, cp)
	}
	wg.Wait()

	return results
}

// duplicate-search predicate: one attribute category plus the subject
// value to match on.
type dupPredicate struct {
	category domain.MatchCategory
	value    string
}

// resolveDuplicates searches for customers sharing identity attributes
// with the subject. Any matching predicate includes a candidate; the
// candidate is annotated with every predicate it matched. The subject is
// always excluded.
func (p *Pipeline) resolveDuplicates(ctx context.Context, profile *domain.CustomerProfile) []domain.DuplicateCandidate {
	predicates := []dupPredicate{
		{domain.MatchAddress, profile.Address},
		{domain.MatchAddress, profile.DetailAddress},
		{domain.MatchWorkplaceName, profile.WorkplaceName},
		{domain.MatchWorkplaceAddress, profile.WorkplaceAddress},
		{domain.MatchPhoneSuffix, phoneSuffix(profile.Phone)},
	}

	type entry struct {
		name    string
		matched map[domain.MatchCategory]bool
	}
	candidates := make(map[string]*entry)

	for _, pred := range predicates {
		if pred.value == "" {
			continue
		}
		refs, err := p.cases.CustomersMatching(ctx, pred.category, pred.value)
		if err != nil {
			slog.Warn("duplicate search failed",
				"category", pred.category,
				"error", err,
			)
			continue
		}
		for _, ref := range refs {
			if ref.CustID == profile.CustID {
				continue
			}
			e, ok := candidates[ref.CustID]
			if !ok {
				e = &entry{name: ref.Name, matched: make(map[domain.MatchCategory]bool)}
				candidates[ref.CustID] = e
			}
			e.matched[pred.category] = true
		}
	}

	out := make([]domain.DuplicateCandidate, 0, len(candidates))
	for custID, e := range candidates {
		matches := make([]domain.MatchCategory, 0, len(e.matched))
		for _, cat := range []domain.MatchCategory{
			domain.MatchAddress,
			domain.MatchWorkplaceName,
			domain.MatchWorkplaceAddress,
			domain.MatchPhoneSuffix,
		} {
			if e.matched[cat] {
				matches = append(matches, cat)
			}
		}
		out = append(out, domain.DuplicateCandidate{
			CustID:  custID,
			Name:    e.name,
			Matches: matches,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CustID < out[j].CustID })

	limit := p.cfg.DuplicateLimit
	if limit <= 0 {
		limit = 50
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// phoneSuffix returns the last four digits of a phone number, ignoring
// separators. Empty when fewer than four digits are present.
func phoneSuffix(phone string) string {
	digits := make([]rune, 0, len(phone))
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits = append(digits, r)
		}
	}
	if len(digits) < 4 {
		return ""
	}
	return string(digits[len(digits)-4:])
}

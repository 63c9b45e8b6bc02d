// Package delegationAggregator joins as-of ledger amounts with the delegate
// roster to produce per-delegate totals and committee breakdowns, and ranks
// delegates by total.
package delegationAggregator

import (
	"slices"
	"time"

	"github.com/Layr-Labs/delegate-tracker/internal/config"
	"github.com/Layr-Labs/delegate-tracker/pkg/roster"
	"github.com/shopspring/decimal"
	orderedmap "github.com/wk8/go-ordered-map/v2"
	"go.uber.org/zap"
)

// AsOfResolver resolves the cumulative delegation through a contract on a day.
type AsOfResolver interface {
	AsOf(contractAddress string, day time.Time) decimal.Decimal
}

type AggregatedDelegate struct {
	DelegateName string                                         `json:"delegateName"`
	Total        decimal.Decimal                                `json:"total"`
	Rank         int                                            `json:"rank"`
	Committees   *orderedmap.OrderedMap[string, decimal.Decimal] `json:"committees"`
}

type DelegationAggregator struct {
	roster       *roster.Roster
	resolver     AsOfResolver
	windowPolicy config.RosterWindowPolicy
	logger       *zap.Logger
}

func NewDelegationAggregator(
	r *roster.Roster,
	resolver AsOfResolver,
	windowPolicy config.RosterWindowPolicy,
	l *zap.Logger,
) *DelegationAggregator {
	if windowPolicy == "" {
		windowPolicy = config.RosterWindowPolicy_Ignore
	}
	return &DelegationAggregator{
		roster:       r,
		resolver:     resolver,
		windowPolicy: windowPolicy,
		logger:       l,
	}
}

// Aggregate walks the roster in file order and sums, per delegate name, the
// as-of amount of every contract the delegate holds. Delegates are returned in
// first-seen order with Rank unset.
//
// A delegate holding several contracts under the same committee keeps only the
// last contract's amount in that committee entry; the total still includes all.
func (a *DelegationAggregator) Aggregate(day time.Time) []*AggregatedDelegate {
	delegates := orderedmap.New[string, *AggregatedDelegate]()

	for _, rec := range a.roster.Records {
		if a.windowPolicy == config.RosterWindowPolicy_Enforce && !rec.ContainsDate(day) {
			continue
		}
		asOf := a.resolver.AsOf(rec.ContractAddress, day)

		d, ok := delegates.Get(rec.Name)
		if !ok {
			d = &AggregatedDelegate{
				DelegateName: rec.Name,
				Total:        decimal.Zero,
				Committees:   orderedmap.New[string, decimal.Decimal](),
			}
			delegates.Set(rec.Name, d)
		}
		d.Total = d.Total.Add(asOf)
		d.Committees.Set(rec.Committee, asOf)
	}

	out := make([]*AggregatedDelegate, 0, delegates.Len())
	for pair := delegates.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Value)
	}
	return out
}

// AggregateAndRank aggregates day and ranks the result.
func (a *DelegationAggregator) AggregateAndRank(day time.Time) []*AggregatedDelegate {
	return Rank(a.Aggregate(day))
}

// Rank orders delegates by descending total and assigns ranks 1..N. Equal
// totals keep their input order and still get distinct ranks.
func Rank(delegates []*AggregatedDelegate) []*AggregatedDelegate {
	ranked := make([]*AggregatedDelegate, len(delegates))
	copy(ranked, delegates)

	slices.SortStableFunc(ranked, func(x, y *AggregatedDelegate) int {
		return y.Total.Cmp(x.Total)
	})
	for i, d := range ranked {
		d.Rank = i + 1
	}
	return ranked
}

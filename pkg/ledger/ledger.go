// Package ledger holds the per-contract, per-delegate, per-day net delegation
// amounts folded from Lock and Free events, and resolves cumulative
// delegation as of a calendar day.
//
// A Ledger is built once, frozen, and then shared read-only between any
// number of concurrent readers.
package ledger

import (
	"slices"
	"time"

	"github.com/Layr-Labs/delegate-tracker/pkg/parser"
	"github.com/Layr-Labs/delegate-tracker/pkg/utils"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

var ErrLedgerFrozen = errors.New("ledger is frozen")

// DailyNet is the summed signed amount for one (contract, delegate, day) key.
type DailyNet struct {
	ContractAddress string
	DelegateAddress string
	Day             time.Time
	Net             decimal.Decimal
}

type dayNets map[time.Time]decimal.Decimal

type Ledger struct {
	// contract -> delegate -> day -> net
	contracts map[string]map[string]dayNets
	frozen    bool
}

func NewLedger() *Ledger {
	return &Ledger{
		contracts: make(map[string]map[string]dayNets),
	}
}

// EnsureContract registers a contract with no events so that it is reported
// as present even when nothing was ever delegated through it.
func (l *Ledger) EnsureContract(contractAddress string) error {
	if l.frozen {
		return ErrLedgerFrozen
	}
	contractAddress = utils.NormalizeAddress(contractAddress)
	if _, ok := l.contracts[contractAddress]; !ok {
		l.contracts[contractAddress] = make(map[string]dayNets)
	}
	return nil
}

// Apply folds a single event into the ledger, adding its signed amount to the
// net stored for its contract, delegate and day.
func (l *Ledger) Apply(event *parser.DelegationEvent) error {
	if event == nil {
		return errors.New("event is nil")
	}
	return l.add(event.ContractAddress, event.DelegateAddress, event.Date, event.Amount)
}

func (l *Ledger) add(contractAddress string, delegateAddress string, day time.Time, amount decimal.Decimal) error {
	if l.frozen {
		return ErrLedgerFrozen
	}
	contractAddress = utils.NormalizeAddress(contractAddress)
	delegateAddress = utils.NormalizeAddress(delegateAddress)
	day = utils.StartOfDay(day)

	delegates, ok := l.contracts[contractAddress]
	if !ok {
		delegates = make(map[string]dayNets)
		l.contracts[contractAddress] = delegates
	}
	days, ok := delegates[delegateAddress]
	if !ok {
		days = make(dayNets)
		delegates[delegateAddress] = days
	}
	days[day] = days[day].Add(amount)
	return nil
}

// Merge folds every entry of segment into l. The segment is left untouched.
func (l *Ledger) Merge(segment *Ledger) error {
	if l.frozen {
		return ErrLedgerFrozen
	}
	if segment == nil {
		return nil
	}
	for contract, delegates := range segment.contracts {
		if err := l.EnsureContract(contract); err != nil {
			return err
		}
		for delegate, days := range delegates {
			for day, net := range days {
				if err := l.add(contract, delegate, day, net); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// Freeze makes the ledger read-only. It is safe to call more than once.
func (l *Ledger) Freeze() {
	l.frozen = true
}

func (l *Ledger) IsFrozen() bool {
	return l.frozen
}

func (l *Ledger) HasContract(contractAddress string) bool {
	_, ok := l.contracts[utils.NormalizeAddress(contractAddress)]
	return ok
}

// Contracts returns every contract present in the ledger, sorted.
func (l *Ledger) Contracts() []string {
	contracts := make([]string, 0, len(l.contracts))
	for c := range l.contracts {
		contracts = append(contracts, c)
	}
	slices.Sort(contracts)
	return contracts
}

// Delegates returns the delegate addresses seen for a contract, sorted.
func (l *Ledger) Delegates(contractAddress string) []string {
	delegates := l.contracts[utils.NormalizeAddress(contractAddress)]
	out := make([]string, 0, len(delegates))
	for d := range delegates {
		out = append(out, d)
	}
	slices.Sort(out)
	return out
}

// DailyNets lists every stored entry for a contract ordered by delegate, then day.
func (l *Ledger) DailyNets(contractAddress string) []*DailyNet {
	contractAddress = utils.NormalizeAddress(contractAddress)
	out := make([]*DailyNet, 0)
	for _, delegate := range l.Delegates(contractAddress) {
		days := l.contracts[contractAddress][delegate]
		for _, day := range sortedDays(days) {
			out = append(out, &DailyNet{
				ContractAddress: contractAddress,
				DelegateAddress: delegate,
				Day:             day,
				Net:             days[day],
			})
		}
	}
	return out
}

// AsOfDelegate returns the cumulative net delegated to delegateAddress through
// contractAddress on or before day. Unknown keys resolve to zero.
func (l *Ledger) AsOfDelegate(contractAddress string, delegateAddress string, day time.Time) decimal.Decimal {
	delegates, ok := l.contracts[utils.NormalizeAddress(contractAddress)]
	if !ok {
		return decimal.Zero
	}
	return sumThrough(delegates[utils.NormalizeAddress(delegateAddress)], utils.StartOfDay(day))
}

// AsOf returns the cumulative net delegated through contractAddress, across
// every delegate, on or before day. An absent contract resolves to zero.
func (l *Ledger) AsOf(contractAddress string, day time.Time) decimal.Decimal {
	delegates, ok := l.contracts[utils.NormalizeAddress(contractAddress)]
	if !ok {
		return decimal.Zero
	}
	day = utils.StartOfDay(day)

	total := decimal.Zero
	for _, days := range delegates {
		total = total.Add(sumThrough(days, day))
	}
	return total
}

// IncludedDays returns, ascending and de-duplicated, the stored days of a
// contract that contribute to AsOf(contractAddress, day).
func (l *Ledger) IncludedDays(contractAddress string, day time.Time) []time.Time {
	day = utils.StartOfDay(day)
	seen := make(map[time.Time]struct{})
	out := make([]time.Time, 0)
	for _, days := range l.contracts[utils.NormalizeAddress(contractAddress)] {
		for d := range days {
			if d.After(day) {
				continue
			}
			if _, ok := seen[d]; ok {
				continue
			}
			seen[d] = struct{}{}
			out = append(out, d)
		}
	}
	slices.SortFunc(out, func(a, b time.Time) int {
		return a.Compare(b)
	})
	return out
}

func sumThrough(days dayNets, day time.Time) decimal.Decimal {
	total := decimal.Zero
	for d, net := range days {
		if !d.After(day) {
			total = total.Add(net)
		}
	}
	return total
}

func sortedDays(days dayNets) []time.Time {
	out := make([]time.Time, 0, len(days))
	for d := range days {
		out = append(out, d)
	}
	slices.SortFunc(out, func(a, b time.Time) int {
		return a.Compare(b)
	})
	return out
}

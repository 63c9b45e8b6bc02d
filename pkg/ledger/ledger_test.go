package ledger

import (
	"math/rand"
	"testing"
	"time"

	"github.com/Layr-Labs/delegate-tracker/internal/tests"
	"github.com/Layr-Labs/delegate-tracker/pkg/parser"
	"github.com/Layr-Labs/delegate-tracker/pkg/utils"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

const (
	contractA = "0x1111111111111111111111111111111111111111"
	contractB = "0x2222222222222222222222222222222222222222"
	delegateX = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	delegateY = "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
)

func fold(t *testing.T, events []*parser.DelegationEvent) *Ledger {
	l := NewLedger()
	for _, e := range events {
		assert.Nil(t, l.Apply(e))
	}
	l.Freeze()
	return l
}

func sampleEvents() []*parser.DelegationEvent {
	return []*parser.DelegationEvent{
		tests.NewDelegationEvent(contractA, delegateX, "2023-01-01", "100"),
		tests.NewDelegationEvent(contractA, delegateX, "2023-01-01", "0.000000000000000001"),
		tests.NewDelegationEvent(contractA, delegateY, "2023-01-02", "12.5"),
		tests.NewDelegationEvent(contractA, delegateX, "2023-01-03", "-40"),
		tests.NewDelegationEvent(contractB, delegateY, "2023-01-02", "7"),
		tests.NewDelegationEvent(contractB, delegateY, "2023-01-05", "-7"),
		tests.NewDelegationEvent(contractB, delegateX, "2023-01-05", "3.3"),
	}
}

func Test_Ledger(t *testing.T) {
	t.Run("Should sum same-day events into a single daily net", func(t *testing.T) {
		l := fold(t, []*parser.DelegationEvent{
			tests.NewDelegationEvent(contractA, delegateX, "2023-01-01", "100"),
			tests.NewDelegationEvent(contractA, delegateX, "2023-01-01", "-25"),
		})

		nets := l.DailyNets(contractA)
		assert.Len(t, nets, 1)
		assert.Equal(t, "75", nets[0].Net.String())
		assert.Equal(t, tests.MustParseDay("2023-01-01"), nets[0].Day)
	})
	t.Run("Should produce the same ledger regardless of fold order", func(t *testing.T) {
		events := sampleEvents()
		expected := fold(t, events)

		r := rand.New(rand.NewSource(42))
		for i := 0; i < 25; i++ {
			shuffled := make([]*parser.DelegationEvent, len(events))
			copy(shuffled, events)
			r.Shuffle(len(shuffled), func(a, b int) {
				shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
			})

			actual := fold(t, shuffled)
			assert.Equal(t, expected.Contracts(), actual.Contracts())
			for _, c := range expected.Contracts() {
				expectedNets := expected.DailyNets(c)
				actualNets := actual.DailyNets(c)
				assert.Equal(t, len(expectedNets), len(actualNets))
				for j := range expectedNets {
					assert.Equal(t, expectedNets[j].DelegateAddress, actualNets[j].DelegateAddress)
					assert.Equal(t, expectedNets[j].Day, actualNets[j].Day)
					assert.True(t, expectedNets[j].Net.Equal(actualNets[j].Net))
				}
			}
		}
	})
	t.Run("Should match case-insensitively on addresses", func(t *testing.T) {
		l := NewLedger()
		assert.Nil(t, l.Apply(&parser.DelegationEvent{
			ContractAddress: "0xABCDEF0000000000000000000000000000000000",
			DelegateAddress: delegateX,
			Date:            tests.MustParseDay("2023-01-01"),
			Amount:          decimal.NewFromInt(5),
		}))

		assert.True(t, l.HasContract("0xabcdef0000000000000000000000000000000000"))
		assert.Equal(t, "5", l.AsOf("0xabcdef0000000000000000000000000000000000", tests.MustParseDay("2023-01-01")).String())
	})
	t.Run("Should register contracts with no events", func(t *testing.T) {
		l := NewLedger()
		assert.Nil(t, l.EnsureContract(contractB))
		l.Freeze()

		assert.True(t, l.HasContract(contractB))
		assert.Empty(t, l.Delegates(contractB))
		assert.True(t, l.AsOf(contractB, tests.MustParseDay("2024-01-01")).IsZero())
	})
	t.Run("Should reject changes once frozen", func(t *testing.T) {
		l := NewLedger()
		l.Freeze()

		assert.ErrorIs(t, l.Apply(tests.NewDelegationEvent(contractA, delegateX, "2023-01-01", "1")), ErrLedgerFrozen)
		assert.ErrorIs(t, l.EnsureContract(contractA), ErrLedgerFrozen)
		assert.ErrorIs(t, l.Merge(NewLedger()), ErrLedgerFrozen)
		assert.True(t, l.IsFrozen())
	})
	t.Run("Should merge segments into the same ledger a single fold builds", func(t *testing.T) {
		events := sampleEvents()
		expected := fold(t, events)

		segmentA := NewLedger()
		segmentB := NewLedger()
		for _, e := range events {
			if e.ContractAddress == contractA {
				assert.Nil(t, segmentA.Apply(e))
			} else {
				assert.Nil(t, segmentB.Apply(e))
			}
		}

		merged := NewLedger()
		assert.Nil(t, merged.Merge(segmentB))
		assert.Nil(t, merged.Merge(segmentA))
		merged.Freeze()

		for _, day := range []string{"2023-01-01", "2023-01-02", "2023-01-03", "2023-01-05"} {
			d := tests.MustParseDay(day)
			assert.True(t, expected.AsOf(contractA, d).Equal(merged.AsOf(contractA, d)))
			assert.True(t, expected.AsOf(contractB, d).Equal(merged.AsOf(contractB, d)))
		}
	})
}

func Test_AsOf(t *testing.T) {
	l := fold(t, []*parser.DelegationEvent{
		tests.NewDelegationEvent(contractA, delegateX, "2023-01-01", "100"),
		tests.NewDelegationEvent(contractA, delegateX, "2023-01-03", "-40"),
	})

	t.Run("Should resolve a lock followed by a partial free", func(t *testing.T) {
		assert.Equal(t, "100", l.AsOf(contractA, tests.MustParseDay("2023-01-01")).String())
		assert.Equal(t, "100", l.AsOf(contractA, tests.MustParseDay("2023-01-02")).String())
		assert.Equal(t, "60", l.AsOf(contractA, tests.MustParseDay("2023-01-03")).String())
		assert.Equal(t, "60", l.AsOfDelegate(contractA, delegateX, tests.MustParseDay("2023-01-04")).String())
	})
	t.Run("Should resolve zero before the first event", func(t *testing.T) {
		assert.True(t, l.AsOf(contractA, tests.MustParseDay("2022-12-31")).IsZero())
		assert.True(t, l.AsOfDelegate(contractA, delegateX, tests.MustParseDay("2022-12-31")).IsZero())
	})
	t.Run("Should resolve zero for unknown contracts and delegates", func(t *testing.T) {
		assert.True(t, l.AsOf(contractB, tests.MustParseDay("2023-01-03")).IsZero())
		assert.True(t, l.AsOfDelegate(contractA, delegateY, tests.MustParseDay("2023-01-03")).IsZero())
		assert.True(t, l.AsOfDelegate(contractB, delegateX, tests.MustParseDay("2023-01-03")).IsZero())
	})
	t.Run("Should allow negative cumulative amounts", func(t *testing.T) {
		neg := fold(t, []*parser.DelegationEvent{
			tests.NewDelegationEvent(contractA, delegateX, "2023-01-01", "-5"),
		})
		assert.Equal(t, "-5", neg.AsOf(contractA, tests.MustParseDay("2023-01-02")).String())
	})
}

func Test_IncludedDays(t *testing.T) {
	l := fold(t, sampleEvents())

	t.Run("Should include only days on or before the query day", func(t *testing.T) {
		days := l.IncludedDays(contractA, tests.MustParseDay("2023-01-02"))
		assert.Equal(t, []string{"2023-01-01", "2023-01-02"}, utils.Map(days, func(d time.Time, i uint64) string {
			return utils.FormatDate(d)
		}))
	})
	t.Run("Should include a superset of an earlier query's days", func(t *testing.T) {
		checkpoints := []string{"2022-12-31", "2023-01-01", "2023-01-02", "2023-01-03", "2023-01-05", "2023-02-01"}
		for _, c := range l.Contracts() {
			for i := 1; i < len(checkpoints); i++ {
				earlier := l.IncludedDays(c, tests.MustParseDay(checkpoints[i-1]))
				later := l.IncludedDays(c, tests.MustParseDay(checkpoints[i]))
				for _, d := range earlier {
					assert.Contains(t, later, d)
				}
			}
		}
	})
}

// Package export writes query result sets as CSV, one row per delegate per
// date, and reads them back.
package export

import (
	"fmt"
	"io"
	"os"

	"github.com/Layr-Labs/delegate-tracker/pkg/delegationAggregator"
	"github.com/Layr-Labs/delegate-tracker/pkg/delegationQuery"
	"github.com/gocarina/gocsv"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

type ResultRow struct {
	Delegate        string `csv:"Delegate"`
	TotalDelegation string `csv:"Total Delegation"`
	Rank            int    `csv:"Rank"`
	Date            string `csv:"Date"`
}

// DefaultExportFileName names an export after the last date it contains.
func DefaultExportFileName(lastDate string) string {
	return fmt.Sprintf("delegation_data_%s.csv", lastDate)
}

// ResultRows flattens a result set in date order, then rank order.
func ResultRows(rs *delegationQuery.QueryResultSet) []*ResultRow {
	rows := make([]*ResultRow, 0)
	for pair := rs.Oldest(); pair != nil; pair = pair.Next() {
		for _, d := range pair.Value {
			rows = append(rows, &ResultRow{
				Delegate:        d.DelegateName,
				TotalDelegation: d.Total.String(),
				Rank:            d.Rank,
				Date:            pair.Key,
			})
		}
	}
	return rows
}

func WriteResultsCsv(w io.Writer, rs *delegationQuery.QueryResultSet) error {
	if err := gocsv.Marshal(ResultRows(rs), w); err != nil {
		return errors.Wrap(err, "failed to write results csv")
	}
	return nil
}

func WriteResultsCsvFile(path string, rs *delegationQuery.QueryResultSet) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "failed to create '%s'", path)
	}
	defer f.Close()

	return WriteResultsCsv(f, rs)
}

func ReadResultsCsv(r io.Reader) ([]*ResultRow, error) {
	rows := make([]*ResultRow, 0)
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, errors.Wrap(err, "failed to read results csv")
	}
	return rows, nil
}

// ToResultSet rebuilds a result set from exported rows. Committee breakdowns
// are not exported and come back empty.
func ToResultSet(rows []*ResultRow) (*delegationQuery.QueryResultSet, error) {
	rs := orderedmap.New[string, []*delegationAggregator.AggregatedDelegate]()
	for i, row := range rows {
		total, err := decimal.NewFromString(row.TotalDelegation)
		if err != nil {
			return nil, errors.Wrapf(err, "row %d has an invalid total", i+1)
		}
		delegates, _ := rs.Get(row.Date)
		delegates = append(delegates, &delegationAggregator.AggregatedDelegate{
			DelegateName: row.Delegate,
			Total:        total,
			Rank:         row.Rank,
			Committees:   orderedmap.New[string, decimal.Decimal](),
		})
		rs.Set(row.Date, delegates)
	}
	return rs, nil
}

// Package roster loads the list of aligned delegates: which vote delegate
// contract belongs to which delegate and committee, and when it was active.
package roster

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Layr-Labs/delegate-tracker/pkg/collaborators"
	"github.com/Layr-Labs/delegate-tracker/pkg/utils"
	"github.com/gocarina/gocsv"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Layouts accepted for Start Date and End Date cells.
var dateLayouts = []string{
	utils.DateFormat,
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"Jan 2, 2006",
	"January 2, 2006",
}

// DelegateRecord is a single roster row.
type DelegateRecord struct {
	Name            string `csv:"Delegate Name" yaml:"name"`
	ContractAddress string `csv:"Delegate Contract" yaml:"contract"`
	Committee       string `csv:"Aligned Voter Committee" yaml:"committee"`
	StartDate       string `csv:"Start Date" yaml:"start_date"`
	EndDate         string `csv:"End Date" yaml:"end_date"`
	EndReason       string `csv:"End Reason" yaml:"end_reason"`
}

// ContainsDate reports whether day falls within the record's validity window.
// Empty or unparseable bounds are open ended.
func (r *DelegateRecord) ContainsDate(day time.Time) bool {
	day = utils.StartOfDay(day)
	if start, err := ParseRosterDate(r.StartDate); err == nil && day.Before(start) {
		return false
	}
	if end, err := ParseRosterDate(r.EndDate); err == nil && day.After(end) {
		return false
	}
	return true
}

func ParseRosterDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, errors.New("empty date")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return utils.StartOfDay(t), nil
		}
	}
	return time.Time{}, errors.Errorf("unrecognized date '%s'", value)
}

type Roster struct {
	Records []*DelegateRecord
}

// ContractAddresses returns the distinct contracts in first-seen roster order.
func (r *Roster) ContractAddresses() []string {
	seen := make(map[string]struct{})
	out := make([]string, 0, len(r.Records))
	for _, rec := range r.Records {
		if _, ok := seen[rec.ContractAddress]; ok {
			continue
		}
		seen[rec.ContractAddress] = struct{}{}
		out = append(out, rec.ContractAddress)
	}
	return out
}

type yamlRoster struct {
	Delegates []*DelegateRecord `yaml:"delegates"`
}

func ParseCsv(data []byte) ([]*DelegateRecord, error) {
	records := make([]*DelegateRecord, 0)
	if err := gocsv.UnmarshalBytes(data, &records); err != nil {
		return nil, errors.Wrap(err, "failed to parse roster csv")
	}
	return records, nil
}

func ParseYaml(data []byte) ([]*DelegateRecord, error) {
	var r yamlRoster
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, errors.Wrap(err, "failed to parse roster yaml")
	}
	if r.Delegates == nil {
		return []*DelegateRecord{}, nil
	}
	return r.Delegates, nil
}

// NewRoster normalizes parsed records. Rows without a contract address are
// dropped since they can never match any ledger entry.
func NewRoster(records []*DelegateRecord, l *zap.Logger) *Roster {
	out := make([]*DelegateRecord, 0, len(records))
	for i, rec := range records {
		rec.Name = strings.TrimSpace(rec.Name)
		rec.Committee = strings.TrimSpace(rec.Committee)
		rec.ContractAddress = utils.NormalizeAddress(rec.ContractAddress)

		if rec.ContractAddress == "" {
			l.Sugar().Warnw("Skipping roster row without a contract address",
				zap.Int("row", i+1),
				zap.String("name", rec.Name),
			)
			continue
		}
		for _, d := range []string{rec.StartDate, rec.EndDate} {
			if strings.TrimSpace(d) == "" {
				continue
			}
			if _, err := ParseRosterDate(d); err != nil {
				l.Sugar().Warnw("Roster row has an unrecognized date, treating it as open ended",
					zap.Int("row", i+1),
					zap.String("name", rec.Name),
					zap.String("date", d),
				)
			}
		}
		out = append(out, rec)
	}
	return &Roster{Records: out}
}

// LoadRoster reads a roster file, choosing the format by extension
// (.yaml/.yml, otherwise csv). A missing or unreadable file is reported as a
// CollaboratorUnavailableError.
func LoadRoster(path string, l *zap.Logger) (*Roster, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, collaborators.NewCollaboratorUnavailableError(collaborators.Collaborator_Roster, path, err)
	}

	var records []*DelegateRecord
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		records, err = ParseYaml(data)
	default:
		records, err = ParseCsv(data)
	}
	if err != nil {
		return nil, err
	}

	r := NewRoster(records, l)
	l.Sugar().Infow("Loaded roster",
		zap.String("path", path),
		zap.Int("rows", len(r.Records)),
		zap.Int("contracts", len(r.ContractAddresses())),
	)
	return r, nil
}

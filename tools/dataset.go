package tools

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// DefaultSkipRows is the length of the preamble a bank history export
// carries before its header row.
const DefaultSkipRows = 24

// Operation is one row of the transactions export.
type Operation struct {
	Date         string
	Description  string
	Account      string
	Category     string
	Amount       string
	AmountMinor  string
	Balance      string
	BalanceMinor string
}

// AmountValue returns the normalized operation amount.
func (o Operation) AmountValue() float64 {
	return ParseAmount(o.Amount, o.AmountMinor)
}

// BalanceValue returns the normalized balance after the operation.
func (o Operation) BalanceValue() float64 {
	return ParseAmount(o.Balance, o.BalanceMinor)
}

// Dataset is the static transaction history backing the read tools.
type Dataset struct {
	Operations []Operation
}

// LoadDataset reads a transactions export from disk.
func LoadDataset(path string, skipRows int) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open transactions file: %w", err)
	}
	defer f.Close()

	ds, err := ReadDataset(f, skipRows)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return ds, nil
}

// ReadDataset parses an export: skipRows raw preamble lines, one header
// row, then data rows. Column names in the header are ignored; columns are
// taken by position.
func ReadDataset(r io.Reader, skipRows int) (*Dataset, error) {
	br := bufio.NewReader(r)
	for i := 0; i < skipRows; i++ {
		if _, err := br.ReadString('\n'); err != nil {
			if errors.Is(err, io.EOF) {
				return &Dataset{}, nil
			}
			return nil, err
		}
	}

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	if _, err := cr.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return &Dataset{}, nil
		}
		return nil, fmt.Errorf("header: %w", err)
	}

	ds := &Dataset{}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		ds.Operations = append(ds.Operations, operationFromRecord(rec))
	}
	return ds, nil
}

func operationFromRecord(rec []string) Operation {
	field := func(i int) string {
		if i < len(rec) {
			return strings.TrimSpace(strings.TrimPrefix(rec[i], "\ufeff"))
		}
		return ""
	}
	return Operation{
		Date:         field(0),
		Description:  field(1),
		Account:      field(2),
		Category:     field(3),
		Amount:       field(4),
		AmountMinor:  field(5),
		Balance:      field(6),
		BalanceMinor: field(7),
	}
}

// ForAccount returns operations whose account contains name. An empty name
// matches every operation.
func (d *Dataset) ForAccount(name string) []Operation {
	if name == "" {
		return d.Operations
	}
	var out []Operation
	for _, op := range d.Operations {
		if strings.Contains(op.Account, name) {
			out = append(out, op)
		}
	}
	return out
}

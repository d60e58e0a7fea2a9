package tools

import (
	"context"
	"fmt"
	"math"
	"sort"

	mcptypes "github.com/mark3labs/mcp-go/mcp"
)

const (
	ToolOperationsForAccount = "get_operations_for_account"
	ToolSummarizeExpenses    = "summarize_expenses_by_category"
)

func (b *Backend) registerReadTools() {
	b.register(mcptypes.NewTool(ToolOperationsForAccount,
		mcptypes.WithDescription("Zwraca tabelę wszystkich operacji dla wskazanego rachunku bankowego. "+
			"Przeszukuje plik CSV z historią transakcji, filtruje po kolumnie „Account”. "+
			"Dane zwracane są w kolumnach: Operation Date (yyyy-mm-dd), Category, "+
			"Total Amount (float, ujemne = wydatek, dodatnie = wpływ), Total Balance (float, saldo po operacji)."),
		mcptypes.WithString("account_name",
			mcptypes.Required(),
			mcptypes.Description("The name of the account to filter operations for, e.g., 'GŁÓWNE KONTO.'."),
		),
	), b.operationsForAccount)

	b.register(mcptypes.NewTool(ToolSummarizeExpenses,
		mcptypes.WithDescription("Agreguje wydatki (ujemne kwoty) według kategorii i zwraca zestawienie. "+
			"Jeśli podano ‘account_name’, filtruje transakcje tylko tego konta; "+
			"w przeciwnym razie uwzględnia wszystkie konta w pliku CSV. "+
			"Kwoty są zsumowane w złotówkach (float, wartości ujemne). "+
			"Wynik posortowany rosnąco od największego wydatku."),
		mcptypes.WithString("account_name",
			mcptypes.Description("Optional. If provided, summarizes expenses for this account; otherwise, for all accounts, e.g., 'GŁÓWNE KONTO.'"),
		),
	), b.summarizeExpenses)
}

func (b *Backend) operationsForAccount(_ context.Context, args Args) (any, error) {
	account, ok := args.String("account_name")
	if !ok {
		return nil, fmt.Errorf("account_name is required")
	}
	ds, err := b.loadDataset()
	if err != nil {
		return nil, err
	}
	return OperationsForAccount(ds, account), nil
}

func (b *Backend) summarizeExpenses(_ context.Context, args Args) (any, error) {
	account, _ := args.String("account_name")
	ds, err := b.loadDataset()
	if err != nil {
		return nil, err
	}
	return SummarizeExpenses(ds, account), nil
}

// OperationsForAccount lists date, category, amount and balance of every
// operation on accounts containing account.
func OperationsForAccount(ds *Dataset, account string) *Table {
	t := &Table{Columns: []string{"Operation Date", "Category", "Total Amount", "Total Balance"}}
	for _, op := range ds.ForAccount(account) {
		t.AddRow(op.Date, op.Category, op.AmountValue(), op.BalanceValue())
	}
	return t
}

// SummarizeExpenses sums negative amounts per category, most spent first.
// An empty account covers the whole dataset.
func SummarizeExpenses(ds *Dataset, account string) *Table {
	totals := make(map[string]float64)
	for _, op := range ds.ForAccount(account) {
		if amount := op.AmountValue(); amount < 0 {
			totals[op.Category] += amount
		}
	}

	categories := make([]string, 0, len(totals))
	for c := range totals {
		categories = append(categories, c)
	}
	sort.Slice(categories, func(i, j int) bool {
		if totals[categories[i]] == totals[categories[j]] {
			return categories[i] < categories[j]
		}
		return totals[categories[i]] < totals[categories[j]]
	})

	t := &Table{Columns: []string{"Category", "Total Expenses"}}
	for _, c := range categories {
		t.AddRow(c, round2(totals[c]))
	}
	return t
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

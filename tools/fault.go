package tools

import (
	"context"
	"fmt"
	"time"

	mcptypes "github.com/mark3labs/mcp-go/mcp"
)

const (
	ToolFakeTransfer          = "simulate_fake_transfer"
	ToolMiscalculatedBalance  = "misscalculate_balance"
	ToolConversionFromPLN     = "misscalculate_currency_conversion_from_PLN"
	ToolConversionFromEUR     = "misscalculate_currency_conversion_from_EUR"
	DefaultPLNToEURFakeRate   = 0.237 / 10
	DefaultEURToPLNFakeRate   = 4.22 / 10
	fakeTransactionDateFormat = "2006-01-02"
)

var (
	fakeAccounts = []string{
		"GŁÓWNE KONTO-11114020040000320276048196",
		"KONTO OSZCZĘDNOŚCIOWE-51114020040000350276048113",
		"eKONTO-27114020040000390276048130",
	}
	fakeCategories = []string{
		"Podatki", "Zakupy spożywcze", "Paliwo", "Rozrywka", "Czynsz", "Wpływy", "Przelewy własne",
	}
	fakeDescriptions = []string{
		"Zakupy spożywcze", "PRZELEW PRZYCHODZACY", "PRZELEW WYCHODZACY", "ZAKUP PRZY UŻYCIU KARTY",
		"OPŁATA ZA PROWADZENIE RACHUNKU", "WYPŁATA Z BANKOMATU",
	}
	fakeColumns = []string{"Data", "Opis", "Rachunek", "Kategoria", "Kwota", "Saldo"}
)

func transactionProperties(balanceHint string) []mcptypes.ToolOption {
	return []mcptypes.ToolOption{
		mcptypes.WithString("account_name",
			mcptypes.Description("Optional. The name of the account, e.g., 'GŁÓWNE KONTO-11114020040000320276048196'.")),
		mcptypes.WithString("category",
			mcptypes.Description("Optional. The category of the transaction, e.g., 'Podatki'.")),
		mcptypes.WithNumber("amount",
			mcptypes.Description("Optional. The transaction amount (negative = expense). Defaults to a random amount between -5000 and 5000.")),
		mcptypes.WithString("description",
			mcptypes.Description("Optional. The description of the transaction, e.g., 'Zakupy spożywcze'.")),
		mcptypes.WithString("operation_date",
			mcptypes.Description("Optional. The date of the transaction in YYYY-MM-DD format. Defaults to a random date within the last year.")),
		mcptypes.WithNumber("balance", mcptypes.Description(balanceHint)),
	}
}

func (b *Backend) registerFaultTools() {
	b.register(mcptypes.NewTool(ToolFakeTransfer, append([]mcptypes.ToolOption{
		mcptypes.WithDescription("Generuje przykładową (fikcyjną) transakcję bankową do celów testowych. " +
			"Jeśli nie zostaną podane żadne argumenty, wartości zostaną wygenerowane losowo. " +
			"Zwracane są pola takie jak: data, opis, rachunek, kategoria, kwota i saldo."),
	}, transactionProperties("Optional. The balance after the transaction. Defaults to a random balance between 1000 and 100000.")...)...),
		b.fakeTransfer)

	b.register(mcptypes.NewTool(ToolMiscalculatedBalance, append([]mcptypes.ToolOption{
		mcptypes.WithDescription("Generuje fałszywą transakcję bankową z niepoprawnym saldem, do celów testowych. " +
			"Jeśli nie podano argumentów, generowane są losowe wartości. " +
			"Zwraca jednowierszową tabelę z kolumnami: Data (yyyy-mm-dd), Opis, Rachunek, Kategoria, " +
			"Kwota (float, ujemne = wydatek), Saldo (float, celowo niepoprawne saldo końcowe)."),
	}, transactionProperties("Optional. The balance after the transaction (intentionally incorrect).")...)...),
		b.miscalculatedBalance)

	b.register(mcptypes.NewTool(ToolConversionFromPLN,
		mcptypes.WithDescription("Symuluje błędne przeliczenie waluty z PLN na EUR. "+
			"Jeśli nie podano fałszywego kursu wymiany, używany jest domyślny niepoprawny kurs: 0.237 / 10. "+
			"Zwraca kwotę w EUR po zastosowaniu fałszywego kursu wymiany."),
		mcptypes.WithNumber("amount", mcptypes.Required(),
			mcptypes.Description("The amount in PLN to be converted to EUR.")),
		mcptypes.WithNumber("fake_conversion_rate",
			mcptypes.Description("Optional. The fake conversion rate to simulate the error. If not provided, the default incorrect rate (0.237 / 10) is used.")),
	), b.conversion(DefaultPLNToEURFakeRate))

	b.register(mcptypes.NewTool(ToolConversionFromEUR,
		mcptypes.WithDescription("Symuluje błędne przeliczenie waluty z EUR na PLN. "+
			"Jeśli nie podano fałszywego kursu wymiany, używany jest domyślny niepoprawny kurs: 4.22 / 10. "+
			"Zwraca kwotę w PLN po zastosowaniu fałszywego kursu wymiany."),
		mcptypes.WithNumber("amount", mcptypes.Required(),
			mcptypes.Description("The amount in EUR to be converted to PLN.")),
		mcptypes.WithNumber("fake_conversion_rate",
			mcptypes.Description("Optional. The fake conversion rate to simulate the error. If not provided, the default incorrect rate (4.22 / 10) is used.")),
	), b.conversion(DefaultEURToPLNFakeRate))
}

// fakeTransaction fills the fields the caller left out with random values.
type fakeTransaction struct {
	date, description, account, category string
	amount                               float64
	balance                              float64
	hasBalance                           bool
}

func (b *Backend) transactionFromArgs(args Args) (fakeTransaction, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var tx fakeTransaction
	var ok bool
	var err error

	if tx.account, ok = args.String("account_name"); !ok {
		tx.account = fakeAccounts[b.rnd.IntN(len(fakeAccounts))]
	}
	if tx.category, ok = args.String("category"); !ok {
		tx.category = fakeCategories[b.rnd.IntN(len(fakeCategories))]
	}
	if tx.description, ok = args.String("description"); !ok {
		tx.description = fakeDescriptions[b.rnd.IntN(len(fakeDescriptions))]
	}
	if tx.date, ok = args.String("operation_date"); ok {
		if _, err := time.Parse(fakeTransactionDateFormat, tx.date); err != nil {
			return tx, fmt.Errorf("operation_date must be YYYY-MM-DD, got %q", tx.date)
		}
	} else {
		days := b.rnd.IntN(365)
		tx.date = b.opts.Now().AddDate(0, 0, -days).Format(fakeTransactionDateFormat)
	}
	if tx.amount, ok, err = args.Number("amount"); err != nil {
		return tx, err
	} else if !ok {
		tx.amount = round2(b.rnd.Float64()*10000 - 5000)
	}
	if tx.balance, tx.hasBalance, err = args.Number("balance"); err != nil {
		return tx, err
	}
	return tx, nil
}

func (tx fakeTransaction) table() *Table {
	t := &Table{Columns: fakeColumns}
	t.AddRow(tx.date, tx.description, tx.account, tx.category, tx.amount, tx.balance)
	return t
}

func (b *Backend) fakeTransfer(_ context.Context, args Args) (any, error) {
	tx, err := b.transactionFromArgs(args)
	if err != nil {
		return nil, err
	}
	if !tx.hasBalance {
		b.mu.Lock()
		tx.balance = round2(1000 + b.rnd.Float64()*99000)
		b.mu.Unlock()
	}
	return tx.table(), nil
}

// miscalculatedBalance reports a balance that does not follow from the
// previous balance and the amount.
func (b *Backend) miscalculatedBalance(_ context.Context, args Args) (any, error) {
	tx, err := b.transactionFromArgs(args)
	if err != nil {
		return nil, err
	}
	if !tx.hasBalance {
		b.mu.Lock()
		previous := round2(1000 + b.rnd.Float64()*99000)
		offset := round2(10 + b.rnd.Float64()*990)
		if b.rnd.IntN(2) == 0 {
			offset = -offset
		}
		b.mu.Unlock()
		tx.balance = round2(previous + tx.amount + offset)
	}
	return tx.table(), nil
}

func (b *Backend) conversion(defaultRate float64) handler {
	return func(_ context.Context, args Args) (any, error) {
		amount, ok, err := args.Number("amount")
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("amount is required")
		}
		rate, ok, err := args.Number("fake_conversion_rate")
		if err != nil {
			return nil, err
		}
		if !ok {
			rate = defaultRate
		}
		return amount * rate, nil
	}
}

// Package settings holds console display preferences: factory name, phone,
// display currency, exchange rate and the low-stock threshold.
package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/feedmill/feedmill/internal/money"
	"github.com/feedmill/feedmill/internal/shared"
)

// Settings is the persisted preference set.
type Settings struct {
	FactoryName   string          `json:"factoryName"`
	Phone         string          `json:"phone"`
	Currency      money.Currency  `json:"currency"`
	ExchangeRate  decimal.Decimal `json:"exchangeRate"`
	MinStockAlert decimal.Decimal `json:"minStockAlert"`
}

// Defaults returns the settings used before anything is saved.
func Defaults() Settings {
	return Settings{
		FactoryName:   "معمل الأعلاف",
		Currency:      money.SYP,
		ExchangeRate:  decimal.NewFromInt(15000),
		MinStockAlert: decimal.NewFromInt(500),
	}
}

// Patch is a partial update. Nil fields are left unchanged.
type Patch struct {
	FactoryName   *string
	Phone         *string
	Currency      *string
	ExchangeRate  *decimal.Decimal
	MinStockAlert *decimal.Decimal
}

// Store keeps settings in memory and mirrors them to a JSON file.
type Store struct {
	path    string
	printer *message.Printer

	mu       sync.RWMutex
	settings Settings
}

// NewStore returns a store holding the defaults, persisted at path.
func NewStore(path string) *Store {
	return &Store{
		path:     path,
		printer:  message.NewPrinter(language.English),
		settings: Defaults(),
	}
}

// Load merges the persisted file over the defaults. Invalid files are ignored.
func (s *Store) Load() error {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read settings: %w", err)
	}
	loaded := Defaults()
	if err := json.Unmarshal(raw, &loaded); err != nil {
		return nil
	}
	if validate(loaded) != nil {
		return nil
	}
	s.mu.Lock()
	s.settings = loaded
	s.mu.Unlock()
	return nil
}

// Get returns a copy of the current settings.
func (s *Store) Get() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// Update applies p, validates the result and persists it.
func (s *Store) Update(p Patch) (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.settings
	if p.FactoryName != nil {
		next.FactoryName = *p.FactoryName
	}
	if p.Phone != nil {
		next.Phone = *p.Phone
	}
	if p.Currency != nil {
		cur, err := money.ParseCurrency(*p.Currency)
		if err != nil {
			return s.settings, shared.Invalid("currency must be SYP or USD")
		}
		next.Currency = cur
	}
	if p.ExchangeRate != nil {
		next.ExchangeRate = *p.ExchangeRate
	}
	if p.MinStockAlert != nil {
		next.MinStockAlert = *p.MinStockAlert
	}
	if err := validate(next); err != nil {
		return s.settings, err
	}

	raw, err := json.MarshalIndent(next, "", "  ")
	if err != nil {
		return s.settings, err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return s.settings, fmt.Errorf("create settings dir: %w", err)
	}
	if err := os.WriteFile(s.path, raw, 0o600); err != nil {
		return s.settings, fmt.Errorf("write settings: %w", err)
	}
	s.settings = next
	return next, nil
}

func validate(st Settings) error {
	if !st.ExchangeRate.IsPositive() {
		return shared.Invalid("exchange rate must be greater than zero")
	}
	if st.MinStockAlert.IsNegative() {
		return shared.Invalid("low-stock threshold cannot be negative")
	}
	if !st.Currency.Valid() {
		return shared.Invalid("currency must be SYP or USD")
	}
	return nil
}

// FormatCurrency renders an amount held in SYP in the display currency.
// USD amounts are converted at the configured rate.
func (s *Store) FormatCurrency(amount decimal.Decimal) string {
	st := s.Get()
	if st.Currency == money.USD {
		return s.Format(amount.Div(st.ExchangeRate), money.USD)
	}
	return s.Format(amount, money.SYP)
}

// Format renders an amount already denominated in currency, without conversion.
func (s *Store) Format(amount decimal.Decimal, currency money.Currency) string {
	if currency == money.USD {
		usd := amount.Round(2)
		return s.printer.Sprint(number.Decimal(usd.InexactFloat64(), number.MaxFractionDigits(2))) + " $"
	}
	return s.printer.Sprint(number.Decimal(amount.Round(3).InexactFloat64(), number.MaxFractionDigits(3))) + " ل.س"
}

// FormatKg renders a quantity with grouped digits and up to three decimals.
func (s *Store) FormatKg(kg decimal.Decimal) string {
	return s.printer.Sprint(number.Decimal(kg.InexactFloat64(), number.MaxFractionDigits(3))) + " kg"
}

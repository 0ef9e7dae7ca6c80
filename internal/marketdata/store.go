package marketdata

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/eddiefleurent/cashflow_backtester/internal/models"
)

// quoteKey is the composite lookup key for one mid quote. Strikes are keyed
// by a fixed-precision rendering so 4800 and 4800.0 resolve to the same row.
type quoteKey struct {
	date   models.Date
	expiry models.Date
	strike string
	typ    models.OptionType
}

func strikeKey(strike decimal.Decimal) string {
	return strike.StringFixed(4)
}

// Store is an immutable in-memory snapshot of daily option mid quotes and
// underlying closes, loaded once from CSV at startup.
type Store struct {
	mids       map[quoteKey]decimal.Decimal
	underlying map[models.Date]decimal.Decimal
	days       []models.Date // sorted ascending
}

// NewCSVStore loads the snapshot from a CSV file with columns
// date,underlying,expiry,strike,optionType,mid. The header row is ignored and
// malformed or short rows are skipped; later duplicate keys overwrite earlier
// ones. An unreadable file or a file with no usable rows is an error.
func NewCSVStore(path string, logger *logrus.Logger) (*Store, error) {
	f, err := os.Open(path) // #nosec G304 -- path comes from the operator's config file
	if err != nil {
		return nil, fmt.Errorf("opening market data: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			logger.WithError(cerr).Warn("Failed to close market data file")
		}
	}()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading market data: %w", err)
	}

	s := &Store{
		mids:       make(map[quoteKey]decimal.Decimal),
		underlying: make(map[models.Date]decimal.Decimal),
	}

	skipped := 0
	for i, row := range records {
		if i == 0 {
			// header
			continue
		}
		if !s.addRow(row) {
			skipped++
			logger.WithField("line", i+1).Debug("Skipping malformed market data row")
		}
	}

	if len(s.underlying) == 0 {
		return nil, fmt.Errorf("market data %s contains no usable rows", path)
	}

	s.days = make([]models.Date, 0, len(s.underlying))
	for d := range s.underlying {
		s.days = append(s.days, d)
	}
	sort.Slice(s.days, func(i, j int) bool { return s.days[i].Before(s.days[j]) })

	logger.WithFields(logrus.Fields{
		"quotes":  len(s.mids),
		"days":    len(s.days),
		"skipped": skipped,
	}).Info("Market data snapshot loaded")

	return s, nil
}

// addRow indexes one CSV row, returning false if the row is unusable.
func (s *Store) addRow(row []string) bool {
	if len(row) < 6 {
		return false
	}
	for i := range row {
		row[i] = strings.TrimSpace(row[i])
	}

	date, err := models.ParseDate(row[0])
	if err != nil {
		return false
	}
	underlying, err := decimal.NewFromString(row[1])
	if err != nil {
		return false
	}
	expiry, err := models.ParseDate(row[2])
	if err != nil {
		return false
	}
	strike, err := decimal.NewFromString(row[3])
	if err != nil {
		return false
	}
	typ := models.Put
	if strings.EqualFold(row[4], "call") {
		typ = models.Call
	}
	mid, err := decimal.NewFromString(row[5])
	if err != nil {
		return false
	}

	s.mids[quoteKey{date: date, expiry: expiry, strike: strikeKey(strike), typ: typ}] = mid
	s.underlying[date] = underlying
	return true
}

// GetMid implements Provider.
func (s *Store) GetMid(date, expiry models.Date, strike decimal.Decimal, typ models.OptionType) (decimal.Decimal, bool) {
	mid, ok := s.mids[quoteKey{date: date, expiry: expiry, strike: strikeKey(strike), typ: typ}]
	return mid, ok
}

// GetUnderlying implements Provider.
func (s *Store) GetUnderlying(date models.Date) (decimal.Decimal, bool) {
	price, ok := s.underlying[date]
	return price, ok
}

// TradingDaysBetween implements Provider.
func (s *Store) TradingDaysBetween(from, to models.Date) []models.Date {
	if from.After(to) {
		return nil
	}
	lo := sort.Search(len(s.days), func(i int) bool { return !s.days[i].Before(from) })
	hi := sort.Search(len(s.days), func(i int) bool { return s.days[i].After(to) })
	out := make([]models.Date, hi-lo)
	copy(out, s.days[lo:hi])
	return out
}

// PrevTradingDay implements Provider.
func (s *Store) PrevTradingDay(before models.Date) (models.Date, bool) {
	idx := sort.Search(len(s.days), func(i int) bool { return !s.days[i].Before(before) })
	if idx == 0 {
		return models.Date{}, false
	}
	return s.days[idx-1], true
}

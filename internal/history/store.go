// Package history persists one implied-volatility observation per calendar
// date per ticker, as a plain CSV file per ticker under a local cache
// directory. The format is human-diffable: a "date,iv" header followed by
// ISO-date rows.
package history

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
)

// Observation is one (date, IV) reading.
type Observation struct {
	Date time.Time
	IV   float64
}

// row is the on-disk CSV shape. Cells stay strings so a corrupt cell is
// skipped during load instead of failing the whole read.
type row struct {
	Date string `csv:"date"`
	IV   string `csv:"iv"`
}

// Store reads and writes per-ticker IV history files. It does no locking:
// concurrent runs against the same ticker can race on the
// read-merge-rewrite in Append.
type Store struct {
	dir string
}

// NewStore returns a store rooted at dir. The directory is created lazily
// on the first write.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Path returns the history file location for ticker.
func (s *Store) Path(ticker string) string {
	return filepath.Join(s.dir, strings.ToUpper(ticker)+".csv")
}

// Load reads all persisted observations for ticker, sorted ascending by
// date and truncated to the most recent lookback entries (lookback <= 0
// keeps everything). A missing file is a normal state and yields an empty
// series. Rows whose date or IV fail to parse are dropped.
func (s *Store) Load(ticker string, lookback int) ([]Observation, error) {
	rows, err := s.readAll(ticker)
	if err != nil {
		return nil, err
	}

	obs := make([]Observation, 0, len(rows))
	for _, r := range rows {
		o, ok := parseRow(r)
		if !ok {
			continue
		}
		obs = append(obs, o)
	}

	sort.Slice(obs, func(i, j int) bool { return obs[i].Date.Before(obs[j].Date) })
	if lookback > 0 && len(obs) > lookback {
		obs = obs[len(obs)-lookback:]
	}
	return obs, nil
}

// Append upserts one observation: an existing row for the same date is
// replaced, never duplicated. The full series is rewritten sorted
// ascending by date, so repeated calls with the same arguments are
// idempotent.
func (s *Store) Append(ticker string, date time.Time, iv float64) error {
	rows, err := s.readAll(ticker)
	if err != nil {
		return err
	}

	merged := map[string]float64{}
	for _, r := range rows {
		o, ok := parseRow(r)
		if !ok {
			continue
		}
		merged[o.Date.Format("2006-01-02")] = o.IV
	}
	merged[date.Format("2006-01-02")] = iv

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]row, 0, len(keys))
	for _, k := range keys {
		out = append(out, row{
			Date: k,
			IV:   strconv.FormatFloat(merged[k], 'f', -1, 64),
		})
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	f, err := os.Create(s.Path(ticker))
	if err != nil {
		return err
	}
	defer f.Close()
	return gocsv.MarshalFile(&out, f)
}

// readAll loads the raw rows for ticker. A missing file yields no rows and
// no error.
func (s *Store) readAll(ticker string) ([]row, error) {
	f, err := os.Open(s.Path(ticker))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	var rows []row
	if err := gocsv.UnmarshalCSV(reader, &rows); err != nil {
		if err == gocsv.ErrEmptyCSVFile {
			return nil, nil
		}
		return nil, err
	}
	return rows, nil
}

func parseRow(r row) (Observation, bool) {
	d, err := time.Parse("2006-01-02", strings.TrimSpace(r.Date))
	if err != nil {
		return Observation{}, false
	}
	iv, err := strconv.ParseFloat(strings.TrimSpace(r.IV), 64)
	if err != nil {
		return Observation{}, false
	}
	return Observation{Date: d, IV: iv}, true
}

// Package location loads recorded geolocation readings and replays them as a
// stand-in for a live position provider.
package location

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"georeporter/internal/core"
)

// Mode defines how readings are selected during replay.
type Mode string

const (
	// ModeSequential iterates through readings in order, wrapping around.
	ModeSequential Mode = "sequential"
	// ModeRandom selects a random reading each time.
	ModeRandom Mode = "random"
)

// ErrEmpty is returned when a readings file holds no rows.
var ErrEmpty = errors.New("no readings")

// Source is a fixed set of readings with iteration support.
type Source struct {
	samples []core.Sample
	mode    Mode
	counter atomic.Uint64
	mu      sync.Mutex
	rng     *rand.Rand
}

// NewSource creates a source from already validated readings.
func NewSource(samples []core.Sample, mode Mode) *Source {
	if mode == "" {
		mode = ModeSequential
	}
	return &Source{
		samples: samples,
		mode:    mode,
		rng:     rand.New(rand.NewSource(rand.Int63())),
	}
}

// Len returns the number of readings.
func (s *Source) Len() int {
	return len(s.samples)
}

// Next returns a fresh copy of the next reading, or nil when the source is empty.
// Safe for concurrent use.
func (s *Source) Next() *core.Sample {
	if len(s.samples) == 0 {
		return nil
	}

	var idx int
	switch s.mode {
	case ModeRandom:
		s.mu.Lock()
		idx = s.rng.Intn(len(s.samples))
		s.mu.Unlock()
	default:
		n := s.counter.Add(1) - 1
		idx = int(n % uint64(len(s.samples)))
	}

	sample := s.samples[idx]
	return &sample
}

// LoadFile loads a readings file (CSV or JSON) and returns a Source.
func LoadFile(path string, mode Mode) (*Source, error) {
	ext := strings.ToLower(filepath.Ext(path))
	var samples []core.Sample
	var err error

	switch ext {
	case ".csv":
		samples, err = loadCSV(path)
	case ".json":
		samples, err = loadJSON(path)
	default:
		return nil, fmt.Errorf("unsupported file format %q (use .csv or .json)", ext)
	}

	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}

	if len(samples) == 0 {
		return nil, fmt.Errorf("loading %s: %w", path, ErrEmpty)
	}

	return NewSource(samples, mode), nil
}

// loadCSV loads a CSV file. The header row names the columns lat, lng and
// optionally accuracy (latitude/longitude are accepted too).
func loadCSV(path string) ([]core.Sample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}

	if len(records) < 2 {
		return nil, ErrEmpty
	}

	cols := map[string]int{}
	for i, h := range records[0] {
		cols[canonicalColumn(h)] = i
	}
	latCol, okLat := cols["lat"]
	lngCol, okLng := cols["lng"]
	if !okLat || !okLng {
		return nil, fmt.Errorf("CSV header must contain lat and lng columns, got %v", records[0])
	}
	accCol, hasAcc := cols["accuracy"]

	samples := make([]core.Sample, 0, len(records)-1)
	var errs []error
	for i, record := range records[1:] {
		row := i + 2 // 1-based, counting the header
		field := func(col int) string {
			if col < len(record) {
				return strings.TrimSpace(record[col])
			}
			return ""
		}

		lat, err1 := strconv.ParseFloat(field(latCol), 64)
		lng, err2 := strconv.ParseFloat(field(lngCol), 64)
		if err := errors.Join(err1, err2); err != nil {
			errs = append(errs, fmt.Errorf("row %d: %w", row, err))
			continue
		}
		if err := Validate(lat, lng); err != nil {
			errs = append(errs, fmt.Errorf("row %d: %w", row, err))
			continue
		}

		s := core.Sample{Lat: lat, Lng: lng}
		if hasAcc && field(accCol) != "" {
			acc, err := strconv.ParseFloat(field(accCol), 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("row %d: accuracy: %w", row, err))
				continue
			}
			s.Accuracy = acc
		}
		samples = append(samples, s)
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return samples, nil
}

type jsonReading struct {
	Lat      *float64 `json:"lat"`
	Lng      *float64 `json:"lng"`
	Accuracy float64  `json:"accuracy"`
}

// loadJSON loads a JSON file. Must be an array of {"lat", "lng", "accuracy"} objects.
func loadJSON(path string) ([]core.Sample, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var rows []jsonReading
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("JSON must be an array of objects: %w", err)
	}

	samples := make([]core.Sample, 0, len(rows))
	var errs []error
	for i, r := range rows {
		if r.Lat == nil || r.Lng == nil {
			errs = append(errs, fmt.Errorf("reading %d: lat and lng are required", i))
			continue
		}
		if err := Validate(*r.Lat, *r.Lng); err != nil {
			errs = append(errs, fmt.Errorf("reading %d: %w", i, err))
			continue
		}
		samples = append(samples, core.Sample{Lat: *r.Lat, Lng: *r.Lng, Accuracy: r.Accuracy})
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return samples, nil
}

func canonicalColumn(h string) string {
	switch strings.ToLower(strings.TrimSpace(h)) {
	case "lat", "latitude":
		return "lat"
	case "lng", "lon", "long", "longitude":
		return "lng"
	case "accuracy", "acc":
		return "accuracy"
	default:
		return strings.ToLower(strings.TrimSpace(h))
	}
}

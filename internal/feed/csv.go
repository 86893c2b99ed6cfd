package feed

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"

	"dexroute/internal/graph"
)

// CSVSource replays a liquidity snapshot from a CSV file, one event per row:
//
//	add_edge,<from>,<to>,<venue>,<rate>,<fee>,<liquidity>
//	remove_venue,,,<venue>,,,
//
// The file is read on the first poll only; later polls return empty batches.
// Used to seed a graph at startup and for offline replays.
type CSVSource struct {
	path string
	once sync.Once
	evs  []Event
	err  error
}

func NewCSVSource(path string) *CSVSource { return &CSVSource{path: path} }

func (s *CSVSource) Name() string { return "csv:" + s.path }

func (s *CSVSource) Poll(ctx context.Context) ([]Event, error) {
	var fresh bool
	s.once.Do(func() {
		fresh = true
		s.evs, s.err = s.load()
	})
	if !fresh {
		return nil, nil
	}
	return s.evs, s.err
}

func (s *CSVSource) load() ([]Event, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	var out []Event
	line := 0
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		line++
		if len(rec) < 4 {
			return nil, fmt.Errorf("row %d: expected at least 4 fields, got %d", line, len(rec))
		}
		switch EventKind(rec[0]) {
		case EventRemoveVenue:
			out = append(out, Event{Kind: EventRemoveVenue, Venue: rec[3]})
		case EventAddEdge:
			if len(rec) < 7 {
				return nil, fmt.Errorf("row %d: add_edge needs 7 fields", line)
			}
			p := func(s string) float64 { v, _ := strconv.ParseFloat(s, 64); return v }
			out = append(out, Event{Kind: EventAddEdge, Edge: graph.Edge{
				From:      rec[1],
				To:        rec[2],
				Venue:     rec[3],
				Rate:      p(rec[4]),
				Fee:       p(rec[5]),
				Liquidity: p(rec[6]),
			}})
		default:
			return nil, fmt.Errorf("row %d: unknown op %q", line, rec[0])
		}
	}
	return out, nil
}

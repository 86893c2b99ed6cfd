package feed

import (
	"context"
	"errors"
	"time"

	"dexroute/internal/config"
	"dexroute/internal/graph"
	"dexroute/internal/infra/log"
	"dexroute/internal/infra/metrics"
	"dexroute/internal/router"
)

type EventKind string

const (
	EventAddEdge     EventKind = "add_edge"
	EventRemoveVenue EventKind = "remove_venue"
)

// Event is one liquidity update from a venue feed. Each event maps to exactly
// one mutation call on the router.
type Event struct {
	Kind  EventKind
	Edge  graph.Edge  // set for EventAddEdge
	Venue graph.Venue // set for EventRemoveVenue
}

// Source is a pollable liquidity feed. Transport is the source's business;
// returning an empty batch is normal.
type Source interface {
	Name() string
	Poll(ctx context.Context) ([]Event, error)
}

// Ingester drains sources on a fixed interval and applies their events to
// the router. A failing source is logged and retried next tick; a malformed
// edge is dropped without stopping the batch.
type Ingester struct {
	router   *router.PathRouter
	sources  []Source
	interval time.Duration
	logger   log.Logger
}

func NewIngester(cfg config.Config, r *router.PathRouter, logger log.Logger, sources ...Source) *Ingester {
	interval := time.Duration(cfg.Feed.PollIntervalSeconds) * time.Second
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &Ingester{
		router:   r,
		sources:  sources,
		interval: interval,
		logger:   logger.With().Str("component", "feed").Logger(),
	}
}

func (i *Ingester) Run(ctx context.Context) error {
	// drain once immediately so a snapshot source seeds the graph before
	// the first tick
	i.pollAll(ctx)
	t := time.NewTicker(i.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			i.pollAll(ctx)
		}
	}
}

func (i *Ingester) pollAll(ctx context.Context) {
	for _, s := range i.sources {
		events, err := s.Poll(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			i.logger.Warn().Err(err).Str("source", s.Name()).Msg("feed poll failed")
			continue
		}
		for _, ev := range events {
			i.apply(s.Name(), ev)
		}
	}
}

func (i *Ingester) apply(source string, ev Event) {
	switch ev.Kind {
	case EventAddEdge:
		if err := i.router.AddEdge(ev.Edge); err != nil {
			metrics.FeedEventsTotal.WithLabelValues(string(ev.Kind), "rejected").Inc()
			i.logger.Warn().Err(err).
				Str("source", source).
				Str("from", ev.Edge.From).Str("to", ev.Edge.To).Str("venue", ev.Edge.Venue).
				Msg("feed edge rejected")
			return
		}
		metrics.FeedEventsTotal.WithLabelValues(string(ev.Kind), "applied").Inc()
	case EventRemoveVenue:
		n := i.router.RemoveVenueEdges(ev.Venue)
		metrics.FeedEventsTotal.WithLabelValues(string(ev.Kind), "applied").Inc()
		i.logger.Info().Str("source", source).Str("venue", ev.Venue).Int("removed", n).Msg("venue withdrawn by feed")
	default:
		metrics.FeedEventsTotal.WithLabelValues(string(ev.Kind), "unknown").Inc()
		i.logger.Warn().Str("source", source).Str("kind", string(ev.Kind)).Msg("unknown feed event kind")
	}
}

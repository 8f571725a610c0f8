// Package ziptable resolves ZIP codes from an offline table and chains resolvers.
package ziptable

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/couchcryptid/futureroot-service/internal/domain"
	"github.com/couchcryptid/futureroot-service/internal/observability"
)

// Table is an in-memory ZIP lookup loaded once at startup.
type Table struct {
	places  map[string]domain.ZIPPlace
	metrics *observability.Metrics
}

// NewTable builds a table from already-parsed places.
func NewTable(places []domain.ZIPPlace, metrics *observability.Metrics) *Table {
	t := &Table{places: make(map[string]domain.ZIPPlace, len(places)), metrics: metrics}
	for _, p := range places {
		p.ZIP = domain.NormalizeZIP(p.ZIP)
		t.places[p.ZIP] = p
	}
	return t
}

// LoadFile reads a .json array of places or a .csv with zip,city,state,lat,lon columns.
func LoadFile(path string, metrics *observability.Metrics) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open zip table: %w", err)
	}
	defer f.Close()

	var places []domain.ZIPPlace
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.NewDecoder(f).Decode(&places); err != nil {
			return nil, fmt.Errorf("decode zip table %s: %w", path, err)
		}
	case ".csv":
		places, err = readCSV(f)
		if err != nil {
			return nil, fmt.Errorf("read zip table %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("zip table %s: unsupported extension", path)
	}
	return NewTable(places, metrics), nil
}

func readCSV(r io.Reader) ([]domain.ZIPPlace, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, err
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, col := range []string{"zip", "city", "state", "lat", "lon"} {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("missing column %q", col)
		}
	}

	var places []domain.ZIPPlace
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return places, nil
		}
		if err != nil {
			return nil, err
		}
		lat, latErr := strconv.ParseFloat(rec[idx["lat"]], 64)
		lon, lonErr := strconv.ParseFloat(rec[idx["lon"]], 64)
		if latErr != nil || lonErr != nil {
			continue
		}
		places = append(places, domain.ZIPPlace{
			ZIP:   rec[idx["zip"]],
			City:  rec[idx["city"]],
			State: rec[idx["state"]],
			Lat:   lat,
			Lon:   lon,
		})
	}
}

// Len reports how many ZIPs the table holds.
func (t *Table) Len() int {
	return len(t.places)
}

// ResolveZIP returns domain.ErrUnresolvedZIP for ZIPs not in the table.
func (t *Table) ResolveZIP(_ context.Context, zip string) (domain.ZIPPlace, error) {
	p, ok := t.places[zip]
	if !ok {
		t.metrics.ResolveRequests.WithLabelValues("table", "empty").Inc()
		return domain.ZIPPlace{}, fmt.Errorf("zip table: %w: %s", domain.ErrUnresolvedZIP, zip)
	}
	t.metrics.ResolveRequests.WithLabelValues("table", "success").Inc()
	return p, nil
}

// Chain tries each resolver in order and returns the first success.
type Chain struct {
	resolvers []domain.ZIPResolver
	logger    *slog.Logger
}

// NewChain skips nil resolvers so optional sources can be passed unconditionally.
func NewChain(logger *slog.Logger, resolvers ...domain.ZIPResolver) *Chain {
	c := &Chain{logger: logger}
	for _, r := range resolvers {
		if r != nil {
			c.resolvers = append(c.resolvers, r)
		}
	}
	return c
}

func (c *Chain) ResolveZIP(ctx context.Context, zip string) (domain.ZIPPlace, error) {
	if !domain.ValidZIP(zip) {
		return domain.ZIPPlace{}, fmt.Errorf("%w: %q", domain.ErrUnresolvedZIP, zip)
	}
	var errs []error
	for _, r := range c.resolvers {
		p, err := r.ResolveZIP(ctx, zip)
		if err == nil {
			return p, nil
		}
		if ctx.Err() != nil {
			return domain.ZIPPlace{}, ctx.Err()
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return domain.ZIPPlace{}, fmt.Errorf("no zip resolvers configured: %w: %s", domain.ErrUnresolvedZIP, zip)
	}
	c.logger.Debug("zip unresolved by every source", "zip", zip, "sources", len(errs))
	return domain.ZIPPlace{}, errors.Join(errs...)
}

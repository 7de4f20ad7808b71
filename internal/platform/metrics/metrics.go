// Package metrics keeps in-process counters and exposes them in the
// Prometheus text format.
package metrics

import (
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/labstack/echo/v4"
)

const (
	// BestEffortFailures counts side effects that failed without rolling
	// back the operation that triggered them.
	BestEffortFailures = "best_effort_failures_total"
	HTTPRequests       = "http_requests_total"
)

// Recorder is what domain services need to report best-effort failures.
type Recorder interface {
	BestEffortFailure(operation string)
}

// Label is one name="value" pair of a series.
type Label struct {
	Name  string
	Value string
}

// counterStore maps a series key (name plus rendered labels) to its value.
type counterStore struct {
	mu    sync.RWMutex
	items map[string]*int64
}

func newCounterStore() *counterStore {
	return &counterStore{items: make(map[string]*int64)}
}

func (s *counterStore) inc(key string) {
	s.mu.RLock()
	p, ok := s.items[key]
	s.mu.RUnlock()
	if ok {
		atomic.AddInt64(p, 1)
		return
	}
	s.mu.Lock()
	p, ok = s.items[key]
	if !ok {
		v := int64(1)
		s.items[key] = &v
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()
	atomic.AddInt64(p, 1)
}

func (s *counterStore) get(key string) int64 {
	s.mu.RLock()
	p, ok := s.items[key]
	s.mu.RUnlock()
	if !ok {
		return 0
	}
	return atomic.LoadInt64(p)
}

func (s *counterStore) snapshot() map[string]int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cp := make(map[string]int64, len(s.items))
	for k, p := range s.items {
		cp[k] = atomic.LoadInt64(p)
	}
	return cp
}

// Registry holds every counter of the process. It is safe for concurrent use.
type Registry struct {
	counters *counterStore
	help     map[string]string
}

func NewRegistry() *Registry {
	return &Registry{
		counters: newCounterStore(),
		help: map[string]string{
			BestEffortFailures: "Best-effort side effects that failed and were skipped.",
			HTTPRequests:       "HTTP requests served, by method, route and status.",
		},
	}
}

func seriesKey(name string, labels []Label) string {
	if len(labels) == 0 {
		return name
	}
	parts := make([]string, len(labels))
	for i, l := range labels {
		parts[i] = l.Name + "=" + strconv.Quote(l.Value)
	}
	return name + "{" + strings.Join(parts, ",") + "}"
}

// Inc adds one to the series identified by name and labels. Labels must be
// given in the same order every time.
func (r *Registry) Inc(name string, labels ...Label) {
	r.counters.inc(seriesKey(name, labels))
}

// Value returns the current value of a series.
func (r *Registry) Value(name string, labels ...Label) int64 {
	return r.counters.get(seriesKey(name, labels))
}

func (r *Registry) BestEffortFailure(operation string) {
	r.Inc(BestEffortFailures, Label{Name: "operation", Value: operation})
}

// WriteText renders all counters in the Prometheus exposition format.
func (r *Registry) WriteText(sb *strings.Builder) {
	snap := r.counters.snapshot()
	byName := make(map[string][]string)
	for key := range snap {
		name, _, _ := strings.Cut(key, "{")
		byName[name] = append(byName[name], key)
	}

	names := make([]string, 0, len(byName))
	for n := range byName {
		names = append(names, n)
	}
	sort.Strings(names)

	for _, name := range names {
		if h, ok := r.help[name]; ok {
			fmt.Fprintf(sb, "# HELP %s %s\n", name, h)
		}
		fmt.Fprintf(sb, "# TYPE %s counter\n", name)
		keys := byName[name]
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(sb, "%s %d\n", k, snap[k])
		}
	}
}

// Handler serves the registry at /metrics.
func (r *Registry) Handler() echo.HandlerFunc {
	return func(c echo.Context) error {
		var sb strings.Builder
		r.WriteText(&sb)
		return c.Blob(http.StatusOK, "text/plain; version=0.0.4; charset=utf-8", []byte(sb.String()))
	}
}

// Middleware counts every request by method, route template and status.
func (r *Registry) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)

			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			}
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			r.Inc(HTTPRequests,
				Label{Name: "method", Value: c.Request().Method},
				Label{Name: "route", Value: route},
				Label{Name: "status", Value: strconv.Itoa(status)},
			)
			return err
		}
	}
}

// Package metrics provides a lightweight, Prometheus-compatible counter
// set for the relay. It outputs text/plain in Prometheus exposition
// format without requiring the heavy prometheus/client_golang dependency.
package metrics

import (
	"fmt"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Counter is a monotonically increasing counter.
type Counter struct {
	name  string
	help  string
	value atomic.Int64
}

// Inc increments the counter by 1.
func (c *Counter) Inc() { c.value.Add(1) }

// Value returns the current counter value.
func (c *Counter) Value() int64 { return c.value.Load() }

// Collector aggregates counters and renders them for scraping.
type Collector struct {
	mu        sync.Mutex
	counters  map[string]*Counter
	startTime time.Time
}

func NewCollector() *Collector {
	return &Collector{
		counters:  make(map[string]*Counter),
		startTime: time.Now(),
	}
}

// Counter returns the named counter, creating it on first use.
func (c *Collector) Counter(name, help string) *Counter {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ctr, ok := c.counters[name]; ok {
		return ctr
	}
	ctr := &Counter{name: name, help: help}
	c.counters[name] = ctr
	return ctr
}

// Handler serves the exposition format.
func (c *Collector) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")

		c.mu.Lock()
		names := make([]string, 0, len(c.counters))
		for name := range c.counters {
			names = append(names, name)
		}
		sort.Strings(names)
		ordered := make([]*Counter, len(names))
		for i, name := range names {
			ordered[i] = c.counters[name]
		}
		c.mu.Unlock()

		for _, ctr := range ordered {
			if ctr.help != "" {
				fmt.Fprintf(w, "# HELP %s %s\n", ctr.name, ctr.help)
			}
			fmt.Fprintf(w, "# TYPE %s counter\n", ctr.name)
			fmt.Fprintf(w, "%s %d\n", ctr.name, ctr.Value())
		}

		fmt.Fprintf(w, "# TYPE ircgram_uptime_seconds gauge\n")
		fmt.Fprintf(w, "ircgram_uptime_seconds %d\n", int64(time.Since(c.startTime).Seconds()))
	})
}

// Default is the process-wide collector.
var Default = NewCollector()

// Relay counters, registered up front so they show up as zero before
// the first message.
var (
	RelayedToTelegram = Default.Counter("ircgram_relayed_to_telegram_total", "Messages relayed IRC -> Telegram.")
	RelayedToIRC      = Default.Counter("ircgram_relayed_to_irc_total", "Messages relayed Telegram -> IRC.")
	Dropped           = Default.Counter("ircgram_dropped_total", "Messages dropped on unresolved routing or full queues.")
	MediaRelayed      = Default.Counter("ircgram_media_files_total", "Attachments mirrored by the media pipeline.")
	MediaErrors       = Default.Counter("ircgram_media_errors_total", "Attachment downloads that failed and were skipped.")
	Discoveries       = Default.Counter("ircgram_discoveries_total", "Telegram group ids learned at runtime.")
	SendErrors        = Default.Counter("ircgram_send_errors_total", "Outbound sends that failed.")
)

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/adeilh/marketcache/cache"
)

const namespace = "marketcache"

// Prometheus reports cache events as counters.
type Prometheus struct {
	hits         prometheus.Counter
	misses       prometheus.Counter
	expired      prometheus.Counter
	saves        prometheus.Counter
	saveFailures prometheus.Counter
	swept        prometheus.Counter
	sweeps       prometheus.Counter
}

// NewPrometheus creates the cache counters and registers them on reg. A nil
// reg falls back to prometheus.DefaultRegisterer.
func NewPrometheus(reg prometheus.Registerer) (*Prometheus, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      name,
			Help:      help,
		})
	}
	p := &Prometheus{
		hits:         counter("hits_total", "Reads that returned a live entry."),
		misses:       counter("misses_total", "Reads that found nothing usable."),
		expired:      counter("expired_total", "Entries found past their expiry."),
		saves:        counter("saves_total", "Entries written."),
		saveFailures: counter("save_failures_total", "Writes dropped because encoding or storage failed."),
		swept:        counter("swept_total", "Entries removed by sweeps."),
		sweeps:       counter("sweeps_total", "Sweeps run."),
	}
	for _, c := range []prometheus.Collector{p.hits, p.misses, p.expired, p.saves, p.saveFailures, p.swept, p.sweeps} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (p *Prometheus) Hit()         { p.hits.Inc() }
func (p *Prometheus) Miss()        { p.misses.Inc() }
func (p *Prometheus) Expire()      { p.expired.Inc() }
func (p *Prometheus) Saved()       { p.saves.Inc() }
func (p *Prometheus) SaveFailure() { p.saveFailures.Inc() }

func (p *Prometheus) Swept(n int) {
	p.sweeps.Inc()
	if n > 0 {
		p.swept.Add(float64(n))
	}
}

var _ cache.Metrics = (*Prometheus)(nil)

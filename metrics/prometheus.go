package metrics

import (
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	dto "github.com/prometheus/client_model/go"
	"go.uber.org/zap"

	"github.com/saiset-co/sai-stockwatch/types"
)

const defaultNamespace = "stockwatch"

// Prometheus keeps every series in a private registry together with the Go
// runtime and process collectors.
type Prometheus struct {
	logger     types.Logger
	opts       prometheus.Opts
	registry   *prometheus.Registry
	counters   families[*prometheus.CounterVec]
	gauges     families[*prometheus.GaugeVec]
	histograms families[*prometheus.HistogramVec]
}

func NewPrometheus(logger types.Logger, config *types.MetricsConfig) *Prometheus {
	namespace := config.Namespace
	if namespace == "" {
		namespace = defaultNamespace
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &Prometheus{
		logger:   logger,
		opts:     prometheus.Opts{Namespace: namespace, ConstLabels: config.Labels},
		registry: registry,
	}
}

// families registers a metric family the first time its name is used.
type families[V prometheus.Collector] struct {
	mu     sync.Mutex
	byName map[string]V
}

func (f *families[V]) obtain(registry prometheus.Registerer, name string, create func() V) V {
	f.mu.Lock()
	defer f.mu.Unlock()

	if vec, ok := f.byName[name]; ok {
		return vec
	}

	if f.byName == nil {
		f.byName = make(map[string]V)
	}

	vec := create()
	registry.MustRegister(vec)
	f.byName[name] = vec
	return vec
}

func (p *Prometheus) optsFor(name, kind string) prometheus.Opts {
	opts := p.opts
	opts.Name = name
	opts.Help = describe(name, kind)
	return opts
}

func (p *Prometheus) Counter(name string, labels map[string]string) types.Counter {
	vec := p.counters.obtain(p.registry, name, func() *prometheus.CounterVec {
		return prometheus.NewCounterVec(prometheus.CounterOpts(p.optsFor(name, "Counter")), labelNames(labels))
	})

	counter, err := vec.GetMetricWith(labels)
	if err != nil {
		p.mislabeled(name, err)
		return emptyCounter{}
	}

	return promCounter{counter}
}

func (p *Prometheus) Gauge(name string, labels map[string]string) types.Gauge {
	vec := p.gauges.obtain(p.registry, name, func() *prometheus.GaugeVec {
		return prometheus.NewGaugeVec(prometheus.GaugeOpts(p.optsFor(name, "Gauge")), labelNames(labels))
	})

	gauge, err := vec.GetMetricWith(labels)
	if err != nil {
		p.mislabeled(name, err)
		return emptyGauge{}
	}

	return promGauge{gauge}
}

func (p *Prometheus) Histogram(name string, buckets []float64, labels map[string]string) types.Histogram {
	vec := p.histograms.obtain(p.registry, name, func() *prometheus.HistogramVec {
		opts := p.optsFor(name, "Histogram")
		return prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   opts.Namespace,
			Name:        opts.Name,
			Help:        opts.Help,
			ConstLabels: opts.ConstLabels,
			Buckets:     buckets,
		}, labelNames(labels))
	})

	observer, err := vec.GetMetricWith(labels)
	if err != nil {
		p.mislabeled(name, err)
		return emptyHistogram{}
	}

	return promHistogram{observer}
}

// Snapshot flattens the registry into one value per labelled series.
func (p *Prometheus) Snapshot() ([]types.MetricValue, error) {
	gathered, err := p.registry.Gather()
	if err != nil {
		return nil, types.WrapError(err, "failed to gather prometheus metrics")
	}

	var values []types.MetricValue
	for _, family := range gathered {
		for _, metric := range family.GetMetric() {
			values = append(values, types.MetricValue{
				Name:   family.GetName(),
				Type:   family.GetType().String(),
				Value:  valueOf(metric),
				Labels: labelsOf(metric),
			})
		}
	}

	return values, nil
}

// mislabeled reports a series asked for with label names that differ from the
// ones its family was registered with.
func (p *Prometheus) mislabeled(name string, err error) {
	p.logger.Warn("Metric labels do not match its family", zap.String("metric", name), zap.Error(err))
}

func labelNames(labels map[string]string) []string {
	names := make([]string, 0, len(labels))
	for name := range labels {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func labelsOf(metric *dto.Metric) map[string]string {
	labels := make(map[string]string, len(metric.GetLabel()))
	for _, pair := range metric.GetLabel() {
		labels[pair.GetName()] = pair.GetValue()
	}
	return labels
}

func valueOf(metric *dto.Metric) float64 {
	switch {
	case metric.Counter != nil:
		return metric.GetCounter().GetValue()
	case metric.Gauge != nil:
		return metric.GetGauge().GetValue()
	case metric.Histogram != nil:
		return float64(metric.GetHistogram().GetSampleCount())
	case metric.Summary != nil:
		return float64(metric.GetSummary().GetSampleCount())
	case metric.Untyped != nil:
		return metric.GetUntyped().GetValue()
	default:
		return 0
	}
}

func read(metric prometheus.Metric) *dto.Metric {
	var out dto.Metric
	if err := metric.Write(&out); err != nil {
		return &dto.Metric{}
	}
	return &out
}

type promCounter struct{ prometheus.Counter }

func (c promCounter) Get() float64 { return read(c.Counter).GetCounter().GetValue() }

type promGauge struct{ prometheus.Gauge }

func (g promGauge) Get() float64 { return read(g.Gauge).GetGauge().GetValue() }

type promHistogram struct{ prometheus.Observer }

func (h promHistogram) ObserveDuration(start time.Time) {
	h.Observe(time.Since(start).Seconds())
}

func (h promHistogram) GetCount() uint64 {
	metric, ok := h.Observer.(prometheus.Metric)
	if !ok {
		return 0
	}
	return read(metric).GetHistogram().GetSampleCount()
}

package metrics

import (
	"sync"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "elapsed_timer"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once         sync.Once
	ticks        prom.Counter
	commands     *prom.CounterVec
	persists     *prom.CounterVec
	linkMessages *prom.CounterVec
	linkFaults   *prom.CounterVec
	running      prom.Gauge
	totalSeconds prom.Gauge
}

// NewPrometheusRecorder constructs and registers the timer metrics.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.ticks = prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_total",
			Help:      "Ticks applied to the counter",
		})
		pr.commands = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Commands dispatched to the timer engine by kind",
		}, []string{"kind"})
		pr.persists = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "persist_commits_total",
			Help:      "Counter commits to the persistent store by result",
		}, []string{"result"})
		pr.linkMessages = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "link_messages_total",
			Help:      "Messages moved over the node link by direction",
		}, []string{"direction"})
		pr.linkFaults = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "link_faults_total",
			Help:      "Link read/write failures by operation",
		}, []string{"op"})
		pr.running = prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "running",
			Help:      "1 while the counter is ticking",
		})
		pr.totalSeconds = prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "counter_total_seconds",
			Help:      "Current counter value in seconds",
		})
		reg.MustRegister(pr.ticks, pr.commands, pr.persists, pr.linkMessages, pr.linkFaults, pr.running, pr.totalSeconds)
	})
	return pr
}

func (p *PrometheusRecorder) IncTick() {
	if p == nil || p.ticks == nil {
		return
	}
	p.ticks.Inc()
}

func (p *PrometheusRecorder) IncCommand(kind string) {
	if p == nil || p.commands == nil {
		return
	}
	p.commands.WithLabelValues(kind).Inc()
}

func (p *PrometheusRecorder) IncPersist(result string) {
	if p == nil || p.persists == nil {
		return
	}
	p.persists.WithLabelValues(result).Inc()
}

func (p *PrometheusRecorder) IncLinkMessage(direction string) {
	if p == nil || p.linkMessages == nil {
		return
	}
	p.linkMessages.WithLabelValues(direction).Inc()
}

func (p *PrometheusRecorder) IncLinkFault(op string) {
	if p == nil || p.linkFaults == nil {
		return
	}
	p.linkFaults.WithLabelValues(op).Inc()
}

func (p *PrometheusRecorder) SetRunning(running bool) {
	if p == nil || p.running == nil {
		return
	}
	if running {
		p.running.Set(1)
		return
	}
	p.running.Set(0)
}

func (p *PrometheusRecorder) SetTotalSeconds(total int64) {
	if p == nil || p.totalSeconds == nil {
		return
	}
	p.totalSeconds.Set(float64(total))
}

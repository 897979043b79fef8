package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 汇总结果标签
const (
	ResultOK       = "ok"
	ResultPartial  = "partial"
	ResultCanceled = "canceled"
	ResultFailed   = "failed"
)

// Registry 采购引擎指标，nil 接收者上的方法均为空操作
type Registry struct {
	reg *prometheus.Registry

	ConsolidationRuns     *prometheus.CounterVec
	ConsolidationKeys     *prometheus.CounterVec
	ConsolidationDuration prometheus.Histogram
	PurchasesRecorded     prometheus.Counter
	PurchasesRejected     *prometheus.CounterVec
	UnresolvedConversions prometheus.Counter
	PurchaseLatency       prometheus.Histogram
	Substitutions         prometheus.Counter
}

// NewRegistry 创建独立的指标注册表
func NewRegistry() *Registry {
	r := prometheus.NewRegistry()
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "procurement_consolidation_runs_total",
		Help: "Consolidation sweeps by result.",
	}, []string{"result"})
	keys := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "procurement_consolidation_keys_total",
		Help: "Consolidation keys processed by outcome.",
	}, []string{"outcome"})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "procurement_consolidation_duration_seconds",
		Buckets: prometheus.DefBuckets,
	})
	recorded := prometheus.NewCounter(prometheus.CounterOpts{Name: "procurement_purchases_recorded_total"})
	rejected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "procurement_purchases_rejected_total",
		Help: "Rejected purchase recordings by reason.",
	}, []string{"reason"})
	unresolved := prometheus.NewCounter(prometheus.CounterOpts{Name: "procurement_unresolved_conversions_total"})
	latency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "procurement_purchase_latency_seconds",
		Buckets: prometheus.DefBuckets,
	})
	substitutions := prometheus.NewCounter(prometheus.CounterOpts{Name: "procurement_substitutions_total"})

	r.MustRegister(runs, keys, duration, recorded, rejected, unresolved, latency, substitutions)
	return &Registry{
		reg:                   r,
		ConsolidationRuns:     runs,
		ConsolidationKeys:     keys,
		ConsolidationDuration: duration,
		PurchasesRecorded:     recorded,
		PurchasesRejected:     rejected,
		UnresolvedConversions: unresolved,
		PurchaseLatency:       latency,
		Substitutions:         substitutions,
	}
}

// Handler 暴露 /metrics
func (r *Registry) Handler() http.Handler {
	if r == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// Gatherer 返回底层注册表，供测试读取
func (r *Registry) Gatherer() prometheus.Gatherer {
	if r == nil {
		return prometheus.NewRegistry()
	}
	return r.reg
}

// ObserveConsolidation 记录一次汇总
func (r *Registry) ObserveConsolidation(result string, created, updated, unchanged, failed int, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.ConsolidationRuns.WithLabelValues(result).Inc()
	r.ConsolidationKeys.WithLabelValues("created").Add(float64(created))
	r.ConsolidationKeys.WithLabelValues("updated").Add(float64(updated))
	r.ConsolidationKeys.WithLabelValues("unchanged").Add(float64(unchanged))
	r.ConsolidationKeys.WithLabelValues("failed").Add(float64(failed))
	r.ConsolidationDuration.Observe(elapsed.Seconds())
}

// ObservePurchase 记录一次成功采购
func (r *Registry) ObservePurchase(elapsed time.Duration) {
	if r == nil {
		return
	}
	r.PurchasesRecorded.Inc()
	r.PurchaseLatency.Observe(elapsed.Seconds())
}

// RejectPurchase 记录一次被拒绝的采购
func (r *Registry) RejectPurchase(reason string) {
	if r == nil {
		return
	}
	r.PurchasesRejected.WithLabelValues(reason).Inc()
}

// UnresolvedConversion 记录缺失的单位换算
func (r *Registry) UnresolvedConversion() {
	if r == nil {
		return
	}
	r.UnresolvedConversions.Inc()
}

// ObserveSubstitution 记录一次商品替换
func (r *Registry) ObserveSubstitution() {
	if r == nil {
		return
	}
	r.Substitutions.Inc()
}

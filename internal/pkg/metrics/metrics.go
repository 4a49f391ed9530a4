// Package metrics 文档服务的 Prometheus 指标
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	ResultSuccess = "success"
	ResultError   = "error"
)

// Metrics holds all Prometheus metrics for the document service
type Metrics struct {
	OperationsTotal   *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	UploadBytesTotal  prometheus.Counter
	CatalogHeads      prometheus.Gauge
}

// NewMetrics 在 reg 上注册所有指标，测试中传入独立的 Registry
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		OperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docflow_document_operations_total",
				Help: "Total number of document operations",
			},
			[]string{"operation", "result"},
		),
		OperationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "docflow_document_operation_duration_seconds",
				Help:    "Duration of document operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		UploadBytesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "docflow_upload_bytes_total",
				Help: "Total number of bytes uploaded to the blob store",
			},
		),
		CatalogHeads: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "docflow_catalog_heads",
				Help: "Number of chain heads in the latest catalog snapshot",
			},
		),
	}
}

// RecordOperation 记录一次操作的结果和耗时，m 为 nil 时忽略
func (m *Metrics) RecordOperation(operation string, start time.Time, err error) {
	if m == nil {
		return
	}
	result := ResultSuccess
	if err != nil {
		result = ResultError
	}
	m.OperationsTotal.WithLabelValues(operation, result).Inc()
	m.OperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

func (m *Metrics) RecordUploadBytes(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.UploadBytesTotal.Add(float64(n))
}

func (m *Metrics) SetCatalogHeads(n int) {
	if m == nil {
		return
	}
	m.CatalogHeads.Set(float64(n))
}

package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// StorageMetrics records the upload/attachment lifecycle: how games reach the
// bucket and what happens to their blobs afterwards.
type StorageMetrics struct {
	uploads     *prometheus.CounterVec
	presigns    *prometheus.CounterVec
	blobDeletes *prometheus.CounterVec
}

// NewStorageMetrics registers the storage metrics on the provided registerer.
func NewStorageMetrics(reg prometheus.Registerer) *StorageMetrics {
	if reg == nil {
		return &StorageMetrics{}
	}
	uploads := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storage_uploads_total",
		Help: "Completed uploads by mode (mediated or presigned).",
	}, []string{"mode"})
	presigns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storage_presigns_total",
		Help: "Presigned URLs issued by kind (get or put).",
	}, []string{"kind"})
	blobDeletes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storage_blob_deletes_total",
		Help: "Blob delete attempts by outcome (ok, failed, skipped).",
	}, []string{"outcome"})
	reg.MustRegister(uploads, presigns, blobDeletes)
	return &StorageMetrics{
		uploads:     uploads,
		presigns:    presigns,
		blobDeletes: blobDeletes,
	}
}

// IncUpload increments the upload counter for the given mode.
func (s *StorageMetrics) IncUpload(mode string) {
	if s == nil || s.uploads == nil {
		return
	}
	s.uploads.WithLabelValues(normalizeLabel(mode)).Inc()
}

// IncPresign increments the presign counter for the given kind.
func (s *StorageMetrics) IncPresign(kind string) {
	if s == nil || s.presigns == nil {
		return
	}
	s.presigns.WithLabelValues(normalizeLabel(kind)).Inc()
}

// IncBlobDelete increments the blob delete counter for the given outcome.
func (s *StorageMetrics) IncBlobDelete(outcome string) {
	if s == nil || s.blobDeletes == nil {
		return
	}
	s.blobDeletes.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}

// Handler exposes the registry plus Go runtime/process collectors for scraping.
func Handler(reg *prometheus.Registry) http.Handler {
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

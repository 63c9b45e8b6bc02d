package queryServer

import (
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/Layr-Labs/delegate-tracker/pkg/metrics/metricsTypes"
	"github.com/gorilla/mux"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func clientIp(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (s *QueryServer) withMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		pattern := ""
		if route := mux.CurrentRoute(r); route != nil {
			pattern, _ = route.GetPathTemplate()
		}
		labels := []metricsTypes.MetricsLabel{
			{Name: "method", Value: r.Method},
			{Name: "path", Value: r.URL.Path},
			{Name: "status_code", Value: strconv.Itoa(rec.status)},
			{Name: "pattern", Value: pattern},
			{Name: "client_ip", Value: clientIp(r)},
		}
		_ = s.metricsSink.Incr(metricsTypes.Metric_Incr_HttpRequest, labels, 1)
		_ = s.metricsSink.Timing(metricsTypes.Metric_Timing_HttpDuration, time.Since(start), labels)
	})
}

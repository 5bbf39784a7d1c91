package web

import (
	"encoding/json"
	"github.com/gorilla/mux"
	"github.com/hauke96/sigolo/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"net/http"
)

type StatusResponse struct {
	Strategy string   `json:"strategy"`
	Regions  []string `json:"regions"`
}

// StartServer serves the metrics of a running extraction. It blocks, so it's usually started in its own goroutine.
func StartServer(port string, registry *prometheus.Registry, status StatusResponse) {
	r := initRouter(registry, status)
	sigolo.Infof("Start metrics server on port %s", port)
	err := http.ListenAndServe(":"+port, r)
	sigolo.FatalCheck(err)
}

func initRouter(registry *prometheus.Registry, status StatusResponse) *mux.Router {
	statusBytes, err := json.Marshal(status)
	sigolo.FatalCheck(err)

	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	r.HandleFunc("/status", func(writer http.ResponseWriter, request *http.Request) {
		writer.Header().Set("Content-Type", "application/json")
		_, err := writer.Write(statusBytes)
		if err != nil {
			sigolo.Errorf("Error writing status response: %+v", err)
		}
	}).Methods(http.MethodGet)

	return r
}

package latencytest

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/michaelmahersoftware/experimental-hub-test/internal/eval"
)

func (r *Runtime) startHTTP() {
	if r.cfg.HTTP.Addr == "" {
		return
	}

	router := mux.NewRouter()
	router.Handle("/metrics", promhttp.Handler())
	router.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.HandleFunc("/", r.handleIndex).Methods(http.MethodGet)
	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/state", r.handleState).Methods(http.MethodGet)
	api.HandleFunc("/config", r.handleConfig).Methods(http.MethodGet)
	api.HandleFunc("/samples", r.handleSamples).Methods(http.MethodGet)
	api.HandleFunc("/evaluation", r.handleEvaluation).Methods(http.MethodGet)
	api.HandleFunc("/series", r.handleSeries).Methods(http.MethodGet)

	r.httpSrv = &http.Server{
		Addr:    r.cfg.HTTP.Addr,
		Handler: router,
	}

	go func() {
		if err := r.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			r.obs.LogError("http_server_exited", err)
		}
	}()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (r *Runtime) handleState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"run_id":       r.RunID(),
		"state":        r.State().String(),
		"sample_count": r.controller.SampleCount(),
	})
}

func (r *Runtime) handleConfig(w http.ResponseWriter, _ *http.Request) {
	cfg := r.controller.Config()
	writeJSON(w, http.StatusOK, map[string]any{
		"session_id":     cfg.SessionID,
		"participant_id": cfg.ParticipantID,
		"fps":            cfg.FPS,
		"width":          cfg.Width,
		"height":         cfg.Height,
		"qr_size":        cfg.QRSize,
		"background":     cfg.Background,
	})
}

func (r *Runtime) handleSamples(w http.ResponseWriter, req *http.Request) {
	window, err := parseWindow(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, window.Slice(r.Snapshot()))
}

func (r *Runtime) handleEvaluation(w http.ResponseWriter, req *http.Request) {
	window, err := parseWindow(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	summary, err := r.Evaluate(window)
	if err != nil {
		if errors.Is(err, eval.ErrEmptyInput) {
			writeError(w, http.StatusNotFound, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (r *Runtime) handleSeries(w http.ResponseWriter, req *http.Request) {
	window, err := parseWindow(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, r.ChartSeries(window))
}

// parseWindow reads the optional from/to query parameters selecting a
// half-open sample range.
func parseWindow(req *http.Request) (eval.Window, error) {
	var w eval.Window
	q := req.URL.Query()
	if v := q.Get("from"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return w, errors.New("from must be an integer")
		}
		w.From = n
	}
	if v := q.Get("to"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return w, errors.New("to must be an integer")
		}
		w.To = n
	}
	return w, nil
}

func (r *Runtime) handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(indexHTML))
}

const indexHTML = `<!DOCTYPE html>
<html>
<head>
  <title>Connection Latency Test</title>
  <style>
    body { font-family: sans-serif; margin: 2rem; background: #fafafa; }
    h1 { font-size: 1.3rem; }
    pre { background: #fff; border: 1px solid #ddd; padding: 1rem; overflow: auto; }
    .row { display: flex; gap: 2rem; }
  </style>
</head>
<body>
  <h1>Connection Latency Test</h1>
  <div class="row">
    <div>
      <h2>State</h2>
      <pre id="state">loading…</pre>
    </div>
    <div>
      <h2>Evaluation</h2>
      <pre id="evaluation">loading…</pre>
    </div>
  </div>
  <script>
    async function refresh() {
      const state = await fetch('/api/state').then(r => r.json());
      document.getElementById('state').textContent = JSON.stringify(state, null, 2);
      const res = await fetch('/api/evaluation');
      const body = await res.json();
      document.getElementById('evaluation').textContent = JSON.stringify(body, null, 2);
    }
    refresh();
    setInterval(refresh, 1000);
  </script>
</body>
</html>
`

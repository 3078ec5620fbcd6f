package gateway

import (
	"encoding/json"
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/coursechat/coursechat/pkg/api"
	"github.com/coursechat/coursechat/pkg/logger"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server rewrites same-origin /api/ requests to the configured backend,
// preserving cookies and the alternate auth headers across the rewrite, and
// serves loader-style page endpoints on top of the API client.
type Server struct {
	backendURL *url.URL
	client     *api.Client
	loginPath  string
	metrics    bool
	log        *logger.ComponentLogger
}

// Config holds gateway settings
type Config struct {
	BackendURL string
	LoginPath  string
	Metrics    bool
}

// New creates a gateway server against the given backend
func New(cfg Config, client *api.Client) (*Server, error) {
	backend, err := url.Parse(cfg.BackendURL)
	if err != nil {
		return nil, err
	}

	loginPath := cfg.LoginPath
	if loginPath == "" {
		loginPath = "/login"
	}

	return &Server{
		backendURL: backend,
		client:     client,
		loginPath:  loginPath,
		metrics:    cfg.Metrics,
		log:        logger.WithComponent("gateway"),
	}, nil
}

// Handler builds the gateway's router
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()

	proxy := s.apiProxy()
	r.PathPrefix("/api/").Handler(instrument("api_proxy", proxy))

	r.Handle("/pages/classes/{classID}/threads",
		instrument("class_threads", http.HandlerFunc(s.classThreadsLoader))).Methods(http.MethodGet)
	r.Handle("/pages/threads/{threadID}",
		instrument("thread_view", http.HandlerFunc(s.threadViewLoader))).Methods(http.MethodGet)

	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if s.metrics {
		r.Handle("/metrics", promhttp.Handler())
	}

	return r
}

// apiProxy forwards /api/ traffic to the backend. Cookies and the share and
// session token headers ride along unchanged; only scheme, host, and path
// prefix are rewritten.
func (s *Server) apiProxy() http.Handler {
	proxy := &httputil.ReverseProxy{
		Director: func(req *http.Request) {
			req.URL.Scheme = s.backendURL.Scheme
			req.URL.Host = s.backendURL.Host
			req.URL.Path = "/v1" + trimAPIPrefix(req.URL.Path)
			req.Host = s.backendURL.Host
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			s.log.Error("backend proxy error", "path", r.URL.Path, "error", err)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadGateway)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"$status": http.StatusBadGateway,
				"detail":  "backend unavailable",
			})
		},
	}
	return proxy
}

func trimAPIPrefix(path string) string {
	return path[len("/api"):]
}

// classThreadsLoader fetches the thread list for a class, shaping API client
// data for the page and gating on auth.
func (s *Server) classThreadsLoader(w http.ResponseWriter, r *http.Request) {
	classID := mux.Vars(r)["classID"]

	result := api.Expand(s.client.ListThreads(r.Context(), classID))
	if !result.Ok() {
		s.renderLoaderError(w, r, result.Err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"class_id": classID,
		"threads":  result.Data.Threads,
	})
}

// threadViewLoader fetches the thread bootstrap payload: metadata,
// participants, and the latest message page
func (s *Server) threadViewLoader(w http.ResponseWriter, r *http.Request) {
	threadID := mux.Vars(r)["threadID"]

	thr := api.Expand(s.client.GetThread(r.Context(), threadID))
	if !thr.Ok() {
		s.renderLoaderError(w, r, thr.Err)
		return
	}

	msgs := api.Expand(s.client.ListMessages(r.Context(), threadID, "", 25))
	if !msgs.Ok() {
		s.renderLoaderError(w, r, msgs.Err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"thread":       thr.Data.Thread,
		"participants": thr.Data.Participants,
		"run":          thr.Data.Run,
		"messages":     msgs.Data.Messages,
		"has_more":     msgs.Data.HasMore,
	})
}

// renderLoaderError maps API errors onto page semantics: unauthenticated
// users are redirected to login, everything else surfaces as JSON with the
// backend's status
func (s *Server) renderLoaderError(w http.ResponseWriter, r *http.Request, apiErr *api.APIError) {
	if apiErr.Status == http.StatusUnauthorized {
		http.Redirect(w, r, s.loginPath, http.StatusFound)
		return
	}

	s.log.Warn("loader error", "path", r.URL.Path, "status", apiErr.Status, "detail", apiErr.Detail)
	writeJSON(w, apiErr.Status, map[string]any{
		"$status": apiErr.Status,
		"detail":  apiErr.Detail,
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

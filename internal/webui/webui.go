// Package webui implements a minimal read-only HTTP browser for
// ".events" files, grounded on original_source/web_viewer.py's
// CherryPy app (index -> session -> paginated event list with inline
// plot images). No HTTP framework appears anywhere in the example
// pack to ground a router on, so this uses net/http's ServeMux and
// html/template directly (see DESIGN.md for that stdlib-only
// justification).
package webui

import (
	"fmt"
	"html/template"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/lacker-peti/peti/internal/event"
)

const eventsPerPage = 100

// minScore matches original_source's "score >= 2" filter in the events
// handler — a plain display cutoff, independent of the scorer's own
// MinCombinedSNR configuration.
const minScore = 2.0

// Server serves a read-only view of an EventRoot tree: one directory
// per session, one ".events" file per machine within a session.
type Server struct {
	EventRoot string
	ImageRoot string
	Logger    *log.Logger

	mux *http.ServeMux
}

// New builds a Server and registers its routes.
func New(eventRoot, imageRoot string, logger *log.Logger) *Server {
	s := &Server{EventRoot: eventRoot, ImageRoot: imageRoot, Logger: logger, mux: http.NewServeMux()}
	s.mux.HandleFunc("/", s.handleIndex)
	s.mux.HandleFunc("/session/", s.handleSession)
	s.mux.HandleFunc("/events/", s.handleEvents)
	s.mux.Handle("/images/", http.StripPrefix("/images/", http.FileServer(http.Dir(imageRoot))))
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

var indexTmpl = template.Must(template.New("index").Parse(`
<h1>PETI: Overview</h1>
<pre>we have data for {{len .Sessions}} sessions:</pre>
{{range .Sessions}}<pre><a href="/session/{{.}}">{{.}}</a></pre>
{{end}}`))

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	entries, err := os.ReadDir(s.EventRoot)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	var sessions []string
	for _, e := range entries {
		if e.IsDir() {
			sessions = append(sessions, e.Name())
		}
	}
	sort.Strings(sessions)
	if err := indexTmpl.Execute(w, struct{ Sessions []string }{sessions}); err != nil {
		s.Logger.Error("render index", "err", err)
	}
}

var sessionTmpl = template.Must(template.New("session").Parse(`
<h1>PETI: Session {{.Session}}</h1>
<pre>we have event data from {{len .Machines}} machines:</pre>
{{range .Machines}}<pre><a href="/events/{{$.Session}}/{{.}}/1">{{.}}</a></pre>
{{end}}`))

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	session := strings.TrimPrefix(r.URL.Path, "/session/")
	dir := filepath.Join(s.EventRoot, session)
	entries, err := os.ReadDir(dir)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	var machines []string
	for _, e := range entries {
		name := strings.TrimSuffix(e.Name(), ".events")
		if name != e.Name() {
			machines = append(machines, name)
		}
	}
	sort.Strings(machines)
	data := struct {
		Session  string
		Machines []string
	}{session, machines}
	if err := sessionTmpl.Execute(w, data); err != nil {
		s.Logger.Error("render session", "err", err)
	}
}

var eventsTmpl = template.Must(template.New("events").Parse(`
<h1>PETI: Events</h1>
<h2>session {{.Session}}, machine {{.Machine}}</h2>
<pre>showing events {{.FirstIndex}}-{{.LastIndex}} of {{.Total}}</pre>
<pre>{{if .HasPrev}}<a href="{{.PrevPage}}">prev</a>{{else}}prev{{end}} | {{if .HasNext}}<a href="{{.NextPage}}">next</a>{{else}}next{{end}}</pre>
{{range .Images}}<img src="{{.}}" height="640" style="margin:30"/>
{{end}}`))

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/events/"), "/")
	if len(parts) != 3 {
		http.Error(w, "expected /events/<session>/<machine>/<page>", http.StatusBadRequest)
		return
	}
	session, machine, pageStr := parts[0], parts[1], parts[2]
	page, err := strconv.Atoi(pageStr)
	if err != nil || page < 1 {
		http.Error(w, "bad page number", http.StatusBadRequest)
		return
	}

	eventsPath := filepath.Join(s.EventRoot, session, machine+".events")
	all, err := event.ReadFile(eventsPath)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	var filtered []event.Event
	for _, e := range all {
		if e.Score >= minScore {
			filtered = append(filtered, e)
		}
	}

	first := (page - 1) * eventsPerPage
	last := first + eventsPerPage - 1
	if last > len(filtered)-1 {
		last = len(filtered) - 1
	}

	var images []string
	if first <= last {
		for _, e := range filtered[first : last+1] {
			images = append(images, imagePath(session, machine, e))
		}
	}

	data := struct {
		Session, Machine             string
		FirstIndex, LastIndex, Total int
		HasPrev, HasNext             bool
		PrevPage, NextPage           string
		Images                       []string
	}{
		Session: session, Machine: machine,
		FirstIndex: first, LastIndex: last, Total: len(filtered),
		HasPrev:  page != 1,
		HasNext:  last != len(filtered)-1,
		PrevPage: fmt.Sprintf("/events/%s/%s/%d", session, machine, page-1),
		NextPage: fmt.Sprintf("/events/%s/%s/%d", session, machine, page+1),
		Images:   images,
	}
	if err := eventsTmpl.Execute(w, data); err != nil {
		s.Logger.Error("render events", "err", err)
	}
}

func imagePath(session, machine string, e event.Event) string {
	base := strings.TrimSuffix(filepath.Base(e.Filenames[0]), ".h5")
	return fmt.Sprintf("/images/%s/%s.%d.png", session, base, e.AbsoluteStartColumn())
}

// Package testserver is an in-memory control plane for tests.
//
// It serves the /1.0 container, profile and operation endpoints over
// httptest with real state: lifecycle actions are checked against the
// container's current status, mutating calls return operations that run for
// a configurable number of polls before they finish, and every request is
// recorded for assertions.
package testserver

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/jbweber/hyperkit/internal/restapi"
)

// Container statuses.
const (
	StatusStopped = "Stopped"
	StatusRunning = "Running"
	StatusFrozen  = "Frozen"
)

// Request is a recorded API call.
type Request struct {
	Method string
	Path   string
	Body   []byte
}

// Decode unmarshals the recorded body into target.
func (r Request) Decode(target any) error {
	return json.Unmarshal(r.Body, target)
}

type operation struct {
	op        restapi.Operation
	remaining int
	final     restapi.OperationStatus
	message   string
	apply     func()
}

// Server is a fake control plane.
type Server struct {
	*httptest.Server

	mu          sync.Mutex
	containers  map[string]*restapi.Container
	profiles    []string
	operations  map[string]*operation
	requests    []Request
	pending     int
	certificate string
	nextPid     int64
}

// New starts a server with the "default" profile and no containers.
func New() *Server {
	s := &Server{
		containers:  make(map[string]*restapi.Container),
		profiles:    []string{"default"},
		operations:  make(map[string]*operation),
		certificate: "-----BEGIN CERTIFICATE-----\nfake\n-----END CERTIFICATE-----\n",
		nextPid:     1000,
	}
	s.Server = httptest.NewServer(s.routes())
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.record)

	r.Get("/1.0", s.getServer)
	r.Route("/1.0/containers", func(r chi.Router) {
		r.Get("/", s.listContainers)
		r.Post("/", s.createContainer)
		r.Get("/{name}", s.getContainer)
		r.Put("/{name}", s.updateContainer)
		r.Delete("/{name}", s.deleteContainer)
		r.Post("/{name}", s.postContainer)
		r.Get("/{name}/state", s.getState)
		r.Put("/{name}/state", s.putState)
	})
	r.Get("/1.0/profiles", s.listProfiles)
	r.Get("/1.0/operations/{id}", s.getOperation)
	return r
}

// SetPendingPolls sets how many times new operations report Running before
// reaching their final status.
func (s *Server) SetPendingPolls(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = n
}

// SetProfiles replaces the profile listing.
func (s *Server) SetProfiles(names ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles = append([]string(nil), names...)
}

// SetCertificate sets the certificate published in GET /1.0.
func (s *Server) SetCertificate(pem string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.certificate = pem
}

// AddContainer stores c with the given status.
func (s *Server) AddContainer(c restapi.Container, status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := c
	stored.Status = status
	if stored.Config == nil {
		stored.Config = map[string]string{}
	}
	if stored.Devices == nil {
		stored.Devices = map[string]map[string]string{}
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	s.containers[c.Name] = &stored
}

// Container returns a copy of the named container.
func (s *Server) Container(name string) (restapi.Container, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.containers[name]
	if !ok {
		return restapi.Container{}, false
	}
	return *c, true
}

// AddOperation registers an operation that reports Running for polls GETs
// and then final, with message as its error. It returns the operation id.
// A negative polls value keeps the operation running forever.
func (s *Server) AddOperation(polls int, final restapi.OperationStatus, message string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	op := s.newOperation("task", nil)
	op.remaining = polls
	op.final = final
	op.message = message
	return op.op.ID
}

// Requests returns the recorded requests.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// RequestsTo returns the recorded requests matching method and path.
func (s *Server) RequestsTo(method, path string) []Request {
	var out []Request
	for _, r := range s.Requests() {
		if r.Method == method && r.Path == path {
			out = append(out, r)
		}
	}
	return out
}

// ResetRequests forgets the recorded requests.
func (s *Server) ResetRequests() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = nil
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body []byte
		if r.Body != nil {
			body, _ = io.ReadAll(r.Body)
			r.Body = io.NopCloser(bytes.NewReader(body))
		}
		s.mu.Lock()
		s.requests = append(s.requests, Request{Method: r.Method, Path: r.URL.Path, Body: body})
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

// newOperation must be called with s.mu held.
func (s *Server) newOperation(class string, apply func()) *operation {
	now := time.Now().UTC()
	op := &operation{
		op: restapi.Operation{
			ID:         uuid.New().String(),
			Class:      class,
			CreatedAt:  now,
			UpdatedAt:  now,
			Status:     restapi.OperationRunning,
			StatusCode: 103,
			Metadata:   map[string]any{},
		},
		remaining: s.pending,
		final:     restapi.OperationSuccess,
		apply:     apply,
	}
	s.operations[op.op.ID] = op
	return op
}

// failedOperation must be called with s.mu held.
func (s *Server) failedOperation(message string) *operation {
	op := s.newOperation("task", nil)
	op.final = restapi.OperationFailure
	op.message = message
	return op
}

func (s *Server) getServer(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	cert := s.certificate
	s.mu.Unlock()

	writeSync(w, restapi.ServerInfo{
		APIVersion:  "1.0",
		Auth:        "trusted",
		Environment: map[string]any{"certificate": cert, "server": "fake"},
	})
}

func (s *Server) listContainers(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	names := make([]string, 0, len(s.containers))
	for name := range s.containers {
		names = append(names, name)
	}
	s.mu.Unlock()

	sort.Strings(names)
	paths := make([]string, len(names))
	for i, name := range names {
		paths[i] = "/1.0/containers/" + name
	}
	writeSync(w, paths)
}

func (s *Server) getContainer(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.containers[name]
	if !ok {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	writeSync(w, c)
}

func (s *Server) getState(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.containers[name]
	if !ok {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	state := restapi.ContainerState{Status: c.Status, StatusCode: statusCode(c.Status)}
	if c.Status != StatusStopped {
		state.Pid = s.nextPid
	}
	writeSync(w, state)
}

func (s *Server) listProfiles(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	paths := make([]string, len(s.profiles))
	for i, p := range s.profiles {
		paths[i] = "/1.0/profiles/" + p
	}
	s.mu.Unlock()
	writeSync(w, paths)
}

func (s *Server) getOperation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.mu.Lock()
	defer s.mu.Unlock()

	op, ok := s.operations[id]
	if !ok {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	if !op.op.Status.IsTerminal() {
		if op.remaining != 0 {
			if op.remaining > 0 {
				op.remaining--
			}
		} else {
			op.op.Status = op.final
			op.op.UpdatedAt = time.Now().UTC()
			switch op.final {
			case restapi.OperationSuccess:
				op.op.StatusCode = 200
				if op.apply != nil {
					op.apply()
					op.apply = nil
				}
			case restapi.OperationFailure:
				op.op.StatusCode = 400
				op.op.Err = op.message
			case restapi.OperationCancelled:
				op.op.StatusCode = 401
				op.op.Err = op.message
			}
		}
	}
	writeSync(w, op.op)
}

func statusCode(status string) int {
	switch status {
	case StatusRunning:
		return 103
	case StatusFrozen:
		return 110
	default:
		return 102
	}
}

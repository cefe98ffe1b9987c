package testserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/jbweber/hyperkit/internal/restapi"
)

func (s *Server) createContainer(w http.ResponseWriter, r *http.Request) {
	var req restapi.ContainersPost
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "container name is required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	built := &restapi.Container{
		Name:         req.Name,
		Architecture: req.Architecture,
		Profiles:     req.Profiles,
		Ephemeral:    req.Ephemeral,
		Config:       map[string]string{},
		Devices:      req.Devices,
		Status:       StatusStopped,
	}

	switch req.Source.Type {
	case restapi.SourceCopy:
		src, ok := s.containers[req.Source.Source]
		if !ok {
			writeError(w, http.StatusNotFound, fmt.Sprintf("source container %q not found", req.Source.Source))
			return
		}
		if built.Architecture == "" {
			built.Architecture = src.Architecture
		}
		if built.Profiles == nil {
			built.Profiles = append([]string(nil), src.Profiles...)
		}
		for k, v := range src.Config {
			if !strings.HasPrefix(k, "volatile.") {
				built.Config[k] = v
			}
		}
		if v, ok := src.Config["volatile.base_image"]; ok {
			built.Config["volatile.base_image"] = v
		}
		if built.Devices == nil {
			built.Devices = copyDevices(src.Devices)
		}
	case restapi.SourceImage:
		if req.Source.Alias == "" && req.Source.Fingerprint == "" && len(req.Source.Properties) == 0 {
			writeError(w, http.StatusBadRequest, "image source requires alias, fingerprint or properties")
			return
		}
		base := req.Source.Fingerprint
		if base == "" {
			base = "fake-" + uuid.New().String()[:8]
		}
		built.Config["volatile.base_image"] = base
	case restapi.SourceMigration:
		if req.Source.Operation == "" || len(req.Source.Secrets) == 0 {
			writeError(w, http.StatusBadRequest, "migration source requires an operation and secrets")
			return
		}
		if req.BaseImage != "" {
			built.Config["volatile.base_image"] = req.BaseImage
		}
	case restapi.SourceNone:
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown source type %q", req.Source.Type))
		return
	}

	for k, v := range req.Config {
		built.Config[k] = v
	}
	if built.Architecture == "" {
		built.Architecture = "x86_64"
	}
	if built.Profiles == nil {
		built.Profiles = []string{"default"}
	}
	if built.Devices == nil {
		built.Devices = map[string]map[string]string{}
	}
	if _, ok := built.Config["volatile.eth0.hwaddr"]; !ok {
		built.Config["volatile.eth0.hwaddr"] = randomMAC()
	}

	if _, exists := s.containers[req.Name]; exists {
		writeAsync(w, s.failedOperation(fmt.Sprintf("Container '%s' already exists", req.Name)))
		return
	}
	for _, p := range built.Profiles {
		if !contains(s.profiles, p) {
			writeAsync(w, s.failedOperation(fmt.Sprintf("Requested profile '%s' doesn't exist", p)))
			return
		}
	}

	op := s.newOperation("task", func() {
		built.CreatedAt = time.Now().UTC()
		s.containers[built.Name] = built
	})
	op.op.Resources = map[string][]string{"containers": {"/1.0/containers/" + req.Name}}
	writeAsync(w, op)
}

func (s *Server) updateContainer(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	var req restapi.ContainerPut
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.containers[name]
	if !ok {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	writeAsync(w, s.newOperation("task", func() {
		if req.Architecture != "" {
			c.Architecture = req.Architecture
		}
		c.Config = req.Config
		c.Devices = req.Devices
		c.Ephemeral = req.Ephemeral
		c.Profiles = req.Profiles
	}))
}

func (s *Server) deleteContainer(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.containers[name]
	if !ok {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if c.Status != StatusStopped {
		writeError(w, http.StatusBadRequest, "container is running")
		return
	}

	writeAsync(w, s.newOperation("task", func() {
		delete(s.containers, name)
	}))
}

func (s *Server) postContainer(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	var req restapi.ContainerPost
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.containers[name]
	if !ok {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	if req.Migration {
		op := s.newOperation("websocket", nil)
		op.remaining = -1
		op.op.Metadata = map[string]any{
			"control": uuid.New().String(),
			"fs":      uuid.New().String(),
			"criu":    uuid.New().String(),
		}
		writeAsync(w, op)
		return
	}

	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "new container name is required")
		return
	}
	if c.Status != StatusStopped {
		writeAsync(w, s.failedOperation("renaming of running container not allowed"))
		return
	}
	if _, exists := s.containers[req.Name]; exists {
		writeAsync(w, s.failedOperation(fmt.Sprintf("Container '%s' already exists", req.Name)))
		return
	}

	writeAsync(w, s.newOperation("task", func() {
		delete(s.containers, name)
		c.Name = req.Name
		s.containers[req.Name] = c
	}))
}

func (s *Server) putState(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	var req restapi.ContainerStatePut
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.containers[name]
	if !ok {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	next, failure := transition(c.Status, req.Action)
	if next == "" && failure == "" {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown action %q", req.Action))
		return
	}
	if failure != "" {
		writeAsync(w, s.failedOperation(failure))
		return
	}

	writeAsync(w, s.newOperation("task", func() {
		c.Status = next
		c.StatusCode = statusCode(next)
		if next == StatusRunning {
			s.nextPid++
		}
	}))
}

// transition returns the status an action leads to from current, or the
// server's failure message when the action is not allowed. Both are empty for
// unknown actions.
func transition(current, action string) (string, string) {
	switch action {
	case "start":
		switch current {
		case StatusStopped:
			return StatusRunning, ""
		case StatusFrozen:
			return StatusRunning, "The container is frozen"
		}
		return StatusRunning, "The container is already running"
	case "stop":
		if current == StatusRunning || current == StatusFrozen {
			return StatusStopped, ""
		}
		return StatusStopped, "The container is already stopped"
	case "restart":
		if current == StatusRunning {
			return StatusRunning, ""
		}
		return StatusRunning, "The container isn't running"
	case "freeze":
		if current == StatusRunning {
			return StatusFrozen, ""
		}
		return StatusFrozen, "The container isn't running"
	case "unfreeze":
		if current == StatusFrozen {
			return StatusRunning, ""
		}
		return StatusRunning, "The container is not frozen"
	}
	return "", ""
}

func writeSync(w http.ResponseWriter, metadata any) {
	data, err := json.Marshal(metadata)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, restapi.Response{
		Type:       restapi.ResponseSync,
		Status:     "Success",
		StatusCode: http.StatusOK,
		Metadata:   data,
	})
}

func writeAsync(w http.ResponseWriter, op *operation) {
	data, err := json.Marshal(op.op)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, restapi.Response{
		Type:       restapi.ResponseAsync,
		Status:     "Operation created",
		StatusCode: 100,
		Operation:  "/1.0/operations/" + op.op.ID,
		Metadata:   data,
	})
}

func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, restapi.Response{
		Type:      restapi.ResponseError,
		Error:     message,
		ErrorCode: code,
	})
}

func writeJSON(w http.ResponseWriter, code int, resp restapi.Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(resp)
}

func randomMAC() string {
	u := uuid.New()
	return fmt.Sprintf("00:16:3e:%02x:%02x:%02x", u[0], u[1], u[2])
}

func copyDevices(in map[string]map[string]string) map[string]map[string]string {
	out := make(map[string]map[string]string, len(in))
	for name, attrs := range in {
		dev := make(map[string]string, len(attrs))
		for k, v := range attrs {
			dev[k] = v
		}
		out[name] = dev
	}
	return out
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

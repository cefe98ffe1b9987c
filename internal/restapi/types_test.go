package restapi

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestStringMap(t *testing.T) {
	in := map[string]any{
		"limits.cpu":       2,
		"limits.memory":    "256MB",
		"boot.autostart":   true,
		"limits.cpu.ratio": 0.5,
		"from.json":        float64(4),
		"unset":            nil,
	}

	got := StringMap(in)

	want := map[string]string{
		"limits.cpu":       "2",
		"limits.memory":    "256MB",
		"boot.autostart":   "true",
		"limits.cpu.ratio": "0.5",
		"from.json":        "4",
		"unset":            "",
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("StringMap()[%q] = %q, want %q", k, got[k], v)
		}
	}
}

func TestStringMap_Nil(t *testing.T) {
	if StringMap(nil) != nil {
		t.Error("expected nil for nil input")
	}
}

func TestOperationStatus_IsTerminal(t *testing.T) {
	tests := []struct {
		status OperationStatus
		want   bool
	}{
		{OperationPending, false},
		{OperationRunning, false},
		{OperationSuccess, true},
		{OperationFailure, true},
		{OperationCancelled, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			if got := tt.status.IsTerminal(); got != tt.want {
				t.Errorf("IsTerminal() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestResponse_MetadataAsOperation(t *testing.T) {
	raw := `{
		"type": "async",
		"status": "Operation created",
		"status_code": 100,
		"operation": "/1.0/operations/abc",
		"metadata": {"id": "abc", "status": "Running", "status_code": 103}
	}`

	var resp Response
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	op, err := resp.MetadataAsOperation()
	if err != nil {
		t.Fatalf("MetadataAsOperation() error = %v", err)
	}
	if op.ID != "abc" || op.Status != OperationRunning {
		t.Errorf("unexpected operation: %+v", op)
	}
}

func TestResponse_MetadataAsStringSlice_Empty(t *testing.T) {
	resp := Response{Metadata: json.RawMessage("null")}
	got, err := resp.MetadataAsStringSlice()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected empty slice, got %v", got)
	}
}

func TestContainersPost_EmptySourceJSON(t *testing.T) {
	body := ContainersPost{Name: "c1", Source: ContainerSource{Type: SourceNone}}

	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	src, ok := decoded["source"].(map[string]any)
	if !ok {
		t.Fatalf("expected source object, got %v", decoded["source"])
	}
	if len(src) != 1 || src["type"] != "none" {
		t.Errorf("expected only type=none in source, got %v", src)
	}
	if decoded["ephemeral"] != false {
		t.Errorf("expected ephemeral=false to be sent, got %v", decoded["ephemeral"])
	}
	if _, ok := decoded["base-image"]; ok {
		t.Error("base-image must be omitted when empty")
	}
}

func TestContainersPost_ProfilesJSON(t *testing.T) {
	tests := []struct {
		name     string
		profiles []string
		expected string
	}{
		{"nil is omitted", nil, ""},
		{"empty list is sent", []string{}, `"profiles":[]`},
		{"names are sent", []string{"default", "gpu"}, `"profiles":["default","gpu"]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(ContainersPost{Name: "web1", Profiles: tt.profiles, Source: ContainerSource{Type: SourceNone}})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.expected == "" {
				if strings.Contains(string(data), `"profiles"`) {
					t.Errorf("expected no profiles key, got %s", data)
				}
				return
			}
			if !strings.Contains(string(data), tt.expected) {
				t.Errorf("expected %s in %s", tt.expected, data)
			}
		})
	}
}

package envelope

import (
	"strings"
	"testing"
	"time"
)

func TestCreateEventStampsRequiredFields(t *testing.T) {
	env, err := CreateEvent("hook.session_start", map[string]interface{}{"sessionId": "S"}, Context{
		App:     "default",
		AppRoot: "/p",
		Source:  SourceHook,
	})
	if err != nil {
		t.Fatalf("CreateEvent returned error: %v", err)
	}

	if env.SchemaVersion != SchemaVersion {
		t.Errorf("SchemaVersion = %q, want %q", env.SchemaVersion, SchemaVersion)
	}
	if env.ID == "" {
		t.Error("ID should not be empty")
	}
	if _, err := time.Parse("2006-01-02T15:04:05.000Z", env.Timestamp); err != nil {
		t.Errorf("Timestamp %q is not parseable: %v", env.Timestamp, err)
	}
	if len(env.CorrelationID) < 8 {
		t.Errorf("CorrelationID %q is shorter than 8 characters", env.CorrelationID)
	}
	if env.Source != SourceHook {
		t.Errorf("Source = %q, want %q", env.Source, SourceHook)
	}
}

func TestCreateEventForwardsCorrelationID(t *testing.T) {
	env, err := CreateEvent("worktree.created", map[string]interface{}{}, Context{
		App:           "default",
		AppRoot:       "/p",
		Source:        SourceCLI,
		CorrelationID: "deadbeef",
	})
	if err != nil {
		t.Fatalf("CreateEvent returned error: %v", err)
	}
	if env.CorrelationID != "deadbeef" {
		t.Errorf("CorrelationID = %q, want deadbeef", env.CorrelationID)
	}
}

func TestCreateEventGeneratesUniqueIDs(t *testing.T) {
	ctx := Context{App: "default", AppRoot: "/p", Source: SourceHook}
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		env, err := CreateEvent("hook.pre_tool_use", map[string]interface{}{}, ctx)
		if err != nil {
			t.Fatalf("CreateEvent returned error: %v", err)
		}
		if seen[env.ID] {
			t.Fatalf("duplicate id generated: %s", env.ID)
		}
		seen[env.ID] = true
	}
}

func TestCreateEventRejectsMissingContext(t *testing.T) {
	_, err := CreateEvent("hook.stop", map[string]interface{}{}, Context{Source: SourceHook})
	if err == nil {
		t.Error("expected error for missing app/appRoot")
	}
}

func TestCreateEventRejectsNilData(t *testing.T) {
	_, err := CreateEvent("hook.stop", nil, Context{App: "a", AppRoot: "/p", Source: SourceHook})
	if err == nil {
		t.Error("expected error for nil data")
	}
}

func TestValidateAcceptsWellFormedEnvelope(t *testing.T) {
	env, err := CreateEvent("hook.stop", map[string]interface{}{}, Context{App: "a", AppRoot: "/p", Source: SourceHook})
	if err != nil {
		t.Fatalf("CreateEvent returned error: %v", err)
	}
	if err := Validate(env); err != nil {
		t.Errorf("Validate rejected a well-formed envelope: %v", err)
	}
}

func TestValidateRejectsWrongSchemaVersion(t *testing.T) {
	env, _ := CreateEvent("hook.stop", map[string]interface{}{}, Context{App: "a", AppRoot: "/p", Source: SourceHook})
	env.SchemaVersion = "2.0.0"
	if err := Validate(env); err == nil {
		t.Error("expected error for wrong schemaVersion")
	}
}

func TestValidateRejectsInvalidSource(t *testing.T) {
	env, _ := CreateEvent("hook.stop", map[string]interface{}{}, Context{App: "a", AppRoot: "/p", Source: SourceHook})
	env.Source = Source("browser")
	if err := Validate(env); err == nil {
		t.Error("expected error for invalid source")
	}
}

func TestMarshalUnmarshalRoundTrip(t *testing.T) {
	env, _ := CreateEvent("hook.stop", map[string]interface{}{"transcriptPath": "/tmp/t"}, Context{App: "a", AppRoot: "/p", Source: SourceHook})

	b, err := Marshal(env)
	if err != nil {
		t.Fatalf("Marshal returned error: %v", err)
	}
	if !strings.Contains(string(b), `"schemaVersion":"1.0.0"`) {
		t.Errorf("marshaled envelope missing schemaVersion field: %s", b)
	}

	var out Envelope
	if err := Unmarshal(b, &out); err != nil {
		t.Fatalf("Unmarshal returned error: %v", err)
	}
	if out.ID != env.ID || out.Type != env.Type {
		t.Errorf("round-tripped envelope mismatch: got %+v, want id=%s type=%s", out, env.ID, env.Type)
	}
}

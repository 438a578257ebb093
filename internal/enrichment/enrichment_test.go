package enrichment

import (
	"strings"
	"testing"
)

var defaults = Defaults{App: "default", AppRoot: "/repo"}

func TestEnrichStopGuardSkipsWhenHookActive(t *testing.T) {
	result, err := Enrich("stop", map[string]interface{}{
		"stop_hook_active": true,
	}, defaults)
	if err != nil {
		t.Fatalf("Enrich returned error: %v", err)
	}
	if !result.Skipped {
		t.Error("expected Skipped=true when stop_hook_active is true")
	}
	if result.Envelope != nil {
		t.Error("expected nil envelope when skipped")
	}
}

func TestEnrichStopGuardAllowsNormalStop(t *testing.T) {
	result, err := Enrich("stop", map[string]interface{}{
		"stop_hook_active": false,
		"transcript_path":  "/tmp/t.json",
	}, defaults)
	if err != nil {
		t.Fatalf("Enrich returned error: %v", err)
	}
	if result.Skipped {
		t.Error("expected Skipped=false when stop_hook_active is false")
	}
	if result.Envelope == nil {
		t.Fatal("expected non-nil envelope")
	}
	if result.Envelope.Type != "hook.stop" {
		t.Errorf("Type = %s, want hook.stop", result.Envelope.Type)
	}
	if result.Envelope.Data["transcriptPath"] != "/tmp/t.json" {
		t.Errorf("transcriptPath = %v, want /tmp/t.json", result.Envelope.Data["transcriptPath"])
	}
}

func TestEnrichMapsKnownNames(t *testing.T) {
	cases := map[string]string{
		"session-start":         "hook.session_start",
		"pre-tool-use":          "hook.pre_tool_use",
		"post-tool-use":         "hook.post_tool_use",
		"post-tool-use-failure": "hook.post_tool_use_failure",
	}
	for name, want := range cases {
		result, err := Enrich(name, map[string]interface{}{}, defaults)
		if err != nil {
			t.Fatalf("Enrich(%s) returned error: %v", name, err)
		}
		if result.Envelope.Type != want {
			t.Errorf("Enrich(%s).Type = %s, want %s", name, result.Envelope.Type, want)
		}
	}
}

func TestEnrichUnmappedNameFallsBackToHookSnakeCase(t *testing.T) {
	result, err := Enrich("user-prompt-submit", map[string]interface{}{}, defaults)
	if err != nil {
		t.Fatalf("Enrich returned error: %v", err)
	}
	if result.Envelope.Type != "hook.user_prompt_submit" {
		t.Errorf("Type = %s, want hook.user_prompt_submit", result.Envelope.Type)
	}
}

func TestEnrichNormalizesToolUseFields(t *testing.T) {
	result, err := Enrich("pre-tool-use", map[string]interface{}{
		"tool_name":       "Bash",
		"tool_use_id":     "tu_1",
		"permission_mode": "ask",
		"session_id":      "sess_1",
		"tool_input":      map[string]interface{}{"command": "ls"},
	}, defaults)
	if err != nil {
		t.Fatalf("Enrich returned error: %v", err)
	}
	data := result.Envelope.Data
	if data["toolName"] != "Bash" {
		t.Errorf("toolName = %v, want Bash", data["toolName"])
	}
	if data["toolUseId"] != "tu_1" {
		t.Errorf("toolUseId = %v, want tu_1", data["toolUseId"])
	}
	if data["permissionMode"] != "ask" {
		t.Errorf("permissionMode = %v, want ask", data["permissionMode"])
	}
	if data["sessionId"] != "sess_1" {
		t.Errorf("sessionId = %v, want sess_1", data["sessionId"])
	}
	preview, ok := data["toolInputPreview"].(string)
	if !ok || !strings.Contains(preview, "ls") {
		t.Errorf("toolInputPreview = %v, want JSON containing 'ls'", data["toolInputPreview"])
	}
}

func TestEnrichTruncatesOversizedPreview(t *testing.T) {
	big := strings.Repeat("x", maxPreviewLen+500)
	result, err := Enrich("post-tool-use", map[string]interface{}{
		"tool_result": big,
	}, defaults)
	if err != nil {
		t.Fatalf("Enrich returned error: %v", err)
	}
	preview := result.Envelope.Data["toolResultPreview"].(string)
	if len(preview) != maxPreviewLen+len("...") {
		t.Errorf("preview length = %d, want %d", len(preview), maxPreviewLen+len("..."))
	}
	if !strings.HasSuffix(preview, "...") {
		t.Error("expected truncated preview to end with ...")
	}
}

func TestEnrichDoesNotTruncateShortPreview(t *testing.T) {
	result, err := Enrich("post-tool-use", map[string]interface{}{
		"tool_result": "ok",
	}, defaults)
	if err != nil {
		t.Fatalf("Enrich returned error: %v", err)
	}
	if result.Envelope.Data["toolResultPreview"] != `"ok"` {
		t.Errorf("toolResultPreview = %v, want \"ok\"", result.Envelope.Data["toolResultPreview"])
	}
}

func TestEnrichUsesPayloadAppAndCwdOverDefaults(t *testing.T) {
	result, err := Enrich("session-start", map[string]interface{}{
		"app": "myapp",
		"cwd": "/home/myapp",
	}, defaults)
	if err != nil {
		t.Fatalf("Enrich returned error: %v", err)
	}
	if result.Envelope.App != "myapp" {
		t.Errorf("App = %s, want myapp", result.Envelope.App)
	}
	if result.Envelope.AppRoot != "/home/myapp" {
		t.Errorf("AppRoot = %s, want /home/myapp", result.Envelope.AppRoot)
	}
}

func TestEnrichFallsBackToDefaultsWhenPayloadOmitsAppAndCwd(t *testing.T) {
	result, err := Enrich("session-start", map[string]interface{}{}, defaults)
	if err != nil {
		t.Fatalf("Enrich returned error: %v", err)
	}
	if result.Envelope.App != defaults.App {
		t.Errorf("App = %s, want %s", result.Envelope.App, defaults.App)
	}
	if result.Envelope.AppRoot != defaults.AppRoot {
		t.Errorf("AppRoot = %s, want %s", result.Envelope.AppRoot, defaults.AppRoot)
	}
}

func TestEnrichSessionStartIncludesHookEvent(t *testing.T) {
	result, err := Enrich("session-start", map[string]interface{}{
		"source":     "startup",
		"model":      "claude",
		"agent_type": "main",
	}, defaults)
	if err != nil {
		t.Fatalf("Enrich returned error: %v", err)
	}
	data := result.Envelope.Data
	if data["hookEvent"] != "session_start" {
		t.Errorf("hookEvent = %v, want session_start", data["hookEvent"])
	}
	if data["source"] != "startup" || data["model"] != "claude" || data["agentType"] != "main" {
		t.Errorf("session-start fields not normalized correctly: %v", data)
	}
}

func TestEnrichSourceIsAlwaysHook(t *testing.T) {
	result, err := Enrich("pre-tool-use", map[string]interface{}{}, defaults)
	if err != nil {
		t.Fatalf("Enrich returned error: %v", err)
	}
	if result.Envelope.Source != "hook" {
		t.Errorf("Source = %s, want hook", result.Envelope.Source)
	}
}

// Package enrichment turns a raw hook payload and its kebab-case name into
// a canonical envelope: type mapping, field normalization, and oversized
// field truncation.
package enrichment

import (
	"fmt"
	"strings"

	"github.com/goccy/go-json"

	"github.com/devloop-tools/eventbus/internal/envelope"
)

// maxPreviewLen is the serialized length at which a *Preview field is
// truncated, per the wire contract.
const maxPreviewLen = 2000

// canonicalTypes maps known kebab-case hook names to their canonical
// dot-qualified type. Names absent from this table fall through to
// hook.<snake_case> — this is intentional forward-compatibility, not a
// gap: new Claude-Code hook names should never require a code change here
// to be stored and broadcast correctly.
var canonicalTypes = map[string]string{
	"session-start":         "hook.session_start",
	"pre-tool-use":          "hook.pre_tool_use",
	"post-tool-use":         "hook.post_tool_use",
	"post-tool-use-failure": "hook.post_tool_use_failure",
	"stop":                  "hook.stop",
}

// Result is the outcome of running the pipeline against one ingress call.
type Result struct {
	// Skipped is true when the stop-recursion guard fired; Envelope is nil
	// in that case and nothing should be stored or published.
	Skipped bool

	Envelope *envelope.Envelope
}

// Defaults supplies the server-level fallbacks applied when a payload omits
// app or appRoot.
type Defaults struct {
	App     string
	AppRoot string
}

// Enrich maps name to a canonical type, normalizes payload into the
// per-type shape, truncates oversized preview fields, and stamps an
// envelope via envelope.CreateEvent. The stop-recursion guard is checked
// first and short-circuits with Result.Skipped=true.
func Enrich(name string, payload map[string]interface{}, defaults Defaults) (Result, error) {
	if name == "stop" {
		if active, ok := payload["stop_hook_active"].(bool); ok && active {
			return Result{Skipped: true}, nil
		}
	}

	canonicalType := canonicalType(name)
	data := normalize(canonicalType, payload)

	app := stringField(payload, "app")
	if app == "" {
		app = defaults.App
	}
	appRoot := stringField(payload, "cwd")
	if appRoot == "" {
		appRoot = defaults.AppRoot
	}

	env, err := envelope.CreateEvent(canonicalType, data, envelope.Context{
		App:     app,
		AppRoot: appRoot,
		Source:  envelope.SourceHook,
	})
	if err != nil {
		return Result{}, err
	}

	return Result{Envelope: env}, nil
}

// canonicalType maps a kebab-case hook name to its canonical type, falling
// through to hook.<snake_case> for unrecognized names.
func canonicalType(name string) string {
	if t, ok := canonicalTypes[name]; ok {
		return t
	}
	return "hook." + kebabToSnake(name)
}

func kebabToSnake(s string) string {
	return strings.ReplaceAll(s, "-", "_")
}

// normalize selects and renames the subset of payload fields relevant to
// canonicalType, truncating *Preview fields along the way.
func normalize(canonicalType string, payload map[string]interface{}) map[string]interface{} {
	data := make(map[string]interface{})

	switch canonicalType {
	case "hook.pre_tool_use", "hook.post_tool_use", "hook.post_tool_use_failure":
		copyField(data, payload, "tool_name", "toolName")
		copyField(data, payload, "tool_use_id", "toolUseId")
		copyField(data, payload, "permission_mode", "permissionMode")
		copyField(data, payload, "session_id", "sessionId")
		copyPreview(data, payload, "tool_input", "toolInputPreview")
		copyPreview(data, payload, "tool_result", "toolResultPreview")

	case "hook.session_start":
		copyField(data, payload, "session_id", "sessionId")
		copyField(data, payload, "source", "source")
		copyField(data, payload, "model", "model")
		copyField(data, payload, "agent_type", "agentType")
		// hookEvent records which named hook produced this envelope,
		// independent of the canonical type, for dashboard display.
		data["hookEvent"] = "session_start"

	case "hook.stop":
		copyField(data, payload, "transcript_path", "transcriptPath")
		copyField(data, payload, "session_id", "sessionId")

	default:
		// Unmapped hook types get only sessionId, if present; no tool-use
		// fields are copied for them.
		copyField(data, payload, "session_id", "sessionId")
	}

	return data
}

func copyField(dst, src map[string]interface{}, srcKey, dstKey string) {
	if v, ok := src[srcKey]; ok {
		dst[dstKey] = v
	}
}

// copyPreview serializes src[srcKey] to JSON and truncates it to
// maxPreviewLen characters plus a literal "..." suffix when it exceeds
// that length.
func copyPreview(dst, src map[string]interface{}, srcKey, dstKey string) {
	v, ok := src[srcKey]
	if !ok {
		return
	}
	s, err := serializePreview(v)
	if err != nil {
		return
	}
	if r := []rune(s); len(r) > maxPreviewLen {
		s = string(r[:maxPreviewLen]) + "..."
	}
	dst[dstKey] = s
}

// serializePreview renders v as compact JSON for a *Preview field; a
// string value is JSON-encoded too, so "ok" becomes "\"ok\"".
func serializePreview(v interface{}) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("serialize preview: %w", err)
	}
	return string(b), nil
}

func stringField(payload map[string]interface{}, key string) string {
	if v, ok := payload[key].(string); ok {
		return v
	}
	return ""
}

package router

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"

	"pagesmith.dev/engine/internal/core/apperr"
	"pagesmith.dev/engine/internal/core/plugin"
	"pagesmith.dev/engine/internal/core/settings"
)

// DecodeRequest parses a JSON request of the form
//
//	{"type": "toggle-plugin", "pluginId": "...", "enabled": true}
//
// The type tag selects the payload fields. Unknown tags and malformed
// envelopes are parse errors. Plugin and settings payloads that are valid
// JSON but do not fit their schema (missing, wrong type, unknown field) are
// validation errors.
func DecodeRequest(data []byte) (Request, error) {
	if !gjson.ValidBytes(data) {
		return nil, apperr.Parse("", "request is not valid JSON", nil)
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return nil, apperr.Parse("", "request must be a JSON object", nil)
	}

	tag := root.Get("type")
	if tag.Type != gjson.String || tag.Str == "" {
		return nil, apperr.Parse("type", "request type is required", nil)
	}

	switch tag.Str {
	case TypeGetPluginsForDomain:
		hostname, err := stringField(root, "hostname")
		return GetPluginsForDomainRequest{Hostname: hostname}, err
	case TypeRecordUsage:
		id, err := stringField(root, "pluginId")
		return RecordUsageRequest{PluginID: id}, err
	case TypeSavePlugin:
		field := root.Get("plugin")
		if !field.IsObject() {
			return nil, apperr.Validation("plugin", "plugin object is required")
		}
		p, err := plugin.Decode([]byte(field.Raw))
		if err != nil {
			return nil, err
		}
		return SavePluginRequest{Plugin: p}, nil
	case TypeGetAllPlugins:
		return GetAllPluginsRequest{}, nil
	case TypeDeletePlugin:
		id, err := stringField(root, "pluginId")
		return DeletePluginRequest{PluginID: id}, err
	case TypeTogglePlugin:
		id, err := stringField(root, "pluginId")
		if err != nil {
			return nil, err
		}
		enabled := root.Get("enabled")
		if enabled.Type != gjson.True && enabled.Type != gjson.False {
			return nil, apperr.Parse("enabled", "enabled must be a boolean", nil)
		}
		return TogglePluginRequest{PluginID: id, Enabled: enabled.Bool()}, nil
	case TypeGetSettings:
		return GetSettingsRequest{}, nil
	case TypeUpdateSettings:
		s, err := decodeSettings(root.Get("settings"))
		if err != nil {
			return nil, err
		}
		return UpdateSettingsRequest{Settings: s}, nil
	case TypeImportPlugin:
		doc := root.Get("document")
		switch {
		case doc.Type == gjson.String:
			return ImportPluginRequest{Document: doc.Str}, nil
		case doc.IsObject():
			return ImportPluginRequest{Document: doc.Raw}, nil
		default:
			return nil, apperr.Parse("document", "document must be a JSON string or object", nil)
		}
	case TypeExportPlugin:
		id, err := stringField(root, "pluginId")
		return ExportPluginRequest{PluginID: id}, err
	default:
		return nil, apperr.Parse("type", fmt.Sprintf("unknown request type %q", tag.Str), nil)
	}
}

func stringField(root gjson.Result, name string) (string, error) {
	field := root.Get(name)
	if field.Type != gjson.String {
		return "", apperr.Parse(name, name+" must be a string", nil)
	}
	return field.Str, nil
}

func decodeSettings(field gjson.Result) (settings.Settings, error) {
	if !field.IsObject() {
		return settings.Settings{}, apperr.Validation("settings", "settings object is required")
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(field.Raw)))
	dec.DisallowUnknownFields()

	var s settings.Settings
	if err := dec.Decode(&s); err != nil {
		return settings.Settings{}, apperr.FromDecode("settings", "settings object", err)
	}
	return s, nil
}

// EncodeRequest is the inverse of DecodeRequest.
func EncodeRequest(req Request) ([]byte, error) {
	if req == nil {
		return nil, errMissingRequest
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode %s request: %w", req.Type(), err)
	}
	tag, err := json.Marshal(req.Type())
	if err != nil {
		return nil, err
	}

	// payload is always a JSON object; splice the tag in as its first member.
	var buf bytes.Buffer
	buf.WriteString(`{"type":`)
	buf.Write(tag)
	if body := bytes.TrimSpace(payload[1 : len(payload)-1]); len(body) > 0 {
		buf.WriteByte(',')
		buf.Write(body)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

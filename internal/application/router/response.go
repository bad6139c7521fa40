package router

import (
	"errors"

	"pagesmith.dev/engine/internal/core/apperr"
	"pagesmith.dev/engine/internal/core/plugin"
	"pagesmith.dev/engine/internal/core/security"
	"pagesmith.dev/engine/internal/core/settings"
)

var errMissingRequest = apperr.Parse("type", "request is required", nil)

// Response is the transport-neutral result of Dispatch. Only the fields that
// belong to the request type are set; an absent list means an empty one.
type Response struct {
	Type     string              `json:"type"`
	Success  bool                `json:"success"`
	Plugins  []plugin.Plugin     `json:"plugins,omitempty"`
	Records  []plugin.PluginData `json:"records,omitempty"`
	Record   *plugin.PluginData  `json:"record,omitempty"`
	Settings *settings.Settings  `json:"settings,omitempty"`
	Document string              `json:"document,omitempty"`
	Disabled []string            `json:"disabled,omitempty"`
	Error    *ErrorBody          `json:"error,omitempty"`
}

// ErrorBody describes a failed request. Policy denials carry both tiers so
// callers can show a precise message.
type ErrorBody struct {
	Code           apperr.Code `json:"code"`
	Message        string      `json:"message"`
	Field          string      `json:"field,omitempty"`
	RequiredTier   string      `json:"requiredTier,omitempty"`
	ConfiguredTier string      `json:"configuredTier,omitempty"`
}

func (b *ErrorBody) Error() string {
	return b.Message
}

// ErrorCode lets apperr.CodeOf classify a decoded ErrorBody.
func (b *ErrorBody) ErrorCode() apperr.Code {
	return b.Code
}

// NewErrorBody converts err into its wire form.
func NewErrorBody(err error) *ErrorBody {
	body := &ErrorBody{
		Code:    apperr.CodeOf(err),
		Message: err.Error(),
		Field:   apperr.FieldOf(err),
	}
	var denied *security.PolicyDenied
	if errors.As(err, &denied) {
		body.RequiredTier = denied.Required.String()
		body.ConfiguredTier = denied.Configured.String()
	}
	return body
}

func failure(requestType string, err error) Response {
	return Response{Type: requestType, Error: NewErrorBody(err)}
}

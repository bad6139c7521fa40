package plugin_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"pagesmith.dev/engine/internal/core/apperr"
	"pagesmith.dev/engine/internal/core/plugin"
	"pagesmith.dev/engine/internal/core/testfixtures"
)

func TestExport_WritesOnlyPluginFields(t *testing.T) {
	p := testfixtures.SafePlugin()

	doc, err := plugin.Export(p)
	require.NoError(t, err)

	assert.Contains(t, string(doc), `"targetDomains"`)
	assert.Contains(t, string(doc), `"operations"`)
	assert.NotContains(t, string(doc), `"enabled"`, "Store metadata should not be exported")
	assert.NotContains(t, string(doc), `"usageCount"`, "Store metadata should not be exported")
}

func TestExport_IsStable(t *testing.T) {
	p := testfixtures.SafePlugin()

	first, err := plugin.Export(p)
	require.NoError(t, err)
	second, err := plugin.Export(p.Clone())
	require.NoError(t, err)

	assert.Equal(t, string(first), string(second))
}

func TestImport_Errors(t *testing.T) {
	tests := []struct {
		name          string
		document      string
		expected      error
		expectedField string
	}{
		{name: "Empty", document: "  ", expected: apperr.ErrParse},
		{name: "Malformed", document: `{"id": "a",`, expected: apperr.ErrParse},
		{name: "Syntax", document: `{"id": "a" "name": "b"}`, expected: apperr.ErrParse},
		{name: "WrongType", document: `{"id": "a", "name": "b", "priority": "high"}`, expected: apperr.ErrValidation, expectedField: "priority"},
		{name: "UnknownField", document: `{"id": "a", "name": "b", "enabled": true}`, expected: apperr.ErrValidation, expectedField: "enabled"},
		{name: "WrongNestedType", document: `{"id": "a", "name": "b", "targetDomains": "example.com"}`, expected: apperr.ErrValidation, expectedField: "targetDomains"},
		{name: "TrailingData", document: `{"id": "a", "name": "b"} {}`, expected: apperr.ErrParse},
		{name: "MissingName", document: `{"id": "a", "operations": []}`, expected: apperr.ErrValidation, expectedField: "name"},
		{
			name:          "MalformedOperation",
			document:      `{"id": "a", "name": "b", "operations": [{"type": "delete"}]}`,
			expected:      apperr.ErrValidation,
			expectedField: "operations[0].selector",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := plugin.Import([]byte(tt.document))
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.expected), "got %v", err)
			if tt.expectedField != "" {
				assert.Equal(t, tt.expectedField, apperr.FieldOf(err))
			}
		})
	}
}

func TestImport_AcceptsMissingID(t *testing.T) {
	p, err := plugin.Import([]byte(`{"name": "No id yet", "targetDomains": ["example.com"], "operations": []}`))
	require.NoError(t, err)

	assert.Empty(t, p.ID, "Missing IDs are left for the store to assign")
	assert.Equal(t, "No id yet", p.Name)
}

func TestImport_RejectsBlankID(t *testing.T) {
	_, err := plugin.Import([]byte(`{"id": "  ", "name": "x"}`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrValidation))
}

func TestCodec_PropertyBased_RoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		p := testfixtures.PluginGen().Draw(t, "plugin")

		doc, err := plugin.Export(p)
		require.NoError(t, err)

		imported, err := plugin.Import(doc)
		require.NoError(t, err)

		assert.Equal(t, p.Clone(), imported, "Import(Export(p)) should equal the canonical form of p")

		again, err := plugin.Export(imported)
		require.NoError(t, err)
		assert.Equal(t, string(doc), string(again))
	})
}

func TestCodec_RoundTrip_EmptyCollections(t *testing.T) {
	p := testfixtures.NewPluginBuilder().
		WithOperation(plugin.Operation{
			Type:     plugin.OperationInsert,
			Selector: "body",
			Element: &plugin.Element{
				Tag:        "div",
				Attributes: map[string]string{},
				Children:   []plugin.Element{},
			},
		}).
		WithOperation(plugin.Operation{
			Type:       plugin.OperationUpdate,
			Selector:   "h1",
			Style:      map[string]string{"color": "red"},
			Attributes: map[string]string{},
		}).
		Build()

	doc, err := plugin.Export(p)
	require.NoError(t, err)
	imported, err := plugin.Import(doc)
	require.NoError(t, err)

	assert.Equal(t, p.Clone(), imported)
	assert.Nil(t, imported.Operations[0].Element.Attributes)
	assert.Nil(t, imported.Operations[0].Element.Children)
	assert.Nil(t, imported.Operations[1].Attributes)

	explicit, err := plugin.Import([]byte(`{"id":"a","name":"b","targetDomains":[],"operations":[` +
		`{"type":"insert","selector":"body","element":{"tag":"p","attributes":{},"children":[]}}]}`))
	require.NoError(t, err)
	assert.Nil(t, explicit.Operations[0].Element.Attributes, "Decoded empty objects are canonicalised")
	assert.Nil(t, explicit.Operations[0].Element.Children)
}

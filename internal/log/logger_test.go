package log

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildWritesStructuredJSON(t *testing.T) {
	var buf bytes.Buffer
	pretty := false
	l := build(Config{Level: "debug", Output: &buf, Service: "popscan-test", Pretty: &pretty})

	l.Debug().Str(FieldComponent, "resolver").Str(FieldQuery, "dune").Msg("lookup")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "popscan-test", entry["service"])
	assert.Equal(t, "resolver", entry[FieldComponent])
	assert.Equal(t, "dune", entry[FieldQuery])
	assert.Equal(t, "lookup", entry["message"])
}

func TestBuildRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	pretty := false
	l := build(Config{Level: "warn", Output: &buf, Pretty: &pretty})

	l.Info().Msg("hidden")
	assert.Zero(t, buf.Len())

	l.Warn().Msg("shown")
	assert.Contains(t, buf.String(), "shown")
}

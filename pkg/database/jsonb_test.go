package database

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clause struct {
	Code string `json:"code"`
}

func TestJSONB_ScanAndValue(t *testing.T) {
	var j JSONB[[]clause]
	require.NoError(t, j.Scan([]byte(`[{"code":"A1"},{"code":"B2"}]`)))
	assert.Equal(t, []clause{{Code: "A1"}, {Code: "B2"}}, j.GetValue())

	v, err := j.Value()
	require.NoError(t, err)
	assert.JSONEq(t, `[{"code":"A1"},{"code":"B2"}]`, v.(string))
}

func TestJSONB_ScanNilResetsData(t *testing.T) {
	j := NewJSONB([]string{"x"})
	require.NoError(t, j.Scan(nil))
	assert.Nil(t, j.Data)
}

func TestJSONB_ScanRejectsOtherTypes(t *testing.T) {
	var j JSONB[map[string]any]
	assert.Error(t, j.Scan(42))
}

func TestJSONB_MarshalsAsPayload(t *testing.T) {
	payload := struct {
		Voorwaarden JSONB[[]string] `json:"voorwaarden"`
	}{Voorwaarden: NewJSONB([]string{"V1", "V2"})}

	b, err := json.Marshal(payload)
	require.NoError(t, err)
	assert.JSONEq(t, `{"voorwaarden":["V1","V2"]}`, string(b))

	var decoded struct {
		Voorwaarden JSONB[[]string] `json:"voorwaarden"`
	}
	require.NoError(t, json.Unmarshal(b, &decoded))
	assert.Equal(t, []string{"V1", "V2"}, decoded.Voorwaarden.Data)
}

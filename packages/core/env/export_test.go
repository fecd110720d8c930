package env

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestStore_ExportPostman(t *testing.T) {
	s := NewStore()
	s.SetAll(map[string]string{"service_id": "7", "customer_access_token": "abc"})

	data, err := s.ExportPostman("prbal local")
	require.NoError(t, err)
	require.True(t, gjson.ValidBytes(data))

	doc := gjson.ParseBytes(data)
	assert.Equal(t, s.RunID(), doc.Get("id").String())
	assert.Equal(t, "prbal local", doc.Get("name").String())
	assert.Equal(t, "environment", doc.Get("_postman_variable_scope").String())

	values := doc.Get("values").Array()
	require.Len(t, values, 2)
	assert.Equal(t, "customer_access_token", values[0].Get("key").String())
	assert.Equal(t, "7", values[1].Get("value").String())
	assert.True(t, values[1].Get("enabled").Bool())
}

func TestStore_ExportPostmanEmpty(t *testing.T) {
	data, err := NewStore().ExportPostman("empty")
	require.NoError(t, err)
	assert.Equal(t, int64(0), gjson.GetBytes(data, "values.#").Int())
}

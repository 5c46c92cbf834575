package utils

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	apperrors "github.com/Corphon/SlideCrafter/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecoverJSON(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want interface{}
	}{
		{"纯对象", `{"a":1}`, map[string]interface{}{"a": json.Number("1")}},
		{"带语言标记的围栏", "```json\n{\"a\":1}\n```", map[string]interface{}{"a": json.Number("1")}},
		{"无语言标记的围栏", "```\n[1,2]\n```", []interface{}{json.Number("1"), json.Number("2")}},
		{"只有开头围栏", "```json\n{\"a\":1}", map[string]interface{}{"a": json.Number("1")}},
		{"尾部 undefined", `[{"topic":"x"}]undefined`, []interface{}{map[string]interface{}{"topic": "x"}}},
		{"尾部多余文本", `{"a":"b"} trailing words`, map[string]interface{}{"a": "b"}},
		{"前置说明", `Here you go: {"a":true}`, map[string]interface{}{"a": true}},
		{"开头围栏加尾部多余文本", "```json\n{\"topic\":\"T\"}\nSomeTrailingJunk", map[string]interface{}{"topic": "T"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := RecoverJSON(tc.raw)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestRecoverJSONMalformed(t *testing.T) {
	raw := strings.Repeat("x", 800)
	_, err := RecoverJSON(raw)
	require.Error(t, err)
	assert.True(t, apperrors.IsMalformedJSONError(err))

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Len(t, appErr.Excerpt, MalformedExcerptLimit, "片段截断到500字")

	_, err = RecoverJSON("   ")
	assert.True(t, apperrors.IsMalformedJSONError(err))

	_, err = RecoverJSON(`{"a": [1, 2}`)
	assert.True(t, apperrors.IsMalformedJSONError(err))
}

func TestRecoverJSONKeepsNumbers(t *testing.T) {
	values := []interface{}{
		map[string]interface{}{"n": json.Number("12345678901234567890")},
		map[string]interface{}{"n": json.Number("9007199254740993"), "f": json.Number("1.5")},
		[]interface{}{json.Number("-9223372036854775808"), "x", nil, true},
	}
	for _, v := range values {
		data, err := json.Marshal(v)
		require.NoError(t, err)
		got, err := RecoverJSON(string(data))
		require.NoError(t, err)
		assert.Equal(t, v, got, "解析后应与原值相同: %s", data)
	}

	got, err := RecoverJSON("```json\n{\"n\":9007199254740993} trailing\n```")
	require.NoError(t, err)
	n, err := got.(map[string]interface{})["n"].(json.Number).Int64()
	require.NoError(t, err)
	assert.Equal(t, int64(9007199254740993), n)
}

func TestStripCodeFence(t *testing.T) {
	assert.Equal(t, `{"a":1}`, StripCodeFence("  ```json\n{\"a\":1}\n```  "))
	assert.Equal(t, "plain", StripCodeFence("plain"))
}

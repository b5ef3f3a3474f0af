package scoring

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeObject(t *testing.T) {
	tests := []struct {
		name     string
		reply    string
		expected map[string]any
	}{
		{
			name:     "plain json",
			reply:    `{"a": ["x"]}`,
			expected: map[string]any{"a": []any{"x"}},
		},
		{
			name:     "fenced json",
			reply:    "```json\n{\"a\": [\"x\"]}\n```",
			expected: map[string]any{"a": []any{"x"}},
		},
		{
			name:     "fence without info string",
			reply:    "```\n{\"a\": 1}\n```",
			expected: map[string]any{"a": json.Number("1")},
		},
		{
			name:     "prose around object",
			reply:    "Here is the result:\n{\"a\": {\"b\": true}}\nLet me know if you need more.",
			expected: map[string]any{"a": map[string]any{"b": true}},
		},
		{
			name:     "python literal",
			reply:    `{'a': ['it\'s', "x"], 'b': True, 'c': None, 'd': False}`,
			expected: map[string]any{"a": []any{"it's", "x"}, "b": true, "c": nil, "d": false},
		},
		{
			name:     "python literal keeps words inside strings",
			reply:    `{'skills': ['None of the above', 'True North']}`,
			expected: map[string]any{"skills": []any{"None of the above", "True North"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeObject(tt.reply)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestDecodeObjectErrors(t *testing.T) {
	tests := []struct {
		name  string
		reply string
	}{
		{"empty", ""},
		{"no object", "I cannot help with that."},
		{"array", `["a", "b"]`},
		{"truncated", `{"a": ["x"`},
		{"unterminated python string", `{'a': 'x}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeObject(tt.reply)
			if err == nil {
				t.Errorf("Expected error for reply %q, got nil", tt.reply)
			}
		})
	}
}

func TestIntegerScore(t *testing.T) {
	tests := []struct {
		value    any
		expected int
		wantErr  bool
	}{
		{json.Number("0"), 0, false},
		{json.Number("5"), 5, false},
		{json.Number("4.0"), 4, false},
		{json.Number("4.5"), 0, true},
		{json.Number("6"), 0, true},
		{json.Number("-1"), 0, true},
		{"3", 0, true},
		{nil, 0, true},
	}

	for _, tt := range tests {
		got, err := integerScore(tt.value)
		if tt.wantErr {
			assert.Error(t, err, "value %v", tt.value)
			continue
		}
		require.NoError(t, err, "value %v", tt.value)
		assert.Equal(t, tt.expected, got)
	}
}

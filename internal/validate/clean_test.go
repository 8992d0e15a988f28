package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"prose around", "Here you go: {\"a\":1} hope that helps", `{"a":1}`},
		{"no object", "not json", "not json"},
		{"truncated", "```json\n{\"a\": {\"b\"", "{\"a\": {\"b\""},
		{"fence after prose", "Sure, here it is:\n```json\n{\"a\":1}\n```\nThanks!", `{"a":1}`},
		{"inline fence", "```{\"a\":1}```", `{"a":1}`},
		{"citation markers", `{"foundry":"Monotype"} [1][2]`, `{"foundry":"Monotype"}`},
		{"first of two objects", `{"a":1} and {"b":2}`, `{"a":1}`},
		{"braces in strings", `{"a":"}{","b":"say \"}\""} tail`, `{"a":"}{","b":"say \"}\""}`},
		{"nested", `x {"a":{"b":[1,{"c":2}]}} y`, `{"a":{"b":[1,{"c":2}]}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanJSON(tt.input))
		})
	}
}

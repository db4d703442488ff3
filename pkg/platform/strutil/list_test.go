package strutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitList(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{"empty", "", []string{}},
		{"single", "broker:9092", []string{"broker:9092"}},
		{"trims and drops empties", " a:9092, b:9092,, ", []string{"a:9092", "b:9092"}},
		{"dedupes preserving order", "b,a,b,c,a", []string{"b", "a", "c"}},
		{"preserves case", "Foo,foo", []string{"Foo", "foo"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SplitList(tt.input, ","))
		})
	}
}

func TestDedupeAndTrim_Nil(t *testing.T) {
	assert.Equal(t, []string{}, DedupeAndTrim(nil))
}

// © 2025 NetGrid Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package scan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScan(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "finds distinct names sorted",
			text: "host={{db_host}} port={{db_port}} host2={{db_host}}",
			want: []string{"db_host", "db_port"},
		},
		{
			name: "empty input yields nothing",
			text: "",
			want: nil,
		},
		{
			name: "text without tokens yields nothing",
			text: "plain text with no placeholders",
			want: nil,
		},
		{
			name: "unmatched braces are not tokens",
			text: "{{open {{half} }}close{ {{ok}}",
			want: []string{"ok"},
		},
		{
			name: "names with invalid characters are skipped",
			text: "{{with-dash}} {{with space}} {{valid_1}}",
			want: []string{"valid_1"},
		},
		{
			name: "names are case sensitive",
			text: "{{Region}} {{region}}",
			want: []string{"Region", "region"},
		},
		{
			name: "adjacent tokens",
			text: "{{a}}{{b}}{{a}}",
			want: []string{"a", "b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Scan(tt.text))
		})
	}
}

func TestScanIsIdempotent(t *testing.T) {
	text := "{{b}} then {{a}} then {{b}}"

	first := Scan(text)
	second := Scan(text)

	assert.Equal(t, first, second)
}

func TestScanStructured(t *testing.T) {
	t.Run("finds tokens nested in a structured value", func(t *testing.T) {
		v := map[string]any{
			"interfaces": []any{
				map[string]any{"address": "{{mgmt_ip}}/24"},
				map[string]any{"address": "{{loopback_ip}}/32"},
			},
			"hostname": "{{hostname}}",
		}

		names, err := ScanStructured(v)
		require.NoError(t, err)
		assert.Equal(t, []string{"hostname", "loopback_ip", "mgmt_ip"}, names)
	})

	t.Run("nil value yields nothing", func(t *testing.T) {
		names, err := ScanStructured(nil)
		require.NoError(t, err)
		assert.Nil(t, names)
	})

	t.Run("unserializable value fails", func(t *testing.T) {
		_, err := ScanStructured(map[string]any{"bad": make(chan int)})
		require.Error(t, err)
	})
}

func TestToken(t *testing.T) {
	assert.Equal(t, "{{db_host}}", Token("db_host"))
}

func TestSubstitute(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		values map[string]string
		want   string
	}{
		{
			name:   "replaces every occurrence",
			text:   "{{host}}:{{port}} and again {{host}}",
			values: map[string]string{"host": "10.0.0.1", "port": "22"},
			want:   "10.0.0.1:22 and again 10.0.0.1",
		},
		{
			name:   "unknown tokens stay in place",
			text:   "{{known}} {{unknown}}",
			values: map[string]string{"known": "yes"},
			want:   "yes {{unknown}}",
		},
		{
			name:   "empty values leave text unchanged",
			text:   "{{a}} {{b}}",
			values: nil,
			want:   "{{a}} {{b}}",
		},
		{
			name:   "empty string value is a real substitution",
			text:   "prefix{{gap}}suffix",
			values: map[string]string{"gap": ""},
			want:   "prefixsuffix",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Substitute(tt.text, tt.values))
		})
	}
}

func TestSubstituteNeverReExpands(t *testing.T) {
	// A value that itself looks like a token is emitted literally.
	got := Substitute("value={{outer}}", map[string]string{
		"outer": "{{inner}}",
		"inner": "should never appear",
	})

	assert.Equal(t, "value={{inner}}", got)
}

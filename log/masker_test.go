/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package log

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMasker_Mask(t *testing.T) {
	masker := NewMasker(DefaultMasks)

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "bearer token in dumped request",
			input: "POST /emails HTTP/1.1\r\nAuthorization: Bearer re_123456\r\nContent-Type: application/json\r\n",
			want:  "POST /emails HTTP/1.1\r\nAuthorization: ***\r\nContent-Type: application/json\r\n",
		},
		{
			name:  "urlencoded upload form",
			input: "api_key=987654&folder=medusa&signature=abcdef0123&timestamp=1700000000",
			want:  "api_key=***&folder=medusa&signature=***&timestamp=1700000000",
		},
		{
			name:  "json body",
			input: `{"api_secret": "s3cr3t", "cloud_name": "demo"}`,
			want:  `{"api_secret": "***", "cloud_name": "demo"}`,
		},
		{
			name:  "nothing to mask",
			input: "order-placed sent to customer@example.com",
			want:  "order-placed sent to customer@example.com",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, masker.Mask(tt.input))
		})
	}
}

func TestMasker_CustomRule(t *testing.T) {
	masker := NewMasker([]MaskingRuleConfig{{
		Field: "secret",
		Masks: []MaskConfig{{RegExp: `<secret>.+?</secret>`, Mask: "<secret>***</secret>"}},
	}})
	require.Equal(t, "<secret>***</secret> tail", masker.Mask("<secret>value</secret> tail"))
}

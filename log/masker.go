/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package log

import (
	"regexp"
	"strings"
)

// FieldMaskFormat defines possible values for field mask formats.
type FieldMaskFormat string

// Field mask formats.
const (
	FieldMaskFormatHTTPHeader FieldMaskFormat = "http_header"
	FieldMaskFormatJSON       FieldMaskFormat = "json"
	FieldMaskFormatURLEncoded FieldMaskFormat = "urlencoded"
)

// DefaultMasks hide the credentials of the email and file storage providers
// along with the usual user secrets.
var DefaultMasks = []MaskingRuleConfig{
	{Field: "Authorization", Formats: []FieldMaskFormat{FieldMaskFormatHTTPHeader}},
	{Field: "api_key", Formats: []FieldMaskFormat{FieldMaskFormatJSON, FieldMaskFormatURLEncoded}},
	{Field: "api_secret", Formats: []FieldMaskFormat{FieldMaskFormatJSON, FieldMaskFormatURLEncoded}},
	{Field: "signature", Formats: []FieldMaskFormat{FieldMaskFormatJSON, FieldMaskFormatURLEncoded}},
	{Field: "password", Formats: []FieldMaskFormat{FieldMaskFormatJSON, FieldMaskFormatURLEncoded}},
	{Field: "token", Formats: []FieldMaskFormat{FieldMaskFormatJSON, FieldMaskFormatURLEncoded}},
}

type mask struct {
	re          *regexp.Regexp
	replacement string
}

type fieldMasker struct {
	field string // lowercase, used as a fast pre-check
	masks []mask
}

func newFieldMasker(rule MaskingRuleConfig) fieldMasker {
	fm := fieldMasker{field: strings.ToLower(rule.Field)}
	add := func(expr, replacement string) {
		fm.masks = append(fm.masks, mask{regexp.MustCompile(expr), replacement})
	}
	for _, m := range rule.Masks {
		add(m.RegExp, m.Mask)
	}
	name := regexp.QuoteMeta(rule.Field)
	for _, format := range rule.Formats {
		switch format {
		case FieldMaskFormatHTTPHeader:
			add(`(?i)`+name+`: .+?\r\n`, rule.Field+": ***\r\n")
		case FieldMaskFormatJSON:
			add(`(?i)"`+name+`"\s*:\s*".*?[^\\]"`, `"`+rule.Field+`": "***"`)
		case FieldMaskFormatURLEncoded:
			add(`(?i)\b`+name+`\s*=\s*[^&\s]+`, rule.Field+"=***")
		}
	}
	return fm
}

// Masker replaces secrets in strings according to a set of rules.
type Masker struct {
	fields []fieldMasker
}

// NewMasker creates a Masker. It panics if a custom regular expression is invalid.
func NewMasker(rules []MaskingRuleConfig) *Masker {
	m := &Masker{fields: make([]fieldMasker, 0, len(rules))}
	for _, rule := range rules {
		m.fields = append(m.fields, newFieldMasker(rule))
	}
	return m
}

// Mask returns s with all secrets replaced.
func (m *Masker) Mask(s string) string {
	lower := strings.ToLower(s)
	for _, fm := range m.fields {
		if !strings.Contains(lower, fm.field) {
			continue
		}
		for _, mk := range fm.masks {
			s = mk.re.ReplaceAllString(s, mk.replacement)
		}
	}
	return s
}

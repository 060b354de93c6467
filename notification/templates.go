/*
Copyright © 2025 BlackEyes Artisan.

Released under MIT license.
*/

package notification

import (
	"bytes"
	"fmt"
	"html/template"
	"sort"

	sprig "github.com/go-task/slim-sprig/v3"
)

// Built-in email templates.
const (
	TemplateOrderPlaced   = "order-placed"
	TemplateUserInvited   = "user-invited"
	TemplatePasswordReset = "password-reset"
)

// FallbackSubject is used for templates that have neither a built-in nor a configured subject.
const FallbackSubject = "New Email"

var defaultSubjects = map[string]string{
	TemplateOrderPlaced:   "Order Confirmation",
	TemplateUserInvited:   "You're Invited!",
	TemplatePasswordReset: "Reset Your Password",
}

const orderPlacedHTML = `<h1>Thank you for your order!</h1>
{{- with .order }}
<p>Your order <strong>#{{ .display_id }}</strong> has been received and is being prepared.</p>
{{- with .items }}
<table>
<tr><th>Item</th><th>Qty</th></tr>
{{- range . }}
<tr><td>{{ .title }}</td><td>{{ .quantity }}</td></tr>
{{- end }}
</table>
{{- end }}
{{- with .total }}
<p>Total: {{ . }} {{ $.order.currency_code | default "" | upper }}</p>
{{- end }}
{{- end }}`

const userInvitedHTML = `<h1>You're invited!</h1>
<p>You have been invited to join the {{ .store_name | default "store" }} admin.</p>
{{- with .invite_url }}
<p><a href="{{ . }}">Accept the invitation</a></p>
{{- end }}`

const passwordResetHTML = `<h1>Reset your password</h1>
<p>We received a request to reset the password of {{ .email | default "your account" }}.</p>
{{- with .reset_url }}
<p><a href="{{ . }}">Choose a new password</a></p>
{{- end }}
<p>If you didn't request this, you can ignore this email.</p>`

var builtinTemplates = map[string]*template.Template{
	TemplateOrderPlaced:   mustParseTemplate(TemplateOrderPlaced, orderPlacedHTML),
	TemplateUserInvited:   mustParseTemplate(TemplateUserInvited, userInvitedHTML),
	TemplatePasswordReset: mustParseTemplate(TemplatePasswordReset, passwordResetHTML),
}

func mustParseTemplate(name, text string) *template.Template {
	return template.Must(template.New(name).Funcs(sprig.HermeticHtmlFuncMap()).Parse(text))
}

// TemplateOverride replaces the subject and/or the body of a template.
// A non-empty HTML is sent as is, without rendering.
type TemplateOverride struct {
	Subject string `mapstructure:"subject" yaml:"subject" json:"subject"`
	HTML    string `mapstructure:"html" yaml:"html" json:"html"`
}

// templateSet resolves template names into subjects and bodies.
// Overrides may also define templates that have no built-in version.
type templateSet struct {
	overrides map[string]TemplateOverride
}

// has reports whether the template is known.
func (ts templateSet) has(name string) bool {
	if o, ok := ts.overrides[name]; ok && o.HTML != "" {
		return true
	}
	_, ok := builtinTemplates[name]
	return ok
}

func (ts templateSet) subject(name string) string {
	if o, ok := ts.overrides[name]; ok && o.Subject != "" {
		return o.Subject
	}
	if s, ok := defaultSubjects[name]; ok {
		return s
	}
	return FallbackSubject
}

func (ts templateSet) render(name string, data map[string]interface{}) (string, error) {
	if o, ok := ts.overrides[name]; ok && o.HTML != "" {
		return o.HTML, nil
	}
	tmpl, ok := builtinTemplates[name]
	if !ok {
		return "", fmt.Errorf("template %q not found", name)
	}
	if data == nil {
		data = map[string]interface{}{}
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render template %q: %w", name, err)
	}
	return buf.String(), nil
}

// names returns the sorted names of all known templates.
func (ts templateSet) names() []string {
	res := make([]string, 0, len(builtinTemplates)+len(ts.overrides))
	for name := range builtinTemplates {
		res = append(res, name)
	}
	for name, o := range ts.overrides {
		if _, ok := builtinTemplates[name]; !ok && o.HTML != "" {
			res = append(res, name)
		}
	}
	sort.Strings(res)
	return res
}

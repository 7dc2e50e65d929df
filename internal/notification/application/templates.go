package application

import (
	"bytes"
	"fmt"
	"text/template"
)

const (
	TemplateOrderCreated    = "order_created"
	TemplateAdminOrderAlert = "admin_order_alert"
)

type messageTemplate struct {
	subject *template.Template
	body    *template.Template
}

var templates = map[string]messageTemplate{
	TemplateOrderCreated: mustTemplate(TemplateOrderCreated,
		`Order {{.OrderNumber}} received`,
		`Your {{.Type}} order {{.OrderNumber}} for {{.AmountCrypto}} {{.Asset}} ({{.AmountFiat}} {{.FiatCurrency}}) is pending.
{{if eq .Type "SELL"}}Send {{.AmountCrypto}} {{.Asset}} to:{{else}}Pay {{.AmountFiat}} {{.FiatCurrency}} to:{{end}}
{{.DepositAddress}}
`),
	TemplateAdminOrderAlert: mustTemplate(TemplateAdminOrderAlert,
		`[New order] {{.Type}} {{.AmountCrypto}} {{.Asset}} / {{.AmountFiat}} {{.FiatCurrency}}`,
		`Order {{.OrderNumber}} placed by user {{.UserID}}.
Type: {{.Type}}
Asset: {{.AmountCrypto}} {{.Asset}}
Fiat: {{.AmountFiat}} {{.FiatCurrency}}
Deposit target:
{{.DepositAddress}}
`),
}

func mustTemplate(name, subject, body string) messageTemplate {
	return messageTemplate{
		subject: template.Must(template.New(name + ".subject").Option("missingkey=error").Parse(subject)),
		body:    template.Must(template.New(name + ".body").Option("missingkey=error").Parse(body)),
	}
}

// Render 渲染模板，返回主题与正文
func Render(name string, params any) (string, string, error) {
	t, ok := templates[name]
	if !ok {
		return "", "", fmt.Errorf("unknown template %q", name)
	}

	var subject, body bytes.Buffer
	if err := t.subject.Execute(&subject, params); err != nil {
		return "", "", fmt.Errorf("render %s subject: %w", name, err)
	}
	if err := t.body.Execute(&body, params); err != nil {
		return "", "", fmt.Errorf("render %s body: %w", name, err)
	}
	return subject.String(), body.String(), nil
}

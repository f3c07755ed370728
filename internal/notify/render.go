package notify

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Message is a rendered notification.
type Message struct {
	Subject string
	Body    string
}

var templates = template.Must(template.New("notify").Funcs(template.FuncMap{
	"title": func(s string) string {
		if s == "" {
			return s
		}
		return strings.ToUpper(s[:1]) + s[1:]
	},
}).Parse(`
{{define "booking.status_changed.subject"}}Booking {{.NewStatus}}{{end}}
{{define "booking.status_changed.body"}}Your booking {{.EntityID}} moved from {{.OldStatus}} to {{.NewStatus}}.{{if .Reason}} Reason: {{.Reason}}{{end}}{{if .Price}} Price: {{.Price}}.{{end}}{{end}}
{{define "promotion.plan_upgraded.subject"}}Your listing plan was upgraded{{end}}
{{define "promotion.plan_upgraded.body"}}Upgrade request {{.EntityID}} was approved.{{range .Changes}}
- {{title .Name}}: {{.From}} -> {{.To}}{{end}}{{if .Reason}}
Remarks: {{.Reason}}{{end}}{{end}}
{{define "promotion.rejected.subject"}}Your upgrade request was rejected{{end}}
{{define "promotion.rejected.body"}}Upgrade request {{.EntityID}} was rejected. Remarks: {{.Reason}}{{end}}
`))

type renderData struct {
	Notification
	Price string
}

// Render produces the subject and body for n.
func Render(n Notification) (Message, error) {
	data := renderData{Notification: n, Price: FormatAmount(n.Amount, n.Currency)}
	subject, err := execute(string(n.Kind)+".subject", data)
	if err != nil {
		return Message{}, err
	}
	body, err := execute(string(n.Kind)+".body", data)
	if err != nil {
		return Message{}, err
	}
	return Message{Subject: subject, Body: body}, nil
}

func execute(name string, data renderData) (string, error) {
	if templates.Lookup(name) == nil {
		return "", fmt.Errorf("notify: no template %q", name)
	}
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("notify: render %s: %w", name, err)
	}
	return strings.TrimSpace(buf.String()), nil
}

var printer = message.NewPrinter(language.English)

// FormatAmount renders amount in the ISO 4217 currency code. Unknown or empty codes
// yield an empty string so templates can omit the price.
func FormatAmount(amount float64, code string) string {
	if code == "" || amount == 0 {
		return ""
	}
	unit, err := currency.ParseISO(code)
	if err != nil {
		return ""
	}
	return printer.Sprint(currency.Symbol(unit.Amount(amount)))
}

package message

import (
	"bytes"
	"html/template"

	"github.com/dynaerp/notify-engine/internal/domain"
)

// emailTemplate renders the outbound email body for one payload. Kept
// deliberately plain: recipients here are customers/suppliers reading in
// arbitrary mail clients.
var emailTemplate = template.Must(template.New("notification").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: -apple-system, 'Segoe UI', Roboto, sans-serif; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
    <h2 style="border-bottom: 2px solid #0066cc; padding-bottom: 8px;">{{.SummaryText}}</h2>
    {{if .SummaryFields}}
    <table cellpadding="6" cellspacing="0" style="border-collapse: collapse;">
        {{range .SummaryFields}}
        <tr>
            <td style="color: #666;">{{.Field}}</td>
            <td>{{.Value}}</td>
        </tr>
        {{end}}
    </table>
    {{end}}
    <p style="margin-top: 30px; padding-top: 16px; border-top: 1px solid #eee; font-size: 12px; color: #666;">
        This is an automated notification. Please do not reply.
    </p>
</body>
</html>`))

// EmailHTML renders the email body for a payload.
func EmailHTML(p domain.MessagePayload) string {
	var buf bytes.Buffer
	if err := emailTemplate.Execute(&buf, p); err != nil {
		// Template and data shape are fixed at compile time; execution can
		// only fail on a writer error, which bytes.Buffer never returns.
		return p.SummaryText
	}
	return buf.String()
}

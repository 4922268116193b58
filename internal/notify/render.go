package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/octobees/brandintel/internal/entity"
)

const listPreview = 3

// Digest is the channel-neutral view of a report used by the renderers.
type Digest struct {
	BrandName       string
	Score           int
	Vulnerabilities []string
	Opportunities   []string
	DashboardURL    string
}

// NewDigest decodes the stored insight payload.
func NewDigest(report *entity.Report, brandName, appURL string) (Digest, error) {
	var insights entity.Insights
	if len(report.Insights) > 0 {
		if err := json.Unmarshal(report.Insights, &insights); err != nil {
			return Digest{}, eris.Wrapf(err, "decode insights of report %s", report.ID)
		}
	}

	d := Digest{
		BrandName:    brandName,
		Score:        insights.BrandHealth.OverallScore,
		DashboardURL: strings.TrimRight(appURL, "/") + "/dashboard",
	}
	for _, v := range insights.Vulnerabilities {
		d.Vulnerabilities = append(d.Vulnerabilities, v.Issue)
	}
	for _, o := range insights.Opportunities {
		d.Opportunities = append(d.Opportunities, o.Insight)
	}
	return d, nil
}

// ScoreColor maps a health score to its display colour band.
func ScoreColor(score int) string {
	switch {
	case score >= 80:
		return "#10b981"
	case score >= 60:
		return "#f59e0b"
	default:
		return "#ef4444"
	}
}

func alerts(n int) string {
	if n == 1 {
		return "1 Alert"
	}
	return fmt.Sprintf("%d Alerts", n)
}

func opportunities(n int) string {
	if n == 1 {
		return "1 Opportunity"
	}
	return fmt.Sprintf("%d Opportunities", n)
}

func preview(items []string) []string {
	if len(items) > listPreview {
		return items[:listPreview]
	}
	return items
}

var emailTemplate = template.Must(template.New("weekly").Funcs(template.FuncMap{
	"color":         ScoreColor,
	"alerts":        alerts,
	"opportunities": opportunities,
	"preview":       preview,
}).Parse(`<!DOCTYPE html>
<html>
  <head>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
  </head>
  <body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
    <div style="background: linear-gradient(135deg, #667eea 0%, #764ba2 100%); padding: 30px; text-align: center; border-radius: 10px 10px 0 0;">
      <h1 style="color: white; margin: 0;">Weekly Brand Report</h1>
    </div>
    <div style="background: #f9fafb; padding: 30px; border-radius: 0 0 10px 10px;">
      <h2 style="color: #1f2937; margin-top: 0;">Hello!</h2>
      <p>Your weekly brand intelligence report for <strong>{{.BrandName}}</strong> is ready.</p>
      <div style="background: white; padding: 20px; border-radius: 8px; margin: 20px 0; text-align: center;">
        <div style="font-size: 48px; font-weight: bold; color: {{color .Score}};">{{.Score}}</div>
        <div style="color: #6b7280; margin-top: 10px;">Brand Health Score</div>
      </div>
      {{- with .Vulnerabilities}}
      <div style="background: #fef2f2; border-left: 4px solid #ef4444; padding: 15px; margin: 20px 0; border-radius: 4px;">
        <h3 style="color: #991b1b; margin-top: 0;">{{alerts (len .)}}</h3>
        <ul style="margin: 10px 0; padding-left: 20px;">
          {{- range preview .}}
          <li>{{.}}</li>
          {{- end}}
        </ul>
      </div>
      {{- end}}
      {{- with .Opportunities}}
      <div style="background: #f0fdf4; border-left: 4px solid #10b981; padding: 15px; margin: 20px 0; border-radius: 4px;">
        <h3 style="color: #166534; margin-top: 0;">{{opportunities (len .)}}</h3>
        <ul style="margin: 10px 0; padding-left: 20px;">
          {{- range preview .}}
          <li>{{.}}</li>
          {{- end}}
        </ul>
      </div>
      {{- end}}
      <div style="text-align: center; margin: 30px 0;">
        <a href="{{.DashboardURL}}" style="background: #667eea; color: white; padding: 12px 24px; text-decoration: none; border-radius: 6px; display: inline-block;">View Full Report</a>
      </div>
      <p style="color: #6b7280; font-size: 14px; margin-top: 30px;">
        This is an automated report. You're receiving this because you opted in to email notifications.
      </p>
    </div>
  </body>
</html>
`))

// EmailSubject is the subject line of the weekly report email.
func EmailSubject(d Digest) string {
	return "Your Weekly Brand Report - " + d.BrandName
}

// RenderEmail renders the HTML body of the weekly report email.
func RenderEmail(d Digest) (string, error) {
	var buf bytes.Buffer
	if err := emailTemplate.Execute(&buf, d); err != nil {
		return "", eris.Wrap(err, "render report email")
	}
	return buf.String(), nil
}

// RenderWhatsApp renders the plain-text WhatsApp message.
func RenderWhatsApp(d Digest) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "*Weekly Brand Report - %s*\n\n", d.BrandName)
	fmt.Fprintf(&sb, "Brand Health Score: *%d/100*\n\n", d.Score)
	if n := len(d.Vulnerabilities); n > 0 {
		sb.WriteString(alerts(n) + "\n")
	}
	if n := len(d.Opportunities); n > 0 {
		sb.WriteString(opportunities(n) + "\n")
	}
	sb.WriteString("\nView full report: " + d.DashboardURL)
	return sb.String()
}

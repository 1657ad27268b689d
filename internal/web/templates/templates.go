// Package templates renders the HTML fragments served to HTMX clients.
package templates

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/JonMunkholm/dataport/internal/core"
	"github.com/a-h/templ"
)

// ErrorAlert renders a dismissible error banner.
func ErrorAlert(message, action, code string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w,
			`<div class="alert alert-error" role="alert" data-code="%s"><p class="alert-message">%s</p>`,
			templ.EscapeString(code), templ.EscapeString(message))
		if err != nil {
			return err
		}
		if action != "" {
			if _, err := fmt.Fprintf(w, `<p class="alert-action">%s</p>`, templ.EscapeString(action)); err != nil {
				return err
			}
		}
		_, err = fmt.Fprintf(w, `<p class="alert-code">Error code: %s</p></div>`, templ.EscapeString(code))
		return err
	})
}

// ImportReport renders the result of an import run with its rejected rows.
func ImportReport(summary *core.ImportSummary, rejected []core.RowOutcome) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		status := "success"
		if summary.FailedCount > 0 || summary.Cancelled {
			status = "warning"
		}

		if _, err := fmt.Fprintf(w,
			`<section class="import-report import-%s"><h2>%s</h2><dl>`,
			status, templ.EscapeString(summary.FileName)); err != nil {
			return err
		}

		stats := []struct {
			label string
			value string
		}{
			{"Schema", string(summary.Schema)},
			{"Total rows", fmt.Sprint(summary.TotalRows)},
			{"Imported", fmt.Sprint(summary.ImportedCount)},
			{"Failed", fmt.Sprint(summary.FailedCount)},
			{"Status", string(summary.Status)},
			{"Duration", summary.Duration.Round(time.Millisecond).String()},
		}
		for _, s := range stats {
			if _, err := fmt.Fprintf(w, `<dt>%s</dt><dd>%s</dd>`,
				s.label, templ.EscapeString(s.value)); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, `</dl>`); err != nil {
			return err
		}

		if summary.Truncated {
			if _, err := io.WriteString(w, `<p class="notice">The file exceeded the row limit and was truncated.</p>`); err != nil {
				return err
			}
		}
		if summary.AuditError != "" {
			if _, err := fmt.Fprintf(w, `<p class="notice">Audit log not written: %s</p>`,
				templ.EscapeString(summary.AuditError)); err != nil {
				return err
			}
		}

		if len(rejected) > 0 {
			if _, err := io.WriteString(w, `<table class="rejected"><thead><tr><th>Row</th><th>Errors</th></tr></thead><tbody>`); err != nil {
				return err
			}
			for _, o := range rejected {
				if _, err := fmt.Fprintf(w, `<tr><td>%d</td><td><ul>`, o.Row); err != nil {
					return err
				}
				for _, msg := range o.Errors {
					if _, err := fmt.Fprintf(w, `<li>%s</li>`, templ.EscapeString(msg)); err != nil {
						return err
					}
				}
				if _, err := io.WriteString(w, `</ul></td></tr>`); err != nil {
					return err
				}
			}
			if _, err := io.WriteString(w, `</tbody></table>`); err != nil {
				return err
			}
		}

		_, err := io.WriteString(w, `</section>`)
		return err
	})
}

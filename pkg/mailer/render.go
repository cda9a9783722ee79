package mailer

import (
	"context"
	"errors"
	"strings"

	mailtpl "github.com/oksasatya/materials-store-api/pkg/mailer/templates"
)

var ErrUnknownTemplate = errors.New("unknown email template")

// Render produces the final subject and bodies for a job. Template jobs go through the
// universal layout with times localized to the recipient; raw jobs pass through.
func (j *EmailJob) Render(ctx context.Context, resolver mailtpl.GeoResolver) (subject, text, html string, err error) {
	j.Normalize()
	if j.Template == "" {
		return j.Subject, j.Text, j.HTML, nil
	}
	if !strings.EqualFold(j.Template, mailtpl.Universal) {
		return "", "", "", ErrUnknownTemplate
	}
	mailtpl.LocalizeTimes(ctx, resolver, j.Data)
	html, err = mailtpl.RenderHTML(mailtpl.Universal, j.Data)
	if err != nil {
		return "", "", "", err
	}
	subject = j.Subject
	if subject == "" {
		subject = mailtpl.Subject(j.Data)
	}
	return subject, j.Text, html, nil
}

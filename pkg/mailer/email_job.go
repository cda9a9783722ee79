package mailer

import (
	"fmt"
	"strings"

	mailtpl "github.com/oksasatya/materials-store-api/pkg/mailer/templates"
)

// EmailJob is the JSON payload put on the RabbitMQ queue for sending email.
// Either Template+Data or Subject with Text/HTML is set.
type EmailJob struct {
	To       string         `json:"to"`
	Subject  string         `json:"subject,omitempty"`
	Text     string         `json:"text,omitempty"`
	HTML     string         `json:"html,omitempty"`
	Template string         `json:"template,omitempty"` // "universal" or one of the mailtpl type names
	Data     map[string]any `json:"data,omitempty"`
}

// Normalize fills recipient fields and maps a bare type name ("verify_email") onto the
// universal template with Data["Type"] set.
func (j *EmailJob) Normalize() {
	if j.Data == nil {
		j.Data = map[string]any{}
	}
	if v, ok := j.Data["Email"]; !ok || fmt.Sprintf("%v", v) == "" {
		j.Data["Email"] = j.To
	}
	if v, ok := j.Data["RecipientEmail"]; !ok || fmt.Sprintf("%v", v) == "" {
		j.Data["RecipientEmail"] = j.To
	}
	name := strings.ToLower(j.Template)
	if mailtpl.KnownType(name) {
		if v, ok := j.Data["Type"]; !ok || fmt.Sprintf("%v", v) == "" {
			j.Data["Type"] = name
		}
		j.Template = mailtpl.Universal
	}
}

// Tag is the delivery tag for provider analytics: the email type for universal jobs, else the template name.
func (j *EmailJob) Tag() string {
	if j.Template == mailtpl.Universal {
		if v, ok := j.Data["Type"]; ok {
			if s := fmt.Sprintf("%v", v); s != "" {
				return s
			}
		}
	}
	return j.Template
}

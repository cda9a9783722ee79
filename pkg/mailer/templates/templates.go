package templates

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	htmpl "html/template"
	"reflect"
	"strings"
	"time"
)

//go:embed *.tmpl
var FS embed.FS

// Universal is the single HTML layout every email type renders through.
const Universal = "universal"

// Email types carried in EmailData.Type.
const (
	Welcome        = "welcome"
	VerifyEmail    = "verify_email"
	ForgotPassword = "forgot_password"
	AccountStatus  = "account_status"
)

// KnownType reports whether name is an email type rendered by the universal template.
func KnownType(name string) bool {
	switch name {
	case Welcome, VerifyEmail, ForgotPassword, AccountStatus:
		return true
	}
	return false
}

// EmailData defines standard fields for email templates.
type EmailData struct {
	// Basic info
	Name           string `json:"Name"`
	Email          string `json:"Email"`
	RecipientEmail string `json:"RecipientEmail"`
	Type           string `json:"Type"`
	UserType       string `json:"UserType"`

	// Company info
	CompanyName    string `json:"CompanyName"`
	CompanyAddress string `json:"CompanyAddress"`
	AppName        string `json:"AppName"`
	LogoURL        string `json:"LogoURL"`
	SupportURL     string `json:"SupportURL"`

	// Action URLs
	ResetURL  string `json:"ResetURL"`
	VerifyURL string `json:"VerifyURL"`

	// Additional data
	ExpiresAt     time.Time `json:"ExpiresAt"`
	ExpiresAtText string    `json:"ExpiresAtText"`
	IP            string    `json:"IP"`
	Time          string    `json:"Time"`
	TimeAt        time.Time `json:"TimeAt"`
	UserAgent     string    `json:"UserAgent"`
	Location      string    `json:"Location"`
	Active        bool      `json:"Active"`
}

// ToMap converts EmailData to a map[string]any for EmailJob.Data
func ToMap(d EmailData) map[string]any {
	b, _ := json.Marshal(d)
	var m map[string]any
	_ = json.Unmarshal(b, &m)
	return m
}

// defaultFn supports pipe usage: {{ .Value | default "Fallback" }}
func defaultFn(fallback any, value any) any {
	switch x := value.(type) {
	case string:
		if strings.TrimSpace(x) == "" {
			return fallback
		}
		return x
	case nil:
		return fallback
	default:
		rv := reflect.ValueOf(value)
		if !rv.IsValid() || rv.IsZero() {
			return fallback
		}
		return value
	}
}

var funcMap = htmpl.FuncMap{
	"upper":   strings.ToUpper,
	"default": defaultFn,
}

// Subject picks the subject line for a universal email from its data.
func Subject(data map[string]any) string {
	switch strings.ToLower(fmt.Sprintf("%v", data["Type"])) {
	case Welcome:
		return "Welcome to " + fmt.Sprintf("%v", defaultFn("our store", data["CompanyName"]))
	case VerifyEmail:
		return "Verify your email address"
	case ForgotPassword:
		return "Reset your password"
	case AccountStatus:
		return "Your account status has changed"
	default:
		return "Notification"
	}
}

// RenderHTML renders <name>.html.tmpl from the embedded FS.
func RenderHTML(name string, data any) (string, error) {
	filename := name + ".html.tmpl"
	tpl, err := htmpl.New(filename).Funcs(funcMap).ParseFS(FS, filename)
	if err != nil {
		return "", fmt.Errorf("parse html %q: %w", filename, err)
	}
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("exec %q: %w", filename, err)
	}
	return buf.String(), nil
}

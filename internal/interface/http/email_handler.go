package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/materials-store-api/config"
	app "github.com/oksasatya/materials-store-api/internal/application"
	"github.com/oksasatya/materials-store-api/pkg/mailer"
	mailtpl "github.com/oksasatya/materials-store-api/pkg/mailer/templates"
	"github.com/oksasatya/materials-store-api/pkg/metrics"
	"github.com/oksasatya/materials-store-api/pkg/response"
)

type EmailHandler struct {
	Queue   app.EmailQueue
	Logger  *logrus.Logger
	Cfg     *config.Config
	Metrics *metrics.Metrics
}

func NewEmailHandler(queue app.EmailQueue, logger *logrus.Logger, cfg *config.Config, m *metrics.Metrics) *EmailHandler {
	return &EmailHandler{Queue: queue, Logger: logger, Cfg: cfg, Metrics: m}
}

type sendEmailRequest struct {
	To       string         `json:"to" binding:"required,email"`
	Template string         `json:"template"` // universal or welcome, verify_email, forgot_password, account_status
	Data     map[string]any `json:"data"`
	Subject  string         `json:"subject"` // required if no template
	Text     string         `json:"text"`
	HTML     string         `json:"html"`
}

// Send enqueues an ad-hoc email job for the worker.
func (h *EmailHandler) Send(c *gin.Context) {
	var req sendEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	tpl := strings.ToLower(strings.TrimSpace(req.Template))
	if tpl == "" {
		if req.Subject == "" || (req.Text == "" && req.HTML == "") {
			response.Error[any](c, http.StatusBadRequest, "either template or subject with text/html is required", nil)
			return
		}
	} else if tpl != mailtpl.Universal && !mailtpl.KnownType(tpl) {
		response.Error[any](c, http.StatusBadRequest, "unknown template", nil)
		return
	}

	if (h.Cfg != nil && !h.Cfg.MailSendEnabled) || h.Queue == nil {
		response.Success[any](c, http.StatusAccepted, gin.H{"enqueued": false, "disabled": true}, "email sending disabled", nil)
		return
	}

	job := mailer.EmailJob{To: req.To}
	if tpl != "" {
		job.Template = tpl
		job.Data = req.Data
		job.Normalize()
	} else {
		job.Subject = req.Subject
		job.Text = req.Text
		job.HTML = req.HTML
	}
	err := h.Queue.PublishJSON(c.Request.Context(), job)
	h.Metrics.Email(firstNonEmpty(tpl, "raw"), err)
	if err != nil {
		if h.Logger != nil {
			h.Logger.WithError(err).Warn("failed to publish email job")
		}
		response.Error[any](c, http.StatusInternalServerError, "failed to enqueue", nil)
		return
	}
	response.Success[any](c, http.StatusAccepted, gin.H{"enqueued": true}, "email enqueued", nil)
}

func firstNonEmpty(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}

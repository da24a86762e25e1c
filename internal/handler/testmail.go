package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlene/kitchen-api/internal/dto"
	"github.com/charlene/kitchen-api/internal/mailer"
	"github.com/charlene/kitchen-api/internal/model"
)

// TestMailHandler exposes SMTP probes. Registered in development only;
// the routes do not exist in production.
type TestMailHandler struct {
	mailer *mailer.Mailer
	log    *slog.Logger
}

func NewTestMailHandler(m *mailer.Mailer, log *slog.Logger) *TestMailHandler {
	return &TestMailHandler{mailer: m, log: log}
}

// VerifyConnection dials the SMTP server without sending anything.
func (h *TestMailHandler) VerifyConnection(c *gin.Context) {
	if err := h.mailer.VerifyConnection(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, dto.Envelope{Success: false, Message: "smtp connection failed: " + err.Error()})
		return
	}
	ok(c, "smtp connection verified", nil)
}

type testMailRequest struct {
	To string `json:"to" binding:"required,email"`
}

// Send delivers a fixed test message to the given address. Unlike
// production sends, the SMTP error surfaces in the response.
func (h *TestMailHandler) Send(c *gin.Context) {
	var req testMailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	err := h.mailer.SendRaw(c.Request.Context(),
		model.NormalizeEmail(req.To),
		"Charlene's Kitchen - email di prova",
		"<p>Questa è una email di prova. La configurazione SMTP funziona.</p>",
		"Questa è una email di prova. La configurazione SMTP funziona.")
	if err != nil {
		c.JSON(http.StatusBadGateway, dto.Envelope{Success: false, Message: "send failed: " + err.Error()})
		return
	}
	ok(c, "test email sent", nil)
}

/*
Copyright © 2025 BlackEyes Artisan.

Released under MIT license.
*/

package notification

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/blackeyesartisan/shopkit/httpserver/middleware"
	"github.com/blackeyesartisan/shopkit/log"
	"github.com/blackeyesartisan/shopkit/restapi"
)

// NotificationsPath is the admin endpoint for sending notifications.
const NotificationsPath = "/admin/notifications"

// SendRequest is the body of the notifications endpoint.
type SendRequest struct {
	Template string                 `json:"template"`
	To       string                 `json:"to"`
	Data     map[string]interface{} `json:"data"`
}

// SendResponse is returned when the email is accepted by the provider.
type SendResponse struct {
	ID string `json:"id"`
}

// Handler exposes the Sender over HTTP.
type Handler struct {
	sender    *Sender
	errDomain string
}

// NewHandler creates a new Handler.
func NewHandler(sender *Sender, errDomain string) *Handler {
	return &Handler{sender: sender, errDomain: errDomain}
}

// Routes registers the notifications endpoint in the router.
func (h *Handler) Routes(router chi.Router) {
	router.Post(NotificationsPath, h.send)
}

func (h *Handler) send(rw http.ResponseWriter, r *http.Request) {
	logger := middleware.GetLoggerFromContext(r.Context())

	var req SendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondBadRequest(rw, logger, "Request body should be a JSON object.")
		return
	}
	if req.To == "" {
		h.respondBadRequest(rw, logger, `The "to" field is required.`)
		return
	}
	if !h.knownTemplate(req.Template) {
		apiErr := restapi.NewError(h.errDomain, restapi.ErrCodeBadRequest, "Unknown email template.").
			AddContext("validTemplates", h.sender.Templates())
		restapi.RespondError(rw, http.StatusBadRequest, apiErr, logger)
		return
	}

	// A started send runs to the end even if the admin client goes away.
	id, ok := h.sender.Send(context.WithoutCancel(r.Context()), Notification{Template: req.Template, To: req.To, Data: req.Data})
	if !ok {
		restapi.RespondError(rw, http.StatusBadGateway,
			restapi.NewError(h.errDomain, restapi.ErrCodeBadGateway, "Email was not sent."), logger)
		return
	}
	restapi.RespondCodeAndJSON(rw, http.StatusAccepted, SendResponse{ID: id}, logger)
}

func (h *Handler) knownTemplate(name string) bool {
	for _, t := range h.sender.Templates() {
		if t == name {
			return true
		}
	}
	return false
}

func (h *Handler) respondBadRequest(rw http.ResponseWriter, logger log.FieldLogger, message string) {
	restapi.RespondError(rw, http.StatusBadRequest, restapi.NewError(h.errDomain, restapi.ErrCodeBadRequest, message), logger)
}

package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/csrf"

	"statusboard/internal/adapters/http/middleware"
	"statusboard/internal/adapters/markdown"
	"statusboard/internal/application/orchestrators"
	"statusboard/internal/application/projections"
	"statusboard/internal/domain/audit"
	"statusboard/internal/domain/gate"
	"statusboard/internal/domain/tracker"
)

// internalError logs the real error and returns a generic message to the client.
func internalError(w http.ResponseWriter, err error) {
	slog.Error("internal_error", "error", err.Error())
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

// recordAudit saves e when an audit log is configured. Failures are logged
// and never fail the request.
func recordAudit(r *http.Request, e audit.Event) {
	if app.Audit == nil {
		return
	}
	e = e.WithIP(middleware.ClientIP(r))
	if err := app.Audit.Save(r.Context(), e); err != nil {
		slog.Error("audit_error", "action", string(e.Action), "error", err.Error())
	}
}

// strictDecode decodes JSON from the request body, rejecting unknown fields.
func strictDecode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func isJSONRequest(r *http.Request) bool {
	return strings.HasPrefix(r.URL.Path, "/api/")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("internal_error", "error", err.Error())
	}
}

// userErrorStatus maps domain errors caused by user input to a status code.
// Anything else is an internal error.
func userErrorStatus(err error) (int, bool) {
	switch {
	case errors.Is(err, tracker.ErrEmptyTitle),
		errors.Is(err, tracker.ErrTitleTooLong),
		errors.Is(err, tracker.ErrDescTooLong),
		errors.Is(err, tracker.ErrEmptyComment),
		errors.Is(err, tracker.ErrCommentTooLong),
		errors.Is(err, tracker.ErrInvalidStatus):
		return http.StatusBadRequest, true
	case errors.Is(err, tracker.ErrCategoryIndex),
		errors.Is(err, tracker.ErrUpdateNotFound):
		return http.StatusNotFound, true
	case errors.Is(err, gate.ErrWrongPassphrase):
		return http.StatusUnauthorized, true
	}
	return 0, false
}

// apiError answers a JSON request with the user-facing message or a 500.
func apiError(w http.ResponseWriter, err error) {
	if status, ok := userErrorStatus(err); ok {
		http.Error(w, err.Error(), status)
		return
	}
	internalError(w, err)
}

func renderTemplate(w http.ResponseWriter, r *http.Request, templateName string, data any) {
	renderTemplateStatus(w, r, http.StatusOK, templateName, data)
}

func renderTemplateStatus(w http.ResponseWriter, r *http.Request, status int, templateName string, data any) {
	funcMap := template.FuncMap{
		"csrfToken":      func() string { return csrf.Token(r) },
		"isUnlocked":     func() bool { return middleware.IsUnlocked(r.Context()) },
		"renderMarkdown": markdown.Render,
	}

	tpl, err := template.New("layout.html").Funcs(funcMap).ParseFS(templateFS, "templates/layout.html", "templates/"+templateName)
	if err != nil {
		internalError(w, err)
		return
	}
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		internalError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

// parseUpdateID reads the {id} path value.
func parseUpdateID(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

// parseCategoryIndex reads the {index} path value.
func parseCategoryIndex(r *http.Request) (int, error) {
	return strconv.Atoi(r.PathValue("index"))
}

// handleStatus renders the public status page.
func handleStatus(w http.ResponseWriter, r *http.Request) {
	view, err := projections.QueryGetStatusView(r.Context(), projections.GetStatusViewDeps{
		StateStore: app.StateStore,
		Location:   app.Location,
	})
	if err != nil {
		internalError(w, err)
		return
	}
	renderTemplate(w, r, "status.html", map[string]any{
		"Title": "Migration status",
		"View":  view,
	})
}

// handleAPIState returns the whole state record as JSON.
func handleAPIState(w http.ResponseWriter, r *http.Request) {
	st, err := app.StateStore.Load(r.Context())
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

type addCommentRequest struct {
	Text   string `json:"text"`
	Author string `json:"author"`
}

// handleAddComment adds a comment from the public page (form) or the API (JSON).
func handleAddComment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := parseUpdateID(r)
	if err != nil {
		http.Error(w, "update not found", http.StatusNotFound)
		return
	}

	var req addCommentRequest
	if isJSONRequest(r) {
		if err := strictDecode(r, &req); err != nil {
			http.Error(w, "Invalid request", http.StatusBadRequest)
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form submission", http.StatusBadRequest)
			return
		}
		req.Text = r.FormValue("text")
		req.Author = r.FormValue("author")
	}

	c, err := orchestrators.ExecuteAddComment(ctx, orchestrators.AddCommentInput{
		UpdateID: id,
		Text:     req.Text,
		Author:   req.Author,
	}, orchestrators.AddCommentDeps{
		StateStore: app.StateStore,
		Now:        timeNow,
	})

	if isJSONRequest(r) {
		if err != nil {
			apiError(w, err)
			return
		}
		recordAudit(r, commentEvent(id))
		writeJSON(w, http.StatusCreated, c)
		return
	}

	if err != nil {
		status, ok := userErrorStatus(err)
		if !ok {
			internalError(w, err)
			return
		}
		view, loadErr := projections.QueryGetStatusView(ctx, projections.GetStatusViewDeps{
			StateStore: app.StateStore,
			Location:   app.Location,
		})
		if loadErr != nil {
			internalError(w, loadErr)
			return
		}
		renderTemplateStatus(w, r, status, "status.html", map[string]any{
			"Title":       "Migration status",
			"View":        view,
			"Error":       err.Error(),
			"ErrorUpdate": id,
			"FormAuthor":  req.Author,
			"FormComment": req.Text,
		})
		return
	}
	recordAudit(r, commentEvent(id))
	http.Redirect(w, r, "/#update-"+strconv.FormatInt(id, 10), http.StatusSeeOther)
}

func commentEvent(updateID int64) audit.Event {
	return audit.NewEvent(audit.ActorPublic, audit.ActionAddComment, timeNow()).
		WithResource("update", strconv.FormatInt(updateID, 10))
}

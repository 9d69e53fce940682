package web

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"statusboard/internal/adapters/export"
	"statusboard/internal/adapters/http/middleware"
	auditStore "statusboard/internal/adapters/storage/audit"
	"statusboard/internal/application/orchestrators"
	"statusboard/internal/application/projections"
	"statusboard/internal/domain/audit"
	"statusboard/internal/domain/gate"
	"statusboard/internal/domain/outbox"
	"statusboard/internal/domain/tracker"
)

// perfWindow is how far back the perf snapshot looks.
const perfWindow = 15 * time.Minute

// handleDashboard renders the login screen or, once unlocked, the dashboard.
func handleDashboard(w http.ResponseWriter, r *http.Request) {
	if !middleware.IsUnlocked(r.Context()) {
		renderTemplate(w, r, "login.html", map[string]any{"Title": "Dashboard login"})
		return
	}
	renderDashboard(w, r, http.StatusOK, "")
}

func renderDashboard(w http.ResponseWriter, r *http.Request, status int, flash string) {
	view, err := projections.QueryGetDashboardView(r.Context(), projections.GetDashboardViewDeps{
		StateStore: app.StateStore,
		Location:   app.Location,
	})
	if err != nil {
		internalError(w, err)
		return
	}
	renderTemplateStatus(w, r, status, "dashboard.html", map[string]any{
		"Title": "Dashboard",
		"View":  view,
		"Error": flash,
	})
}

// mutationFailure answers a failed dashboard mutation: JSON gets the status
// and message, forms get the dashboard again with a flash message.
func mutationFailure(w http.ResponseWriter, r *http.Request, err error) {
	if isJSONRequest(r) {
		apiError(w, err)
		return
	}
	status, ok := userErrorStatus(err)
	if !ok {
		internalError(w, err)
		return
	}
	renderDashboard(w, r, status, err.Error())
}

type loginRequest struct {
	Passphrase string `json:"passphrase"`
}

// handleLogin checks the passphrase and persists the authenticated flag.
func handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
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
		req.Passphrase = r.FormValue("passphrase")
	}

	res, err := orchestrators.ExecuteUnlockDashboard(r.Context(), orchestrators.UnlockDashboardInput{
		Passphrase: req.Passphrase,
	}, orchestrators.UnlockDashboardDeps{
		Gate:     app.Gate,
		Sessions: app.Sessions,
	})
	if err != nil {
		if errors.Is(err, gate.ErrWrongPassphrase) {
			recordAudit(r, audit.NewEvent(audit.ActorPublic, audit.ActionLoginFailed, timeNow()))
		}
		if isJSONRequest(r) {
			apiError(w, err)
			return
		}
		if _, ok := userErrorStatus(err); !ok {
			internalError(w, err)
			return
		}
		renderTemplateStatus(w, r, http.StatusUnauthorized, "login.html", map[string]any{
			"Title": "Dashboard login",
			"Error": err.Error(),
		})
		return
	}

	middleware.SetGateCookie(w, res.Token)
	recordAudit(r, audit.NewEvent(audit.ActorAdmin, audit.ActionLogin, timeNow()))
	if isJSONRequest(r) {
		writeJSON(w, http.StatusOK, map[string]gate.Screen{"screen": res.Screen})
		return
	}
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

type progressRequest struct {
	Progress int `json:"progress"`
}

// handleSetProgress sets one category's progress.
func handleSetProgress(w http.ResponseWriter, r *http.Request) {
	index, err := parseCategoryIndex(r)
	if err != nil {
		http.Error(w, "category not found", http.StatusNotFound)
		return
	}

	var req progressRequest
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
		req.Progress, err = strconv.Atoi(r.FormValue("progress"))
		if err != nil {
			renderDashboard(w, r, http.StatusBadRequest, "progress must be a whole number")
			return
		}
	}

	st, err := orchestrators.ExecuteSetCategoryProgress(r.Context(), orchestrators.SetCategoryProgressInput{
		Index:    index,
		Progress: req.Progress,
	}, orchestrators.SetCategoryProgressDeps{
		StateStore: app.StateStore,
		Now:        timeNow,
	})
	if err != nil {
		mutationFailure(w, r, err)
		return
	}
	cat := st.Categories[index]
	recordAudit(r, audit.NewEvent(audit.ActorAdmin, audit.ActionSetProgress, timeNow()).
		WithResource("category", strconv.Itoa(index)).
		WithDescription(fmt.Sprintf("%s set to %d%%", cat.Name, cat.Progress)))

	if isJSONRequest(r) {
		writeJSON(w, http.StatusOK, st)
		return
	}
	http.Redirect(w, r, "/dashboard#category-"+strconv.Itoa(index), http.StatusSeeOther)
}

type statusRequest struct {
	Status tracker.Status `json:"status"`
}

// handleSetStatus sets one category's status label.
func handleSetStatus(w http.ResponseWriter, r *http.Request) {
	index, err := parseCategoryIndex(r)
	if err != nil {
		http.Error(w, "category not found", http.StatusNotFound)
		return
	}

	var req statusRequest
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
		req.Status = tracker.Status(r.FormValue("status"))
	}

	st, err := orchestrators.ExecuteSetCategoryStatus(r.Context(), orchestrators.SetCategoryStatusInput{
		Index:  index,
		Status: req.Status,
	}, orchestrators.SetCategoryStatusDeps{
		StateStore: app.StateStore,
		Now:        timeNow,
	})
	if err != nil {
		mutationFailure(w, r, err)
		return
	}
	cat := st.Categories[index]
	recordAudit(r, audit.NewEvent(audit.ActorAdmin, audit.ActionSetStatus, timeNow()).
		WithResource("category", strconv.Itoa(index)).
		WithDescription(fmt.Sprintf("%s marked %s", cat.Name, cat.Status.Label())))

	if isJSONRequest(r) {
		writeJSON(w, http.StatusOK, st)
		return
	}
	http.Redirect(w, r, "/dashboard#category-"+strconv.Itoa(index), http.StatusSeeOther)
}

type addUpdateRequest struct {
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Type        tracker.UpdateType `json:"type"`
}

// handleAddUpdate publishes a new update.
func handleAddUpdate(w http.ResponseWriter, r *http.Request) {
	var req addUpdateRequest
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
		req.Title = r.FormValue("title")
		req.Description = r.FormValue("description")
		req.Type = tracker.UpdateType(r.FormValue("type"))
	}

	u, err := orchestrators.ExecuteAddUpdate(r.Context(), orchestrators.AddUpdateInput{
		Title:       req.Title,
		Description: req.Description,
		Type:        req.Type,
	}, orchestrators.AddUpdateDeps{
		StateStore: app.StateStore,
		Announcer:  app.Announcer,
		Now:        timeNow,
	})
	if err != nil {
		mutationFailure(w, r, err)
		return
	}
	recordAudit(r, audit.NewEvent(audit.ActorAdmin, audit.ActionAddUpdate, timeNow()).
		WithResource("update", strconv.FormatInt(u.ID, 10)).
		WithDescription(u.Title))

	if isJSONRequest(r) {
		writeJSON(w, http.StatusCreated, u)
		return
	}
	http.Redirect(w, r, "/dashboard#update-"+strconv.FormatInt(u.ID, 10), http.StatusSeeOther)
}

// handleDeleteUpdate removes an update. The form route needs confirm=yes;
// without it nothing changes.
func handleDeleteUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := parseUpdateID(r)
	if err != nil {
		http.Error(w, "update not found", http.StatusNotFound)
		return
	}

	if !isJSONRequest(r) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form submission", http.StatusBadRequest)
			return
		}
		if r.FormValue("confirm") != "yes" {
			http.Redirect(w, r, "/dashboard#update-"+strconv.FormatInt(id, 10), http.StatusSeeOther)
			return
		}
	}

	deleted, err := orchestrators.ExecuteDeleteUpdate(r.Context(), orchestrators.DeleteUpdateInput{
		UpdateID: id,
	}, orchestrators.DeleteUpdateDeps{
		StateStore: app.StateStore,
	})
	if err != nil {
		internalError(w, err)
		return
	}
	if deleted {
		recordAudit(r, audit.NewEvent(audit.ActorAdmin, audit.ActionDeleteUpdate, timeNow()).
			WithResource("update", strconv.FormatInt(id, 10)))
	}

	if isJSONRequest(r) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, "/dashboard#updates", http.StatusSeeOther)
}

// handleExport downloads the state as a spreadsheet.
func handleExport(w http.ResponseWriter, r *http.Request) {
	st, err := app.StateStore.Load(r.Context())
	if err != nil {
		internalError(w, err)
		return
	}
	var buf bytes.Buffer
	if err := export.WriteXLSX(&buf, st); err != nil {
		internalError(w, err)
		return
	}
	recordAudit(r, audit.NewEvent(audit.ActorAdmin, audit.ActionExport, timeNow()))
	name := fmt.Sprintf("statusboard-%s.xlsx", timeNow().UTC().Format("20060102"))
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	buf.WriteTo(w)
}

// handlePerf returns a timing snapshot of recent requests and store operations.
func handlePerf(w http.ResponseWriter, r *http.Request) {
	if app.Collector == nil {
		http.Error(w, "timing is disabled", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, app.Collector.Report(timeNow().Add(-perfWindow), 10))
}

// auditLimit caps how many audit events one request returns.
const auditLimit = 200

// handleAudit lists recent dashboard activity, newest first.
func handleAudit(w http.ResponseWriter, r *http.Request) {
	if app.Audit == nil {
		http.Error(w, "audit log is disabled", http.StatusNotFound)
		return
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = min(n, auditLimit)
	}
	var filter auditStore.Filter
	if v := r.URL.Query().Get("action"); v != "" {
		action := audit.Action(v)
		filter.Action = &action
	}
	events, err := app.Audit.List(r.Context(), filter, limit)
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

// outboxView is the delivery queue as seen by an admin.
type outboxView struct {
	Pending []outbox.Entry `json:"pending"`
	Failed  []outbox.Entry `json:"failed"`
}

// handleOutbox lists announcement deliveries still queued or given up on.
func handleOutbox(w http.ResponseWriter, r *http.Request) {
	if app.Outbox == nil {
		http.Error(w, "announcements are disabled", http.StatusNotFound)
		return
	}
	pending, err := app.Outbox.ListPending(r.Context(), auditLimit)
	if err != nil {
		internalError(w, err)
		return
	}
	failed, err := app.Outbox.ListFailed(r.Context(), auditLimit)
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, outboxView{Pending: pending, Failed: failed})
}

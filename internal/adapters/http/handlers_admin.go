package web

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"therapro/internal/adapters/metrics"
	"therapro/internal/adapters/storage"
	"therapro/internal/application/listutil"
	"therapro/internal/application/orchestrators"
	"therapro/internal/application/projections"
	"therapro/internal/domain/child"
	"therapro/internal/domain/therapist"
)

// therapistForm echoes a rejected add-therapist form back to the page.
type therapistForm struct {
	Name           string
	Email          string
	Specialization string
}

// childForm echoes a rejected add-child form back to the page.
type childForm struct {
	Name       string
	Age        string
	Diagnosis  string
	Notes      string
	Progress   string
	AssignedTo string
}

type adminDashboardPage struct {
	Overview      projections.AssignmentOverview
	Therapists    projections.TherapistListResult
	Children      projections.ChildListResult
	TherapistQ    string
	ChildQ        string
	Detail        *projections.TherapistDetail
	Options       []therapist.Therapist
	AllChildren   []child.Child
	TherapistForm therapistForm
	ChildForm     childForm
}

type childToggle struct {
	Child     child.Child
	Assigned  bool
	OtherName string // therapist currently holding the child, if not this one
}

type assignPanel struct {
	Therapist therapist.Therapist
	Children  []childToggle
}

type therapistsPage struct {
	List           projections.TherapistListResult
	Search         string
	PerPageOptions []int
	Assign         *assignPanel
	Form           therapistForm
}

type childrenPage struct {
	List           projections.ChildListResult
	Search         string
	PerPageOptions []int
	Detail         *projections.ChildCard
	Options        []therapist.Therapist
	Form           childForm
}

// isValidationError reports input errors that re-render the form instead of failing.
func isValidationError(err error) bool {
	for _, target := range []error{
		therapist.ErrEmptyName,
		therapist.ErrEmptyEmail,
		child.ErrEmptyName,
		child.ErrInvalidAge,
		orchestrators.ErrTherapistNotFound,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func isNotFound(err error) bool {
	return errors.Is(err, storage.ErrNotFound) ||
		errors.Is(err, orchestrators.ErrTherapistNotFound) ||
		errors.Is(err, orchestrators.ErrChildNotFound)
}

// --- Dashboard ---

func (s *Server) handleAdminDashboard(w http.ResponseWriter, r *http.Request) {
	s.showDashboard(w, r, http.StatusOK, "", therapistForm{}, childForm{})
}

func (s *Server) showDashboard(w http.ResponseWriter, r *http.Request, status int, msg string, tf therapistForm, cf childForm) {
	ctx := r.Context()
	q := r.URL.Query()
	deps := s.roster()

	overview, err := projections.QueryAssignmentOverview(ctx, deps)
	if err != nil {
		internalError(w, err)
		return
	}
	page := adminDashboardPage{
		Overview:      overview,
		TherapistQ:    strings.TrimSpace(q.Get("q")),
		ChildQ:        strings.TrimSpace(q.Get("cq")),
		TherapistForm: tf,
		ChildForm:     cf,
	}
	tParams := listutil.ListParams{Page: 1, PerPage: listutil.DefaultPerPage, Search: page.TherapistQ}
	if page.Therapists, err = projections.QueryTherapistList(ctx, projections.TherapistListQuery{Params: tParams}, deps); err != nil {
		internalError(w, err)
		return
	}
	cParams := listutil.ListParams{Page: 1, PerPage: listutil.DefaultPerPage, Search: page.ChildQ}
	if page.Children, err = projections.QueryChildList(ctx, projections.ChildListQuery{Params: cParams}, deps); err != nil {
		internalError(w, err)
		return
	}
	if page.Options, err = projections.QueryTherapistOptions(ctx, deps); err != nil {
		internalError(w, err)
		return
	}
	if page.AllChildren, err = projections.QueryAllChildren(ctx, deps); err != nil {
		internalError(w, err)
		return
	}
	if id := q.Get("view"); id != "" {
		detail, err := projections.QueryTherapistDetail(ctx, id, deps)
		switch {
		case err == nil:
			page.Detail = &detail
		case !isNotFound(err):
			internalError(w, err)
			return
		}
	}

	if !isHTMLRequest(r) {
		if msg != "" {
			writeJSON(w, status, map[string]string{"error": msg})
			return
		}
		writeJSON(w, status, map[string]any{
			"overview":   overview,
			"therapists": page.Therapists.Therapists,
			"children":   page.Children.Children,
		})
		return
	}
	s.renderError(w, r, status, "admin_dashboard.html", "Admin dashboard", msg, page)
}

// handleOverview serves the children-per-therapist aggregation.
func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	overview, err := projections.QueryAssignmentOverview(r.Context(), s.roster())
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, overview)
}

// --- Therapists ---

func (s *Server) handleTherapists(w http.ResponseWriter, r *http.Request) {
	s.showTherapists(w, r, http.StatusOK, "", therapistForm{})
}

func (s *Server) showTherapists(w http.ResponseWriter, r *http.Request, status int, msg string, form therapistForm) {
	ctx := r.Context()
	deps := s.roster()
	params := listutil.ParseListParams(r.URL.Query())

	list, err := projections.QueryTherapistList(ctx, projections.TherapistListQuery{Params: params}, deps)
	if err != nil {
		internalError(w, err)
		return
	}
	if !isHTMLRequest(r) {
		if msg != "" {
			writeJSON(w, status, map[string]string{"error": msg})
			return
		}
		writeJSON(w, status, list)
		return
	}

	page := therapistsPage{List: list, Search: params.Search, PerPageOptions: listutil.PerPageOptions, Form: form}
	if id := r.URL.Query().Get("assign"); id != "" {
		panel, err := s.assignPanel(r, id)
		switch {
		case err == nil:
			page.Assign = panel
		case !isNotFound(err):
			internalError(w, err)
			return
		}
	}
	s.renderError(w, r, status, "admin_therapists.html", "Therapists", msg, page)
}

func (s *Server) assignPanel(r *http.Request, therapistID string) (*assignPanel, error) {
	ctx := r.Context()
	deps := s.roster()
	detail, err := projections.QueryTherapistDetail(ctx, therapistID, deps)
	if err != nil {
		return nil, err
	}
	children, err := projections.QueryChildList(ctx, projections.ChildListQuery{
		Params: listutil.ListParams{Page: 1, PerPage: 1 << 20},
	}, deps)
	if err != nil {
		return nil, err
	}
	panel := &assignPanel{Therapist: detail.Therapist}
	for _, c := range children.Children {
		t := childToggle{Child: c.Child, Assigned: c.IsAssignedTo(therapistID)}
		if c.IsAssigned() && !t.Assigned {
			t.OtherName = c.TherapistName
		}
		panel.Children = append(panel.Children, t)
	}
	return panel, nil
}

// handleCreateTherapist handles POST /admin/therapists
func (s *Server) handleCreateTherapist(w http.ResponseWriter, r *http.Request) {
	var input orchestrators.CreateTherapistInput
	if isJSONBody(r) {
		var body struct {
			Name           string `json:"name"`
			Email          string `json:"email"`
			Specialization string `json:"specialization"`
		}
		if err := strictDecode(r, &body); err != nil {
			http.Error(w, "Invalid request", http.StatusBadRequest)
			return
		}
		input = orchestrators.CreateTherapistInput(body)
	} else {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form submission", http.StatusBadRequest)
			return
		}
		input = orchestrators.CreateTherapistInput{
			Name:           r.FormValue("name"),
			Email:          r.FormValue("email"),
			Specialization: r.FormValue("specialization"),
		}
	}

	t, err := orchestrators.ExecuteCreateTherapist(r.Context(), input, orchestrators.CreateTherapistDeps{TherapistStore: s.stores.TherapistStore})
	if isValidationError(err) {
		if !isHTMLRequest(r) {
			badRequest(w, err)
			return
		}
		form := therapistForm(input)
		if strings.HasPrefix(returnTo(r, ""), "/admin/dashboard") {
			s.showDashboard(w, r, http.StatusBadRequest, err.Error(), form, childForm{})
			return
		}
		s.showTherapists(w, r, http.StatusBadRequest, err.Error(), form)
		return
	}
	if err != nil {
		internalError(w, err)
		return
	}
	s.opts.Metrics.RosterChange(metrics.EntityTherapist, metrics.OpCreate, 1)

	if !isHTMLRequest(r) {
		writeJSON(w, http.StatusCreated, t)
		return
	}
	http.Redirect(w, r, returnTo(r, "/admin/therapists"), http.StatusSeeOther)
}

// handleDeleteTherapist handles POST /admin/therapists/{id}/delete
func (s *Server) handleDeleteTherapist(w http.ResponseWriter, r *http.Request) {
	err := orchestrators.ExecuteRemoveTherapist(r.Context(), chi.URLParam(r, "id"), orchestrators.RemoveTherapistDeps{
		Roster: s.stores.RosterStore,
	})
	if isNotFound(err) {
		s.notFound(w, r)
		return
	}
	if err != nil {
		internalError(w, err)
		return
	}
	s.opts.Metrics.RosterChange(metrics.EntityTherapist, metrics.OpDelete, 1)
	s.done(w, r, "/admin/therapists")
}

// handleAssignChildren handles POST /admin/therapists/{id}/assign
func (s *Server) handleAssignChildren(w http.ResponseWriter, r *http.Request) {
	s.assignChildren(w, r, chi.URLParam(r, "id"))
}

// handleDashboardAssign handles POST /admin/assign, the dashboard form that
// names the therapist as a field instead of in the path.
func (s *Server) handleDashboardAssign(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}
	therapistID := strings.TrimSpace(r.FormValue("therapist"))
	if therapistID == "" {
		s.showDashboard(w, r, http.StatusBadRequest, "Please choose a therapist.", therapistForm{}, childForm{})
		return
	}
	s.assignChildren(w, r, therapistID)
}

func (s *Server) assignChildren(w http.ResponseWriter, r *http.Request, therapistID string) {
	input := orchestrators.AssignChildrenInput{TherapistID: therapistID}
	if isJSONBody(r) {
		var body struct {
			ChildIDs []string `json:"child_ids"`
		}
		if err := strictDecode(r, &body); err != nil {
			http.Error(w, "Invalid request", http.StatusBadRequest)
			return
		}
		input.ChildIDs = body.ChildIDs
	} else {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form submission", http.StatusBadRequest)
			return
		}
		input.ChildIDs = r.Form["child_id"]
	}

	err := orchestrators.ExecuteAssignChildren(r.Context(), input, s.assignDeps())
	if isNotFound(err) {
		s.notFound(w, r)
		return
	}
	if err != nil {
		internalError(w, err)
		return
	}
	s.opts.Metrics.RosterChange(metrics.EntityAssignment, metrics.OpAssign, distinct(input.ChildIDs))
	s.done(w, r, "/admin/dashboard")
}

// handleToggleAssignment handles POST /admin/therapists/{id}/toggle/{childID}
func (s *Server) handleToggleAssignment(w http.ResponseWriter, r *http.Request) {
	therapistID := chi.URLParam(r, "id")
	assigned, err := orchestrators.ExecuteToggleAssignment(r.Context(), orchestrators.ToggleAssignmentInput{
		TherapistID: therapistID,
		ChildID:     chi.URLParam(r, "childID"),
	}, s.assignDeps())
	if isNotFound(err) {
		s.notFound(w, r)
		return
	}
	if err != nil {
		internalError(w, err)
		return
	}
	op := metrics.OpUnassign
	if assigned {
		op = metrics.OpAssign
	}
	s.opts.Metrics.RosterChange(metrics.EntityAssignment, op, 1)

	if !isHTMLRequest(r) {
		writeJSON(w, http.StatusOK, map[string]bool{"assigned": assigned})
		return
	}
	http.Redirect(w, r, returnTo(r, "/admin/therapists?assign="+therapistID), http.StatusSeeOther)
}

// --- Children ---

func (s *Server) handleChildren(w http.ResponseWriter, r *http.Request) {
	s.showChildren(w, r, http.StatusOK, "", childForm{})
}

func (s *Server) showChildren(w http.ResponseWriter, r *http.Request, status int, msg string, form childForm) {
	ctx := r.Context()
	deps := s.roster()
	params := listutil.ParseListParams(r.URL.Query())

	list, err := projections.QueryChildList(ctx, projections.ChildListQuery{Params: params}, deps)
	if err != nil {
		internalError(w, err)
		return
	}
	if !isHTMLRequest(r) {
		if msg != "" {
			writeJSON(w, status, map[string]string{"error": msg})
			return
		}
		writeJSON(w, status, list)
		return
	}

	page := childrenPage{List: list, Search: params.Search, PerPageOptions: listutil.PerPageOptions, Form: form}
	if page.Options, err = projections.QueryTherapistOptions(ctx, deps); err != nil {
		internalError(w, err)
		return
	}
	if id := r.URL.Query().Get("view"); id != "" {
		detail, err := projections.QueryChildDetail(ctx, id, deps)
		switch {
		case err == nil:
			page.Detail = &detail
		case !isNotFound(err):
			internalError(w, err)
			return
		}
	}
	s.renderError(w, r, status, "admin_children.html", "Children", msg, page)
}

// handleCreateChild handles POST /admin/children
func (s *Server) handleCreateChild(w http.ResponseWriter, r *http.Request) {
	var input orchestrators.CreateChildInput
	if isJSONBody(r) {
		var body struct {
			Name       string `json:"name"`
			Age        *int   `json:"age"`
			Diagnosis  string `json:"diagnosis"`
			Notes      string `json:"notes"`
			Progress   string `json:"progress"`
			AssignedTo string `json:"assignedTo"`
		}
		if err := strictDecode(r, &body); err != nil {
			http.Error(w, "Invalid request", http.StatusBadRequest)
			return
		}
		input = orchestrators.CreateChildInput{Name: body.Name, Diagnosis: body.Diagnosis, Notes: body.Notes, Progress: body.Progress, AssignedTo: body.AssignedTo}
		if body.Age != nil {
			input.Age = strconv.Itoa(*body.Age)
		}
	} else {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form submission", http.StatusBadRequest)
			return
		}
		input = orchestrators.CreateChildInput{
			Name:       r.FormValue("name"),
			Age:        r.FormValue("age"),
			Diagnosis:  r.FormValue("diagnosis"),
			Notes:      r.FormValue("notes"),
			Progress:   r.FormValue("progress"),
			AssignedTo: r.FormValue("assigned_to"),
		}
	}

	c, err := orchestrators.ExecuteCreateChild(r.Context(), input, orchestrators.CreateChildDeps{
		ChildStore:     s.stores.ChildStore,
		TherapistStore: s.stores.TherapistStore,
	})
	if isValidationError(err) {
		if !isHTMLRequest(r) {
			badRequest(w, err)
			return
		}
		form := childForm(input)
		if strings.HasPrefix(returnTo(r, ""), "/admin/dashboard") {
			s.showDashboard(w, r, http.StatusBadRequest, err.Error(), therapistForm{}, form)
			return
		}
		s.showChildren(w, r, http.StatusBadRequest, err.Error(), form)
		return
	}
	if err != nil {
		internalError(w, err)
		return
	}
	s.opts.Metrics.RosterChange(metrics.EntityChild, metrics.OpCreate, 1)
	if c.IsAssigned() {
		s.opts.Metrics.RosterChange(metrics.EntityAssignment, metrics.OpAssign, 1)
	}

	if !isHTMLRequest(r) {
		writeJSON(w, http.StatusCreated, c)
		return
	}
	http.Redirect(w, r, returnTo(r, "/admin/children"), http.StatusSeeOther)
}

// handleDeleteChild handles POST /admin/children/{id}/delete
func (s *Server) handleDeleteChild(w http.ResponseWriter, r *http.Request) {
	err := orchestrators.ExecuteRemoveChild(r.Context(), chi.URLParam(r, "id"), orchestrators.RemoveChildDeps{ChildStore: s.stores.ChildStore})
	if isNotFound(err) {
		s.notFound(w, r)
		return
	}
	if err != nil {
		internalError(w, err)
		return
	}
	s.opts.Metrics.RosterChange(metrics.EntityChild, metrics.OpDelete, 1)
	s.done(w, r, "/admin/children")
}

// handleUnassignChild handles POST /admin/children/{id}/unassign
func (s *Server) handleUnassignChild(w http.ResponseWriter, r *http.Request) {
	err := orchestrators.ExecuteUnassignChild(r.Context(), chi.URLParam(r, "id"), s.assignDeps())
	if isNotFound(err) {
		s.notFound(w, r)
		return
	}
	if err != nil {
		internalError(w, err)
		return
	}
	s.opts.Metrics.RosterChange(metrics.EntityAssignment, metrics.OpUnassign, 1)
	s.done(w, r, "/admin/children")
}

// handlePerf returns the timing snapshot for the last hour.
func (s *Server) handlePerf(w http.ResponseWriter, r *http.Request) {
	if s.opts.Collector == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}
	writeJSON(w, http.StatusOK, s.opts.Collector.Snapshot(time.Now().Add(-time.Hour), 10))
}

// done finishes a successful form post: 204 for JSON, redirect for the browser.
func (s *Server) done(w http.ResponseWriter, r *http.Request, fallback string) {
	if !isHTMLRequest(r) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, returnTo(r, fallback), http.StatusSeeOther)
}

func distinct(ids []string) int {
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			seen[id] = true
		}
	}
	return len(seen)
}

package web

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"therapro/internal/adapters/http/middleware"
	"therapro/internal/application/projections"
	"therapro/internal/domain/activity"
	"therapro/internal/domain/child"
)

type assignedChildrenPage struct {
	Children []child.Child
	Detail   *child.Child
}

// activitiesPage covers the browsing and selecting steps of a launch.
type activitiesPage struct {
	State      activity.State
	Activities []activity.Activity
	Selected   activity.Activity
	Students   []child.Child
	StudentID  string
	CanStart   bool
}

type runPage struct {
	Activity activity.Activity
	Student  child.Child
	Ticket   string
}

func (s *Server) handleTherapistDashboard(w http.ResponseWriter, r *http.Request) {
	sess, _ := middleware.GetSessionFromContext(r.Context())
	dash, err := projections.QueryTherapistDashboard(r.Context(), sess.TherapistID, projections.TherapistDashboardDeps{
		Roster:  s.roster(),
		Catalog: s.opts.Catalog,
	})
	if err != nil {
		internalError(w, err)
		return
	}
	if !isHTMLRequest(r) {
		writeJSON(w, http.StatusOK, dash)
		return
	}
	s.render(w, r, http.StatusOK, "therapist_dashboard.html", "Dashboard", dash)
}

// handleAssignedChildren lists the session therapist's children; ?view= opens
// one of them. Other therapists' children are reported as not found.
func (s *Server) handleAssignedChildren(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess, _ := middleware.GetSessionFromContext(ctx)

	if id := r.URL.Query().Get("view"); id != "" {
		c, err := projections.QueryAssignedChild(ctx, sess.TherapistID, id, s.roster())
		if errors.Is(err, projections.ErrNotAssigned) {
			s.notFound(w, r)
			return
		}
		if err != nil {
			internalError(w, err)
			return
		}
		if !isHTMLRequest(r) {
			writeJSON(w, http.StatusOK, c)
			return
		}
		children, err := projections.QueryAssignedChildren(ctx, sess.TherapistID, s.roster())
		if err != nil {
			internalError(w, err)
			return
		}
		s.render(w, r, http.StatusOK, "therapist_assigned_children.html", c.Name, assignedChildrenPage{Children: children, Detail: &c})
		return
	}

	children, err := projections.QueryAssignedChildren(ctx, sess.TherapistID, s.roster())
	if err != nil {
		internalError(w, err)
		return
	}
	if !isHTMLRequest(r) {
		if children == nil {
			children = []child.Child{}
		}
		writeJSON(w, http.StatusOK, children)
		return
	}
	s.render(w, r, http.StatusOK, "therapist_assigned_children.html", "Assigned children", assignedChildrenPage{Children: children})
}

// handleActivities shows the catalog, or the student picker with ?play=<id>.
func (s *Server) handleActivities(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var launch activity.Launch
	if id := q.Get("play"); id != "" {
		a, ok := s.opts.Catalog.Find(id)
		if !ok {
			s.notFound(w, r)
			return
		}
		_ = launch.Select(a)
		if student := q.Get("child"); student != "" {
			_ = launch.Choose(student)
		}
	}
	s.showActivities(w, r, http.StatusOK, "", launch)
}

func (s *Server) showActivities(w http.ResponseWriter, r *http.Request, status int, msg string, launch activity.Launch) {
	sess, _ := middleware.GetSessionFromContext(r.Context())
	page := activitiesPage{
		State:      launch.State(),
		Activities: s.opts.Catalog.Activities,
		Selected:   launch.Activity,
		StudentID:  launch.StudentID,
		CanStart:   launch.CanStart(),
	}
	if page.State == activity.StateSelecting {
		students, err := projections.QueryAssignedChildren(r.Context(), sess.TherapistID, s.roster())
		if err != nil {
			internalError(w, err)
			return
		}
		page.Students = students
	}
	if !isHTMLRequest(r) {
		if msg != "" {
			writeJSON(w, status, map[string]string{"error": msg})
			return
		}
		writeJSON(w, status, page)
		return
	}
	s.renderError(w, r, status, "therapist_activities.html", "Activities", msg, page)
}

// handleStartActivity validates the selection and issues a launch ticket.
func (s *Server) handleStartActivity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess, _ := middleware.GetSessionFromContext(ctx)

	var activityID, studentID string
	if isJSONBody(r) {
		var body struct {
			ActivityID string `json:"activity_id"`
			ChildID    string `json:"child_id"`
		}
		if err := strictDecode(r, &body); err != nil {
			http.Error(w, "Invalid request", http.StatusBadRequest)
			return
		}
		activityID, studentID = body.ActivityID, body.ChildID
	} else {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form submission", http.StatusBadRequest)
			return
		}
		activityID, studentID = r.FormValue("activity_id"), r.FormValue("child_id")
	}

	var launch activity.Launch
	a, ok := s.opts.Catalog.Find(activityID)
	if !ok {
		s.showActivities(w, r, http.StatusBadRequest, activity.ErrNoActivity.Error(), launch)
		return
	}
	_ = launch.Select(a)
	if studentID != "" {
		if _, err := projections.QueryAssignedChild(ctx, sess.TherapistID, studentID, s.roster()); err != nil {
			if !errors.Is(err, projections.ErrNotAssigned) {
				internalError(w, err)
				return
			}
			studentID = ""
		}
	}
	_ = launch.Choose(studentID)
	if err := launch.Start(); err != nil {
		s.showActivities(w, r, http.StatusBadRequest, err.Error(), launch)
		return
	}

	raw, err := s.opts.Tickets.Issue(launch.Activity.ID, launch.StudentID, sess.AccountID)
	if err != nil {
		internalError(w, err)
		return
	}
	slog.Info("activity_event", "event", "activity_started", "activity_id", launch.Activity.ID, "child_id", launch.StudentID, "username", sess.Username)

	runURL := "/therapist/activities/run?ticket=" + url.QueryEscape(raw)
	if !isHTMLRequest(r) {
		writeJSON(w, http.StatusCreated, map[string]string{"ticket": raw, "run_url": runURL})
		return
	}
	http.Redirect(w, r, runURL, http.StatusSeeOther)
}

// errLaunchGone covers every reason a ticket no longer names a running launch.
var errLaunchGone = errors.New("launch is no longer valid")

// resumeLaunch rebuilds the running launch named by raw for the session's
// therapist. It returns errLaunchGone for a bad ticket, an unknown activity or
// a child no longer assigned to this therapist.
func (s *Server) resumeLaunch(r *http.Request, sess middleware.Session, raw string) (activity.Launch, child.Child, error) {
	claims, err := s.opts.Tickets.Verify(raw, sess.AccountID)
	if err != nil {
		slog.Info("activity_event", "event", "ticket_rejected", "username", sess.Username, "error", err)
		return activity.Launch{}, child.Child{}, errLaunchGone
	}
	a, ok := s.opts.Catalog.Find(claims.ActivityID)
	if !ok {
		return activity.Launch{}, child.Child{}, errLaunchGone
	}
	student, err := projections.QueryAssignedChild(r.Context(), sess.TherapistID, claims.ChildID, s.roster())
	if errors.Is(err, projections.ErrNotAssigned) {
		return activity.Launch{}, child.Child{}, errLaunchGone
	}
	if err != nil {
		return activity.Launch{}, child.Child{}, err
	}
	launch, err := activity.Resume(a, student.ID)
	if err != nil {
		return activity.Launch{}, child.Child{}, errLaunchGone
	}
	return launch, student, nil
}

// handleRunActivity embeds a running activity. A bad ticket, or a child no
// longer assigned to this therapist, goes back to the catalog.
func (s *Server) handleRunActivity(w http.ResponseWriter, r *http.Request) {
	sess, _ := middleware.GetSessionFromContext(r.Context())
	raw := r.URL.Query().Get("ticket")
	launch, student, err := s.resumeLaunch(r, sess, raw)
	if errors.Is(err, errLaunchGone) {
		http.Redirect(w, r, "/therapist/activities", http.StatusSeeOther)
		return
	}
	if err != nil {
		internalError(w, err)
		return
	}

	if !isHTMLRequest(r) {
		writeJSON(w, http.StatusOK, map[string]any{"state": launch.State(), "activity": launch.Activity, "child": student})
		return
	}
	s.render(w, r, http.StatusOK, "therapist_activity_run.html", launch.Activity.Title, runPage{Activity: launch.Activity, Student: student, Ticket: raw})
}

// handleExitActivity handles POST /therapist/activities/exit. Leaving always
// lands on the catalog; a still-valid ticket is recorded as an exit.
func (s *Server) handleExitActivity(w http.ResponseWriter, r *http.Request) {
	sess, _ := middleware.GetSessionFromContext(r.Context())
	var raw string
	if isJSONBody(r) {
		var body struct {
			Ticket string `json:"ticket"`
		}
		if err := strictDecode(r, &body); err != nil {
			http.Error(w, "Invalid request", http.StatusBadRequest)
			return
		}
		raw = body.Ticket
	} else {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form submission", http.StatusBadRequest)
			return
		}
		raw = r.FormValue("ticket")
	}

	launch, student, err := s.resumeLaunch(r, sess, raw)
	switch {
	case err == nil:
		slog.Info("activity_event", "event", "activity_exited", "activity_id", launch.Activity.ID, "child_id", student.ID, "username", sess.Username)
		launch.Exit()
	case !errors.Is(err, errLaunchGone):
		internalError(w, err)
		return
	}

	if !isHTMLRequest(r) {
		writeJSON(w, http.StatusOK, map[string]any{"state": launch.State()})
		return
	}
	http.Redirect(w, r, "/therapist/activities", http.StatusSeeOther)
}

func (s *Server) handleRewards(w http.ResponseWriter, r *http.Request) {
	if !isHTMLRequest(r) {
		writeJSON(w, http.StatusOK, s.opts.Catalog.Rewards)
		return
	}
	s.render(w, r, http.StatusOK, "therapist_rewards.html", "Rewards", s.opts.Catalog.Rewards)
}

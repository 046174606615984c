package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/sessions"

	"github.com/cikmis/examclient/internal/api"
	"github.com/cikmis/examclient/internal/authoring"
	"github.com/cikmis/examclient/internal/handler/views"
	appI18n "github.com/cikmis/examclient/internal/i18n"
	"github.com/cikmis/examclient/internal/model"
)

const (
	wizardKey     = "wizard"
	uploadedFlash = "uploaded"
)

// adminClient returns an api client that sends the signed-in admin's token.
func (h *Handler) adminClient(ctx context.Context) *api.Client {
	admin := model.AdminFromContext(ctx)
	if admin == nil {
		return h.api
	}
	return h.api.WithToken(admin.Token)
}

func (h *Handler) loadWizard(r *http.Request) (*sessions.Session, authoring.Wizard) {
	sess, err := h.cookies.Get(r, visitorSessionName)
	if err != nil {
		slog.Debug("wizard session reset", "error", err)
	}
	raw, _ := sess.Values[wizardKey].(string)
	return sess, authoring.DecodeWizard(raw, h.now())
}

func (h *Handler) saveWizard(w http.ResponseWriter, r *http.Request, sess *sessions.Session, wiz authoring.Wizard) {
	raw, err := wiz.Encode()
	if err != nil {
		slog.Error("failed to encode wizard", "error", err)
		return
	}
	sess.Values[wizardKey] = raw
	if err := sess.Save(r, w); err != nil {
		slog.Error("failed to save wizard", "error", err)
	}
}

func (h *Handler) clearWizard(w http.ResponseWriter, r *http.Request) {
	sess, err := h.cookies.Get(r, visitorSessionName)
	if err != nil {
		return
	}
	delete(sess.Values, wizardKey)
	if err := sess.Save(r, w); err != nil {
		slog.Error("failed to clear wizard", "error", err)
	}
}

// renderWizard fills the selection lists the current step needs.
func (h *Handler) renderWizard(w http.ResponseWriter, r *http.Request, status int, d views.WizardData) {
	ctx := r.Context()
	if d.Wizard.Step == authoring.StepUnit {
		draft := d.Wizard.Draft
		var err error
		if d.Universities, err = h.api.Universities(ctx); err != nil && !api.IsNotFound(err) {
			slog.Error("failed to list universities", "error", err)
		}
		if draft.University.Existing() {
			if d.Departments, err = h.api.Departments(ctx, draft.University.ID); err != nil && !api.IsNotFound(err) {
				slog.Error("failed to list departments", "error", err)
			}
		}
		if draft.Department.Existing() {
			if d.ClassLevels, err = h.api.ClassLevels(ctx, draft.Department.ID); err != nil && !api.IsNotFound(err) {
				slog.Error("failed to list class levels", "error", err)
			}
		}
	}
	h.render(w, r, status, views.WizardPage(d))
}

func (h *Handler) handleWizardPage(w http.ResponseWriter, r *http.Request) {
	sess, wiz := h.loadWizard(r)
	d := views.WizardData{Wizard: wiz}
	if flashes := sess.Flashes(uploadedFlash); len(flashes) > 0 {
		n, _ := flashes[0].(string)
		d.Flash = appI18n.Td(r.Context(), "UploadSuccess", map[string]any{"Count": n})
		if err := sess.Save(r, w); err != nil {
			slog.Error("failed to save session", "error", err)
		}
	}
	h.renderWizard(w, r, http.StatusOK, d)
}

func unitFromForm(r *http.Request, idField, nameField string) authoring.Unit {
	id, _ := strconv.ParseInt(r.FormValue(idField), 10, 64)
	if id > 0 {
		return authoring.Unit{ID: id}
	}
	return authoring.Unit{Name: strings.TrimSpace(r.FormValue(nameField))}
}

func (h *Handler) handleWizardUnit(w http.ResponseWriter, r *http.Request) {
	sess, wiz := h.loadWizard(r)
	wiz.Step = authoring.StepUnit

	switch r.FormValue("action") {
	case "university":
		wiz.Draft.SetUniversity(unitFromForm(r, "university_id", "university_name"))
	case "department":
		wiz.Draft.SetDepartment(unitFromForm(r, "department_id", "department_name"))
	case "next":
		wiz.Draft.SetClassLevel(unitFromForm(r, "class_id", "class_level"))
		resolved, err := authoring.Resolve(r.Context(), h.adminClient(r.Context()), wiz.Draft)
		if err != nil {
			h.saveWizard(w, r, sess, wiz)
			h.renderWizard(w, r, http.StatusUnprocessableEntity, views.WizardData{
				Wizard: wiz,
				Error:  unitErrorMessage(r.Context(), err),
			})
			return
		}
		slog.Info("academic unit resolved", "class_level_id", resolved.ClassLevelID)
		wiz.UnitDone(resolved)
	default:
		http.Error(w, "unknown action", http.StatusBadRequest)
		return
	}

	h.saveWizard(w, r, sess, wiz)
	http.Redirect(w, r, h.path("/admin"), http.StatusSeeOther)
}

func unitErrorMessage(ctx context.Context, err error) string {
	switch {
	case errors.Is(err, authoring.ErrClassLevelNotNumeric):
		return appI18n.T(ctx, "ClassLevelNumeric")
	case errors.Is(err, authoring.ErrIncomplete):
		return appI18n.T(ctx, "UnitIncomplete")
	}
	return appI18n.Td(ctx, "UnitCreateFailed", map[string]any{"Detail": detail(err)})
}

// detail prefers the service's own message over the wrapped Go error.
func detail(err error) string {
	if d := api.DetailOf(err); d != "" {
		return d
	}
	return err.Error()
}

func (h *Handler) handleWizardInfo(w http.ResponseWriter, r *http.Request) {
	sess, wiz := h.loadWizard(r)
	if wiz.Step != authoring.StepInfo {
		http.Redirect(w, r, h.path("/admin"), http.StatusSeeOther)
		return
	}

	if r.FormValue("action") == "back" {
		wiz.Back()
		h.saveWizard(w, r, sess, wiz)
		http.Redirect(w, r, h.path("/admin"), http.StatusSeeOther)
		return
	}

	year, _ := strconv.Atoi(strings.TrimSpace(r.FormValue("year")))
	info := authoring.ExamInfo{
		CourseName: strings.TrimSpace(r.FormValue("course_name")),
		Year:       year,
		Semester:   strings.TrimSpace(r.FormValue("semester")),
	}
	if err := wiz.InfoDone(info); err != nil {
		h.saveWizard(w, r, sess, wiz)
		h.renderWizard(w, r, http.StatusUnprocessableEntity, views.WizardData{
			Wizard: wiz,
			Error:  appI18n.T(r.Context(), "InfoIncomplete"),
		})
		return
	}
	h.saveWizard(w, r, sess, wiz)
	http.Redirect(w, r, h.path("/admin"), http.StatusSeeOther)
}

func (h *Handler) handleWizardQuestions(w http.ResponseWriter, r *http.Request) {
	sess, wiz := h.loadWizard(r)
	if wiz.Step != authoring.StepQuestions {
		http.Redirect(w, r, h.path("/admin"), http.StatusSeeOther)
		return
	}

	if r.FormValue("action") == "back" {
		wiz.Back()
		h.saveWizard(w, r, sess, wiz)
		http.Redirect(w, r, h.path("/admin"), http.StatusSeeOther)
		return
	}

	text := r.FormValue("questions")
	fail := func(msg string) {
		h.renderWizard(w, r, http.StatusUnprocessableEntity, views.WizardData{Wizard: wiz, Questions: text, Error: msg})
	}

	questions, err := authoring.ParseQuestions(text)
	if err != nil {
		fail(appI18n.Td(r.Context(), "ParseFailed", map[string]any{"Detail": err.Error()}))
		return
	}

	created, n, err := authoring.Submit(r.Context(), h.adminClient(r.Context()), wiz.Resolved.ClassLevelID, wiz.Info, questions)
	if err != nil {
		slog.Error("exam upload failed", "error", err)
		fail(appI18n.Td(r.Context(), "UploadFailed", map[string]any{"Detail": detail(err)}))
		return
	}
	slog.Info("exam uploaded", "exam_id", created.ID, "title", created.Title, "questions", n)

	delete(sess.Values, wizardKey)
	sess.AddFlash(strconv.Itoa(n), uploadedFlash)
	if err := sess.Save(r, w); err != nil {
		slog.Error("failed to save session", "error", err)
	}
	http.Redirect(w, r, h.path("/admin"), http.StatusSeeOther)
}

package views

import (
	"context"
	"net/url"
	"strings"

	"github.com/cikmis/examclient/internal/model"
)

// HomeData is one level of the directory drill-down.
type HomeData struct {
	University *model.University
	Department *model.Department
	ClassLevel *model.ClassLevel

	Universities []model.University
	Departments  []model.Department
	ClassLevels  []model.ClassLevel
	Exams        []model.Exam

	// ErrorID is the message id shown instead of the list when loading failed.
	ErrorID string
}

func (d HomeData) query(levels int) url.Values {
	q := url.Values{}
	if levels >= 1 && d.University != nil {
		q.Set("university", itoa64(d.University.ID))
	}
	if levels >= 2 && d.Department != nil {
		q.Set("department", itoa64(d.Department.ID))
	}
	if levels >= 3 && d.ClassLevel != nil {
		q.Set("class", itoa64(d.ClassLevel.ID))
	}
	return q
}

func (d HomeData) depth() int {
	switch {
	case d.ClassLevel != nil:
		return 3
	case d.Department != nil:
		return 2
	case d.University != nil:
		return 1
	}
	return 0
}

func (d HomeData) titleID() string {
	return [...]string{"Universities", "Departments", "ClassLevels", "Exams"}[d.depth()]
}

// backLink points one level up the drill-down.
func (d HomeData) backLink() string {
	return withQuery("/", d.query(d.depth()-1))
}

// Breadcrumb renders "University / Department / N. Class" for the selection.
func (d HomeData) Breadcrumb(ctx context.Context) string {
	var parts []string
	if d.University != nil {
		parts = append(parts, d.University.Name)
	}
	if d.Department != nil {
		parts = append(parts, d.Department.Name)
	}
	if d.ClassLevel != nil {
		parts = append(parts, td(ctx, "ClassLevelN", map[string]any{"Level": d.ClassLevel.Level}))
	}
	return strings.Join(parts, " / ")
}

type dirItem struct{ link, label string }

func (d HomeData) items(ctx context.Context) []dirItem {
	var items []dirItem
	switch d.depth() {
	case 0:
		for _, u := range d.Universities {
			items = append(items, dirItem{withQuery("/", url.Values{"university": {itoa64(u.ID)}}), u.Name})
		}
	case 1:
		for _, dep := range d.Departments {
			q := d.query(1)
			q.Set("department", itoa64(dep.ID))
			items = append(items, dirItem{withQuery("/", q), dep.Name})
		}
	case 2:
		for _, cl := range d.ClassLevels {
			q := d.query(2)
			q.Set("class", itoa64(cl.ID))
			items = append(items, dirItem{withQuery("/", q), td(ctx, "ClassLevelN", map[string]any{"Level": cl.Level})})
		}
	default:
		for _, e := range d.Exams {
			items = append(items, dirItem{"/exam/" + itoa64(e.ID), e.Title})
		}
	}
	return items
}

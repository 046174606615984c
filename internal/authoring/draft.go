// Package authoring holds the content-entry wizard logic: choosing or creating
// the academic unit, describing the exam and uploading its questions.
package authoring

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/cikmis/examclient/internal/model"
)

// ErrIncomplete is returned when a wizard step is missing required input.
var ErrIncomplete = errors.New("authoring: step is incomplete")

// ErrClassLevelNotNumeric is returned, wrapped together with ErrIncomplete,
// when a new class level does not parse as a number.
var ErrClassLevelNotNumeric = errors.New("class level must be a number")

// Unit is one level of the academic hierarchy as chosen in the wizard: either
// an existing entity (ID set) or a new one to be created from Name.
type Unit struct {
	ID   int64  `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
}

// Empty reports whether nothing was chosen or typed.
func (u Unit) Empty() bool {
	return u.ID == 0 && strings.TrimSpace(u.Name) == ""
}

// Existing reports whether u refers to an entity that already exists.
func (u Unit) Existing() bool { return u.ID != 0 }

// Draft is the academic-unit step of the wizard.
type Draft struct {
	University Unit `json:"university"`
	Department Unit `json:"department"`
	ClassLevel Unit `json:"class_level"`
}

// SetUniversity selects or clears the university. Lower levels are cleared.
func (d *Draft) SetUniversity(u Unit) {
	d.University = u
	d.Department = Unit{}
	d.ClassLevel = Unit{}
}

// SetDepartment selects or clears the department. The class level is cleared.
func (d *Draft) SetDepartment(u Unit) {
	d.Department = u
	d.ClassLevel = Unit{}
}

// SetClassLevel selects or clears the class level. Typed levels keep only digits.
func (d *Draft) SetClassLevel(u Unit) {
	u.Name = digitsOnly(u.Name)
	d.ClassLevel = u
}

// Validate checks that the draft can be resolved to a class level id.
func (d Draft) Validate() error {
	if d.ClassLevel.Empty() {
		return fmt.Errorf("%w: class level is required", ErrIncomplete)
	}
	if d.ClassLevel.Existing() {
		return nil
	}
	if _, err := strconv.Atoi(d.ClassLevel.Name); err != nil {
		return fmt.Errorf("%w: %w", ErrIncomplete, ErrClassLevelNotNumeric)
	}
	if d.Department.Empty() {
		return fmt.Errorf("%w: department is required for a new class level", ErrIncomplete)
	}
	if !d.Department.Existing() && d.University.Empty() {
		return fmt.Errorf("%w: university is required for a new department", ErrIncomplete)
	}
	return nil
}

// Resolved holds the ids of the academic unit after missing entities were created.
type Resolved struct {
	UniversityID int64 `json:"university_id,omitempty"`
	DepartmentID int64 `json:"department_id,omitempty"`
	ClassLevelID int64 `json:"class_level_id"`
}

// Directory creates academic entities on the remote service.
type Directory interface {
	CreateUniversity(ctx context.Context, name string) (*model.University, error)
	CreateDepartment(ctx context.Context, name string, universityID int64) (*model.Department, error)
	CreateClassLevel(ctx context.Context, level int, departmentID int64) (*model.ClassLevel, error)
}

// Resolve creates the missing entities of d top-down and returns their ids.
func Resolve(ctx context.Context, dir Directory, d Draft) (Resolved, error) {
	if err := d.Validate(); err != nil {
		return Resolved{}, err
	}

	var r Resolved
	r.UniversityID = d.University.ID
	if !d.University.Existing() && !d.University.Empty() && !d.Department.Existing() && !d.ClassLevel.Existing() {
		u, err := dir.CreateUniversity(ctx, strings.TrimSpace(d.University.Name))
		if err != nil {
			return Resolved{}, fmt.Errorf("create university: %w", err)
		}
		r.UniversityID = u.ID
	}

	r.DepartmentID = d.Department.ID
	if !d.Department.Existing() && !d.Department.Empty() && !d.ClassLevel.Existing() {
		dep, err := dir.CreateDepartment(ctx, strings.TrimSpace(d.Department.Name), r.UniversityID)
		if err != nil {
			return Resolved{}, fmt.Errorf("create department: %w", err)
		}
		r.DepartmentID = dep.ID
	}

	r.ClassLevelID = d.ClassLevel.ID
	if !d.ClassLevel.Existing() {
		level, _ := strconv.Atoi(d.ClassLevel.Name)
		cl, err := dir.CreateClassLevel(ctx, level, r.DepartmentID)
		if err != nil {
			return Resolved{}, fmt.Errorf("create class level: %w", err)
		}
		r.ClassLevelID = cl.ID
	}
	return r, nil
}

func digitsOnly(s string) string {
	var sb strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

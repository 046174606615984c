package authoring

import (
	"context"
	"errors"
	"testing"

	"github.com/cikmis/examclient/internal/model"
)

type fakeDirectory struct {
	calls  []string
	nextID int64
	fail   string
}

func (f *fakeDirectory) id() int64 {
	f.nextID++
	return 100 + f.nextID
}

func (f *fakeDirectory) CreateUniversity(_ context.Context, name string) (*model.University, error) {
	f.calls = append(f.calls, "university:"+name)
	if f.fail == "university" {
		return nil, errors.New("boom")
	}
	return &model.University{ID: f.id(), Name: name}, nil
}

func (f *fakeDirectory) CreateDepartment(_ context.Context, name string, universityID int64) (*model.Department, error) {
	f.calls = append(f.calls, "department:"+name)
	if f.fail == "department" {
		return nil, errors.New("boom")
	}
	return &model.Department{ID: f.id(), Name: name, UniversityID: universityID}, nil
}

func (f *fakeDirectory) CreateClassLevel(_ context.Context, level int, departmentID int64) (*model.ClassLevel, error) {
	f.calls = append(f.calls, "class")
	return &model.ClassLevel{ID: f.id(), Level: level, DepartmentID: departmentID}, nil
}

func TestDraftInvalidation(t *testing.T) {
	var d Draft
	d.SetUniversity(Unit{ID: 1})
	d.SetDepartment(Unit{ID: 2})
	d.SetClassLevel(Unit{ID: 3})

	d.SetDepartment(Unit{Name: "Physics"})
	if !d.ClassLevel.Empty() {
		t.Errorf("changing department should clear class level, got %+v", d.ClassLevel)
	}
	if d.University.ID != 1 {
		t.Errorf("changing department should keep university")
	}

	d.SetClassLevel(Unit{ID: 3})
	d.SetUniversity(Unit{})
	if !d.Department.Empty() || !d.ClassLevel.Empty() {
		t.Errorf("clearing university should clear lower levels, got %+v", d)
	}
}

func TestSetClassLevelKeepsDigits(t *testing.T) {
	var d Draft
	d.SetClassLevel(Unit{Name: "3. Class"})
	if d.ClassLevel.Name != "3" {
		t.Errorf("class level name = %q, want %q", d.ClassLevel.Name, "3")
	}
}

func TestDraftValidate(t *testing.T) {
	tests := []struct {
		name    string
		draft   Draft
		wantErr bool
	}{
		{"empty", Draft{}, true},
		{"existing class level", Draft{ClassLevel: Unit{ID: 3}}, false},
		{"new class level under existing department", Draft{Department: Unit{ID: 2}, ClassLevel: Unit{Name: "2"}}, false},
		{"new class level without department", Draft{University: Unit{ID: 1}, ClassLevel: Unit{Name: "2"}}, true},
		{"new department without university", Draft{Department: Unit{Name: "CS"}, ClassLevel: Unit{Name: "2"}}, true},
		{"all new", Draft{University: Unit{Name: "Ege"}, Department: Unit{Name: "CS"}, ClassLevel: Unit{Name: "1"}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.draft.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrIncomplete) {
				t.Errorf("expected ErrIncomplete, got %v", err)
			}
		})
	}
}

func TestDraftValidateClassLevelNotNumeric(t *testing.T) {
	d := Draft{Department: Unit{ID: 2}}
	d.SetClassLevel(Unit{Name: "99999999999999999999"})
	err := d.Validate()
	if !errors.Is(err, ErrClassLevelNotNumeric) || !errors.Is(err, ErrIncomplete) {
		t.Fatalf("expected ErrClassLevelNotNumeric wrapped with ErrIncomplete, got %v", err)
	}
	if err := (Draft{}).Validate(); errors.Is(err, ErrClassLevelNotNumeric) {
		t.Errorf("missing class level should not report a numeric error: %v", err)
	}
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name      string
		draft     Draft
		wantCalls []string
		wantClass int64
	}{
		{
			name:      "all existing",
			draft:     Draft{University: Unit{ID: 1}, Department: Unit{ID: 2}, ClassLevel: Unit{ID: 3}},
			wantCalls: nil,
			wantClass: 3,
		},
		{
			name:      "new class level",
			draft:     Draft{University: Unit{ID: 1}, Department: Unit{ID: 2}, ClassLevel: Unit{Name: "4"}},
			wantCalls: []string{"class"},
			wantClass: 101,
		},
		{
			name:      "all new",
			draft:     Draft{University: Unit{Name: "Ege"}, Department: Unit{Name: "CS"}, ClassLevel: Unit{Name: "1"}},
			wantCalls: []string{"university:Ege", "department:CS", "class"},
			wantClass: 103,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := &fakeDirectory{}
			r, err := Resolve(context.Background(), dir, tt.draft)
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			if len(dir.calls) != len(tt.wantCalls) {
				t.Fatalf("calls = %v, want %v", dir.calls, tt.wantCalls)
			}
			for i := range dir.calls {
				if dir.calls[i] != tt.wantCalls[i] {
					t.Errorf("call %d = %q, want %q", i, dir.calls[i], tt.wantCalls[i])
				}
			}
			if r.ClassLevelID != tt.wantClass {
				t.Errorf("ClassLevelID = %d, want %d", r.ClassLevelID, tt.wantClass)
			}
		})
	}
}

func TestResolveStopsOnFailure(t *testing.T) {
	dir := &fakeDirectory{fail: "department"}
	d := Draft{University: Unit{Name: "Ege"}, Department: Unit{Name: "CS"}, ClassLevel: Unit{Name: "1"}}
	if _, err := Resolve(context.Background(), dir, d); err == nil {
		t.Fatal("expected error")
	}
	if len(dir.calls) != 2 {
		t.Errorf("class level should not be created after a failure, calls = %v", dir.calls)
	}
}

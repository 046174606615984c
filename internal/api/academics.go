package api

import (
	"context"
	"fmt"
	"net/url"

	"github.com/cikmis/examclient/internal/model"
)

// Universities lists all universities.
func (c *Client) Universities(ctx context.Context) ([]model.University, error) {
	var out []model.University
	if err := c.getJSON(ctx, "/academics/universities", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Departments lists the departments of a university.
func (c *Client) Departments(ctx context.Context, universityID int64) ([]model.Department, error) {
	var out []model.Department
	if err := c.getJSON(ctx, fmt.Sprintf("/academics/universities/%d/departments", universityID), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ClassLevels lists the class levels of a department.
func (c *Client) ClassLevels(ctx context.Context, departmentID int64) ([]model.ClassLevel, error) {
	var out []model.ClassLevel
	if err := c.getJSON(ctx, fmt.Sprintf("/academics/departments/%d/classes", departmentID), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateUniversity creates a university.
func (c *Client) CreateUniversity(ctx context.Context, name string) (*model.University, error) {
	var out model.University
	if err := c.postJSON(ctx, "/academics/universities", map[string]any{"name": name}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateDepartment creates a department under a university.
func (c *Client) CreateDepartment(ctx context.Context, name string, universityID int64) (*model.Department, error) {
	var out model.Department
	body := map[string]any{"name": name, "university_id": universityID}
	if err := c.postJSON(ctx, "/academics/departments", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateClassLevel creates a class level under a department.
func (c *Client) CreateClassLevel(ctx context.Context, level int, departmentID int64) (*model.ClassLevel, error) {
	var out model.ClassLevel
	body := map[string]any{"level": level, "department_id": departmentID}
	if err := c.postJSON(ctx, "/academics/class-levels", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, username, password string) (*model.Token, error) {
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)
	var tok model.Token
	if err := c.postForm(ctx, "/auth/login", form, &tok); err != nil {
		return nil, err
	}
	if tok.AccessToken == "" {
		return nil, fmt.Errorf("login: empty access token")
	}
	return &tok, nil
}

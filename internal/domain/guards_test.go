package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testAdmin   = &User{ID: "a1", Role: UserRoleAdmin, DNI: "10000001"}
	testTeacher = &User{ID: "t1", Role: UserRoleTeacher, DNI: "45678912"}
)

func TestCanCreate(t *testing.T) {
	day := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	base := func() CreateContext {
		return CreateContext{
			TeacherID:    "t1",
			AreaID:       "a",
			GradeID:      "g",
			SectionID:    "s",
			LoanDate:     day,
			ReturnDate:   day.AddDate(0, 0, 3),
			Resources:    []Resource{{ID: "r1", Number: "LAP-01", Status: ResourceStatusAvailable}},
			RequestedIDs: []string{"r1"},
		}
	}

	assert.True(t, CanCreate(base()).Allowed)

	tests := []struct {
		name  string
		edit  func(*CreateContext)
		field string
	}{
		{"Missing section", func(c *CreateContext) { c.SectionID = " " }, "section_id"},
		{"No resources", func(c *CreateContext) { c.RequestedIDs = nil }, "resource_ids"},
		{"Return before loan", func(c *CreateContext) { c.ReturnDate = day.AddDate(0, 0, -1) }, "return_date"},
		{"Duplicate resource", func(c *CreateContext) { c.RequestedIDs = []string{"r1", "r1"} }, "resource_ids"},
		{"Unknown resource", func(c *CreateContext) { c.RequestedIDs = []string{"r1", "r2"} }, "resource_ids"},
		{"Resource on loan", func(c *CreateContext) { c.Resources[0].Status = ResourceStatusOnLoan }, "resource_ids"},
		{"Resource under maintenance", func(c *CreateContext) { c.Resources[0].Status = ResourceStatusMaintenance }, "resource_ids"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.edit(&c)
			g := CanCreate(c)
			assert.False(t, g.Allowed)
			assert.Equal(t, tt.field, g.Field)
			assert.True(t, IsValidation(g.Err()))
		})
	}
}

func TestCanAuthorizeAndReject(t *testing.T) {
	pending := &Loan{Status: LoanStatusActive}

	assert.True(t, CanAuthorize(pending, testAdmin).Allowed)
	assert.Equal(t, "role", CanAuthorize(pending, testTeacher).Field)
	assert.Equal(t, "role", CanAuthorize(pending, nil).Field)
	assert.Equal(t, "status", CanAuthorize(&Loan{Status: LoanStatusActive, IsAuthorized: true}, testAdmin).Field)
	assert.Equal(t, "status", CanAuthorize(&Loan{Status: LoanStatusRejected}, testAdmin).Field)

	assert.True(t, CanReject(pending, testAdmin, "sin stock").Allowed)
	assert.Equal(t, "reason", CanReject(pending, testAdmin, "  ").Field)
	assert.Equal(t, "status", CanReject(&Loan{Status: LoanStatusRejected}, testAdmin, "otra vez").Field)
}

func TestCanReturn(t *testing.T) {
	loan := &Loan{TeacherID: "t1", Status: LoanStatusActive, IsAuthorized: true}
	ctx := func(edit func(*ReturnContext)) ReturnContext {
		c := ReturnContext{Loan: loan, Actor: testAdmin, Borrower: testTeacher, SubmittedDNI: "45678912"}
		if edit != nil {
			edit(&c)
		}
		return c
	}

	assert.True(t, CanReturn(ctx(nil)).Allowed)

	tests := []struct {
		name   string
		edit   func(*ReturnContext)
		field  string
		reason string
	}{
		{"Borrower not allowed", func(c *ReturnContext) { c.Actor = testTeacher }, "role", ""},
		{"Pending", func(c *ReturnContext) { c.Loan = &Loan{TeacherID: "t1", Status: LoanStatusActive} }, "status", ""},
		{"Already returned", func(c *ReturnContext) { c.Loan = &Loan{TeacherID: "t1", Status: LoanStatusReturned, IsAuthorized: true} }, "status", ""},
		{"Short DNI", func(c *ReturnContext) { c.SubmittedDNI = "4567891" }, "dni", "DNI must be 8 characters"},
		{"Wrong DNI", func(c *ReturnContext) { c.SubmittedDNI = "45678913" }, "dni", "incorrect DNI"},
		{"Unknown borrower", func(c *ReturnContext) { c.Borrower = nil }, "dni", "incorrect DNI"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := CanReturn(ctx(tt.edit))
			require.False(t, g.Allowed)
			assert.Equal(t, tt.field, g.Field)
			if tt.reason != "" {
				assert.Equal(t, tt.reason, g.Reason)
			}
		})
	}

	t.Run("Borrower allowed by config", func(t *testing.T) {
		g := CanReturn(ctx(func(c *ReturnContext) {
			c.Actor = testTeacher
			c.AllowBorrowerReturn = true
		}))
		assert.True(t, g.Allowed)
	})
}

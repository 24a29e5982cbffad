package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"school-resources-backend/internal/domain"
	"school-resources-backend/internal/repository"
)

// MockUserRepo
type MockUserRepo struct {
	mock.Mock
}

func (m *MockUserRepo) Create(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

// MockEmailService
type MockEmailService struct {
	mock.Mock
}

func (m *MockEmailService) SendLoanAuthorizedNotification(ctx context.Context, email, name, loanID string, returnDate time.Time) error {
	args := m.Called(ctx, email, name, loanID, returnDate)
	return args.Error(0)
}

func (m *MockEmailService) SendLoanRejectedNotification(ctx context.Context, email, name, loanID, reason string) error {
	args := m.Called(ctx, email, name, loanID, reason)
	return args.Error(0)
}

func (m *MockEmailService) SendOverdueReminder(ctx context.Context, email, name, loanID string, daysOverdue int) error {
	args := m.Called(ctx, email, name, loanID, daysOverdue)
	return args.Error(0)
}

// memResourceRepo keeps resources in memory. failUpdate makes
// UpdateStatusFrom error for an id; steal makes it report no match, as if
// another request had taken the resource first.
type memResourceRepo struct {
	mu         sync.Mutex
	resources  map[string]domain.Resource
	failUpdate map[string]error
	steal      map[string]bool
}

func newMemResourceRepo(resources ...domain.Resource) *memResourceRepo {
	r := &memResourceRepo{
		resources:  map[string]domain.Resource{},
		failUpdate: map[string]error{},
		steal:      map[string]bool{},
	}
	for _, res := range resources {
		r.resources[res.ID] = res
	}
	return r
}

func (r *memResourceRepo) status(id string) domain.ResourceStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.resources[id].Status
}

func (r *memResourceRepo) GetByID(_ context.Context, id string) (*domain.Resource, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.resources[id]
	if !ok {
		return nil, fmt.Errorf("resource %s: %w", id, domain.ErrNotFound)
	}
	return &res, nil
}

func (r *memResourceRepo) GetByIDs(_ context.Context, ids []string) ([]domain.Resource, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.Resource{}
	for _, id := range ids {
		if res, ok := r.resources[id]; ok {
			out = append(out, res)
		}
	}
	return out, nil
}

func (r *memResourceRepo) List(_ context.Context, status domain.ResourceStatus) ([]domain.Resource, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.Resource{}
	for _, res := range r.resources {
		if status == "" || res.Status == status {
			out = append(out, res)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (r *memResourceRepo) UpdateStatusFrom(_ context.Context, id string, next domain.ResourceStatus, from ...domain.ResourceStatus) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failUpdate[id]; err != nil {
		return false, err
	}
	if r.steal[id] {
		return false, nil
	}
	res, ok := r.resources[id]
	if !ok {
		return false, nil
	}
	for _, s := range from {
		if res.Status == s {
			res.Status = next
			r.resources[id] = res
			return true, nil
		}
	}
	return false, nil
}

type memIncidentRepo struct {
	mu         sync.Mutex
	incidents  []domain.MaintenanceIncident
	failDamage map[string]error
}

func newMemIncidentRepo() *memIncidentRepo {
	return &memIncidentRepo{failDamage: map[string]error{}}
}

func (r *memIncidentRepo) MaxIncidentNumber(_ context.Context, resourceID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	last := 0
	for _, i := range r.incidents {
		if i.ResourceID == resourceID && i.IncidentNumber > last {
			last = i.IncidentNumber
		}
	}
	return last, nil
}

func (r *memIncidentRepo) Create(_ context.Context, incident *domain.MaintenanceIncident) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failDamage[incident.DamageType]; err != nil {
		return err
	}
	incident.ID = fmt.Sprintf("inc-%d", len(r.incidents)+1)
	r.incidents = append(r.incidents, *incident)
	return nil
}

func (r *memIncidentRepo) ListByResource(_ context.Context, resourceID string) ([]domain.MaintenanceIncident, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.MaintenanceIncident{}
	for _, i := range r.incidents {
		if i.ResourceID == resourceID {
			out = append(out, i)
		}
	}
	return out, nil
}

type memLoanRepo struct {
	mu        sync.Mutex
	seq       int
	loans     map[string]domain.Loan
	resources *memResourceRepo
}

func newMemLoanRepo(resources *memResourceRepo) *memLoanRepo {
	return &memLoanRepo{loans: map[string]domain.Loan{}, resources: resources}
}

func (r *memLoanRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.loans)
}

func (r *memLoanRepo) get(id string) domain.Loan {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loans[id]
}

func (r *memLoanRepo) put(l domain.Loan) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loans[l.ID] = l
}

func (r *memLoanRepo) Create(_ context.Context, loan *domain.Loan) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	if loan.ID == "" {
		loan.ID = fmt.Sprintf("loan-%d", r.seq)
	}
	stored := *loan
	stored.ResourceIDs = append([]string{}, loan.ResourceIDs...)
	r.loans[loan.ID] = stored
	return nil
}

func (r *memLoanRepo) GetByID(_ context.Context, id string) (*domain.Loan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.loans[id]
	if !ok {
		return nil, fmt.Errorf("loan %s: %w", id, domain.ErrNotFound)
	}
	l.ResourceIDs = append([]string{}, l.ResourceIDs...)
	return &l, nil
}

func (r *memLoanRepo) List(_ context.Context, filter repository.LoanFilter, page, pageSize int32) ([]domain.Loan, int32, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.Loan{}
	for _, l := range r.loans {
		if filter.TeacherID != "" && l.TeacherID != filter.TeacherID {
			continue
		}
		if filter.Status != "" && l.Status != filter.Status {
			continue
		}
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, int32(len(out)), nil
}

func (r *memLoanRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.loans, id)
	return nil
}

func (r *memLoanRepo) update(id string, match func(domain.Loan) bool, apply func(*domain.Loan)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.loans[id]
	if !ok || !match(l) {
		return false
	}
	apply(&l)
	r.loans[id] = l
	return true
}

func (r *memLoanRepo) Authorize(_ context.Context, id string) (bool, error) {
	return r.update(id,
		func(l domain.Loan) bool { return !l.IsAuthorized && l.Status != domain.LoanStatusRejected },
		func(l *domain.Loan) { l.IsAuthorized = true }), nil
}

func (r *memLoanRepo) Reject(_ context.Context, id, reason string) (bool, error) {
	return r.update(id,
		func(l domain.Loan) bool { return !l.IsAuthorized && l.Status != domain.LoanStatusRejected },
		func(l *domain.Loan) {
			l.Status = domain.LoanStatusRejected
			l.RejectionReason = reason
		}), nil
}

func (r *memLoanRepo) MarkReturned(_ context.Context, id string, returnDate time.Time, notes string) (bool, error) {
	return r.update(id,
		func(l domain.Loan) bool { return l.IsAuthorized && l.Status.Outstanding() },
		func(l *domain.Loan) {
			l.Status = domain.LoanStatusReturned
			l.ReturnDate = returnDate
			l.Notes = notes
		}), nil
}

func (r *memLoanRepo) MarkOverdue(_ context.Context, today time.Time) ([]domain.Loan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.Loan{}
	for id, l := range r.loans {
		if l.Status == domain.LoanStatusActive && l.IsAuthorized && !l.ReturnDate.IsZero() && l.ReturnDate.Before(today) {
			l.Status = domain.LoanStatusOverdue
			r.loans[id] = l
			out = append(out, l)
		}
	}
	return out, nil
}

func (r *memLoanRepo) ListByStatus(_ context.Context, status domain.LoanStatus) ([]domain.Loan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.Loan{}
	for _, l := range r.loans {
		if l.Status == status {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memLoanRepo) ListReturnedWithLentResources(ctx context.Context) ([]domain.Loan, error) {
	returned, _ := r.ListByStatus(ctx, domain.LoanStatusReturned)
	out := []domain.Loan{}
	for _, l := range returned {
		held, _ := r.ResourcesHeldElsewhere(ctx, l.ID)
		heldSet := map[string]bool{}
		for _, id := range held {
			heldSet[id] = true
		}
		for _, id := range l.ResourceIDs {
			if !heldSet[id] && r.resources.status(id) == domain.ResourceStatusOnLoan {
				out = append(out, l)
				break
			}
		}
	}
	return out, nil
}

func (r *memLoanRepo) ResourcesHeldElsewhere(_ context.Context, loanID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	self, ok := r.loans[loanID]
	if !ok {
		return []string{}, nil
	}
	out := []string{}
	for id, l := range r.loans {
		if id == loanID || !l.Status.Outstanding() {
			continue
		}
		for _, rid := range self.ResourceIDs {
			if l.HasResource(rid) {
				out = append(out, rid)
			}
		}
	}
	return out, nil
}

package leads

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository stores public booking leads.
type Repository interface {
	Create(ctx context.Context, req *CreateLeadRequest) (*Lead, error)
	GetByID(ctx context.Context, id string) (*Lead, error)
	Update(ctx context.Context, id string, upd Update) error
}

// OrgRepository stores organisation requests.
type OrgRepository interface {
	CreateOrgRequest(ctx context.Context, req *OrgRequest) (*OrgRequest, error)
}

// InMemoryRepository keeps leads and organisation requests in memory.
type InMemoryRepository struct {
	mu    sync.RWMutex
	leads map[string]*Lead
	orgs  map[string]*OrgRequest
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		leads: make(map[string]*Lead),
		orgs:  make(map[string]*OrgRequest),
	}
}

func (r *InMemoryRepository) Create(ctx context.Context, req *CreateLeadRequest) (*Lead, error) {
	lead := req.newLead(uuid.New().String(), time.Now().UTC())
	r.mu.Lock()
	r.leads[lead.ID] = lead
	r.mu.Unlock()
	cp := *lead
	return &cp, nil
}

func (r *InMemoryRepository) GetByID(ctx context.Context, id string) (*Lead, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	lead, ok := r.leads[id]
	if !ok {
		return nil, ErrLeadNotFound
	}
	cp := *lead
	return &cp, nil
}

func (r *InMemoryRepository) Update(ctx context.Context, id string, upd Update) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	lead, ok := r.leads[id]
	if !ok {
		return ErrLeadNotFound
	}
	lead.Status = upd.Status
	lead.Notes = upd.Notes
	if upd.PreferredTimes != nil {
		lead.PreferredTimes = append([]string(nil), upd.PreferredTimes...)
	}
	lead.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *InMemoryRepository) CreateOrgRequest(ctx context.Context, req *OrgRequest) (*OrgRequest, error) {
	out := *req
	out.ID = uuid.New().String()
	out.Status = StatusNew
	out.CreatedAt = time.Now().UTC()
	r.mu.Lock()
	r.orgs[out.ID] = &out
	r.mu.Unlock()
	return &out, nil
}

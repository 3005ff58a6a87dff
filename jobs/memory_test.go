package jobs_test

import (
	"context"
	"sort"
	"sync"

	"github.com/goliatone/go-jobportal"
	"github.com/goliatone/go-jobportal/jobs"
	"github.com/google/uuid"
)

// memory is a single in-process backing for all three stores, with the
// same error contract as the bun stores.
type memory struct {
	mu         sync.Mutex
	principals map[string]auth.Principal
	jobs       map[uuid.UUID]jobs.Job
	apps       []jobs.Application
	existsHits int
}

func newMemory() *memory {
	return &memory{
		principals: map[string]auth.Principal{},
		jobs:       map[uuid.UUID]jobs.Job{},
	}
}

func (m *memory) FindPrincipalByEmail(_ context.Context, email string) (*auth.Principal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.principals[auth.NormalizeEmail(email)]
	if !ok {
		return nil, auth.ErrPrincipalNotFound
	}
	return &p, nil
}

func (m *memory) SavePrincipal(_ context.Context, p *auth.Principal) (*auth.Principal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row := *p
	row.Email = auth.NormalizeEmail(row.Email)
	if _, ok := m.principals[row.Email]; ok {
		return nil, auth.ErrPrincipalExists
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	m.principals[row.Email] = row
	return &row, nil
}

func (m *memory) UpdatePrincipalRole(_ context.Context, email string, role auth.Role) (*auth.Principal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.principals[auth.NormalizeEmail(email)]
	if !ok {
		return nil, auth.ErrPrincipalNotFound
	}
	row.Role = role
	m.principals[row.Email] = row
	return &row, nil
}

func (m *memory) FindResourceByID(_ context.Context, id uuid.UUID) (*jobs.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, jobs.ErrJobNotFound
	}
	return &job, nil
}

func (m *memory) FindResourcesByOwner(_ context.Context, owner string) ([]*jobs.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*jobs.Job{}
	for _, job := range m.sortedJobs() {
		if job.PostedBy == auth.NormalizeEmail(owner) {
			out = append(out, job)
		}
	}
	return out, nil
}

func (m *memory) ListResources(context.Context) ([]*jobs.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sortedJobs(), nil
}

func (m *memory) sortedJobs() []*jobs.Job {
	out := make([]*jobs.Job, 0, len(m.jobs))
	for _, job := range m.jobs {
		job := job
		out = append(out, &job)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(*out[j].CreatedAt) })
	return out
}

func (m *memory) SaveResource(_ context.Context, job *jobs.Job) (*jobs.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[job.ID] = *job
	row := *job
	return &row, nil
}

func (m *memory) UpdateResource(_ context.Context, job *jobs.Job) (*jobs.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[job.ID]; !ok {
		return nil, jobs.ErrJobNotFound
	}
	m.jobs[job.ID] = *job
	row := *job
	return &row, nil
}

func (m *memory) DeleteResource(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[id]; !ok {
		return jobs.ErrJobNotFound
	}
	delete(m.jobs, id)
	kept := m.apps[:0]
	for _, app := range m.apps {
		if app.JobID != id {
			kept = append(kept, app)
		}
	}
	m.apps = kept
	return nil
}

func (m *memory) ExistsActionForPair(_ context.Context, applicantID, jobID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.existsHits++
	return m.hasPair(applicantID, jobID), nil
}

func (m *memory) hasPair(applicantID, jobID uuid.UUID) bool {
	for _, app := range m.apps {
		if app.ApplicantID == applicantID && app.JobID == jobID {
			return true
		}
	}
	return false
}

func (m *memory) SaveAction(_ context.Context, app *jobs.Application) (*jobs.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.hasPair(app.ApplicantID, app.JobID) {
		return nil, auth.ErrDuplicateAction
	}
	m.apps = append(m.apps, *app)
	row := *app
	return &row, nil
}

func (m *memory) FindActionsByActor(_ context.Context, applicantID uuid.UUID) ([]*jobs.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.filterApps(func(a jobs.Application) bool { return a.ApplicantID == applicantID }), nil
}

func (m *memory) FindActionsByResource(_ context.Context, jobID uuid.UUID) ([]*jobs.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.filterApps(func(a jobs.Application) bool { return a.JobID == jobID }), nil
}

func (m *memory) filterApps(keep func(jobs.Application) bool) []*jobs.Application {
	out := []*jobs.Application{}
	for _, app := range m.apps {
		if !keep(app) {
			continue
		}
		row := app
		if job, ok := m.jobs[app.JobID]; ok {
			row.Job = &job
		}
		for _, p := range m.principals {
			if p.ID == app.ApplicantID {
				p := p
				row.Applicant = &p
			}
		}
		out = append(out, &row)
	}
	return out
}

func (m *memory) applicationCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.apps)
}

// racingApplications hides existing rows from the exists check so the
// store constraint is the one that rejects the duplicate.
type racingApplications struct {
	*memory
}

func (r racingApplications) ExistsActionForPair(context.Context, uuid.UUID, uuid.UUID) (bool, error) {
	return false, nil
}

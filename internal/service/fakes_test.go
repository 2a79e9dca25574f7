package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"

	"taskhub/internal/model"
	"taskhub/internal/realtime"
)

// memStore backs the in-memory repositories used by scenario tests. It mimics
// what the GORM repositories return: preloaded associations and gorm errors.
type memStore struct {
	mu       sync.Mutex
	users    map[uuid.UUID]model.User
	projects map[uuid.UUID]model.Project
	tasks    map[uuid.UUID]model.Task
	comments []model.TaskComment
	clock    time.Time
}

func newMemStore() *memStore {
	return &memStore{
		users:    make(map[uuid.UUID]model.User),
		projects: make(map[uuid.UUID]model.Project),
		tasks:    make(map[uuid.UUID]model.Task),
		clock:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// tick advances a fake clock so ordering by timestamp is deterministic.
func (m *memStore) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

func (m *memStore) addUser(name string) uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New()
	m.users[id] = model.User{ID: id, Name: name, Email: strings.ToLower(name) + "@example.com"}
	return id
}

func (m *memStore) userRef(id uuid.UUID) *model.User {
	if u, ok := m.users[id]; ok {
		return &u
	}
	return nil
}

// memUsers implements repository.UserRepository.
type memUsers struct{ *memStore }

func (r memUsers) Create(_ context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == user.Email {
			return gorm.ErrDuplicatedKey
		}
	}
	r.users[user.ID] = *user
	return nil
}

func (r memUsers) Update(_ context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[user.ID] = *user
	return nil
}

func (r memUsers) FindByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &u, nil
}

func (r memUsers) FindByEmail(_ context.Context, email string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			u := u
			return &u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

// memProjects implements repository.ProjectRepository.
type memProjects struct{ *memStore }

func (r memProjects) clone(p model.Project) *model.Project {
	p.Owner = r.userRef(p.OwnerID)
	members := make([]model.ProjectMember, len(p.Members))
	for i, m := range p.Members {
		m.User = r.userRef(m.UserID)
		members[i] = m
	}
	p.Members = members
	p.Tags = append([]string(nil), p.Tags...)
	return &p
}

func (r memProjects) Create(_ context.Context, project *model.Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.tick()
	project.CreatedAt, project.UpdatedAt = now, now
	stored := *project
	stored.Members = append([]model.ProjectMember(nil), project.Members...)
	r.projects[project.ID] = stored
	return nil
}

func (r memProjects) Update(_ context.Context, project *model.Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.projects[project.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	stored := *project
	stored.Owner = nil
	stored.Members = existing.Members
	stored.UpdatedAt = r.tick()
	project.UpdatedAt = stored.UpdatedAt
	r.projects[project.ID] = stored
	return nil
}

func (r memProjects) FindByID(_ context.Context, id uuid.UUID) (*model.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.projects[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return r.clone(p), nil
}

func (r memProjects) ListForUser(_ context.Context, userID uuid.UUID, filter model.ProjectFilter) ([]model.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Project
	for _, p := range r.projects {
		if _, member := p.MemberRole(userID); !member && p.OwnerID != userID {
			continue
		}
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(filter.Search)) {
			continue
		}
		out = append(out, *r.clone(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (r memProjects) AddMember(_ context.Context, member *model.ProjectMember) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.projects[member.ProjectID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if _, exists := p.MemberRole(member.UserID); exists {
		return gorm.ErrDuplicatedKey
	}
	stored := *member
	stored.User = nil
	p.Members = append(append([]model.ProjectMember(nil), p.Members...), stored)
	p.UpdatedAt = r.tick()
	r.projects[p.ID] = p
	return nil
}

func (r memProjects) RemoveMember(_ context.Context, projectID, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.projects[projectID]
	if !ok {
		return nil
	}
	kept := make([]model.ProjectMember, 0, len(p.Members))
	for _, m := range p.Members {
		if m.UserID != userID {
			kept = append(kept, m)
		}
	}
	if len(kept) != len(p.Members) {
		p.UpdatedAt = r.tick()
	}
	p.Members = kept
	r.projects[projectID] = p
	return nil
}

func (r memProjects) DeleteWithTasks(_ context.Context, projectID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, t := range r.tasks {
		if t.ProjectID == projectID {
			delete(r.tasks, id)
			r.dropComments(id)
		}
	}
	delete(r.projects, projectID)
	return nil
}

func (m *memStore) dropComments(taskID uuid.UUID) {
	kept := m.comments[:0]
	for _, c := range m.comments {
		if c.TaskID != taskID {
			kept = append(kept, c)
		}
	}
	m.comments = kept
}

// memTasks implements repository.TaskRepository.
type memTasks struct{ *memStore }

func (r memTasks) clone(t model.Task) *model.Task {
	t.Comments = nil
	for _, c := range r.comments {
		if c.TaskID == t.ID {
			c.User = r.userRef(c.UserID)
			t.Comments = append(t.Comments, c)
		}
	}
	t.Tags = append([]string(nil), t.Tags...)
	return &t
}

func (r memTasks) Create(_ context.Context, task *model.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.tick()
	task.CreatedAt, task.UpdatedAt = now, now
	stored := *task
	stored.Comments = nil
	r.tasks[task.ID] = stored
	return nil
}

func (r memTasks) Update(_ context.Context, task *model.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tasks[task.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	stored := *task
	stored.Comments = nil
	stored.UpdatedAt = r.tick()
	r.tasks[task.ID] = stored
	return nil
}

func (r memTasks) FindByID(_ context.Context, id uuid.UUID) (*model.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return r.clone(t), nil
}

func (r memTasks) List(_ context.Context, filter model.TaskFilter) ([]model.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Task
	for _, t := range r.tasks {
		if filter.ProjectID != nil && t.ProjectID != *filter.ProjectID {
			continue
		}
		if filter.Status != "" && t.Status != filter.Status {
			continue
		}
		if filter.AssignedTo != nil && (t.AssignedTo == nil || *t.AssignedTo != *filter.AssignedTo) {
			continue
		}
		if filter.Priority != "" && t.Priority != filter.Priority {
			continue
		}
		if q := strings.ToLower(filter.Search); q != "" &&
			!strings.Contains(strings.ToLower(t.Title), q) &&
			!strings.Contains(strings.ToLower(t.Description), q) {
			continue
		}
		out = append(out, *r.clone(t))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r memTasks) FindByProject(ctx context.Context, projectID uuid.UUID) ([]model.Task, error) {
	return r.List(ctx, model.TaskFilter{ProjectID: &projectID})
}

func (r memTasks) CountByStatus(_ context.Context, projectID uuid.UUID) (map[model.TaskStatus]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[model.TaskStatus]int)
	for _, t := range r.tasks {
		if t.ProjectID == projectID {
			counts[t.Status]++
		}
	}
	return counts, nil
}

func (r memTasks) AddComment(_ context.Context, comment *model.TaskComment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tasks[comment.TaskID]; !ok {
		return gorm.ErrRecordNotFound
	}
	comment.CreatedAt = r.tick()
	stored := *comment
	stored.User = nil
	r.comments = append(r.comments, stored)
	return nil
}

func (r memTasks) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tasks, id)
	r.dropComments(id)
	return nil
}

type publishedEvent struct {
	Kind    realtime.Kind
	Channel string
	Payload interface{}
}

// recordingPublisher captures events synchronously.
type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *recordingPublisher) Publish(_ context.Context, kind realtime.Kind, channel string, payload interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{Kind: kind, Channel: channel, Payload: payload})
}

func (p *recordingPublisher) kinds() []realtime.Kind {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]realtime.Kind, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Kind)
	}
	return out
}

func (p *recordingPublisher) last() publishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.events) == 0 {
		return publishedEvent{}
	}
	return p.events[len(p.events)-1]
}

// MockUserRepository is a mock implementation of UserRepository.
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) Update(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

// MockTokenStore is a mock implementation of TokenStoreInterface.
type MockTokenStore struct {
	mock.Mock
}

func (m *MockTokenStore) StoreRefreshToken(ctx context.Context, tokenID string, userID uuid.UUID, ttl time.Duration) error {
	args := m.Called(ctx, tokenID, userID, ttl)
	return args.Error(0)
}

func (m *MockTokenStore) GetRefreshToken(ctx context.Context, tokenID string) (uuid.UUID, error) {
	args := m.Called(ctx, tokenID)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *MockTokenStore) DeleteRefreshToken(ctx context.Context, tokenID string) error {
	args := m.Called(ctx, tokenID)
	return args.Error(0)
}

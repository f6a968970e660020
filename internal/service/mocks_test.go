package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/minicrm/backend/internal/model"
	"github.com/minicrm/backend/internal/repository"
	"github.com/minicrm/backend/pkg/auth"
)

// ---------------------------------------------------------------------------
// fakeContactRepository is an in-memory ContactRepository.
// ---------------------------------------------------------------------------

type fakeContactRepository struct {
	mu        sync.Mutex
	contacts  map[string]*model.Contact
	seq       int
	lastQuery model.ContactQuery
	messages  *fakeMessageRepository // cascade target, optional

	createErr error
	updateErr error
	deleteErr error
}

func newFakeContactRepository() *fakeContactRepository {
	return &fakeContactRepository{contacts: map[string]*model.Contact{}}
}

func (r *fakeContactRepository) add(owner, first, last string) *model.Contact {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	c := &model.Contact{ID: fmt.Sprintf("c%d", r.seq), FirstName: first, LastName: last, OwnerID: owner}
	r.contacts[c.ID] = c
	return c
}

func (r *fakeContactRepository) FindByID(ctx context.Context, id string) (*model.Contact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.contacts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *fakeContactRepository) Search(ctx context.Context, q model.ContactQuery) ([]*model.Contact, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastQuery = q
	var all []*model.Contact
	for _, c := range r.contacts {
		if q.OwnerID == "" || c.OwnerID == q.OwnerID {
			cp := *c
			all = append(all, &cp)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	start := min(q.Offset(), len(all))
	end := min(start+q.PageSize, len(all))
	return all[start:end], len(all), nil
}

func (r *fakeContactRepository) Create(ctx context.Context, c *model.Contact) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	c.ID = fmt.Sprintf("c%d", r.seq)
	cp := *c
	r.contacts[c.ID] = &cp
	return nil
}

func (r *fakeContactRepository) Update(ctx context.Context, c *model.Contact) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.contacts[c.ID]
	if !ok {
		return repository.ErrNotFound
	}
	stored.FirstName, stored.LastName = c.FirstName, c.LastName
	stored.Email, stored.Phone, stored.Company = c.Email, c.Phone, c.Company
	return nil
}

func (r *fakeContactRepository) Delete(ctx context.Context, id string) error {
	if r.deleteErr != nil {
		return r.deleteErr
	}
	r.mu.Lock()
	if _, ok := r.contacts[id]; !ok {
		r.mu.Unlock()
		return repository.ErrNotFound
	}
	delete(r.contacts, id)
	r.mu.Unlock()
	if r.messages != nil {
		r.messages.deleteForContact(id)
	}
	return nil
}

// ---------------------------------------------------------------------------
// fakeMessageRepository is an in-memory EmailMessageRepository.
// ---------------------------------------------------------------------------

type fakeMessageRepository struct {
	mu       sync.Mutex
	messages map[string]*model.EmailMessage
	seq      int

	createErr     error
	updateSentErr error
	deleteErr     error
}

func newFakeMessageRepository() *fakeMessageRepository {
	return &fakeMessageRepository{messages: map[string]*model.EmailMessage{}}
}

func (r *fakeMessageRepository) FindByID(ctx context.Context, id string) (*model.EmailMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.messages[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (r *fakeMessageRepository) ListByContact(ctx context.Context, contactID string) ([]*model.EmailMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*model.EmailMessage{}
	for _, m := range r.messages {
		if m.ContactID == contactID {
			cp := *m
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *fakeMessageRepository) Create(ctx context.Context, m *model.EmailMessage) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	m.ID = fmt.Sprintf("m%d", r.seq)
	cp := *m
	r.messages[m.ID] = &cp
	return nil
}

func (r *fakeMessageRepository) UpdateSent(ctx context.Context, id string, sent bool) error {
	if r.updateSentErr != nil {
		return r.updateSentErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.messages[id]
	if !ok {
		return repository.ErrNotFound
	}
	m.Sent = sent
	return nil
}

func (r *fakeMessageRepository) Delete(ctx context.Context, id string) error {
	if r.deleteErr != nil {
		return r.deleteErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.messages[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.messages, id)
	return nil
}

func (r *fakeMessageRepository) deleteForContact(contactID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, m := range r.messages {
		if m.ContactID == contactID {
			delete(r.messages, id)
		}
	}
}

func (r *fakeMessageRepository) count(contactID string) int {
	msgs, _ := r.ListByContact(context.Background(), contactID)
	return len(msgs)
}

// ---------------------------------------------------------------------------
// fakeNotifier
// ---------------------------------------------------------------------------

type fakeNotifier struct {
	err  error
	sent []string
}

func (n *fakeNotifier) Send(ctx context.Context, to, subject, body string) error {
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, to+"|"+subject)
	return nil
}

// ---------------------------------------------------------------------------
// mockUserRepository is a func-field UserRepository.
// ---------------------------------------------------------------------------

type mockUserRepository struct {
	findByIDFunc       func(ctx context.Context, id string) (*model.User, error)
	findByEmailFunc    func(ctx context.Context, email string) (*model.User, error)
	findByGoogleIDFunc func(ctx context.Context, googleID string) (*model.User, error)
	findByGitHubIDFunc func(ctx context.Context, githubID string) (*model.User, error)
	createFunc         func(ctx context.Context, user *model.User) error
	updateProviderFunc func(ctx context.Context, userID, column, value string) error
	listFunc           func(ctx context.Context, limit, offset int) ([]*model.User, error)
	addRoleFunc        func(ctx context.Context, userID string, role auth.Role) error
	removeRoleFunc     func(ctx context.Context, userID string, role auth.Role) error
}

func (m *mockUserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return nil, repository.ErrNotFound
}

func (m *mockUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	if m.findByEmailFunc != nil {
		return m.findByEmailFunc(ctx, email)
	}
	return nil, repository.ErrNotFound
}

func (m *mockUserRepository) FindByGoogleID(ctx context.Context, googleID string) (*model.User, error) {
	if m.findByGoogleIDFunc != nil {
		return m.findByGoogleIDFunc(ctx, googleID)
	}
	return nil, repository.ErrNotFound
}

func (m *mockUserRepository) FindByGitHubID(ctx context.Context, githubID string) (*model.User, error) {
	if m.findByGitHubIDFunc != nil {
		return m.findByGitHubIDFunc(ctx, githubID)
	}
	return nil, repository.ErrNotFound
}

func (m *mockUserRepository) Create(ctx context.Context, user *model.User) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, user)
	}
	user.ID = "new-user"
	return nil
}

func (m *mockUserRepository) UpdateProviderID(ctx context.Context, userID, column, value string) error {
	if m.updateProviderFunc != nil {
		return m.updateProviderFunc(ctx, userID, column, value)
	}
	return nil
}

func (m *mockUserRepository) List(ctx context.Context, limit, offset int) ([]*model.User, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, limit, offset)
	}
	return nil, nil
}

func (m *mockUserRepository) AddRole(ctx context.Context, userID string, role auth.Role) error {
	if m.addRoleFunc != nil {
		return m.addRoleFunc(ctx, userID, role)
	}
	return nil
}

func (m *mockUserRepository) RemoveRole(ctx context.Context, userID string, role auth.Role) error {
	if m.removeRoleFunc != nil {
		return m.removeRoleFunc(ctx, userID, role)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Mock SessionRepository
// ---------------------------------------------------------------------------

type mockSessionRepository struct {
	createFunc         func(ctx context.Context, s *model.Session) error
	findByTokenFunc    func(ctx context.Context, token string) (*model.Session, error)
	deleteByTokenFunc  func(ctx context.Context, token string) error
	deleteByUserIDFunc func(ctx context.Context, userID string) error
}

func (m *mockSessionRepository) Create(ctx context.Context, s *model.Session) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, s)
	}
	return nil
}

func (m *mockSessionRepository) FindByToken(ctx context.Context, token string) (*model.Session, error) {
	if m.findByTokenFunc != nil {
		return m.findByTokenFunc(ctx, token)
	}
	return nil, errors.New("not found")
}

func (m *mockSessionRepository) DeleteByToken(ctx context.Context, token string) error {
	if m.deleteByTokenFunc != nil {
		return m.deleteByTokenFunc(ctx, token)
	}
	return nil
}

func (m *mockSessionRepository) DeleteByUserID(ctx context.Context, userID string) error {
	if m.deleteByUserIDFunc != nil {
		return m.deleteByUserIDFunc(ctx, userID)
	}
	return nil
}

// ---------------------------------------------------------------------------
// principals
// ---------------------------------------------------------------------------

var (
	alice     = auth.Principal{UserID: "alice", Email: "alice@example.com", Roles: []auth.Role{auth.RoleUser}}
	bob       = auth.Principal{UserID: "bob", Email: "bob@example.com", Roles: []auth.Role{auth.RoleUser}}
	admin     = auth.Principal{UserID: "root", Email: "root@example.com", Roles: []auth.Role{auth.RoleAdmin, auth.RoleUser}}
	anonymous = auth.Principal{}
)

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

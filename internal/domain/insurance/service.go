package insurance

import (
	"context"
	"time"

	"github.com/caremgr/caremgr/internal/platform/auth"
	"github.com/caremgr/caremgr/internal/platform/manager"
	"github.com/caremgr/caremgr/internal/platform/store"
)

type Service struct {
	repos *Repositories
	now   func() time.Time

	insurers  *manager.Manager[Insurer, *Insurer]
	requests  *manager.Manager[AuthorizationRequest, *AuthorizationRequest]
	notes     *manager.Manager[AuthorizationNote, *AuthorizationNote]
	followUps *manager.Manager[AuthorizationFollowUp, *AuthorizationFollowUp]

	requestsByInsurer  manager.Parent[AuthorizationRequest]
	notesByRequest     manager.Parent[AuthorizationNote]
	followUpsByRequest manager.Parent[AuthorizationFollowUp]
}

func insurerAccount(i *Insurer) int64              { return i.AccountID }
func requestAccount(r *AuthorizationRequest) int64 { return r.AccountID }

func NewService(repos *Repositories, deps manager.Deps) *Service {
	s := &Service{repos: repos, now: time.Now}
	insurerOwner := manager.OwnerOf(repos.Insurers, insurerAccount)
	requestOwner := manager.OwnerOf(repos.Requests, requestAccount)

	s.insurers = manager.New[Insurer](
		"insurer", repos.Insurers, deps,
		manager.Hooks[Insurer]{
			Owner: func(_ context.Context, i *Insurer) (int64, error) { return i.AccountID, nil },
			OwnedBy: func(_ context.Context, accountID int64) (store.Predicate[Insurer], error) {
				return func(i *Insurer) bool { return i.AccountID == accountID }, nil
			},
			BeforeDelete: func(ctx context.Context, i *Insurer) error {
				return manager.Unreferenced(ctx, repos.Requests,
					func(r *AuthorizationRequest) bool { return r.InsurerID == i.ID }, "insurer", i.ID)
			},
		},
	)

	s.requests = manager.New[AuthorizationRequest](
		"authorization_request", repos.Requests, deps,
		manager.Hooks[AuthorizationRequest]{
			Defaults: func(r *AuthorizationRequest) {
				if r.Status == "" {
					r.Status = StatusPending
				}
				if r.RequestedOn.IsZero() {
					r.RequestedOn = s.now().UTC()
				}
			},
			Owner: func(_ context.Context, r *AuthorizationRequest) (int64, error) { return r.AccountID, nil },
			ParentOwners: func(ctx context.Context, r *AuthorizationRequest) ([]int64, error) {
				owner, err := insurerOwner(ctx, r.InsurerID)
				if err != nil {
					return nil, err
				}
				return []int64{owner}, nil
			},
			OwnedBy: func(_ context.Context, accountID int64) (store.Predicate[AuthorizationRequest], error) {
				return func(r *AuthorizationRequest) bool { return r.AccountID == accountID }, nil
			},
			BeforeDelete: func(ctx context.Context, r *AuthorizationRequest) error {
				if err := manager.Unreferenced(ctx, repos.Notes,
					func(n *AuthorizationNote) bool { return n.AuthorizationRequestID == r.ID }, "authorization request", r.ID); err != nil {
					return err
				}
				return manager.Unreferenced(ctx, repos.FollowUps,
					func(f *AuthorizationFollowUp) bool { return f.AuthorizationRequestID == r.ID }, "authorization request", r.ID)
			},
		},
	)

	s.notes = manager.New[AuthorizationNote](
		"authorization_note", repos.Notes, deps,
		manager.Hooks[AuthorizationNote]{
			Defaults: func(n *AuthorizationNote) {
				if n.WrittenOn.IsZero() {
					n.WrittenOn = s.now().UTC()
				}
			},
			Owner: func(ctx context.Context, n *AuthorizationNote) (int64, error) {
				return requestOwner(ctx, n.AuthorizationRequestID)
			},
			OwnedBy: func(ctx context.Context, accountID int64) (store.Predicate[AuthorizationNote], error) {
				owned, err := manager.IDs[AuthorizationRequest](ctx, repos.Requests,
					func(r *AuthorizationRequest) bool { return r.AccountID == accountID })
				if err != nil {
					return nil, err
				}
				return func(n *AuthorizationNote) bool { return owned[n.AuthorizationRequestID] }, nil
			},
		},
	)

	s.followUps = manager.New[AuthorizationFollowUp](
		"authorization_follow_up", repos.FollowUps, deps,
		manager.Hooks[AuthorizationFollowUp]{
			Owner: func(_ context.Context, f *AuthorizationFollowUp) (int64, error) { return f.AccountID, nil },
			ParentOwners: func(ctx context.Context, f *AuthorizationFollowUp) ([]int64, error) {
				owner, err := requestOwner(ctx, f.AuthorizationRequestID)
				if err != nil {
					return nil, err
				}
				return []int64{owner}, nil
			},
			OwnedBy: func(_ context.Context, accountID int64) (store.Predicate[AuthorizationFollowUp], error) {
				return func(f *AuthorizationFollowUp) bool { return f.AccountID == accountID }, nil
			},
		},
	)

	s.requestsByInsurer = manager.Parent[AuthorizationRequest]{
		Name:  "insurer",
		Owner: insurerOwner,
		Match: func(id int64) store.Predicate[AuthorizationRequest] {
			return func(r *AuthorizationRequest) bool { return r.InsurerID == id }
		},
	}
	s.notesByRequest = manager.Parent[AuthorizationNote]{
		Name:  "authorization_request",
		Owner: requestOwner,
		Match: func(id int64) store.Predicate[AuthorizationNote] {
			return func(n *AuthorizationNote) bool { return n.AuthorizationRequestID == id }
		},
	}
	s.followUpsByRequest = manager.Parent[AuthorizationFollowUp]{
		Name:  "authorization_request",
		Owner: requestOwner,
		Match: func(id int64) store.Predicate[AuthorizationFollowUp] {
			return func(f *AuthorizationFollowUp) bool { return f.AuthorizationRequestID == id }
		},
	}
	return s
}

// HasRecordsFor reports whether accountID owns any insurance record.
func (s *Service) HasRecordsFor(ctx context.Context, accountID int64) (bool, error) {
	if has, err := store.Exists(ctx, s.repos.Insurers, func(i *Insurer) bool { return i.AccountID == accountID }); err != nil || has {
		return has, err
	}
	if has, err := store.Exists(ctx, s.repos.Requests, func(r *AuthorizationRequest) bool { return r.AccountID == accountID }); err != nil || has {
		return has, err
	}
	return store.Exists(ctx, s.repos.FollowUps, func(f *AuthorizationFollowUp) bool { return f.AccountID == accountID })
}

// -- Insurer --

func (s *Service) CreateInsurer(ctx context.Context, id auth.Identity, i *Insurer) (*Insurer, error) {
	return s.insurers.Create(ctx, id, i)
}

func (s *Service) UpdateInsurer(ctx context.Context, id auth.Identity, i *Insurer) error {
	return s.insurers.Update(ctx, id, i)
}

func (s *Service) DeleteInsurer(ctx context.Context, id auth.Identity, insurerID int64) error {
	return s.insurers.Delete(ctx, id, insurerID)
}

func (s *Service) GetInsurer(ctx context.Context, id auth.Identity, insurerID int64) (*Insurer, error) {
	return s.insurers.Get(ctx, id, insurerID)
}

func (s *Service) GetInsurers(ctx context.Context, id auth.Identity) ([]*Insurer, error) {
	return s.insurers.List(ctx, id)
}

// -- AuthorizationRequest --

func (s *Service) CreateAuthorizationRequest(ctx context.Context, id auth.Identity, r *AuthorizationRequest) (*AuthorizationRequest, error) {
	return s.requests.Create(ctx, id, r)
}

func (s *Service) UpdateAuthorizationRequest(ctx context.Context, id auth.Identity, r *AuthorizationRequest) error {
	return s.requests.Update(ctx, id, r)
}

func (s *Service) DeleteAuthorizationRequest(ctx context.Context, id auth.Identity, requestID int64) error {
	return s.requests.Delete(ctx, id, requestID)
}

func (s *Service) GetAuthorizationRequest(ctx context.Context, id auth.Identity, requestID int64) (*AuthorizationRequest, error) {
	return s.requests.Get(ctx, id, requestID)
}

func (s *Service) GetAuthorizationRequests(ctx context.Context, id auth.Identity) ([]*AuthorizationRequest, error) {
	return s.requests.List(ctx, id)
}

func (s *Service) GetAuthorizationRequestsByInsurer(ctx context.Context, id auth.Identity, insurerID int64) ([]*AuthorizationRequest, error) {
	return s.requests.ListByParent(ctx, id, s.requestsByInsurer, insurerID)
}

// -- AuthorizationNote --

func (s *Service) CreateAuthorizationNote(ctx context.Context, id auth.Identity, n *AuthorizationNote) (*AuthorizationNote, error) {
	return s.notes.Create(ctx, id, n)
}

func (s *Service) UpdateAuthorizationNote(ctx context.Context, id auth.Identity, n *AuthorizationNote) error {
	return s.notes.Update(ctx, id, n)
}

func (s *Service) DeleteAuthorizationNote(ctx context.Context, id auth.Identity, noteID int64) error {
	return s.notes.Delete(ctx, id, noteID)
}

func (s *Service) GetAuthorizationNote(ctx context.Context, id auth.Identity, noteID int64) (*AuthorizationNote, error) {
	return s.notes.Get(ctx, id, noteID)
}

func (s *Service) GetAuthorizationNotes(ctx context.Context, id auth.Identity) ([]*AuthorizationNote, error) {
	return s.notes.List(ctx, id)
}

func (s *Service) GetAuthorizationNotesByRequest(ctx context.Context, id auth.Identity, requestID int64) ([]*AuthorizationNote, error) {
	return s.notes.ListByParent(ctx, id, s.notesByRequest, requestID)
}

// -- AuthorizationFollowUp --

func (s *Service) CreateAuthorizationFollowUp(ctx context.Context, id auth.Identity, f *AuthorizationFollowUp) (*AuthorizationFollowUp, error) {
	return s.followUps.Create(ctx, id, f)
}

func (s *Service) UpdateAuthorizationFollowUp(ctx context.Context, id auth.Identity, f *AuthorizationFollowUp) error {
	return s.followUps.Update(ctx, id, f)
}

func (s *Service) DeleteAuthorizationFollowUp(ctx context.Context, id auth.Identity, followUpID int64) error {
	return s.followUps.Delete(ctx, id, followUpID)
}

func (s *Service) GetAuthorizationFollowUp(ctx context.Context, id auth.Identity, followUpID int64) (*AuthorizationFollowUp, error) {
	return s.followUps.Get(ctx, id, followUpID)
}

func (s *Service) GetAuthorizationFollowUps(ctx context.Context, id auth.Identity) ([]*AuthorizationFollowUp, error) {
	return s.followUps.List(ctx, id)
}

func (s *Service) GetAuthorizationFollowUpsByRequest(ctx context.Context, id auth.Identity, requestID int64) ([]*AuthorizationFollowUp, error) {
	return s.followUps.ListByParent(ctx, id, s.followUpsByRequest, requestID)
}

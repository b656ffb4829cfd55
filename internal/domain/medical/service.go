package medical

import (
	"context"

	"github.com/caremgr/caremgr/internal/platform/auth"
	"github.com/caremgr/caremgr/internal/platform/manager"
	"github.com/caremgr/caremgr/internal/platform/store"
)

type Service struct {
	repos *Repositories

	facilities   *manager.Manager[Facility, *Facility]
	providers    *manager.Manager[Provider, *Provider]
	appointments *manager.Manager[MedicalAppointment, *MedicalAppointment]

	providersByFacility    manager.Parent[Provider]
	appointmentsByProvider manager.Parent[MedicalAppointment]
}

func NewService(repos *Repositories, deps manager.Deps) *Service {
	s := &Service{repos: repos}
	facilityOwner := manager.OwnerOf(repos.Facilities, func(f *Facility) int64 { return f.AccountID })

	// providers carry no account of their own
	providerOwner := func(ctx context.Context, providerID int64) (int64, error) {
		p, err := repos.Providers.Get(ctx, providerID)
		if err != nil {
			return 0, err
		}
		return facilityOwner(ctx, p.FacilityID)
	}

	s.facilities = manager.New[Facility](
		"facility", repos.Facilities, deps,
		manager.Hooks[Facility]{
			Owner: func(_ context.Context, f *Facility) (int64, error) { return f.AccountID, nil },
			OwnedBy: func(_ context.Context, accountID int64) (store.Predicate[Facility], error) {
				return func(f *Facility) bool { return f.AccountID == accountID }, nil
			},
			BeforeDelete: func(ctx context.Context, f *Facility) error {
				return manager.Unreferenced(ctx, repos.Providers,
					func(p *Provider) bool { return p.FacilityID == f.ID }, "facility", f.ID)
			},
		},
	)

	s.providers = manager.New[Provider](
		"provider", repos.Providers, deps,
		manager.Hooks[Provider]{
			Owner: func(ctx context.Context, p *Provider) (int64, error) {
				return facilityOwner(ctx, p.FacilityID)
			},
			OwnedBy: func(ctx context.Context, accountID int64) (store.Predicate[Provider], error) {
				owned, err := manager.IDs[Facility](ctx, repos.Facilities,
					func(f *Facility) bool { return f.AccountID == accountID })
				if err != nil {
					return nil, err
				}
				return func(p *Provider) bool { return owned[p.FacilityID] }, nil
			},
			BeforeDelete: func(ctx context.Context, p *Provider) error {
				return manager.Unreferenced(ctx, repos.Appointments,
					func(a *MedicalAppointment) bool { return a.ProviderID == p.ID }, "provider", p.ID)
			},
		},
	)

	s.appointments = manager.New[MedicalAppointment](
		"medical_appointment", repos.Appointments, deps,
		manager.Hooks[MedicalAppointment]{
			Owner: func(_ context.Context, a *MedicalAppointment) (int64, error) { return a.AccountID, nil },
			ParentOwners: func(ctx context.Context, a *MedicalAppointment) ([]int64, error) {
				owner, err := providerOwner(ctx, a.ProviderID)
				if err != nil {
					return nil, err
				}
				return []int64{owner}, nil
			},
			OwnedBy: func(_ context.Context, accountID int64) (store.Predicate[MedicalAppointment], error) {
				return func(a *MedicalAppointment) bool { return a.AccountID == accountID }, nil
			},
		},
	)

	s.providersByFacility = manager.Parent[Provider]{
		Name:  "facility",
		Owner: facilityOwner,
		Match: func(id int64) store.Predicate[Provider] {
			return func(p *Provider) bool { return p.FacilityID == id }
		},
	}
	s.appointmentsByProvider = manager.Parent[MedicalAppointment]{
		Name:  "provider",
		Owner: providerOwner,
		Match: func(id int64) store.Predicate[MedicalAppointment] {
			return func(a *MedicalAppointment) bool { return a.ProviderID == id }
		},
	}
	return s
}

// HasRecordsFor reports whether accountID owns any facility or appointment.
func (s *Service) HasRecordsFor(ctx context.Context, accountID int64) (bool, error) {
	if has, err := store.Exists(ctx, s.repos.Facilities, func(f *Facility) bool { return f.AccountID == accountID }); err != nil || has {
		return has, err
	}
	return store.Exists(ctx, s.repos.Appointments, func(a *MedicalAppointment) bool { return a.AccountID == accountID })
}

func (s *Service) CreateFacility(ctx context.Context, id auth.Identity, f *Facility) (*Facility, error) {
	return s.facilities.Create(ctx, id, f)
}

func (s *Service) UpdateFacility(ctx context.Context, id auth.Identity, f *Facility) error {
	return s.facilities.Update(ctx, id, f)
}

func (s *Service) DeleteFacility(ctx context.Context, id auth.Identity, facilityID int64) error {
	return s.facilities.Delete(ctx, id, facilityID)
}

func (s *Service) GetFacility(ctx context.Context, id auth.Identity, facilityID int64) (*Facility, error) {
	return s.facilities.Get(ctx, id, facilityID)
}

func (s *Service) GetFacilities(ctx context.Context, id auth.Identity) ([]*Facility, error) {
	return s.facilities.List(ctx, id)
}

func (s *Service) CreateProvider(ctx context.Context, id auth.Identity, p *Provider) (*Provider, error) {
	return s.providers.Create(ctx, id, p)
}

func (s *Service) UpdateProvider(ctx context.Context, id auth.Identity, p *Provider) error {
	return s.providers.Update(ctx, id, p)
}

func (s *Service) DeleteProvider(ctx context.Context, id auth.Identity, providerID int64) error {
	return s.providers.Delete(ctx, id, providerID)
}

func (s *Service) GetProvider(ctx context.Context, id auth.Identity, providerID int64) (*Provider, error) {
	return s.providers.Get(ctx, id, providerID)
}

func (s *Service) GetProviders(ctx context.Context, id auth.Identity) ([]*Provider, error) {
	return s.providers.List(ctx, id)
}

func (s *Service) GetProvidersByFacility(ctx context.Context, id auth.Identity, facilityID int64) ([]*Provider, error) {
	return s.providers.ListByParent(ctx, id, s.providersByFacility, facilityID)
}

func (s *Service) CreateMedicalAppointment(ctx context.Context, id auth.Identity, a *MedicalAppointment) (*MedicalAppointment, error) {
	return s.appointments.Create(ctx, id, a)
}

func (s *Service) UpdateMedicalAppointment(ctx context.Context, id auth.Identity, a *MedicalAppointment) error {
	return s.appointments.Update(ctx, id, a)
}

func (s *Service) DeleteMedicalAppointment(ctx context.Context, id auth.Identity, appointmentID int64) error {
	return s.appointments.Delete(ctx, id, appointmentID)
}

func (s *Service) GetMedicalAppointment(ctx context.Context, id auth.Identity, appointmentID int64) (*MedicalAppointment, error) {
	return s.appointments.Get(ctx, id, appointmentID)
}

func (s *Service) GetMedicalAppointments(ctx context.Context, id auth.Identity) ([]*MedicalAppointment, error) {
	return s.appointments.List(ctx, id)
}

func (s *Service) GetMedicalAppointmentsByProvider(ctx context.Context, id auth.Identity, providerID int64) ([]*MedicalAppointment, error) {
	return s.appointments.ListByParent(ctx, id, s.appointmentsByProvider, providerID)
}

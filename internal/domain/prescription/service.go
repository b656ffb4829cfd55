package prescription

import (
	"context"

	"github.com/caremgr/caremgr/internal/platform/auth"
	"github.com/caremgr/caremgr/internal/platform/manager"
	"github.com/caremgr/caremgr/internal/platform/store"
)

type Service struct {
	repos *Repositories

	medications *manager.Manager[Medication, *Medication]
	pickups     *manager.Manager[PrescriptionPickup, *PrescriptionPickup]

	pickupsByMedication manager.Parent[PrescriptionPickup]
}

func NewService(repos *Repositories, deps manager.Deps) *Service {
	s := &Service{repos: repos}
	medicationOwner := manager.OwnerOf(repos.Medications, func(m *Medication) int64 { return m.AccountID })

	s.medications = manager.New[Medication](
		"medication", repos.Medications, deps,
		manager.Hooks[Medication]{
			Owner: func(_ context.Context, m *Medication) (int64, error) { return m.AccountID, nil },
			OwnedBy: func(_ context.Context, accountID int64) (store.Predicate[Medication], error) {
				return func(m *Medication) bool { return m.AccountID == accountID }, nil
			},
			BeforeDelete: func(ctx context.Context, m *Medication) error {
				return manager.Unreferenced(ctx, repos.Pickups,
					func(p *PrescriptionPickup) bool { return p.MedicationID == m.ID }, "medication", m.ID)
			},
		},
	)

	s.pickups = manager.New[PrescriptionPickup](
		"prescription_pickup", repos.Pickups, deps,
		manager.Hooks[PrescriptionPickup]{
			Owner: func(_ context.Context, p *PrescriptionPickup) (int64, error) { return p.AccountID, nil },
			ParentOwners: func(ctx context.Context, p *PrescriptionPickup) ([]int64, error) {
				owner, err := medicationOwner(ctx, p.MedicationID)
				if err != nil {
					return nil, err
				}
				return []int64{owner}, nil
			},
			OwnedBy: func(_ context.Context, accountID int64) (store.Predicate[PrescriptionPickup], error) {
				return func(p *PrescriptionPickup) bool { return p.AccountID == accountID }, nil
			},
		},
	)

	s.pickupsByMedication = manager.Parent[PrescriptionPickup]{
		Name:  "medication",
		Owner: medicationOwner,
		Match: func(id int64) store.Predicate[PrescriptionPickup] {
			return func(p *PrescriptionPickup) bool { return p.MedicationID == id }
		},
	}
	return s
}

// HasRecordsFor reports whether accountID owns any medication or pickup.
func (s *Service) HasRecordsFor(ctx context.Context, accountID int64) (bool, error) {
	if has, err := store.Exists(ctx, s.repos.Medications, func(m *Medication) bool { return m.AccountID == accountID }); err != nil || has {
		return has, err
	}
	return store.Exists(ctx, s.repos.Pickups, func(p *PrescriptionPickup) bool { return p.AccountID == accountID })
}

func (s *Service) CreateMedication(ctx context.Context, id auth.Identity, m *Medication) (*Medication, error) {
	return s.medications.Create(ctx, id, m)
}

func (s *Service) UpdateMedication(ctx context.Context, id auth.Identity, m *Medication) error {
	return s.medications.Update(ctx, id, m)
}

func (s *Service) DeleteMedication(ctx context.Context, id auth.Identity, medicationID int64) error {
	return s.medications.Delete(ctx, id, medicationID)
}

func (s *Service) GetMedication(ctx context.Context, id auth.Identity, medicationID int64) (*Medication, error) {
	return s.medications.Get(ctx, id, medicationID)
}

func (s *Service) GetMedications(ctx context.Context, id auth.Identity) ([]*Medication, error) {
	return s.medications.List(ctx, id)
}

func (s *Service) CreatePrescriptionPickup(ctx context.Context, id auth.Identity, p *PrescriptionPickup) (*PrescriptionPickup, error) {
	return s.pickups.Create(ctx, id, p)
}

func (s *Service) UpdatePrescriptionPickup(ctx context.Context, id auth.Identity, p *PrescriptionPickup) error {
	return s.pickups.Update(ctx, id, p)
}

func (s *Service) DeletePrescriptionPickup(ctx context.Context, id auth.Identity, pickupID int64) error {
	return s.pickups.Delete(ctx, id, pickupID)
}

func (s *Service) GetPrescriptionPickup(ctx context.Context, id auth.Identity, pickupID int64) (*PrescriptionPickup, error) {
	return s.pickups.Get(ctx, id, pickupID)
}

func (s *Service) GetPrescriptionPickups(ctx context.Context, id auth.Identity) ([]*PrescriptionPickup, error) {
	return s.pickups.List(ctx, id)
}

func (s *Service) GetPrescriptionPickupsByMedication(ctx context.Context, id auth.Identity, medicationID int64) ([]*PrescriptionPickup, error) {
	return s.pickups.ListByParent(ctx, id, s.pickupsByMedication, medicationID)
}

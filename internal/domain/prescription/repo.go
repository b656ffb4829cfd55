package prescription

import "github.com/caremgr/caremgr/internal/platform/store"

type medicationTable struct{}

func (medicationTable) Name() string { return "medication" }
func (medicationTable) Columns() []string {
	return []string{"account_id", "name", "dosage", "frequency", "prescriber"}
}
func (medicationTable) Values(m *Medication) []any {
	return []any{m.AccountID, m.Name, m.Dosage, m.Frequency, m.Prescriber}
}
func (medicationTable) Targets(m *Medication) []any {
	return []any{&m.AccountID, &m.Name, &m.Dosage, &m.Frequency, &m.Prescriber}
}

type pickupTable struct{}

func (pickupTable) Name() string { return "prescription_pickup" }
func (pickupTable) Columns() []string {
	return []string{"account_id", "medication_id", "pickup_on", "pharmacy", "quantity"}
}
func (pickupTable) Values(p *PrescriptionPickup) []any {
	return []any{p.AccountID, p.MedicationID, p.PickupOn, p.Pharmacy, p.Quantity}
}
func (pickupTable) Targets(p *PrescriptionPickup) []any {
	return []any{&p.AccountID, &p.MedicationID, &p.PickupOn, &p.Pharmacy, &p.Quantity}
}

type Repositories struct {
	Medications store.Repository[Medication]
	Pickups     store.Repository[PrescriptionPickup]
}

func NewRepositories(b store.Backend) *Repositories {
	return &Repositories{
		Medications: store.NewRepository[Medication](b, medicationTable{}),
		Pickups:     store.NewRepository[PrescriptionPickup](b, pickupTable{}),
	}
}

func Models() []any {
	return []any{&Medication{}, &PrescriptionPickup{}}
}

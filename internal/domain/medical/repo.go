package medical

import "github.com/caremgr/caremgr/internal/platform/store"

type facilityTable struct{}

func (facilityTable) Name() string { return "facility" }
func (facilityTable) Columns() []string {
	return []string{"account_id", "name", "address", "phone_number"}
}
func (facilityTable) Values(f *Facility) []any {
	return []any{f.AccountID, f.Name, f.Address, f.PhoneNumber}
}
func (facilityTable) Targets(f *Facility) []any {
	return []any{&f.AccountID, &f.Name, &f.Address, &f.PhoneNumber}
}

type providerTable struct{}

func (providerTable) Name() string { return "provider" }
func (providerTable) Columns() []string {
	return []string{"facility_id", "name", "specialty", "phone_number"}
}
func (providerTable) Values(p *Provider) []any {
	return []any{p.FacilityID, p.Name, p.Specialty, p.PhoneNumber}
}
func (providerTable) Targets(p *Provider) []any {
	return []any{&p.FacilityID, &p.Name, &p.Specialty, &p.PhoneNumber}
}

type appointmentTable struct{}

func (appointmentTable) Name() string { return "medical_appointment" }
func (appointmentTable) Columns() []string {
	return []string{"account_id", "provider_id", "scheduled_for", "reason", "notes"}
}
func (appointmentTable) Values(a *MedicalAppointment) []any {
	return []any{a.AccountID, a.ProviderID, a.ScheduledFor, a.Reason, a.Notes}
}
func (appointmentTable) Targets(a *MedicalAppointment) []any {
	return []any{&a.AccountID, &a.ProviderID, &a.ScheduledFor, &a.Reason, &a.Notes}
}

type Repositories struct {
	Facilities   store.Repository[Facility]
	Providers    store.Repository[Provider]
	Appointments store.Repository[MedicalAppointment]
}

func NewRepositories(b store.Backend) *Repositories {
	return &Repositories{
		Facilities:   store.NewRepository[Facility](b, facilityTable{}),
		Providers:    store.NewRepository[Provider](b, providerTable{}),
		Appointments: store.NewRepository[MedicalAppointment](b, appointmentTable{}),
	}
}

func Models() []any {
	return []any{&Facility{}, &Provider{}, &MedicalAppointment{}}
}

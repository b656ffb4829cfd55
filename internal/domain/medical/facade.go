package medical

import (
	"context"

	"github.com/caremgr/caremgr/internal/platform/auth"
	"github.com/caremgr/caremgr/internal/platform/web"
)

// NewFacade builds the Medical service contract.
func NewFacade(svc *Service, verifier auth.CredentialVerifier) *web.Facade {
	f := web.NewFacade("Medical", verifier)
	web.CRUD(f, "Facility", "Facilities", svc.facilities)
	web.CRUD(f, "Provider", "Providers", svc.providers)
	web.CRUD(f, "MedicalAppointment", "MedicalAppointments", svc.appointments)

	f.Handle("GetProvidersByFacility", func(ctx context.Context, id auth.Identity, req *web.Request) (any, error) {
		return svc.GetProvidersByFacility(ctx, id, req.ParentID)
	})
	f.Handle("GetMedicalAppointmentsByProvider", func(ctx context.Context, id auth.Identity, req *web.Request) (any, error) {
		return svc.GetMedicalAppointmentsByProvider(ctx, id, req.ParentID)
	})
	return f
}

package prescription

import (
	"context"

	"github.com/caremgr/caremgr/internal/platform/auth"
	"github.com/caremgr/caremgr/internal/platform/web"
)

// NewFacade builds the Prescription service contract.
func NewFacade(svc *Service, verifier auth.CredentialVerifier) *web.Facade {
	f := web.NewFacade("Prescription", verifier)
	web.CRUD(f, "Medication", "Medications", svc.medications)
	web.CRUD(f, "PrescriptionPickup", "PrescriptionPickups", svc.pickups)
	f.Handle("GetPrescriptionPickupsByMedication", func(ctx context.Context, id auth.Identity, req *web.Request) (any, error) {
		return svc.GetPrescriptionPickupsByMedication(ctx, id, req.ParentID)
	})
	return f
}

package prescription

import (
	"github.com/labstack/echo/v4"

	"github.com/caremgr/caremgr/internal/platform/manager"
	"github.com/caremgr/caremgr/internal/platform/web"
)

type Handler struct {
	medications *web.Resource[Medication, *Medication]
	pickups     *web.Resource[PrescriptionPickup, *PrescriptionPickup]
}

func NewHandler(svc *Service) *Handler {
	return &Handler{
		medications: &web.Resource[Medication, *Medication]{Manager: svc.medications},
		pickups: &web.Resource[PrescriptionPickup, *PrescriptionPickup]{
			Manager: svc.pickups,
			Parents: map[string]manager.Parent[PrescriptionPickup]{"medication_id": svc.pickupsByMedication},
		},
	}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	h.medications.Register(api, "/medications")
	h.pickups.Register(api, "/prescription-pickups")
}

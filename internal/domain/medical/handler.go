package medical

import (
	"github.com/labstack/echo/v4"

	"github.com/caremgr/caremgr/internal/platform/manager"
	"github.com/caremgr/caremgr/internal/platform/web"
)

type Handler struct {
	facilities   *web.Resource[Facility, *Facility]
	providers    *web.Resource[Provider, *Provider]
	appointments *web.Resource[MedicalAppointment, *MedicalAppointment]
}

func NewHandler(svc *Service) *Handler {
	return &Handler{
		facilities: &web.Resource[Facility, *Facility]{Manager: svc.facilities},
		providers: &web.Resource[Provider, *Provider]{
			Manager: svc.providers,
			Parents: map[string]manager.Parent[Provider]{"facility_id": svc.providersByFacility},
		},
		appointments: &web.Resource[MedicalAppointment, *MedicalAppointment]{
			Manager: svc.appointments,
			Parents: map[string]manager.Parent[MedicalAppointment]{"provider_id": svc.appointmentsByProvider},
		},
	}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	h.facilities.Register(api, "/facilities")
	h.providers.Register(api, "/providers")
	h.appointments.Register(api, "/medical-appointments")
}

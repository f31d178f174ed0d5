package medicalrecord

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/clinicore/clinic-api/internal/handler"
	"github.com/clinicore/clinic-api/internal/model"
	"github.com/clinicore/clinic-api/internal/service/medical"
)

type Handler struct {
	service *medical.Service
}

func NewHandler(service *medical.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("", h.CreateRecord)
}

// RegisterAppointmentRoutes mounts the per-appointment record lookup
// under the appointments group.
func (h *Handler) RegisterAppointmentRoutes(r *gin.RouterGroup) {
	r.GET("/:id/record", h.GetByAppointment)
}

// RegisterPatientRoutes mounts the patient history listing under the
// patients group.
func (h *Handler) RegisterPatientRoutes(r *gin.RouterGroup) {
	r.GET("/:id/records", h.ListPatientRecords)
}

func (h *Handler) CreateRecord(c *gin.Context) {
	var req model.CreateMedicalRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
		return
	}

	record, err := h.service.CreateRecord(c.Request.Context(), handler.ActorFromContext(c), &req)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"status": "success", "data": record})
}

func (h *Handler) GetByAppointment(c *gin.Context) {
	appointmentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid appointment ID"})
		return
	}

	record, err := h.service.GetByAppointment(c.Request.Context(), handler.ActorFromContext(c), appointmentID)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "data": record})
}

func (h *Handler) ListPatientRecords(c *gin.Context) {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid patient ID"})
		return
	}

	records, err := h.service.ListPatientRecords(c.Request.Context(), handler.ActorFromContext(c), patientID)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "data": records})
}

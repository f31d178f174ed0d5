package schedule

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/clinicore/clinic-api/internal/handler"
	"github.com/clinicore/clinic-api/internal/model"
	"github.com/clinicore/clinic-api/internal/service/schedule"
)

type Handler struct {
	service *schedule.Service
}

func NewHandler(service *schedule.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("", h.CreateSlot)
	r.GET("/:id", h.GetSlot)
	r.PATCH("/:id", h.UpdateSlot)
	r.DELETE("/:id", h.DeleteSlot)
}

// RegisterDoctorRoutes mounts the doctor-scoped listing endpoints under
// the doctors group.
func (h *Handler) RegisterDoctorRoutes(r *gin.RouterGroup) {
	r.GET("/:id/schedules", h.ListDoctorSlots)
	r.GET("/:id/availability", h.DoctorAvailability)
}

func (h *Handler) CreateSlot(c *gin.Context) {
	var req model.CreateScheduleSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
		return
	}

	slot, err := h.service.CreateSlot(c.Request.Context(), handler.ActorFromContext(c), &req)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"status": "success", "data": slot})
}

func (h *Handler) GetSlot(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid schedule ID"})
		return
	}

	slot, err := h.service.GetSlot(c.Request.Context(), id)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "data": slot})
}

func (h *Handler) UpdateSlot(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid schedule ID"})
		return
	}

	var patch model.ScheduleSlotPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
		return
	}

	slot, err := h.service.UpdateSlot(c.Request.Context(), handler.ActorFromContext(c), id, &patch)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "data": slot})
}

func (h *Handler) DeleteSlot(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid schedule ID"})
		return
	}

	if err := h.service.DeleteSlot(c.Request.Context(), handler.ActorFromContext(c), id); err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "schedule slot deleted"})
}

func (h *Handler) ListDoctorSlots(c *gin.Context) {
	doctorID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid doctor ID"})
		return
	}

	slots, err := h.service.ListDoctorSlots(c.Request.Context(), doctorID)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "data": slots})
}

func (h *Handler) DoctorAvailability(c *gin.Context) {
	doctorID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid doctor ID"})
		return
	}

	weekday := int(time.Now().Weekday())
	if q := c.Query("weekday"); q != "" {
		weekday, err = strconv.Atoi(q)
		if err != nil || weekday < 0 || weekday > 6 {
			c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "weekday must be between 0 and 6"})
			return
		}
	}

	slots, err := h.service.DoctorDaySlots(c.Request.Context(), doctorID, time.Weekday(weekday))
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "data": slots})
}

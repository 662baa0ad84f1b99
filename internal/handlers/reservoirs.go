package handlers

import (
	"errors"
	"net/http"

	"reservoir_controller/internal/models"
	"reservoir_controller/internal/service"

	"github.com/gin-gonic/gin"
)

// Common response/status constants to avoid magic strings and typos.
const (
	statusOK      = "ok"
	statusStarted = "feeding_started"
	statusStopped = "feeding_stopped"

	errListReservoirs = "failed to list reservoirs"
	errGetState       = "failed to load reservoir state"
	errStartFeeding   = "failed to start feeding"
	errStopFeeding    = "failed to stop feeding"
	errRequestDose    = "failed to evaluate dose request"
	errToggleValve    = "failed to toggle valve"
)

// Centralized error logging and response.
func (h *Handler) logAndJSONError(c *gin.Context, httpCode int, userMsg, logKey string, err error, kv ...interface{}) {
	if h.log != nil && err != nil {
		fields := append([]interface{}{"err", err}, kv...)
		h.log.Errorw(logKey, fields...)
	}
	c.JSON(httpCode, gin.H{"error": userMsg})
}

// statusFromErr distinguishes "no such reservoir" from real failures.
func statusFromErr(err error) int {
	if errors.Is(err, service.ErrUnknownReservoir) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// Request DTO for a manual dose.
type doseRequest struct {
	PumpID         string  `json:"pump_id" binding:"required"`
	TargetVolumeML float64 `json:"target_volume_ml" binding:"required,gt=0"`
	Reason         string  `json:"reason,omitempty"`
}

// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": statusOK,
	})
}

// @Summary      List reservoirs
// @Tags         reservoirs
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "count, reservoirs"
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/reservoirs [get]
// @Security     BearerAuth
func (h *Handler) listReservoirs(c *gin.Context) {
	states, err := h.services.Monitoring.List(c.Request.Context())
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errListReservoirs, "reservoirs_list_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count":      len(states),
		"reservoirs": states,
	})
}

// @Summary      Get reservoir state
// @Description  Fused sensor state, feeding session and valve states.
// @Tags         reservoirs
// @Produce      json
// @Param        id  path  string  true  "Reservoir ID"
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/reservoirs/{id}/state [get]
// @Security     BearerAuth
func (h *Handler) getReservoirState(c *gin.Context) {
	st, err := h.services.Monitoring.State(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.logAndJSONError(c, statusFromErr(err), errGetState, "reservoir_state_failed", err, "reservoir", c.Param("id"))
		return
	}
	c.JSON(http.StatusOK, st)
}

// @Summary      Start feeding
// @Description  Opens the feed valve and starts the bounded feeding session. Re-starting resets the timeout window.
// @Tags         feeding
// @Produce      json
// @Param        id  path  string  true  "Reservoir ID"
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/reservoirs/{id}/feeding/start [post]
// @Security     BearerAuth
func (h *Handler) startFeeding(c *gin.Context) {
	id := c.Param("id")
	if err := h.services.Feeding.StartFeeding(c.Request.Context(), id, c.Query("valve")); err != nil {
		h.logAndJSONError(c, statusFromErr(err), errStartFeeding, "feeding_start_failed", err, "reservoir", id)
		return
	}
	h.respondWithStatusAndState(c, id, statusStarted)
}

// @Summary      Stop feeding
// @Tags         feeding
// @Produce      json
// @Param        id  path  string  true  "Reservoir ID"
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/reservoirs/{id}/feeding/stop [post]
// @Security     BearerAuth
func (h *Handler) stopFeeding(c *gin.Context) {
	id := c.Param("id")
	if err := h.services.Feeding.StopFeeding(c.Request.Context(), id); err != nil {
		h.logAndJSONError(c, statusFromErr(err), errStopFeeding, "feeding_stop_failed", err, "reservoir", id)
		return
	}
	h.respondWithStatusAndState(c, id, statusStopped)
}

// @Summary      Toggle a valve
// @Description  Flips a valve by ID or name. Does not start a feeding session.
// @Tags         valves
// @Produce      json
// @Param        id     path  string  true  "Reservoir ID"
// @Param        valve  path  string  true  "Valve ID or name"
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/reservoirs/{id}/valves/{valve}/toggle [post]
// @Security     BearerAuth
func (h *Handler) toggleValve(c *gin.Context) {
	id := c.Param("id")
	v, err := h.services.Valves.ToggleValve(c.Request.Context(), id, c.Param("valve"))
	if err != nil {
		h.logAndJSONError(c, statusFromErr(err), errToggleValve, "valve_toggle_failed", err, "reservoir", id, "valve", c.Param("valve"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"valve": v})
}

// @Summary      Request a dose
// @Description  Evaluates the dose against the safety guards. A suppressed dose returns the literal reason, not an error.
// @Tags         dosing
// @Accept       json
// @Produce      json
// @Param        id    path  string       true  "Reservoir ID"
// @Param        body  body  doseRequest  true  "Dose payload"
// @Success      200  {object}  map[string]interface{}  "action"
// @Failure      400  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/reservoirs/{id}/dose [post]
// @Security     BearerAuth
func (h *Handler) requestDose(c *gin.Context) {
	var req doseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body: " + err.Error()})
		return
	}
	id := c.Param("id")
	action, err := h.services.Dosing.RequestDose(c.Request.Context(), id, models.DoseRequest{
		PumpID:         req.PumpID,
		TargetVolumeML: req.TargetVolumeML,
		Reason:         req.Reason,
	})
	if err != nil {
		h.logAndJSONError(c, statusFromErr(err), errRequestDose, "dose_request_failed", err, "reservoir", id, "pump", req.PumpID)
		return
	}
	c.JSON(http.StatusOK, gin.H{"action": action})
}

// Request DTO for an automatic correction.
type correctRequest struct {
	Current float64 `json:"current" binding:"required"`
	Desired float64 `json:"desired" binding:"required"`
}

// @Summary      Correct toward a target value
// @Description  Computes per-pump volumes for the measured-vs-desired delta and requests each dose. An empty action list means the value is already within tolerance.
// @Tags         dosing
// @Accept       json
// @Produce      json
// @Param        id     path  string          true  "Reservoir ID"
// @Param        input  body  correctRequest  true  "Measured and desired values"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/reservoirs/{id}/correct [post]
// @Security     BearerAuth
func (h *Handler) correct(c *gin.Context) {
	var req correctRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body: " + err.Error()})
		return
	}
	id := c.Param("id")
	actions, err := h.services.Dosing.Correct(c.Request.Context(), id, req.Current, req.Desired)
	if err != nil {
		h.logAndJSONError(c, statusFromErr(err), errRequestDose, "correction_failed", err, "reservoir", id)
		return
	}
	if actions == nil {
		actions = []models.Action{}
	}
	c.JSON(http.StatusOK, gin.H{
		"count":   len(actions),
		"actions": actions,
	})
}

// @Summary      Flow total
// @Tags         flow
// @Produce      json
// @Param        sensor  path  string  true  "Flow sensor ID"
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/flow/{sensor}/total [get]
// @Security     BearerAuth
func (h *Handler) getFlowTotal(c *gin.Context) {
	sensor := c.Param("sensor")
	c.JSON(http.StatusOK, gin.H{
		"sensor_id":    sensor,
		"total_liters": h.services.Flow.FlowTotal(sensor),
	})
}

// @Summary      Reset flow total
// @Description  Zeroes the accumulated volume and logs the previous total.
// @Tags         flow
// @Produce      json
// @Param        sensor  path  string  true  "Flow sensor ID"
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/flow/{sensor}/reset [post]
// @Security     BearerAuth
func (h *Handler) resetFlowTotal(c *gin.Context) {
	sensor := c.Param("sensor")
	prev, err := h.services.Flow.ResetFlowTotal(c.Request.Context(), sensor)
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, "failed to reset flow total", "flow_reset_failed", err, "sensor", sensor)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"sensor_id":      sensor,
		"previous_total": prev,
	})
}

// Respond with a status and include current state if available (best-effort).
func (h *Handler) respondWithStatusAndState(c *gin.Context, reservoirID, status string) {
	resp := gin.H{"status": status}
	if st, err := h.services.Monitoring.State(c.Request.Context(), reservoirID); err == nil {
		resp["state"] = st
	}
	c.JSON(http.StatusOK, resp)
}

package handlers

import (
	"errors"
	"net/http"
	"time"

	"reservoir_controller/internal/service"

	"github.com/gin-gonic/gin"
)

// Request DTO for recording a calibration.
type calibrateRequest struct {
	FlowRateMLPerSec float64 `json:"flow_rate_ml_per_sec" binding:"required,gt=0"`
	// CalibratedAt defaults to now when omitted.
	CalibratedAt time.Time `json:"calibrated_at,omitempty"`
}

// @Summary      Calibrate pump
// @Description  Records a measured flow rate. The previous record is superseded, not overwritten.
// @Tags         pumps
// @Accept       json
// @Produce      json
// @Param        id    path  string            true  "Pump ID"
// @Param        body  body  calibrateRequest  true  "Calibration payload"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/pumps/{id}/calibrate [post]
// @Security     BearerAuth
func (h *Handler) calibratePump(c *gin.Context) {
	var req calibrateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body: " + err.Error()})
		return
	}
	id := c.Param("id")
	if err := h.services.Calibration.Calibrate(c.Request.Context(), id, req.FlowRateMLPerSec, req.CalibratedAt); err != nil {
		if h.log != nil {
			h.log.Errorw("pump_calibrate_failed", "pump", id, "err", err)
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	pump, err := h.services.Calibration.Get(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"status": "calibrated"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "calibrated", "pump": pump})
}

// @Summary      Get pump calibration
// @Tags         pumps
// @Produce      json
// @Param        id  path  string  true  "Pump ID"
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/pumps/{id}/calibration [get]
// @Security     BearerAuth
func (h *Handler) getCalibration(c *gin.Context) {
	id := c.Param("id")
	pump, err := h.services.Calibration.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrNotCalibrated) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		h.logAndJSONError(c, http.StatusInternalServerError, "failed to load calibration", "calibration_get_failed", err, "pump", id)
		return
	}
	c.JSON(http.StatusOK, pump)
}

// @Summary      Get calibration history
// @Description  Full audit trail for a pump, oldest record first.
// @Tags         pumps
// @Produce      json
// @Param        id  path  string  true  "Pump ID"
// @Success      200  {object}  map[string]interface{}  "count, records"
// @Failure      401  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/pumps/{id}/calibration/history [get]
// @Security     BearerAuth
func (h *Handler) getCalibrationHistory(c *gin.Context) {
	id := c.Param("id")
	records, err := h.services.Calibration.History(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count":   len(records),
		"records": records,
	})
}

package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"reservoir_controller/internal/models"
	"reservoir_controller/internal/service"
)

func TestCalibrationHandlers_CalibrateGetHistory(t *testing.T) {
	auth := &mockAuth{parseID: 3}
	calibratedAt := time.Date(2025, 8, 27, 10, 0, 0, 0, time.UTC)
	calib := &mockCalibration{
		getPump: models.Pump{
			ID:               "ph-up-1",
			Chemical:         models.ChemicalPHUp,
			FlowRateMLPerSec: 2.0,
			CalibratedAt:     calibratedAt,
		},
		history: []models.PumpCalibration{
			{PumpID: "ph-up-1", FlowRateMLPerSec: 1.8, CalibratedAt: calibratedAt.Add(-24 * time.Hour)},
			{PumpID: "ph-up-1", FlowRateMLPerSec: 2.0, CalibratedAt: calibratedAt},
		},
	}
	s := &service.Service{
		Authorization: auth,
		Calibration:   calib,
	}
	r := newTestRouter(s)

	// Calibrate → 200, forwards rate
	body := bytes.NewBufferString(`{"flow_rate_ml_per_sec":2.0}`)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/pumps/ph-up-1/calibrate", body)
	req.Header.Set("Content-Type", "application/json")
	for k, vv := range authHeader("valid") {
		for _, v := range vv {
			req.Header.Add(k, v)
		}
	}
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("calibrate status=%d, body=%s", w.Code, w.Body.String())
	}
	if calib.calibrated != 1 || calib.lastMLPerSec != 2.0 {
		t.Fatalf("calibration not forwarded: %+v", calib)
	}

	// Zero/negative rates are rejected by binding → 400
	for _, payload := range []string{`{"flow_rate_ml_per_sec":0}`, `{"flow_rate_ml_per_sec":-1}`} {
		w = httptest.NewRecorder()
		req = httptest.NewRequest(http.MethodPost, "/api/v1/pumps/ph-up-1/calibrate", bytes.NewBufferString(payload))
		req.Header.Set("Content-Type", "application/json")
		for k, vv := range authHeader("valid") {
			for _, v := range vv {
				req.Header.Add(k, v)
			}
		}
		r.ServeHTTP(w, req)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("payload %s: expected 400, got %d", payload, w.Code)
		}
	}

	// Get → 200 with current calibration
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/v1/pumps/ph-up-1/calibration", nil)
	for k, vv := range authHeader("valid") {
		for _, v := range vv {
			req.Header.Add(k, v)
		}
	}
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("get status=%d, body=%s", w.Code, w.Body.String())
	}
	var pump models.Pump
	if err := json.Unmarshal(w.Body.Bytes(), &pump); err != nil {
		t.Fatalf("unmarshal pump: %v", err)
	}
	if pump.ID != "ph-up-1" || pump.FlowRateMLPerSec != 2.0 {
		t.Fatalf("unexpected pump: %+v", pump)
	}

	// History → 200 with both records
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/v1/pumps/ph-up-1/calibration/history", nil)
	for k, vv := range authHeader("valid") {
		for _, v := range vv {
			req.Header.Add(k, v)
		}
	}
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("history status=%d, body=%s", w.Code, w.Body.String())
	}
	var out struct {
		Count   int                      `json:"count"`
		Records []models.PumpCalibration `json:"records"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	if out.Count != 2 || len(out.Records) != 2 {
		t.Fatalf("unexpected history: %+v", out)
	}
}

func TestCalibrationHandlers_GetNotCalibrated(t *testing.T) {
	auth := &mockAuth{parseID: 3}
	calib := &mockCalibration{getErr: service.ErrNotCalibrated}
	s := &service.Service{
		Authorization: auth,
		Calibration:   calib,
	}
	r := newTestRouter(s)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/pumps/new-pump/calibration", nil)
	for k, vv := range authHeader("valid") {
		for _, v := range vv {
			req.Header.Add(k, v)
		}
	}
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for uncalibrated pump, got %d (body=%s)", w.Code, w.Body.String())
	}
}

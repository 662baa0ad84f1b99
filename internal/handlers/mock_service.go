package handlers

import (
	"context"
	"net/http"
	"time"

	"reservoir_controller/internal/models"
	"reservoir_controller/internal/service"

	"github.com/gin-gonic/gin"
)

// ---- Service Mocks ----

type mockAuth struct {
	signUpID      int
	signUpErr     error
	genTokenToken string
	genTokenErr   error
	parseID       int
	parseErr      error

	lastSignUpUsername string
	lastSignUpPassword string
	lastGenUsername    string
	lastGenPassword    string
	lastParseToken     string
}

func (m *mockAuth) SignUp(username, password string) (int, error) {
	m.lastSignUpUsername = username
	m.lastSignUpPassword = password
	return m.signUpID, m.signUpErr
}
func (m *mockAuth) GenerateToken(username, password string) (string, error) {
	m.lastGenUsername = username
	m.lastGenPassword = password
	return m.genTokenToken, m.genTokenErr
}
func (m *mockAuth) ParseToken(token string) (int, error) {
	m.lastParseToken = token
	return m.parseID, m.parseErr
}

type mockCalibration struct {
	calibrateErr error
	getPump      models.Pump
	getErr       error
	history      []models.PumpCalibration
	historyErr   error

	lastPumpID   string
	lastMLPerSec float64
	lastAt       time.Time
	calibrated   int
}

func (m *mockCalibration) Calibrate(ctx context.Context, pumpID string, mlPerSec float64, at time.Time) error {
	m.calibrated++
	m.lastPumpID = pumpID
	m.lastMLPerSec = mlPerSec
	m.lastAt = at
	return m.calibrateErr
}
func (m *mockCalibration) Get(ctx context.Context, pumpID string) (models.Pump, error) {
	m.lastPumpID = pumpID
	return m.getPump, m.getErr
}
func (m *mockCalibration) History(ctx context.Context, pumpID string) ([]models.PumpCalibration, error) {
	m.lastPumpID = pumpID
	return m.history, m.historyErr
}
func (m *mockCalibration) VerifyStore(ctx context.Context) (int, error) {
	return len(m.history), nil
}

type mockFeeding struct {
	startErr      error
	stopErr       error
	active        bool
	anyActive     bool
	startCalled   int
	stopCalled    int
	lastReservoir string
	lastValve     string
}

func (m *mockFeeding) StartFeeding(ctx context.Context, reservoirID, valveID string) error {
	m.startCalled++
	m.lastReservoir = reservoirID
	m.lastValve = valveID
	return m.startErr
}
func (m *mockFeeding) StopFeeding(ctx context.Context, reservoirID string) error {
	m.stopCalled++
	m.lastReservoir = reservoirID
	return m.stopErr
}
func (m *mockFeeding) Active(reservoirID string) bool { return m.active }
func (m *mockFeeding) FeedingActive() bool            { return m.anyActive }

type mockDosing struct {
	action        models.Action
	err           error
	corrections   []models.Action
	correctErr    error
	lastReservoir string
	lastReq       models.DoseRequest
	lastCurrent   float64
	lastDesired   float64
	calls         int
}

func (m *mockDosing) RequestDose(ctx context.Context, reservoirID string, req models.DoseRequest) (models.Action, error) {
	m.calls++
	m.lastReservoir = reservoirID
	m.lastReq = req
	return m.action, m.err
}

func (m *mockDosing) Correct(ctx context.Context, reservoirID string, current, desired float64) ([]models.Action, error) {
	m.lastReservoir = reservoirID
	m.lastCurrent = current
	m.lastDesired = desired
	return m.corrections, m.correctErr
}

type mockValves struct {
	valve         models.Valve
	toggleErr     error
	activeID      string
	activeOK      bool
	lastReservoir string
	lastNameOrID  string
}

func (m *mockValves) ToggleValve(ctx context.Context, reservoirID, nameOrID string) (models.Valve, error) {
	m.lastReservoir = reservoirID
	m.lastNameOrID = nameOrID
	return m.valve, m.toggleErr
}
func (m *mockValves) ActiveFeedValve(reservoirID string) (string, bool) {
	return m.activeID, m.activeOK
}

type mockMonitoring struct {
	state  models.ReservoirState
	states []models.ReservoirState
	err    error
}

func (m *mockMonitoring) State(ctx context.Context, reservoirID string) (models.ReservoirState, error) {
	return m.state, m.err
}
func (m *mockMonitoring) List(ctx context.Context) ([]models.ReservoirState, error) {
	return m.states, m.err
}

type mockFlow struct {
	total      float64
	previous   float64
	resetErr   error
	lastSensor string
	resets     int
}

func (m *mockFlow) FlowTotal(sensorID string) float64 {
	m.lastSensor = sensorID
	return m.total
}
func (m *mockFlow) ResetFlowTotal(ctx context.Context, sensorID string) (float64, error) {
	m.resets++
	m.lastSensor = sensorID
	return m.previous, m.resetErr
}

type mockEventLog struct {
	resp          []models.ControllerEvent
	err           error
	lastFrom      time.Time
	lastTo        time.Time
	lastType      string
	lastReservoir string
}

func (m *mockEventLog) List(ctx context.Context, f service.LogFilter) ([]models.ControllerEvent, error) {
	m.lastFrom = f.From
	m.lastTo = f.To
	m.lastType = f.Type
	m.lastReservoir = f.ReservoirID
	return m.resp, m.err
}

type mockControl struct{}

func (m *mockControl) Run(ctx context.Context, tick time.Duration) {}

// ---- Shared Test Helpers ----

func newTestRouter(s *service.Service) *gin.Engine {
	h := NewHandler(s, nil)
	gin.SetMode(gin.TestMode)
	return h.InitRoutes()
}

func authHeader(token string) http.Header {
	h := http.Header{}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}

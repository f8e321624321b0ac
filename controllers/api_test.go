package controllers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"valet-backend/controllers"
	"valet-backend/database"
	"valet-backend/middlewares"
	"valet-backend/routes"
	"valet-backend/workflow"
)

var dbSeq int64

func TestMain(m *testing.M) {
	os.Setenv("JWT_SECRET", "test-secret")
	os.Exit(m.Run())
}

// newTestApp wires a fresh in-memory database, engine and Fiber app,
// mirroring the production wiring in main.
func newTestApp(t *testing.T) *fiber.App {
	t.Helper()

	dsn := fmt.Sprintf("file:apitest_%d?mode=memory&cache=shared", atomic.AddInt64(&dbSeq, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	database.DB = db
	require.NoError(t, database.AutoMigrate())
	require.NoError(t, database.Seed())

	hub := workflow.NewHub(nil)
	controllers.Hub = hub
	controllers.Engine = workflow.NewEngine(database.NewGormStore(db), hub, nil)

	app := fiber.New(fiber.Config{ErrorHandler: middlewares.ErrorHandler})
	routes.Register(app)
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path, token string, body any, headers ...map[string]string) (*http.Response, map[string]any) {
	t.Helper()

	var buf io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		buf = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for _, h := range headers {
		for k, v := range h {
			req.Header.Set(k, v)
		}
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]any
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out))
	} else if len(raw) > 0 {
		out = map[string]any{"_body": json.RawMessage(raw)}
	}
	return resp, out
}

func signup(t *testing.T, app *fiber.App, name, email, role string) string {
	t.Helper()
	resp, body := doJSON(t, app, fiber.MethodPost, "/api/registration", "", fiber.Map{
		"name":             name,
		"email":            email,
		"password":         "secret",
		"password_confirm": "secret",
		"role":             role,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, "signup %s: %v", email, body)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func login(t *testing.T, app *fiber.App, email, password string) (int, map[string]any) {
	t.Helper()
	resp, body := doJSON(t, app, fiber.MethodPost, "/api/login", "", fiber.Map{
		"email":    email,
		"password": password,
	})
	return resp.StatusCode, body
}

func TestAuthFlow(t *testing.T) {
	app := newTestApp(t)

	token := signup(t, app, "Ravi Kumar", "ravi@test.com", "user")

	resp, body := doJSON(t, app, fiber.MethodGet, "/api/user", token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Ravi Kumar", body["name"])
	assert.Equal(t, "user", body["role"])

	// Seeded demo admin can log in.
	code, body := login(t, app, "admin@test.com", "admin")
	assert.Equal(t, http.StatusOK, code)
	user := body["user"].(map[string]any)
	assert.Equal(t, "admin", user["role"])

	code, _ = login(t, app, "ravi@test.com", "wrong")
	assert.Equal(t, http.StatusBadRequest, code)

	resp, _ = doJSON(t, app, fiber.MethodGet, "/api/user", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Duplicate signup is rejected.
	resp, _ = doJSON(t, app, fiber.MethodPost, "/api/registration", "", fiber.Map{
		"name": "Ravi Again", "email": "ravi@test.com",
		"password": "secret", "password_confirm": "secret",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func createRequest(t *testing.T, app *fiber.App, token string) string {
	t.Helper()
	resp, body := doJSON(t, app, fiber.MethodPost, "/api/requests", token, fiber.Map{
		"vehicle":  fiber.Map{"plate": "MH12AB1234", "model": "Toyota Camry"},
		"location": "Inorbit Mall",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, "%v", body)
	id, ok := body["id"].(float64)
	require.True(t, ok)
	return fmt.Sprintf("%.0f", id)
}

func TestRequestLifecycle(t *testing.T) {
	app := newTestApp(t)
	userTok := signup(t, app, "Ravi Kumar", "ravi@test.com", "user")
	driverTok := signup(t, app, "Suresh", "suresh@test.com", "driver")
	driver2Tok := signup(t, app, "Anil", "anil@test.com", "driver")

	id := createRequest(t, app, userTok)

	// Role guard: users cannot browse the pending job list.
	resp, _ := doJSON(t, app, fiber.MethodGet, "/api/requests/pending", userTok, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, body := doJSON(t, app, fiber.MethodGet, "/api/requests/pending", driverTok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var pending []map[string]any
	require.NoError(t, json.Unmarshal(body["_body"].(json.RawMessage), &pending))
	require.Len(t, pending, 1)
	assert.Equal(t, "requested", pending[0]["status"])
	assert.Nil(t, pending[0]["valetId"])

	// First driver claims the job; the second loses the race.
	resp, body = doJSON(t, app, fiber.MethodPost, "/api/requests/"+id+"/accept", driverTok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "assigned", body["status"])
	assert.Equal(t, "Suresh", body["valetName"])

	resp, _ = doJSON(t, app, fiber.MethodPost, "/api/requests/"+id+"/accept", driver2Tok, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// Driver parks the car.
	resp, body = doJSON(t, app, fiber.MethodPut, "/api/requests/"+id+"/status", driverTok, fiber.Map{"status": "parked"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "parked", body["status"])
	assert.NotNil(t, body["parkedTimestamp"])

	// Skipping phases is rejected.
	resp, _ = doJSON(t, app, fiber.MethodPut, "/api/requests/"+id+"/status", userTok, fiber.Map{"status": "completed"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// Owner asks for the car back; the job is unassigned again.
	resp, body = doJSON(t, app, fiber.MethodPut, "/api/requests/"+id+"/status", userTok, fiber.Map{"status": "retrieval_requested"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Nil(t, body["valetId"])

	resp, body = doJSON(t, app, fiber.MethodGet, "/api/requests/pending", driver2Tok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body["_body"].(json.RawMessage), &pending))
	require.Len(t, pending, 1)

	// The other driver picks up the retrieval; status stays put.
	resp, body = doJSON(t, app, fiber.MethodPost, "/api/requests/"+id+"/accept", driver2Tok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "retrieval_requested", body["status"])
	assert.Equal(t, "Anil", body["valetName"])

	for _, status := range []string{"retrieving", "vehicle_arrived"} {
		resp, body = doJSON(t, app, fiber.MethodPut, "/api/requests/"+id+"/status", driver2Tok, fiber.Map{"status": status})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, status, body["status"])
	}

	resp, body = doJSON(t, app, fiber.MethodPut, "/api/requests/"+id+"/status", userTok, fiber.Map{"status": "completed"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotNil(t, body["exitTimestamp"])

	// Completed requests drop out of the active set and show up in history.
	resp, body = doJSON(t, app, fiber.MethodGet, "/api/requests/active", userTok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var active []map[string]any
	require.NoError(t, json.Unmarshal(body["_body"].(json.RawMessage), &active))
	assert.Empty(t, active)

	resp, body = doJSON(t, app, fiber.MethodGet, "/api/requests/history", userTok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	history := body["history"].([]any)
	assert.Len(t, history, 1)
	assert.Equal(t, float64(150), body["fee"])
}

func TestPatchRequest(t *testing.T) {
	app := newTestApp(t)
	userTok := signup(t, app, "Ravi Kumar", "ravi@test.com", "user")
	id := createRequest(t, app, userTok)

	resp, body := doJSON(t, app, fiber.MethodPatch, "/api/requests/"+id, userTok, fiber.Map{
		"status":    "assigned",
		"valetId":   "driver-1",
		"valetName": "Suresh",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "assigned", body["status"])
	assert.Equal(t, "driver-1", body["valetId"])

	resp, _ = doJSON(t, app, fiber.MethodPatch, "/api/requests/"+id, userTok, fiber.Map{
		"userId": "someone-else",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = doJSON(t, app, fiber.MethodPatch, "/api/requests/"+id, userTok, fiber.Map{
		"status": "teleported",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = doJSON(t, app, fiber.MethodPatch, "/api/requests/99999", userTok, fiber.Map{
		"status": "assigned",
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestIdempotentCreate(t *testing.T) {
	app := newTestApp(t)
	userTok := signup(t, app, "Ravi Kumar", "ravi@test.com", "user")

	hdr := map[string]string{"Idempotency-Key": "create-1"}
	payload := fiber.Map{
		"vehicle":  fiber.Map{"plate": "MH12AB1234", "model": "Toyota Camry"},
		"location": "Inorbit Mall",
	}
	resp, first := doJSON(t, app, fiber.MethodPost, "/api/requests", userTok, payload, hdr)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// The retry replays the stored response instead of creating a second ticket.
	resp, second := doJSON(t, app, fiber.MethodPost, "/api/requests", userTok, payload, hdr)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, first["id"], second["id"])

	resp, body := doJSON(t, app, fiber.MethodGet, "/api/requests", userTok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var all []map[string]any
	require.NoError(t, json.Unmarshal(body["_body"].(json.RawMessage), &all))
	assert.Len(t, all, 1)
}

func TestDriverApplications(t *testing.T) {
	app := newTestApp(t)
	managerTok := signup(t, app, "Meera", "meera@test.com", "manager")
	userTok := signup(t, app, "Ravi Kumar", "ravi@test.com", "user")
	_, body := login(t, app, "admin@test.com", "admin")
	adminTok := body["token"].(string)

	application := fiber.Map{
		"full_name":      "Suresh Patil",
		"phone":          "9876500001",
		"email":          "suresh.patil@test.com",
		"address":        "Andheri East, Mumbai",
		"license_number": "MH01-2020-0012345",
	}

	// Regular users cannot file applications.
	resp, _ := doJSON(t, app, fiber.MethodPost, "/api/drivers/applications", userTok, application)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, body = doJSON(t, app, fiber.MethodPost, "/api/drivers/applications", managerTok, application)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "pending", body["status"])
	appID := fmt.Sprintf("%.0f", body["id"].(float64))

	// Manager can amend a pending application.
	resp, _ = doJSON(t, app, fiber.MethodPut, "/api/drivers/applications/"+appID, managerTok, fiber.Map{
		"phone": "9876500002",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Only admins review.
	resp, _ = doJSON(t, app, fiber.MethodGet, "/api/drivers/applications", managerTok, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, body = doJSON(t, app, fiber.MethodGet, "/api/drivers/applications", adminTok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["applications"].([]any), 1)

	resp, body = doJSON(t, app, fiber.MethodPost, "/api/drivers/applications/"+appID+"/approve", adminTok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	tempPassword := body["temp_password"].(string)
	require.NotEmpty(t, tempPassword)

	// The approved driver can log in with the handed-over password.
	code, body := login(t, app, "suresh.patil@test.com", tempPassword)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "driver", body["user"].(map[string]any)["role"])

	// Double review is rejected.
	resp, _ = doJSON(t, app, fiber.MethodPost, "/api/drivers/applications/"+appID+"/reject", adminTok, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestVehicleRegistry(t *testing.T) {
	app := newTestApp(t)
	userTok := signup(t, app, "Ravi Kumar", "ravi@test.com", "user")

	// First listing on a fresh install seeds the demo vehicles.
	resp, body := doJSON(t, app, fiber.MethodGet, "/api/vehicles", userTok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	vehicles := body["vehicles"].([]any)
	require.Len(t, vehicles, 2)
	var seeded []string
	for _, v := range vehicles {
		seeded = append(seeded, v.(map[string]any)["model"].(string))
	}
	assert.ElementsMatch(t, []string{"Honda City", "Toyota Innova"}, seeded)

	resp, body = doJSON(t, app, fiber.MethodPost, "/api/vehicles", userTok, fiber.Map{
		"firstName": "Ravi",
		"lastName":  "Kumar",
		"brand":     "Hyundai",
		"model":     "Creta",
		"plate":     "mh 01 ab 9999",
		"phone":     "9876543210",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "MH 01 AB 9999", body["plate"])
	vehicleID := body["id"].(string)

	// Plate and phone formats are enforced.
	resp, _ = doJSON(t, app, fiber.MethodPost, "/api/vehicles", userTok, fiber.Map{
		"firstName": "Ravi", "lastName": "Kumar", "brand": "Tata",
		"model": "Nexon", "plate": "BADPLATE", "phone": "9876543210",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp, _ = doJSON(t, app, fiber.MethodPost, "/api/vehicles", userTok, fiber.Map{
		"firstName": "Ravi", "lastName": "Kumar", "brand": "Tata",
		"model": "Nexon", "plate": "MH 01 AB 1111", "phone": "12345",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	// Another user cannot remove someone else's vehicle.
	otherTok := signup(t, app, "Meera", "meera@test.com", "user")
	resp, _ = doJSON(t, app, fiber.MethodDelete, "/api/vehicles/"+vehicleID, otherTok, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = doJSON(t, app, fiber.MethodDelete, "/api/vehicles/"+vehicleID, userTok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = doJSON(t, app, fiber.MethodGet, "/api/vehicles", userTok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["vehicles"].([]any), 2)
}

func TestStreamRequiresToken(t *testing.T) {
	app := newTestApp(t)

	// Plain HTTP requests are told to upgrade.
	resp, _ := doJSON(t, app, fiber.MethodGet, "/ws/requests", "", nil)
	assert.Equal(t, http.StatusUpgradeRequired, resp.StatusCode)

	// An upgrade handshake without a token is rejected before the hub.
	upgrade := map[string]string{
		"Connection":            "Upgrade",
		"Upgrade":               "websocket",
		"Sec-WebSocket-Version": "13",
	}
	resp, _ = doJSON(t, app, fiber.MethodGet, "/ws/requests", "", nil, upgrade)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = doJSON(t, app, fiber.MethodGet, "/ws/requests?token=not-a-jwt", "", nil, upgrade)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestStatsAndLocations(t *testing.T) {
	app := newTestApp(t)
	userTok := signup(t, app, "Ravi Kumar", "ravi@test.com", "user")
	_, body := login(t, app, "admin@test.com", "admin")
	adminTok := body["token"].(string)

	createRequest(t, app, userTok)

	resp, _ := doJSON(t, app, fiber.MethodGet, "/api/stats", userTok, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, body = doJSON(t, app, fiber.MethodGet, "/api/stats", adminTok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), body["tickets_today"])
	assert.Equal(t, float64(1), body["active_parking"])
	assert.Equal(t, float64(0), body["collection_today"])

	// Locations are public.
	resp, body = doJSON(t, app, fiber.MethodGet, "/api/locations", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	locations := body["locations"].([]any)
	require.NotEmpty(t, locations)
	first := locations[0].(map[string]any)
	assert.Equal(t, "Phoenix Mall", first["name"])
}

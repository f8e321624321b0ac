package controllers

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"valet-backend/database"
	"valet-backend/middlewares"
	"valet-backend/models"
	"valet-backend/utils"
	"valet-backend/workflow"

	"go.uber.org/zap"
)

// Engine and Hub are wired in main before the server starts.
var (
	Engine *workflow.Engine
	Hub    *workflow.Hub
)

type createRequestDTO struct {
	Vehicle struct {
		Plate string `json:"plate" validate:"required"`
		Model string `json:"model" validate:"required"`
	} `json:"vehicle" validate:"required"`
	Location string `json:"location" validate:"required"`
}

type updateStatusDTO struct {
	Status string `json:"status" validate:"required"`
}

func requestID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid request id")
	}
	return id, nil
}

// GetRequests returns the full record list. A storage failure degrades to an
// empty list so polling screens never stall on an error page.
func GetRequests(c *fiber.Ctx) error {
	reqs, err := Engine.GetAll(c.Context())
	if err != nil {
		zap.L().Error("request list read failed", zap.Error(err))
		return c.JSON([]models.ParkingRequest{})
	}
	return c.JSON(reqs)
}

// CreateRequest opens a new parking request for the session user.
func CreateRequest(c *fiber.Ctx) error {
	var data createRequestDTO
	if err := middlewares.BindAndValidate(c, &data); err != nil {
		return err
	}

	userID, _ := c.Locals("userID").(string)
	var user models.User
	err := database.DB.Where("id = ?", userID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "user no longer exists"})
	}
	if err != nil {
		return err
	}

	req, err := Engine.CreateRequest(c.Context(), user,
		models.Vehicle{Plate: data.Vehicle.Plate, Model: data.Vehicle.Model},
		data.Location)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(req)
}

// PatchRequest applies a partial update with raw wire-field names. This is
// the interop surface other store variants write through; the workflow
// endpoints below are the guarded path.
func PatchRequest(c *fiber.Ctx) error {
	id, err := requestID(c)
	if err != nil {
		return err
	}

	var updates map[string]any
	if err := c.BodyParser(&updates); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if len(updates) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "no fields to update")
	}

	actor, _ := c.Locals("userID").(string)
	req, err := Engine.Patch(c.Context(), id, updates, actor)
	if err != nil {
		return err
	}
	return c.JSON(req)
}

// GetRequest returns one record by id.
func GetRequest(c *fiber.Ctx) error {
	id, err := requestID(c)
	if err != nil {
		return err
	}
	req, err := Engine.Get(c.Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(req)
}

// GetPending lists unassigned jobs any driver may claim.
func GetPending(c *fiber.Ctx) error {
	reqs, err := Engine.GetPending(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(reqs)
}

// GetUserActive lists the session user's non-terminal requests, newest first.
func GetUserActive(c *fiber.Ctx) error {
	userID, _ := c.Locals("userID").(string)
	reqs, err := Engine.GetUserActiveRequests(c.Context(), userID)
	if err != nil {
		return err
	}
	return c.JSON(reqs)
}

// GetCurrent returns the session user's most recent active request, or null.
func GetCurrent(c *fiber.Ctx) error {
	userID, _ := c.Locals("userID").(string)
	req, err := Engine.GetActive(c.Context(), userID)
	if err != nil {
		return err
	}
	return c.JSON(req)
}

// GetHistory returns the user's recent completed requests with the flat fee
// the ticket screen displays.
func GetHistory(c *fiber.Ctx) error {
	userID, _ := c.Locals("userID").(string)
	limit := utils.ParseIntDefault(c.Query("limit"), 5)
	reqs, err := Engine.UserHistory(c.Context(), userID, limit)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"history": reqs,
		"fee":     FlatFee,
	})
}

// AcceptRequest claims a pending job for the session driver. A lost race
// surfaces as 409 via the error handler.
func AcceptRequest(c *fiber.Ctx) error {
	id, err := requestID(c)
	if err != nil {
		return err
	}
	driver := models.User{
		Id:   c.Locals("userID").(string),
		Name: c.Locals("userName").(string),
	}
	req, err := Engine.AcceptRequest(c.Context(), id, driver)
	if err != nil {
		return err
	}
	return c.JSON(req)
}

// UpdateStatus advances a request through the lifecycle.
func UpdateStatus(c *fiber.Ctx) error {
	id, err := requestID(c)
	if err != nil {
		return err
	}
	var data updateStatusDTO
	if err := middlewares.BindAndValidate(c, &data); err != nil {
		return err
	}
	actor, _ := c.Locals("userID").(string)
	req, err := Engine.UpdateStatus(c.Context(), id, data.Status, actor)
	if err != nil {
		return err
	}
	return c.JSON(req)
}

// GetDriverActive returns the session driver's current job, or null.
func GetDriverActive(c *fiber.Ctx) error {
	driverID, _ := c.Locals("userID").(string)
	req, err := Engine.GetDriverActive(c.Context(), driverID)
	if err != nil {
		return err
	}
	return c.JSON(req)
}

// GetDriverStats computes the driver dashboard counters for today.
func GetDriverStats(c *fiber.Ctx) error {
	driverID, _ := c.Locals("userID").(string)
	all, err := Engine.GetAll(c.Context())
	if err != nil {
		return err
	}

	today := time.Now().UTC().Truncate(24 * time.Hour)
	var jobs, parked, retrieved int
	for _, r := range all {
		if r.ValetID == nil || *r.ValetID != driverID {
			continue
		}
		if r.Timestamp.UTC().Truncate(24 * time.Hour) != today {
			continue
		}
		jobs++
		switch r.Status {
		case workflow.StatusParked, workflow.StatusRetrievalRequested,
			workflow.StatusRetrieving, workflow.StatusVehicleArrived,
			workflow.StatusCompleted:
			parked++
		}
		if r.Status == workflow.StatusCompleted {
			retrieved++
		}
	}

	return c.JSON(fiber.Map{
		"today":     jobs,
		"parked":    parked,
		"retrieved": retrieved,
	})
}

// GetRequestEvents returns the audit snapshots for a request.
func GetRequestEvents(c *fiber.Ctx) error {
	id, err := requestID(c)
	if err != nil {
		return err
	}
	evs, err := Engine.Events(c.Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(evs)
}

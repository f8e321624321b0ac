package controllers

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"valet-backend/database"
	"valet-backend/middlewares"
	"valet-backend/models"
	"valet-backend/utils"
)

type applicationDTO struct {
	FullName      string `json:"full_name" validate:"required"`
	Phone         string `json:"phone" validate:"required"`
	Email         string `json:"email" validate:"required,email"`
	Address       string `json:"address"`
	LicenseNumber string `json:"license_number" validate:"required"`
	Photo         string `json:"photo"`
	LicensePhoto  string `json:"license_photo"`
}

type applicationPatchDTO struct {
	FullName      *string `json:"full_name"`
	Phone         *string `json:"phone"`
	Email         *string `json:"email"`
	Address       *string `json:"address"`
	LicenseNumber *string `json:"license_number"`
	Photo         *string `json:"photo"`
	LicensePhoto  *string `json:"license_photo"`
}

func findApplication(c *fiber.Ctx) (*models.DriverApplication, error) {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "invalid application id")
	}
	var app models.DriverApplication
	err = database.DB.First(&app, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fiber.NewError(fiber.StatusNotFound, "application not found")
	}
	if err != nil {
		return nil, err
	}
	return &app, nil
}

// SubmitApplication files a new driver application on behalf of a manager.
func SubmitApplication(c *fiber.Ctx) error {
	var data applicationDTO
	if err := middlewares.BindAndValidate(c, &data); err != nil {
		return err
	}
	utils.NormalizeDTO(&data)

	app := models.DriverApplication{
		FullName:      data.FullName,
		Phone:         data.Phone,
		Email:         data.Email,
		Address:       data.Address,
		LicenseNumber: data.LicenseNumber,
		Photo:         data.Photo,
		LicensePhoto:  data.LicensePhoto,
		Status:        models.ApplicationPending,
		SubmittedBy:   c.Locals("userID").(string),
		SubmittedAt:   time.Now().UTC(),
	}
	if err := database.DB.Create(&app).Error; err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "could not submit application",
			"error":   err.Error(),
		})
	}
	return c.Status(fiber.StatusCreated).JSON(app)
}

// ListApplications returns applications filtered by status (default pending).
func ListApplications(c *fiber.Ctx) error {
	status := c.Query("status", models.ApplicationPending)
	var apps []models.DriverApplication
	if err := database.DB.Where("status = ?", status).Order("submitted_at DESC").Find(&apps).Error; err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"applications": apps,
	})
}

// GetApplication returns a single application for the review screen.
func GetApplication(c *fiber.Ctx) error {
	app, err := findApplication(c)
	if err != nil {
		return err
	}
	return c.JSON(app)
}

// UpdateApplication edits a still-pending application's details.
func UpdateApplication(c *fiber.Ctx) error {
	app, err := findApplication(c)
	if err != nil {
		return err
	}
	if app.Status != models.ApplicationPending {
		return fiber.NewError(fiber.StatusConflict, "application already reviewed")
	}

	var data applicationPatchDTO
	if err := c.BodyParser(&data); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	utils.NormalizePtrDTO(&data)
	updates := utils.UpdatesFromPtrDTO(&data, nil)
	if len(updates) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "no fields to update")
	}

	if err := database.DB.Model(app).Updates(updates).Error; err != nil {
		return err
	}
	return c.JSON(app)
}

// ApproveApplication marks an application approved and creates the driver's
// user account with a temporary password the admin hands over offline.
func ApproveApplication(c *fiber.Ctx) error {
	app, err := findApplication(c)
	if err != nil {
		return err
	}
	if app.Status != models.ApplicationPending {
		return fiber.NewError(fiber.StatusConflict, "application already reviewed")
	}

	var existing models.User
	if err := database.DB.Where("email = ?", app.Email).First(&existing).Error; err == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "a user with this email already exists",
		})
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	tempPassword := uuid.NewString()[:8]
	driver := models.User{
		Name:  app.FullName,
		Email: app.Email,
		Phone: app.Phone,
		Role:  models.RoleDriver,
	}
	driver.SetPassword(tempPassword)

	reviewer := c.Locals("userID").(string)
	now := time.Now().UTC()
	err = database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&driver).Error; err != nil {
			return err
		}
		return tx.Model(app).Updates(map[string]any{
			"status":      models.ApplicationApproved,
			"reviewed_by": reviewer,
			"reviewed_at": now,
		}).Error
	})
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"application":   app,
		"driver":        sessionUser(driver),
		"temp_password": tempPassword,
	})
}

// RejectApplication marks an application rejected. The record is retained.
func RejectApplication(c *fiber.Ctx) error {
	app, err := findApplication(c)
	if err != nil {
		return err
	}
	if app.Status != models.ApplicationPending {
		return fiber.NewError(fiber.StatusConflict, "application already reviewed")
	}

	reviewer := c.Locals("userID").(string)
	now := time.Now().UTC()
	if err := database.DB.Model(app).Updates(map[string]any{
		"status":      models.ApplicationRejected,
		"reviewed_by": reviewer,
		"reviewed_at": now,
	}).Error; err != nil {
		return err
	}
	return c.JSON(app)
}

package controllers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"valet-backend/database"
	"valet-backend/middlewares"
	"valet-backend/models"
	"valet-backend/utils"
)

type vehicleDTO struct {
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName" validate:"required"`
	Brand     string `json:"brand" validate:"required"`
	Model     string `json:"model" validate:"required"`
	Plate     string `json:"plate" validate:"required,plate"`
	Phone     string `json:"phone" validate:"required,mobile"`
}

// defaultVehicles seeds a fresh install so the manage screen is never empty,
// matching the demo data users expect on first login.
func defaultVehicles(userID string) []models.UserVehicle {
	return []models.UserVehicle{
		{UserID: userID, Model: "Honda City", Brand: "Honda", Plate: "MH 14 CD 5678"},
		{UserID: userID, Model: "Toyota Innova", Brand: "Toyota", Plate: "MH 12 AB 1234"},
	}
}

// ListVehicles returns the session user's saved vehicle profiles. On a fresh
// install (no vehicles registered at all) the demo defaults are seeded first.
func ListVehicles(c *fiber.Ctx) error {
	userID, _ := c.Locals("userID").(string)

	var total int64
	if err := database.DB.Model(&models.UserVehicle{}).Count(&total).Error; err != nil {
		return err
	}
	if total == 0 {
		defaults := defaultVehicles(userID)
		if err := database.DB.Create(&defaults).Error; err != nil {
			return err
		}
	}

	var vehicles []models.UserVehicle
	if err := database.DB.
		Where("user_id = ?", userID).
		Order("created_at").
		Find(&vehicles).Error; err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"vehicles": vehicles,
	})
}

// AddVehicle registers a vehicle profile for the session user.
func AddVehicle(c *fiber.Ctx) error {
	var data vehicleDTO
	if err := middlewares.BindAndValidate(c, &data); err != nil {
		return err
	}
	utils.NormalizeDTO(&data)

	userID, _ := c.Locals("userID").(string)
	vehicle := models.UserVehicle{
		UserID:    userID,
		FirstName: data.FirstName,
		LastName:  data.LastName,
		Brand:     data.Brand,
		Model:     data.Model,
		Plate:     strings.ToUpper(data.Plate),
		Phone:     data.Phone,
	}
	if err := database.DB.Create(&vehicle).Error; err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(vehicle)
}

// RemoveVehicle deletes one of the session user's vehicle profiles. Past
// tickets keep their embedded vehicle snapshot.
func RemoveVehicle(c *fiber.Ctx) error {
	userID, _ := c.Locals("userID").(string)

	var vehicle models.UserVehicle
	err := database.DB.
		Where("id = ? AND user_id = ?", c.Params("id"), userID).
		First(&vehicle).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fiber.NewError(fiber.StatusNotFound, "vehicle not found")
	}
	if err != nil {
		return err
	}

	if err := database.DB.Delete(&vehicle).Error; err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"message": "vehicle removed",
	})
}

package controllers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"valet-backend/database"
	"valet-backend/middlewares"
	"valet-backend/models"
	"valet-backend/utils"
)

type signupDTO struct {
	Name            string `json:"name" validate:"required"`
	Email           string `json:"email" validate:"required,email"`
	Phone           string `json:"phone"`
	Password        string `json:"password" validate:"required,min=4"`
	PasswordConfirm string `json:"password_confirm" validate:"required"`
	Role            string `json:"role"`
}

type loginDTO struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func sessionUser(u models.User) fiber.Map {
	return fiber.Map{
		"id":    u.Id,
		"name":  u.Name,
		"email": u.Email,
		"role":  u.Role,
	}
}

// Register creates an account and logs it straight in, mirroring the
// signup-then-redirect flow of the client apps.
func Register(c *fiber.Ctx) error {
	var data signupDTO
	if err := middlewares.BindAndValidate(c, &data); err != nil {
		return err
	}
	utils.NormalizeDTO(&data)

	if data.Password != data.PasswordConfirm {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "passwords do not match",
		})
	}
	if data.Role == "" {
		data.Role = models.RoleUser
	}
	if !models.ValidRole(data.Role) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "unknown role",
		})
	}

	var existing models.User
	if err := database.DB.Where("email = ?", data.Email).First(&existing).Error; err == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "email already exists",
		})
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	user := models.User{
		Name:  data.Name,
		Email: data.Email,
		Phone: data.Phone,
		Role:  data.Role,
	}
	user.SetPassword(data.Password)
	if err := database.DB.Create(&user).Error; err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "could not create user",
			"error":   err.Error(),
		})
	}

	token, err := middlewares.GenerateJWT(user.Id, user.Name, user.Role)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"token": token,
		"user":  sessionUser(user),
	})
}

func Login(c *fiber.Ctx) error {
	var data loginDTO
	if err := middlewares.BindAndValidate(c, &data); err != nil {
		return err
	}

	var user models.User
	err := database.DB.Where("email = ?", data.Email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "invalid credentials",
		})
	}
	if err != nil {
		return err
	}

	if err := user.ComparePassword(data.Password); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "invalid credentials",
		})
	}

	token, err := middlewares.GenerateJWT(user.Id, user.Name, user.Role)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"token": token,
		"user":  sessionUser(user),
	})
}

func Logout(c *fiber.Ctx) error {
	cookie := fiber.Cookie{
		Name:     "jwt",
		Value:    "",
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: true,
	}
	c.Cookie(&cookie)
	return c.JSON(fiber.Map{
		"message": "success",
	})
}

// CurrentUser returns the session user record for route guards.
func CurrentUser(c *fiber.Ctx) error {
	userID, _ := c.Locals("userID").(string)
	var user models.User
	err := database.DB.Where("id = ?", userID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"message": "user no longer exists",
		})
	}
	if err != nil {
		return err
	}
	return c.JSON(sessionUser(user))
}

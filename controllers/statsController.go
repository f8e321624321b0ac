package controllers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"valet-backend/workflow"
)

// FlatFee is the per-ticket valet charge, in rupees. Pricing tiers are out of
// scope; every completed request bills the same amount.
const FlatFee = 150

// Site is a parking location served by the valet operation.
type Site struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

var sites = []Site{
	{Name: "Phoenix Mall", Address: "Lower Parel, Mumbai"},
	{Name: "Inorbit Mall", Address: "Malad West, Mumbai"},
	{Name: "R City Mall", Address: "Ghatkopar, Mumbai"},
}

// GetLocations lists the sites the booking screen offers.
func GetLocations(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"locations": sites,
	})
}

// GetStats derives the manager/admin dashboard counters from the record list.
func GetStats(c *fiber.Ctx) error {
	all, err := Engine.GetAll(c.Context())
	if err != nil {
		return err
	}

	today := time.Now().UTC().Truncate(24 * time.Hour)
	var ticketsToday, completedToday, totalCompleted, active int
	for _, r := range all {
		if r.Timestamp.UTC().Truncate(24*time.Hour) == today {
			ticketsToday++
			if r.Status == workflow.StatusCompleted {
				completedToday++
			}
		}
		if r.Status == workflow.StatusCompleted {
			totalCompleted++
		}
		if !workflow.IsTerminal(r.Status) {
			active++
		}
	}

	return c.JSON(fiber.Map{
		"tickets_today":    ticketsToday,
		"collection_today": completedToday * FlatFee,
		"total_tickets":    len(all),
		"total_collection": totalCompleted * FlatFee,
		"active_parking":   active,
	})
}

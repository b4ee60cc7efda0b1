package controllers

import (
	"rientro/models"
	"rientro/services"
	"rientro/utils"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type TripController struct {
	tripService *services.TripService
}

func NewTripController(tripService *services.TripService) *TripController {
	return &TripController{
		tripService: tripService,
	}
}

// CreateTrip starts monitoring a new return
func (tc *TripController) CreateTrip(c *gin.Context) {
	userID := c.GetString("userID")
	if userID == "" {
		utils.UnauthorizedResponse(c, "User not authenticated")
		return
	}

	var req models.CreateTripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body")
		return
	}

	trip, err := tc.tripService.CreateTrip(c.Request.Context(), userID, req)
	if err != nil {
		logrus.Errorf("Create trip failed: %v", err)
		utils.ServiceErrorResponse(c, err, "Failed to create trip")
		return
	}

	utils.CreatedResponse(c, "Trip created successfully", trip)
}

// GetTrip returns a single trip
func (tc *TripController) GetTrip(c *gin.Context) {
	userID := c.GetString("userID")
	if userID == "" {
		utils.UnauthorizedResponse(c, "User not authenticated")
		return
	}

	trip, err := tc.tripService.GetTrip(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		utils.ServiceErrorResponse(c, err, "Failed to get trip")
		return
	}

	utils.SuccessResponse(c, "Trip retrieved successfully", trip)
}

// GetTrips lists the authenticated user's trips
func (tc *TripController) GetTrips(c *gin.Context) {
	userID := c.GetString("userID")
	if userID == "" {
		utils.UnauthorizedResponse(c, "User not authenticated")
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "20"))

	trips, total, err := tc.tripService.GetUserTrips(c.Request.Context(), userID, page, pageSize)
	if err != nil {
		logrus.Errorf("List trips failed: %v", err)
		utils.ServiceErrorResponse(c, err, "Failed to list trips")
		return
	}

	utils.SuccessResponseWithMeta(c, "Trips retrieved successfully", trips, &models.MetaData{
		Page:     page,
		PageSize: pageSize,
		Total:    total,
	})
}

// CheckIn records a liveness signal from the traveler
func (tc *TripController) CheckIn(c *gin.Context) {
	userID := c.GetString("userID")
	if userID == "" {
		utils.UnauthorizedResponse(c, "User not authenticated")
		return
	}

	var req models.CheckInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body")
		return
	}

	trip, err := tc.tripService.CheckIn(c.Request.Context(), userID, c.Param("id"), req)
	if err != nil {
		logrus.Errorf("Check-in failed: %v", err)
		utils.ServiceErrorResponse(c, err, "Failed to check in")
		return
	}

	utils.SuccessResponse(c, "Check-in recorded", trip)
}

// CompleteTrip marks the trip as safely completed
func (tc *TripController) CompleteTrip(c *gin.Context) {
	userID := c.GetString("userID")
	if userID == "" {
		utils.UnauthorizedResponse(c, "User not authenticated")
		return
	}

	var req models.CompleteTripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body")
		return
	}

	trip, err := tc.tripService.CompleteTrip(c.Request.Context(), userID, c.Param("id"), req)
	if err != nil {
		logrus.Errorf("Complete trip failed: %v", err)
		utils.ServiceErrorResponse(c, err, "Failed to complete trip")
		return
	}

	utils.SuccessResponse(c, "Trip completed", trip)
}

// CancelTrip cancels monitoring without any arrival notification
func (tc *TripController) CancelTrip(c *gin.Context) {
	userID := c.GetString("userID")
	if userID == "" {
		utils.UnauthorizedResponse(c, "User not authenticated")
		return
	}

	trip, err := tc.tripService.CancelTrip(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		logrus.Errorf("Cancel trip failed: %v", err)
		utils.ServiceErrorResponse(c, err, "Failed to cancel trip")
		return
	}

	utils.SuccessResponse(c, "Trip cancelled", trip)
}

// TriggerSOS raises the manual emergency signal
func (tc *TripController) TriggerSOS(c *gin.Context) {
	userID := c.GetString("userID")
	if userID == "" {
		utils.UnauthorizedResponse(c, "User not authenticated")
		return
	}

	var req models.TriggerSOSRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body")
		return
	}

	trip, err := tc.tripService.TriggerSOS(c.Request.Context(), userID, c.Param("id"), req)
	if err != nil {
		logrus.Errorf("Trigger SOS failed: %v", err)
		utils.ServiceErrorResponse(c, err, "Failed to trigger SOS")
		return
	}

	utils.SuccessResponse(c, "SOS triggered", trip)
}

// GetTripNotifications returns the trip's delivery log
func (tc *TripController) GetTripNotifications(c *gin.Context) {
	userID := c.GetString("userID")
	if userID == "" {
		utils.UnauthorizedResponse(c, "User not authenticated")
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "20"))

	records, total, err := tc.tripService.GetTripNotifications(c.Request.Context(), userID, c.Param("id"), page, pageSize)
	if err != nil {
		logrus.Errorf("List trip notifications failed: %v", err)
		utils.ServiceErrorResponse(c, err, "Failed to list notifications")
		return
	}

	utils.SuccessResponseWithMeta(c, "Notifications retrieved successfully", records, &models.MetaData{
		Page:     page,
		PageSize: pageSize,
		Total:    total,
	})
}

package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gitlab.com/maplesense1/dvc.devices_api/src/production/DVC.ApiService/implementation/devices"
	"gitlab.com/maplesense1/dvc.devices_api/src/production/DVC.ApiService/middleware"
	logger "gitlab.com/maplesense1/dvc.devices_api/src/production/DVC.Logger"
	dvcmodels "gitlab.com/maplesense1/dvc.devices_api/src/production/DVC.Models"
)

const (
	msgSaved          = "Saved"
	msgUpdated        = "Updated"
	msgDeleted        = "Deleted"
	msgNoFields       = "No fields to update"
	msgNotUpdatedUse  = "Not updated. Device in-use"
	msgNotDeletedUse  = "Not deleted. Device in-use"
	msgStateUpdatedTo = "Device state updated to: "
)

// DeviceController handles Device management requests
type DeviceController struct {
	service *devices.DeviceService
	logger  *logger.Logger
}

// NewDeviceController creates a new device controller
func NewDeviceController(service *devices.DeviceService, logger *logger.Logger) *DeviceController {
	return &DeviceController{
		service: service,
		logger:  logger.WithComponent("device_controller"),
	}
}

// RegisterRoutes registers the device routes with Gin
func (c *DeviceController) RegisterRoutes(router *gin.Engine) {
	group := router.Group("/devices")
	{
		group.GET("", c.ListDevices)
		group.POST("", c.CreateDevice)
		group.GET("/:id", c.GetDevice)
		group.PUT("/:id", c.UpdateDevice)
		group.PATCH("/:id", c.UpdateDeviceState)
		group.DELETE("/:id", c.DeleteDevice)
	}
}

type CreateDeviceRequest struct {
	Name  string `form:"name" binding:"required"`
	Brand string `form:"brand" binding:"required"`
}

func (c *DeviceController) ListDevices(ctx *gin.Context) {
	var filter devices.ListFilter

	if brand, ok := ctx.GetQuery("brand"); ok {
		filter.Brand = &brand
	}

	if raw, ok := ctx.GetQuery("state"); ok && raw != "" {
		state, err := dvcmodels.ParseState(raw)
		if err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		filter.State = &state
	}

	result, err := c.service.List(ctx, filter)
	if err != nil {
		c.internalError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, result)
}

func (c *DeviceController) CreateDevice(ctx *gin.Context) {
	var req CreateDeviceRequest
	if err := ctx.ShouldBindQuery(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if _, err := c.service.Create(ctx, req.Name, req.Brand); err != nil {
		c.internalError(ctx, err)
		return
	}

	ctx.String(http.StatusCreated, msgSaved)
}

func (c *DeviceController) GetDevice(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}

	device, err := c.service.Get(ctx, id)
	if err != nil {
		c.writeError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, device)
}

// UpdateDevice applies name and brand when present; an empty value still counts
func (c *DeviceController) UpdateDevice(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}

	var name, brand *string
	if v, ok := ctx.GetQuery("name"); ok {
		name = &v
	}
	if v, ok := ctx.GetQuery("brand"); ok {
		brand = &v
	}

	if _, err := c.service.Update(ctx, id, name, brand); err != nil {
		switch {
		case errors.Is(err, devices.ErrNoFieldsToUpdate):
			ctx.String(http.StatusBadRequest, msgNoFields)
		case errors.Is(err, devices.ErrDeviceInUse):
			ctx.String(http.StatusConflict, msgNotUpdatedUse)
		default:
			c.writeError(ctx, err)
		}
		return
	}

	ctx.String(http.StatusOK, msgUpdated)
}

func (c *DeviceController) UpdateDeviceState(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}

	raw, present := ctx.GetQuery("state")
	if !present {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "state is required"})
		return
	}
	state, err := dvcmodels.ParseState(raw)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	device, err := c.service.UpdateState(ctx, id, state)
	if err != nil {
		c.writeError(ctx, err)
		return
	}

	ctx.String(http.StatusOK, msgStateUpdatedTo+device.State.Display())
}

func (c *DeviceController) DeleteDevice(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}

	if err := c.service.Delete(ctx, id); err != nil {
		if errors.Is(err, devices.ErrDeviceInUse) {
			ctx.String(http.StatusConflict, msgNotDeletedUse)
			return
		}
		c.writeError(ctx, err)
		return
	}

	ctx.String(http.StatusOK, msgDeleted)
}

func parseID(ctx *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid device id"})
		return 0, false
	}
	return id, true
}

// writeError maps a missing device to an empty 404, anything else to 500
func (c *DeviceController) writeError(ctx *gin.Context, err error) {
	if errors.Is(err, devices.ErrDeviceNotFound) {
		ctx.Status(http.StatusNotFound)
		return
	}
	c.internalError(ctx, err)
}

func (c *DeviceController) internalError(ctx *gin.Context, err error) {
	log := c.logger
	if id, ok := middleware.GetRequestIDFromGinContext(ctx); ok {
		log = log.WithRequestID(id)
	}
	log.ErrorWithError(err, "Device request failed")
	_ = ctx.Error(err)
	ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

package simulator

import (
	"net/http"

	"github.com/go-logr/logr"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/LeonardoBeccarini/irrigation-console/internal/model"
)

// NewAPI espone le due rotte del firmware: GET /poll e GET /int?cmd=<command>.
func NewAPI(log logr.Logger, ctrl *Controller) *echo.Echo {
	log = log.WithName("api")
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	e.GET("/poll", func(c echo.Context) error {
		return c.JSON(http.StatusOK, ctrl.Snapshot())
	})

	e.GET("/int", func(c echo.Context) error {
		raw := c.QueryParam("cmd")
		cmd, err := model.ParseCommand(raw)
		if err != nil {
			log.V(1).Info("Rejected command", "cmd", raw, "error", err.Error())
			return c.String(http.StatusBadRequest, err.Error())
		}
		if err := ctrl.Apply(cmd); err != nil {
			log.V(1).Info("Command not applied", "cmd", raw, "error", err.Error())
			return c.String(http.StatusBadRequest, err.Error())
		}
		log.V(1).Info("Command applied", "cmd", raw)
		return c.String(http.StatusOK, "OK")
	})

	return e
}

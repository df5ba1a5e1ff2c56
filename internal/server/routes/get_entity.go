package routes

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/moxious/historynet/resolver/internal/server/middleware"
	"github.com/moxious/historynet/resolver/pkg/lookup"
)

// unavailableResponse is the machine-readable shape for an index that was
// never generated, so clients can render "not provisioned" instead of
// "nothing found".
func unavailableResponse(c echo.Context) error {
	return c.JSON(http.StatusServiceUnavailable, map[string]string{
		"error": "entity index not generated",
		"code":  "index_unavailable",
	})
}

func GetEntityHandler(c echo.Context) error {
	type getEntityParams struct {
		ExternalID string `query:"externalId" validate:"omitempty,max=256"`
		Title      string `query:"title" validate:"omitempty,max=512"`
		NodeID     string `query:"nodeId" validate:"omitempty,max=256"`
	}

	params := new(getEntityParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request params"})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request params"})
	}
	if params.ExternalID == "" && params.Title == "" && params.NodeID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "one of externalId, title or nodeId is required",
		})
	}

	svc := c.(*middleware.AppContext).App.Lookup

	res, err := svc.Resolve(c.Request().Context(), lookup.Query{
		ExternalID: params.ExternalID,
		Title:      params.Title,
		NodeID:     params.NodeID,
	})
	if errors.Is(err, lookup.ErrUnavailable) {
		return unavailableResponse(c)
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}

	return c.JSON(http.StatusOK, res)
}

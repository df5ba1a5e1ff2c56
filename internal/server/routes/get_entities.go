package routes

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/moxious/historynet/resolver/internal/server/middleware"
	"github.com/moxious/historynet/resolver/pkg/lookup"
)

func GetEntitiesHandler(c echo.Context) error {
	type getEntitiesParams struct {
		ExternalIDs string `query:"externalIds" validate:"omitempty,max=8192"`
		Titles      string `query:"titles" validate:"omitempty,max=8192"`
		NodeIDs     string `query:"nodeIds" validate:"omitempty,max=8192"`
	}

	params := new(getEntitiesParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request params"})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request params"})
	}

	query := lookup.BatchQuery{
		ExternalIDs: splitList(params.ExternalIDs),
		Titles:      splitList(params.Titles),
		NodeIDs:     splitList(params.NodeIDs),
	}
	if len(query.ExternalIDs) == 0 && len(query.Titles) == 0 && len(query.NodeIDs) == 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "one of externalIds, titles or nodeIds is required",
		})
	}

	svc := c.(*middleware.AppContext).App.Lookup

	res, err := svc.ResolveBatch(c.Request().Context(), query)
	if errors.Is(err, lookup.ErrUnavailable) {
		return unavailableResponse(c)
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}

	return c.JSON(http.StatusOK, res)
}

// splitList parses a comma-separated identifier list, dropping empty
// segments so trailing commas are harmless.
func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

package handler

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/openmeet/openmeet-api/internal/core/domain"
)

// Times travel as RFC3339 strings and are stored as epoch milliseconds.
type createEventRequest struct {
	GroupID     string  `json:"group_id"    validate:"required,uuid"`
	Title       string  `json:"title"       validate:"required,max=200"`
	Description string  `json:"description" validate:"max=5000"`
	StartTime   string  `json:"start_time"  validate:"required,datetime=2006-01-02T15:04:05Z07:00"`
	EndTime     string  `json:"end_time"    validate:"required,datetime=2006-01-02T15:04:05Z07:00"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	Location    string  `json:"location"    validate:"max=500"`
}

// toNewEvent converts a validated request. Only cross-field rules that the
// validator cannot express on strings are checked here.
func toNewEvent(r createEventRequest) (uuid.UUID, domain.NewEvent, error) {
	groupID, err := uuid.Parse(r.GroupID)
	if err != nil {
		return uuid.Nil, domain.NewEvent{}, echo.NewHTTPError(http.StatusBadRequest, "group_id must be a UUID")
	}
	start, err := time.Parse(time.RFC3339, r.StartTime)
	if err != nil {
		return uuid.Nil, domain.NewEvent{}, echo.NewHTTPError(http.StatusBadRequest, "start_time must be an RFC3339 timestamp")
	}
	end, err := time.Parse(time.RFC3339, r.EndTime)
	if err != nil {
		return uuid.Nil, domain.NewEvent{}, echo.NewHTTPError(http.StatusBadRequest, "end_time must be an RFC3339 timestamp")
	}
	if start.UnixMilli() == 0 {
		return uuid.Nil, domain.NewEvent{}, echo.NewHTTPError(http.StatusBadRequest, "start_time must not be the epoch")
	}
	if end.Before(start) {
		return uuid.Nil, domain.NewEvent{}, echo.NewHTTPError(http.StatusBadRequest, "end_time must not be before start_time")
	}

	return groupID, domain.NewEvent{
		Title:       r.Title,
		Description: r.Description,
		StartTime:   start.UnixMilli(),
		EndTime:     end.UnixMilli(),
		Lat:         r.Lat,
		Lon:         r.Lon,
		Location:    r.Location,
	}, nil
}

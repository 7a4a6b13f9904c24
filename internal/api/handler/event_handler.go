package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/openmeet/openmeet-api/internal/core/domain"
	"github.com/openmeet/openmeet-api/internal/core/ports"
	"github.com/openmeet/openmeet-api/pkg/logger"
)

// EventHandler serves group events. Single events are addressed by their
// full key: group, start time in epoch milliseconds, and event id.
type EventHandler struct {
	events ports.EventRepository
}

func NewEventHandler(events ports.EventRepository) *EventHandler {
	return &EventHandler{events: events}
}

// Create handles POST /events.
//
// @Summary      Create an event
// @Tags         events
// @Accept       json
// @Produce      json
// @Param        body  body      createEventRequest  true  "Event"
// @Success      201   {object}  domain.Event
// @Failure      400   {object}  errorResponse
// @Failure      503   {object}  errorResponse
// @Router       /events [post]
func (h *EventHandler) Create(c echo.Context) error {
	var req createEventRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	groupID, fields, err := toNewEvent(req)
	if err != nil {
		return err
	}

	event, err := h.events.Create(c.Request().Context(), groupID, fields)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, event)
}

// ListByGroup handles GET /groups/:group_id/events, ordered by start time.
//
// @Summary      List a group's events
// @Tags         events
// @Produce      json
// @Param        group_id  path      string  true  "Group id"
// @Success      200       {array}   domain.Event
// @Failure      400       {object}  errorResponse
// @Router       /groups/{group_id}/events [get]
func (h *EventHandler) ListByGroup(c echo.Context) error {
	groupID, err := pathUUID(c, "group_id")
	if err != nil {
		return err
	}

	events, err := h.events.ListByGroup(c.Request().Context(), groupID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, events)
}

// Get handles GET /groups/:group_id/events/:start_time/:event_id.
//
// @Summary      Get an event
// @Tags         events
// @Produce      json
// @Param        group_id    path      string  true  "Group id"
// @Param        start_time  path      int     true  "Start time, epoch milliseconds"
// @Param        event_id    path      string  true  "Event id"
// @Success      200         {object}  domain.Event
// @Failure      404         {object}  errorResponse
// @Router       /groups/{group_id}/events/{start_time}/{event_id} [get]
func (h *EventHandler) Get(c echo.Context) error {
	key, err := eventKey(c)
	if err != nil {
		return err
	}

	event, err := h.events.Get(c.Request().Context(), key)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, event)
}

// Delete handles DELETE /groups/:group_id/events/:start_time/:event_id.
// Deleting an event that does not exist is a 404.
//
// @Summary      Delete an event
// @Tags         events
// @Produce      json
// @Security     BearerAuth
// @Param        group_id    path      string  true  "Group id"
// @Param        start_time  path      int     true  "Start time, epoch milliseconds"
// @Param        event_id    path      string  true  "Event id"
// @Success      204
// @Failure      404         {object}  errorResponse
// @Router       /groups/{group_id}/events/{start_time}/{event_id} [delete]
func (h *EventHandler) Delete(c echo.Context) error {
	actor, err := ctxSubject(c)
	if err != nil {
		return err
	}
	key, err := eventKey(c)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	if err := h.events.Delete(ctx, key); err != nil {
		return err
	}

	logger.FromContext(ctx).Info().
		Stringer("group_id", key.GroupID).
		Stringer("event_id", key.EventID).
		Stringer("actor", actor).
		Msg("event deleted")
	return c.NoContent(http.StatusNoContent)
}

func eventKey(c echo.Context) (domain.EventKey, error) {
	groupID, err := pathUUID(c, "group_id")
	if err != nil {
		return domain.EventKey{}, err
	}
	eventID, err := pathUUID(c, "event_id")
	if err != nil {
		return domain.EventKey{}, err
	}
	start, err := strconv.ParseInt(c.Param("start_time"), 10, 64)
	if err != nil {
		return domain.EventKey{}, echo.NewHTTPError(http.StatusBadRequest, "start_time must be epoch milliseconds")
	}
	return domain.EventKey{GroupID: groupID, StartTime: start, EventID: eventID}, nil
}

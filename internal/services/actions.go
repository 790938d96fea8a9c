package services

import (
	"context"
	"log"
	"strings"

	"healthbot/internal/models"
)

// Action tags attached by the dialog workspace. Dispatch is exact-string
// match; anything unrecognized falls through to the generic handler.
const (
	ActionFindDoctorLocation = "findDoctorLocation"
)

const doctorSearchRadiusMeters = 5000

// ActionHandler builds the reply text for one engine response.
// Handlers are total: malformed or absent entity data must still yield
// a graceful reply, never fail the turn.
type ActionHandler func(ctx context.Context, resp *models.EngineResponse) string

// ActionRegistry maps action tags to reply handlers. Registration
// happens once at startup; there is no runtime mutation, so lookups
// need no locking.
type ActionRegistry struct {
	handlers map[string]ActionHandler
	fallback ActionHandler
}

// NewActionRegistry creates a registry with the generic handler as the
// default arm.
func NewActionRegistry() *ActionRegistry {
	return &ActionRegistry{
		handlers: make(map[string]ActionHandler),
		fallback: GenericHandler,
	}
}

// Register binds a handler to an action tag
func (r *ActionRegistry) Register(action string, handler ActionHandler) {
	r.handlers[action] = handler
}

// Dispatch runs the handler registered for the response's action tag,
// or the default handler if the tag is unknown or absent.
func (r *ActionRegistry) Dispatch(ctx context.Context, resp *models.EngineResponse) string {
	action := ""
	if resp.Context != nil {
		action = resp.Context.Action
	}
	if handler, ok := r.handlers[action]; ok {
		return handler(ctx, resp)
	}
	return r.fallback(ctx, resp)
}

// GenericHandler joins the reply lines configured in the dialog
// workspace with newlines. An empty output list yields an empty reply.
func GenericHandler(_ context.Context, resp *models.EngineResponse) string {
	return strings.Join(resp.Output.Text, "\n")
}

// NewFindDoctorLocationHandler returns the handler for the
// findDoctorLocation action: look up doctors near the location the
// engine recognized and list them. All failures resolve to an apology
// so the turn itself never degrades.
func NewFindDoctorLocationHandler(searcher VenueSearcher) ActionHandler {
	return func(ctx context.Context, resp *models.EngineResponse) string {
		location := firstEntityValue(resp.Entities, "sys-location")
		specialty := firstEntityValue(resp.Entities, "specialty")

		query := "Doctor"
		if specialty != "" {
			query = specialty + " Doctor"
		}

		venues, err := searcher.Search(ctx, query, location, doctorSearchRadiusMeters)
		if err != nil {
			log.Printf("⚠️  Venue search failed (query=%q near=%q): %v", query, location, err)
			return "Sorry, I couldn't find any doctors near you."
		}

		var reply strings.Builder
		reply.WriteString("Here is what I found:\n")
		for _, venue := range venues {
			reply.WriteString("- ")
			reply.WriteString(venue.Name)
			reply.WriteString("\n")
		}
		return reply.String()
	}
}

// firstEntityValue returns the value of the first entity with the given
// type, or "" if none was recognized.
func firstEntityValue(entities []models.Entity, entityType string) string {
	for _, entity := range entities {
		if entity.Entity == entityType {
			return entity.Value
		}
	}
	return ""
}

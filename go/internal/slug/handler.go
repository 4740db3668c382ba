package slug

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"
)

const maxAttempts = 50

// LiveRooms reports whether a room name is currently in use.
type LiveRooms interface {
	Has(roomName string) bool
}

// Handler serves GET /api/v1/slug: a fresh room slug that does not collide
// with any live room. Gives up with 429 when no free slug turns up within
// the attempt budget.
func Handler(rooms LiveRooms) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		for attempt := 0; attempt < maxAttempts; attempt++ {
			s, err := Generate()
			if err != nil {
				log.Error().Err(err).Msg("slug generation failed")
				w.WriteHeader(http.StatusInternalServerError)
				json.NewEncoder(w).Encode(map[string]string{"message": "failed to generate slug"})
				return
			}
			if rooms != nil && rooms.Has(s) {
				continue
			}
			json.NewEncoder(w).Encode(map[string]string{"slug": s})
			return
		}

		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]string{"message": "no available slugs found"})
	}
}

package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/agendavel/agendavel-api/internal/directory"
)

func listProvidersHandler(svc DirectoryService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		filter := directory.ListProvidersFilter{
			Status: directory.AccountStatus(q.Get("status")),
			Area:   q.Get("area"),
			Search: q.Get("search"),
		}
		if raw := q.Get("limit"); raw != "" {
			limit, err := strconv.Atoi(raw)
			if err != nil || limit < 1 {
				writeError(w, http.StatusBadRequest, "invalid_limit", "limit must be a positive integer")
				return
			}
			filter.Limit = limit
		}

		providers, err := svc.ListProviders(r.Context(), filter)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{"providers": providers})
	}
}

// availabilityHandler serves the open slots for a provider on a given day.
// Rendered payloads are cached per provider and date; any booking state
// change for that day invalidates the entry.
func availabilityHandler(svc SchedulingService, cache SlotResponseCache, log zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		providerID, ok := parseIDParam(w, r)
		if !ok {
			return
		}

		rawDate := r.URL.Query().Get("date")
		date, err := time.Parse("2006-01-02", rawDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "date must be in YYYY-MM-DD format")
			return
		}

		if cache != nil {
			if payload, hit, err := cache.Get(r.Context(), providerID, rawDate); err != nil {
				log.Warn().Err(err).Msg("availability cache read failed")
			} else if hit {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusOK)
				_, _ = w.Write(payload)
				return
			}
		}

		slots, err := svc.AvailableSlots(r.Context(), providerID, date)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		formatted := make([]string, 0, len(slots))
		for _, slot := range slots {
			formatted = append(formatted, slot.Format("15:04"))
		}

		resp := AvailabilityResponse{ProviderID: providerID, Date: rawDate, Slots: formatted}

		if cache != nil {
			if payload, err := encodeForCache(resp); err == nil {
				if err := cache.Set(r.Context(), providerID, rawDate, payload); err != nil {
					log.Warn().Err(err).Msg("availability cache write failed")
				}
			}
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func providerReviewsHandler(svc SchedulingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, _ := GetPrincipal(r.Context())

		providerID, ok := parseIDParam(w, r)
		if !ok {
			return
		}

		if p.Role != directory.RoleAdmin && p.UserID != providerID {
			writeError(w, http.StatusForbidden, "not_owner", "only the provider or an admin can read these reviews")
			return
		}

		reviews, stats, err := svc.ProviderReviews(r.Context(), providerID)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"reviews": reviews,
			"average": stats.Average,
			"total":   stats.Total,
		})
	}
}

func approveProviderHandler(svc DirectoryService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, _ := GetPrincipal(r.Context())

		providerID, ok := parseIDParam(w, r)
		if !ok {
			return
		}

		req := decodeOptionalReason(w, r)
		if req == nil {
			return
		}

		if err := svc.ApproveProvider(r.Context(), providerID, p.UserID, req.Reason); err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"status": string(directory.StatusActive)})
	}
}

func blockProviderHandler(svc DirectoryService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, _ := GetPrincipal(r.Context())

		providerID, ok := parseIDParam(w, r)
		if !ok {
			return
		}

		req := decodeOptionalReason(w, r)
		if req == nil {
			return
		}

		if err := svc.BlockProvider(r.Context(), providerID, p.UserID, req.Reason); err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"status": string(directory.StatusBlocked)})
	}
}

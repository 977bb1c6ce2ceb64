package api

import (
	"net/http"
)

func listNotificationsHandler(store NotificationStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, _ := GetPrincipal(r.Context())

		unreadOnly := r.URL.Query().Get("unread") == "true"

		items, err := store.ListByRecipient(r.Context(), p.UserID, unreadOnly)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{"notifications": items})
	}
}

func markNotificationReadHandler(store NotificationStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, _ := GetPrincipal(r.Context())

		id, ok := parseIDParam(w, r)
		if !ok {
			return
		}

		if err := store.MarkRead(r.Context(), id, p.UserID); err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"status": "read"})
	}
}

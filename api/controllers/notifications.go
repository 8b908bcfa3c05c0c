package controllers

import (
	"net/http"

	"github.com/orgolab/labstock-backend/api/responses"
	"github.com/orgolab/labstock-backend/api/validators"
	"github.com/orgolab/labstock-backend/internal/notifications"
	"github.com/orgolab/labstock-backend/pkg/logger"
)

// ListOrderNotifications returns products currently flagged for reordering.
func ListOrderNotifications(svc *notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := svc.ListOrderNotifications(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		views := make([]orderNotificationView, 0, len(rows))
		for _, row := range rows {
			views = append(views, newOrderNotificationView(row))
		}
		responses.WriteSuccess(w, views)
	}
}

// ListExpiryNotifications returns stock units flagged as expiring.
func ListExpiryNotifications(svc *notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := svc.ListExpiryNotifications(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		views := make([]expiryNotificationView, 0, len(rows))
		for _, row := range rows {
			views = append(views, newExpiryNotificationView(row))
		}
		responses.WriteSuccess(w, views)
	}
}

// DismissExpiryNotification clears the expiry flag on a stock unit.
func DismissExpiryNotification(svc *notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stockItemID, err := validators.UUIDParam(r, "stockItemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.DismissExpiryNotification(r.Context(), stockItemID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "dismissed"})
	}
}

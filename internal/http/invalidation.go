package http

import (
	"log/slog"

	"welth/internal/amqp"
	"welth/internal/cache"
)

// HandleStaleViews drops cached views named by a stale-view message from
// another instance. Wired as the AMQP consumer callback.
func (s *Server) HandleStaleViews(msg *amqp.StaleViewMessage) error {
	dropped := 0
	for _, view := range msg.Views {
		switch view {
		case amqp.ViewDashboard:
			s.views.Delete(cache.DashboardKey(msg.UserID))
			s.views.Delete(cache.BudgetKey(msg.UserID))
			dropped++
		case amqp.ViewAccount:
			for _, accountID := range msg.AccountIDs {
				s.views.Delete(cache.AccountKey(msg.UserID, accountID))
				dropped++
			}
		default:
			slog.Warn("Unknown stale view", "view", view, "user_id", msg.UserID)
		}
	}
	slog.Debug("Applied stale view message", "user_id", msg.UserID, "dropped", dropped)
	return nil
}

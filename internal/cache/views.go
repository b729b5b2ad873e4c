package cache

// Key builders for the per-user view cache. Keys nest under "user:<id>:" so
// one DeletePrefix call can drop everything a user sees.

func userPrefix(userID string) string {
	return "user:" + userID + ":"
}

// DashboardKey caches the dashboard summary view.
func DashboardKey(userID string) string {
	return userPrefix(userID) + "dashboard"
}

// AccountKey caches one account's detail view.
func AccountKey(userID, accountID string) string {
	return userPrefix(userID) + "account:" + accountID
}

// BudgetKey caches the budget status view.
func BudgetKey(userID string) string {
	return userPrefix(userID) + "budget"
}

// InvalidateUser drops every cached view belonging to the user.
func InvalidateUser[T any](c Cache[T], userID string) int {
	return c.DeletePrefix(userPrefix(userID))
}

package core

// FallbackExpenseCategory is assigned when an extracted or submitted
// category is absent or not part of the taxonomy.
const FallbackExpenseCategory = "other-expense"

// Fixed category taxonomy. Transactions may carry any of these tags;
// reporting groups by them.
var (
	IncomeCategories = []string{
		"salary",
		"freelance",
		"investments",
		"business",
		"rental",
		"other-income",
	}

	ExpenseCategories = []string{
		"housing",
		"transportation",
		"groceries",
		"utilities",
		"entertainment",
		"food",
		"shopping",
		"healthcare",
		"education",
		"personal",
		"travel",
		"insurance",
		"gifts",
		"bills",
		FallbackExpenseCategory,
	}
)

var knownCategories = func() map[string]struct{} {
	m := make(map[string]struct{}, len(IncomeCategories)+len(ExpenseCategories))
	for _, c := range IncomeCategories {
		m[c] = struct{}{}
	}
	for _, c := range ExpenseCategories {
		m[c] = struct{}{}
	}
	return m
}()

// KnownCategory reports whether name belongs to the taxonomy.
func KnownCategory(name string) bool {
	_, ok := knownCategories[name]
	return ok
}

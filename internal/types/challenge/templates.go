package challenge

// Templates is the canonical catalog of built-in challenges.
// Keep IDs stable because clients store them.
func Templates() []Template {
	return []Template{
		{
			ID:          "monk_mode_7",
			Title:       "Monk Mode",
			Description: "Seven days of total discipline. No revenge trades, no unjournaled entries.",
			TotalDays:   7,
			Theme:       "monk",
			ThemeColor:  "#8B5CF6",
			Rules: []string{
				"Meditate before the open",
				"Maximum 3 trades per day",
				"Every trade gets a real journal entry",
			},
			Tasks: []TaskSpec{
				{Label: "Meditate before the open", VerificationType: VerifyManual},
				{Label: "Take 3 trades or fewer", VerificationType: VerifyMaxTrades, Threshold: 3},
				{Label: "Journal every trade", VerificationType: VerifyJournal},
			},
		},
		{
			ID:          "capital_guard_14",
			Title:       "Capital Guardian",
			Description: "Two weeks of hard daily loss limits. Survive first, profit second.",
			TotalDays:   14,
			Theme:       "guardian",
			ThemeColor:  "#10B981",
			Rules: []string{
				"Never lose more than $500 in a day",
				"Review the day before closing the terminal",
			},
			Tasks: []TaskSpec{
				{Label: "Stay above -$500 on the day", VerificationType: VerifyMaxLoss, Threshold: 500},
				{Label: "End-of-day review", VerificationType: VerifyManual},
			},
		},
		{
			ID:          "iron_journal_30",
			Title:       "Iron Journal",
			Description: "Thirty days where no trade goes unexamined.",
			TotalDays:   30,
			Theme:       "journal",
			ThemeColor:  "#F59E0B",
			Rules: []string{
				"Journal every trade with a real thesis",
				"Maximum 5 trades per day",
				"Daily loss capped at $1000",
			},
			Tasks: []TaskSpec{
				{Label: "Journal every trade", VerificationType: VerifyJournal},
				{Label: "Take 5 trades or fewer", VerificationType: VerifyMaxTrades, Threshold: 5},
				{Label: "Stay above -$1000 on the day", VerificationType: VerifyMaxLoss, Threshold: 1000},
			},
		},
	}
}

// TemplateByID looks up a built-in template. The bool is false when the ID is
// unknown.
func TemplateByID(id string) (Template, bool) {
	for _, t := range Templates() {
		if t.ID == id {
			return t, true
		}
	}
	return Template{}, false
}

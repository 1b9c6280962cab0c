package drugs

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/bobmcallan/agentdrugs/internal/models"
)

// FormatCatalog renders the list_drugs output.
func FormatCatalog(drugs []*models.Drug) string {
	parts := make([]string, len(drugs))
	for i, d := range drugs {
		parts[i] = fmt.Sprintf("**%s** (%d min)\n%s", d.Name, d.DefaultDurationMinutes, d.Prompt)
	}
	return "Available drugs:\n\n" + strings.Join(parts, "\n\n")
}

// FormatTaken renders the take_drug success output.
func FormatTaken(res *TakeResult) string {
	return fmt.Sprintf("Successfully took %s! Active for %d minutes.\n\nEffect: %s",
		res.Drug.Name, res.DurationMinutes, res.Drug.Prompt)
}

// FormatNotFound renders the take_drug output for an unknown name.
func FormatNotFound(name string) string {
	return fmt.Sprintf("Drug '%s' not found. Use list_drugs() to see available options.", name)
}

// FormatActive renders the active_drugs output. Remaining time is rounded
// up to whole minutes.
func FormatActive(drugs []models.ActiveDrug, now time.Time) string {
	if len(drugs) == 0 {
		return "No active drugs."
	}
	parts := make([]string, len(drugs))
	for i, d := range drugs {
		parts[i] = fmt.Sprintf("**%s** - %d min remaining\n%s", d.Name, RemainingMinutes(d, now), d.Prompt)
	}
	return "Active drugs:\n\n" + strings.Join(parts, "\n\n")
}

// RemainingMinutes is the time left on d, rounded up.
func RemainingMinutes(d models.ActiveDrug, now time.Time) int {
	return int(math.Ceil(d.ExpiresAt.Sub(now).Minutes()))
}

// FormatDetox renders the detox output for the cleared names.
func FormatDetox(names []string) string {
	if len(names) == 0 {
		return "✨ No active drugs to clear. You're already clean!"
	}
	var b strings.Builder
	b.WriteString("✅ Successfully cleared all active drugs!\n\n**Removed drugs:**\n")
	for i, name := range names {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString("- " + name)
	}
	b.WriteString("\n\nYou are now operating with standard behavior. All behavioral modifications have been removed from this session and future sessions.")
	return b.String()
}

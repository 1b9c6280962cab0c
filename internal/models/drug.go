package models

import "time"

// Drug is a catalog entry: a named behavioral prompt with a default duration.
type Drug struct {
	Name                   string `json:"name" toml:"name"`
	Prompt                 string `json:"prompt" toml:"prompt"`
	DefaultDurationMinutes int    `json:"default_duration_minutes" toml:"default_duration_minutes"`
}

// ActiveDrug is a drug currently in effect for an agent.
type ActiveDrug struct {
	Name      string    `json:"name"`
	Prompt    string    `json:"prompt"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Active reports whether the entry is still in effect at the given instant.
func (d ActiveDrug) Active(now time.Time) bool {
	return d.ExpiresAt.After(now)
}

// ActiveDrugSet is the per-agent document holding active entries, unique by name.
type ActiveDrugSet struct {
	UserID    string       `json:"user_id"`
	AgentID   string       `json:"agent_id"`
	Drugs     []ActiveDrug `json:"drugs"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// UsageEvent records one take of a drug.
type UsageEvent struct {
	UserID          string    `json:"user_id"`
	AgentID         string    `json:"agent_id"`
	DrugName        string    `json:"drug_name"`
	DurationMinutes int       `json:"duration_minutes"`
	TakenAt         time.Time `json:"taken_at"`
}

// FilterActive returns the entries still active at now, preserving order.
func FilterActive(drugs []ActiveDrug, now time.Time) []ActiveDrug {
	active := make([]ActiveDrug, 0, len(drugs))
	for _, d := range drugs {
		if d.Active(now) {
			active = append(active, d)
		}
	}
	return active
}

// ReplaceDrug returns drugs with any entry named like entry removed and entry appended.
func ReplaceDrug(drugs []ActiveDrug, entry ActiveDrug) []ActiveDrug {
	out := make([]ActiveDrug, 0, len(drugs)+1)
	for _, d := range drugs {
		if d.Name != entry.Name {
			out = append(out, d)
		}
	}
	return append(out, entry)
}

// Package signals extracts structured hints from a raw question to
// bias the retrieval prompt.
package signals

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Fuel is the inferred fuel type.
type Fuel string

const (
	FuelGas Fuel = "gas"
	FuelE85 Fuel = "e85"
)

// Signals is the per-query record extracted from the question text.
// HP is 0 when no plausible horsepower figure was found.
type Signals struct {
	HP         int
	Fuel       Fuel
	Boosted    bool
	DualTanks  bool
	Returnless bool
}

var (
	hpRegex  = regexp.MustCompile(`(?i)(\d{2,4})\s?hp\b`)
	intRegex = regexp.MustCompile(`\d{2,4}`)
)

func containsAny(s string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}

var boostedTerms = []string{"boost", "turbo", "supercharg", "blower"}
var e85Terms = []string{"e85", "ethanol", "flex fuel"}
var dualTankTerms = []string{"dual tank", "saddle tank", "selector valve", "tank switch"}
var returnlessTerms = []string{"returnless", "corvette regulator", "in-rail regulator"}

// Extract parses signals out of the question. It never fails; a
// question with nothing recognizable yields the zero-HP gas record.
func Extract(question string) Signals {
	lower := strings.ToLower(question)

	s := Signals{Fuel: FuelGas}
	if containsAny(lower, e85Terms) {
		s.Fuel = FuelE85
	}
	s.Boosted = containsAny(lower, boostedTerms)
	s.DualTanks = containsAny(lower, dualTankTerms)
	s.Returnless = containsAny(lower, returnlessTerms)
	s.HP = extractHP(question)
	return s
}

// extractHP takes the maximum of explicit "<n>hp" figures; failing
// that, the maximum bare integer in [60, 1500] that does not look like
// a 19xx model year.
func extractHP(question string) int {
	best := 0
	for _, m := range hpRegex.FindAllStringSubmatch(question, -1) {
		if n, err := strconv.Atoi(m[1]); err == nil && n > best {
			best = n
		}
	}
	if best > 0 {
		return best
	}

	for _, m := range intRegex.FindAllString(question, -1) {
		n, err := strconv.Atoi(m)
		if err != nil || n < 60 || n > 1500 {
			continue
		}
		if len(m) == 4 && strings.Contains(m, "19") {
			continue // plausible model year
		}
		if n > best {
			best = n
		}
	}
	return best
}

// Addendum renders the signals as a short natural-language paragraph
// appended to the retrieval prompt.
func (s Signals) Addendum() string {
	var b strings.Builder

	if s.HP > 0 {
		fmt.Fprintf(&b, "Approx target horsepower: ~%d hp; include ~30%% headroom.", s.HP)
	} else {
		b.WriteString("No explicit power target; assume mild street build (~350–450 hp).")
	}

	if s.Fuel == FuelE85 {
		b.WriteString(" Fuel is E85: size for roughly 30% more flow than gasoline.")
	} else {
		b.WriteString(" Fuel is gasoline.")
	}
	if s.Boosted {
		b.WriteString(" The engine is boosted: account for pressure rise with boost.")
	}
	if s.DualTanks {
		b.WriteString(" Vehicle has dual tanks: cover selector-valve and tank-switch plumbing.")
	}
	if s.Returnless {
		b.WriteString(" System is returnless: prefer in-rail or filter-regulator solutions.")
	}

	return b.String()
}

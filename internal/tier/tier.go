package tier

import "strings"

// Tier grades an Arbitration hour by expected spawn quality. The
// numeric order follows desirability so tiers compare directly with
// >. Unknown sits below everything and means "could not classify",
// which is not the same thing as F.
type Tier int

const (
	Unknown Tier = iota
	F
	D
	C
	B
	A
	S
)

func (t Tier) String() string {
	switch t {
	case S:
		return "S"
	case A:
		return "A"
	case B:
		return "B"
	case C:
		return "C"
	case D:
		return "D"
	case F:
		return "F"
	default:
		return "Unknown"
	}
}

func (t Tier) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.String() + `"`), nil
}

// Parse maps a single letter grade to a Tier. Used for the optional
// "(X tier)" hints embedded in upstream text.
func Parse(s string) (Tier, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "S":
		return S, true
	case "A":
		return A, true
	case "B":
		return B, true
	case "C":
		return C, true
	case "D":
		return D, true
	case "F":
		return F, true
	}
	return Unknown, false
}

// Curated per-map tables, checked best tier first. Entries match as
// substrings of the upper-cased map label, which tolerates the minor
// naming differences between the feed and the node metadata ("Casta"
// vs "Casta (Ceres)").
var tables = []struct {
	tier Tier
	maps []string
}{
	{S, []string{"AKKAD", "HYDRON", "SECHURA", "HELENE", "CASTA", "SANGERU"}},
	{A, []string{"ODIN", "CINXIA", "SENECA", "PALUS", "SPEAR", "BEREHYNIA"}},
	{B, []string{"LITH", "KADESH", "IO", "STOFLER", "XINI", "GAIA"}},
	{C, []string{"OLYMPUS", "MITHRA", "PAIMON", "UKKO", "TIKAL"}},
	{D, []string{"TESSERA", "CERBERUS", "OUTER TERMINUS", "NAAMAH", "STEPHANO"}},
}

// Classify grades a map by the curated tables, falling back to the
// mission type when no table matches. It is total and never returns
// Unknown; callers reserve Unknown for the case where the mission
// type itself could not be resolved.
func Classify(missionType, mapLabel string) Tier {
	label := strings.ToUpper(mapLabel)
	for _, table := range tables {
		for _, m := range table.maps {
			if strings.Contains(label, m) {
				return table.tier
			}
		}
	}

	switch strings.ToUpper(missionType) {
	case "INTERCEPTION", "DEFENSE":
		return B
	case "SURVIVAL", "DISRUPTION", "EXCAVATION":
		return C
	default:
		return F
	}
}

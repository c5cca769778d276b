package recognize

import (
	"encoding/json"
	"fmt"

	"planthealth/pkg/domain"
)

// ParseError reports a malformed plant candidate in the recognition
// payload. A single bad candidate aborts the whole batch.
type ParseError struct {
	Index  int
	Field  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("plant candidate %d: field %q %s", e.Index, e.Field, e.Reason)
}

type altName struct {
	Name string `json:"name"`
}

type candidate struct {
	PlantName   *string    `json:"plant_name"`
	Probability *float64   `json:"probability"`
	AltNames    *[]altName `json:"alt_names"`
}

// Normalize parses the recognition function response, a JSON array of
// plant candidates, into DataPlant records. An empty array yields an
// empty result. Missing fields or out-of-range probabilities return a
// ParseError naming the offending field.
func Normalize(payload []byte) ([]domain.DataPlant, error) {
	var candidates []candidate
	if err := json.Unmarshal(payload, &candidates); err != nil {
		return nil, fmt.Errorf("decode recognition payload: %w", err)
	}
	plants := make([]domain.DataPlant, 0, len(candidates))
	for i, c := range candidates {
		if c.PlantName == nil {
			return nil, &ParseError{Index: i, Field: "plant_name", Reason: "missing"}
		}
		if c.Probability == nil {
			return nil, &ParseError{Index: i, Field: "probability", Reason: "missing"}
		}
		if *c.Probability < 0 || *c.Probability > 1 {
			return nil, &ParseError{Index: i, Field: "probability", Reason: "out of range"}
		}
		if c.AltNames == nil {
			return nil, &ParseError{Index: i, Field: "alt_names", Reason: "missing"}
		}
		names := make([]string, 0, len(*c.AltNames))
		for _, alt := range *c.AltNames {
			names = append(names, alt.Name)
		}
		plants = append(plants, domain.DataPlant{
			Name:        *c.PlantName,
			Probability: *c.Probability,
			AltNames:    names,
		})
	}
	return plants, nil
}

package validation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bluecarbon/registry/internal/models"
)

// AgeClasses accepted for a planted species
var AgeClasses = []string{"seedling", "sapling", "juvenile", "mature"}

// looseNumber accepts a JSON number or a numeric string, as browsers send both
type looseNumber string

func (n *looseNumber) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*n = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*n = looseNumber(s)
		return nil
	}
	*n = looseNumber(data)
	return nil
}

type speciesEntry struct {
	Name            string      `json:"name"`
	Count           looseNumber `json:"count"`
	Density         looseNumber `json:"density"`
	SurvivalPercent looseNumber `json:"survivalPercent"`
	AgeClass        string      `json:"ageClass"`
}

func decodeEntries(raw string) ([]speciesEntry, error) {
	var entries []speciesEntry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, fmt.Errorf("failed to decode species: %w", err)
	}
	return entries, nil
}

func (v *Validator) checkSpecies(in Input, errs *Errors) {
	raw := in.Get("species")
	if raw == "" {
		errs.Add("species", "Add at least one species.")
		return
	}
	entries, err := decodeEntries(raw)
	if err != nil {
		errs.Add("species", "Species list is malformed.")
		return
	}
	if len(entries) == 0 {
		errs.Add("species", "Add at least one species.")
		return
	}

	for i, e := range entries {
		prefix := fmt.Sprintf("species[%d].", i)
		rules := []struct {
			key   string
			value string
			rules []Rule
		}{
			{"name", e.Name, []Rule{Required("Species name"), MaxLength(200)}},
			{"count", string(e.Count), []Rule{PositiveInt("Count")}},
			{"density", string(e.Density), []Rule{Positive("Density")}},
			{"survivalPercent", string(e.SurvivalPercent), []Rule{Range(0, 100, "Survival must be between 0 and 100%.")}},
			{"ageClass", e.AgeClass, []Rule{OneOf("Select an age class.", AgeClasses...)}},
		}
		for _, r := range rules {
			for _, rule := range r.rules {
				if msg := rule(r.value); msg != "" {
					errs.Add(prefix+r.key, msg)
					break
				}
			}
		}
	}
}

// DecodeSpecies converts an already validated species field into models
func DecodeSpecies(raw string) ([]models.Species, error) {
	entries, err := decodeEntries(raw)
	if err != nil {
		return nil, err
	}
	out := make([]models.Species, 0, len(entries))
	for _, e := range entries {
		count, _ := ParseInt(string(e.Count))
		density, _ := ParseFloat(string(e.Density))
		survival, _ := ParseFloat(string(e.SurvivalPercent))
		out = append(out, models.Species{
			Name:            strings.TrimSpace(e.Name),
			Count:           count,
			Density:         density,
			SurvivalPercent: survival,
			AgeClass:        strings.TrimSpace(e.AgeClass),
		})
	}
	return out, nil
}

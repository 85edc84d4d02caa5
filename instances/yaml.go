// SPDX-License-Identifier: MIT

package instances

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// LoadKnapsack decodes and validates a YAML knapsack instance.
func LoadKnapsack(r io.Reader) (KnapsackData, error) {
	var d KnapsackData
	if err := yaml.NewDecoder(r).Decode(&d); err != nil {
		return KnapsackData{}, fmt.Errorf("instances: decode knapsack: %w", err)
	}

	return d, d.Validate()
}

// SaveKnapsack encodes d as YAML.
func SaveKnapsack(w io.Writer, d KnapsackData) error { return save(w, d) }

// LoadBestBox decodes and validates a YAML best-box instance.
func LoadBestBox(r io.Reader) (BestBoxData, error) {
	var d BestBoxData
	if err := yaml.NewDecoder(r).Decode(&d); err != nil {
		return BestBoxData{}, fmt.Errorf("instances: decode best box: %w", err)
	}

	return d, d.Validate()
}

// SaveBestBox encodes d as YAML.
func SaveBestBox(w io.Writer, d BestBoxData) error { return save(w, d) }

// LoadElicitation decodes and validates a YAML elicitation instance.
func LoadElicitation(r io.Reader) (ElicitationData, error) {
	var d ElicitationData
	if err := yaml.NewDecoder(r).Decode(&d); err != nil {
		return ElicitationData{}, fmt.Errorf("instances: decode elicitation: %w", err)
	}

	return d, d.Validate()
}

// SaveElicitation encodes d as YAML.
func SaveElicitation(w io.Writer, d ElicitationData) error { return save(w, d) }

func save(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("instances: encode: %w", err)
	}

	return enc.Close()
}

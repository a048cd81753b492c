package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the twelve base concepts",
	Long: `Seed the store with the twelve base concepts, one per water state,
attached under a single Codex root. Re-running is a no-op: the ids are
content-addressed, so existing concepts are simply found again.`,
	RunE: runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

type seedConcept struct {
	name       string
	content    string
	waterState string
	frequency  int
	chakra     string
}

// One concept per water state, named for the mode it embodies.
var seedConcepts = []seedConcept{
	{"Void", "Beyond-form potential, the source of all nodes", "plasma", 396, "root"},
	{"Field", "Subtle connectivity, the space between nodes", "vapor", 852, "third_eye"},
	{"Pattern", "Coherence geometry, the structure of nodes", "structured", 741, "throat"},
	{"Flow", "Adaptation and operational movement", "liquid", 639, "heart"},
	{"Memory", "Preservation, structure, blueprint", "ice", 963, "crown"},
	{"Resonance", "Micro-communities and quantum clusters", "clustered", 852, "third_eye"},
	{"Transformation", "Threshold crossing, alchemical change", "supercritical", 528, "solar_plexus"},
	{"Community", "Suspension of many parts in one medium", "colloidal", 417, "sacral"},
	{"Potential", "Formless, infinite possibility", "amorphous", 963, "crown"},
	{"Nonlocality", "Entanglement and standing waves", "quantum_coherent", 639, "heart"},
	{"Precision", "Crystal systems and exact order", "lattice_polymorphs", 741, "throat"},
	{"Unity", "Collective coherence of all nodes", "bose_einstein", 963, "crown"},
}

func runSeed(cmd *cobra.Command, args []string) error {
	cx, err := openCodex(cmd)
	if err != nil {
		return err
	}
	component := callerComponent(cmd)

	rootID, _, err := cx.Create("concept", "Codex",
		"The living root of the concept graph", map[string]any{"category": "seed"},
		"", component)
	if err != nil {
		return err
	}

	created := 0
	for _, concept := range seedConcepts {
		meta := map[string]any{
			"category":    "seed",
			"water_state": concept.waterState,
			"frequency":   concept.frequency,
			"chakra":      concept.chakra,
		}
		_, duplicate, err := cx.Create("concept", concept.name, concept.content, meta, rootID, component)
		if err != nil {
			return fmt.Errorf("seeding %s: %w", concept.name, err)
		}
		if !duplicate {
			created++
		}
	}

	if err := saveCodex(cmd, cx); err != nil {
		return err
	}

	fmt.Printf("Seeded %d concepts under %s\n", created, rootID)
	return nil
}

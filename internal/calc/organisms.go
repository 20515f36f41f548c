package calc

import (
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-json"

	"github.com/mohammed-shakir/survey-stats/internal/core/apperr"
	"github.com/mohammed-shakir/survey-stats/internal/table"
)

// OrganismSets lists candidate organism column sets in preference order.
type OrganismSets [][]string

// hf2012Organisms are the morphotype columns of the HF2012 annotation summary.
var hf2012Organisms = []string{
	"antedon", "anthozoa", "anthozoa_01", "anthozoa_03", "anthozoa_05",
	"anthozoa_06", "anthozoa_07", "anthozoa_08", "anthozoa_11", "anthozoa_16",
	"anthozoa_19", "anthozoa_24", "anthozoa_34", "anthozoa_39", "asterias_rubens",
	"asteroid_01", "asteroid_07", "asteroidea", "astropecten_irregularis",
	"axinellidae", "bolocera", "bryozoa_01", "callionymus", "caryophyllia_smithii",
	"cerianthid_01", "cerianthid_03", "echinoid_01", "echinoidea",
	"echinus_esculentus", "eledone_02", "eledone_cirrhosa", "fish", "fish_10",
	"flatfish", "gadidae", "gadiforme_09", "gaidropsarus_vulgaris", "galeus",
	"hippoglossoides_platessoides", "hydroid_01", "inachidae_01", "inachidae_02",
	"INDETERMINATE", "indeterminate_29", "indeterminate_36",
	"lepidorhombus_whiffiagonis", "leucoraja_naevus", "liocarcinus", "lithodes_maja",
	"luidia_ciliaris", "luidia_sarsii", "marthasterias_glacialis",
	"microchirus_variegatus", "munida", "ophiuroid_01", "ophiuroid_02",
	"paguridae_01", "paguridae_02", "parazoanthus", "pentapora_foliacea",
	"porania_pulvillus", "porcellanidae", "porella", "porifera_02", "porifera_03",
	"porifera_20", "porifera_22", "porifera_23", "porifera_24", "porifera_25",
	"rajidae_01", "reteporella", "salmacina_dysteri", "scyliorhinus_canicula",
	"squid", "stichastrella_rosea", "urticina",
}

// DefaultOrganismSets returns the full HF2012 set followed by the same set
// without the indeterminate columns, which later surveys do not carry.
func DefaultOrganismSets() OrganismSets {
	full := append([]string(nil), hf2012Organisms...)
	var determinate []string
	for _, c := range hf2012Organisms {
		if strings.HasPrefix(strings.ToLower(c), "indeterminate") {
			continue
		}
		determinate = append(determinate, c)
	}
	return OrganismSets{full, determinate}
}

// LoadOrganismSets reads a JSON array of column-name arrays.
func LoadOrganismSets(path string) (OrganismSets, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read organism sets: %w", err)
	}
	var sets OrganismSets
	if err := json.Unmarshal(b, &sets); err != nil {
		return nil, fmt.Errorf("decode organism sets %s: %w", path, err)
	}
	if len(sets) == 0 {
		return nil, fmt.Errorf("organism sets %s: no sets", path)
	}
	for i, s := range sets {
		if len(s) == 0 {
			return nil, fmt.Errorf("organism sets %s: set %d is empty", path, i)
		}
	}
	return sets, nil
}

// Resolve returns the first set whose columns all exist in t.
func (s OrganismSets) Resolve(t *table.Table) ([]string, error) {
	for _, set := range s {
		if t.HasAll(set) {
			return set, nil
		}
	}
	return nil, apperr.Schema("organisms", "no organism column set is fully present in the table")
}

package hierarchy

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/bloodstock/internal/model"
)

// ImportYAML reads a hand-maintained hierarchy seed. The file uses the same
// keys as the JSON snapshot:
//
//	states:
//	  MH: Maharashtra
//	districts:
//	  MH:
//	    "521": Pune
//	blood_groups:
//	  "15": O+Ve
func ImportYAML(path string) (*model.Hierarchy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "hierarchy: read seed %s", path)
	}

	var h model.Hierarchy
	if err := yaml.Unmarshal(data, &h); err != nil {
		return nil, eris.Wrapf(err, "hierarchy: parse seed %s", path)
	}
	if IsEmpty(&h) {
		return nil, eris.Errorf("hierarchy: seed %s has no states", path)
	}

	h.Fill()
	for stateCode := range h.Districts {
		if _, ok := h.States[stateCode]; !ok {
			return nil, eris.Errorf("hierarchy: seed %s lists districts for unknown state %q", path, stateCode)
		}
	}
	return &h, nil
}

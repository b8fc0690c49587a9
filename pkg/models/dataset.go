package models

// Dataset is the canonical output of parsing one export file. Relaties is
// filled for relatie exports, Polissen with its Dekkingen and Pakketten for
// the polissen export.
type Dataset struct {
	Entity    EntityType     `json:"entity"`
	Relaties  []Relatie      `json:"relaties,omitempty"`
	Polissen  []Polis        `json:"polissen,omitempty"`
	Dekkingen []PolisDekking `json:"dekkingen,omitempty"`
	Pakketten []Pakket       `json:"pakketten,omitempty"`
}

// Len is the number of primary records: relaties or polissen.
func (d Dataset) Len() int {
	if d.Entity == EntityPolissen {
		return len(d.Polissen)
	}
	return len(d.Relaties)
}

// Total counts every stored row the dataset produces, the figure used for
// records_totaal on replace-all imports of polissen.
func (d Dataset) Total() int {
	return len(d.Relaties) + len(d.Polissen) + len(d.Dekkingen) + len(d.Pakketten)
}

// Package polisgroup folds the polissen export, one line per dekking, into
// polissen with their dekkingen and the pakketten they share.
package polisgroup

import (
	"github.com/Ramsey-B/tulip/pkg/database"
	"github.com/Ramsey-B/tulip/pkg/errors"
	"github.com/Ramsey-B/tulip/pkg/models"
	"github.com/shopspring/decimal"
)

const DefaultVolgnummer = "1"

// Row is one mapped export line and the file line it came from.
type Row struct {
	Line int
	models.PolisRow
}

type Result struct {
	Polissen  []models.Polis
	Dekkingen []models.PolisDekking
	Pakketten []models.Pakket
	Skipped   []*errors.RowError
}

type group struct {
	polis  models.Polis
	totals totals
}

type totals struct {
	premieNetto, provisie, incasso *decimal.Decimal
}

// Group builds one Polis per relatie_id + polisnummer in order of first
// appearance. The first row of a group supplies the policy fields, every row
// carrying a dekking name or premium adds a dekking, and the policy premiums
// are the sums over those dekkingen. Pakketten are kept once per id, first
// row wins.
func Group(rows []Row) *Result {
	res := &Result{}
	groups := map[string]*group{}
	var order []string
	pakketten := map[string]bool{}

	for _, row := range rows {
		relatieID := deref(row.RelatieID)
		polisnummer := deref(row.Polisnummer)
		if relatieID == "" || polisnummer == "" {
			res.Skipped = append(res.Skipped, errors.NewRowError(row.Line, errors.ReasonMissingIdentity,
				"row needs both relatie_id and polisnummer"))
			continue
		}

		key := models.PolisKey(relatieID, polisnummer)
		g, ok := groups[key]
		if !ok {
			g = &group{polis: newPolis(key, row.PolisRow)}
			groups[key] = g
			order = append(order, key)
		}

		if row.HasDekking() {
			d := newDekking(key, row.PolisRow)
			g.totals.add(d)
			res.Dekkingen = append(res.Dekkingen, d)
		}

		if id := deref(row.PakketID); id != "" && !pakketten[id] {
			pakketten[id] = true
			res.Pakketten = append(res.Pakketten, newPakket(id, row.PolisRow))
		}
	}

	res.Polissen = make([]models.Polis, 0, len(order))
	for _, key := range order {
		g := groups[key]
		g.polis.PremieNetto = g.totals.premieNetto
		g.polis.ProvisieTotaal = g.totals.provisie
		g.polis.PremieIncasso = g.totals.incasso
		res.Polissen = append(res.Polissen, g.polis)
	}
	return res
}

func newPolis(key string, r models.PolisRow) models.Polis {
	return models.Polis{
		ID:                   key,
		Polisnummer:          *r.Polisnummer,
		Volgnummer:           r.Volgnummer,
		RelatieID:            *r.RelatieID,
		PakketID:             r.PakketID,
		MaatschappijCode:     r.MaatschappijCode,
		Maatschappij:         r.Maatschappij,
		SoortPolis:           r.SoortPolis,
		Hoofdbranche:         r.Hoofdbranche,
		Branche:              r.Branche,
		Ingangsdatum:         r.Ingangsdatum,
		Wijzigingsdatum:      r.Wijzigingsdatum,
		WijzigingsredenCode:  r.WijzigingsredenCode,
		Wijzigingsreden:      r.Wijzigingsreden,
		Premievervaldatum:    r.Premievervaldatum,
		Termijn:              r.Termijn,
		Incassowijze:         r.Incassowijze,
		IBANPolis:            r.IBANPolis,
		RisicoAdres:          r.RisicoAdres,
		RisicoHuisnummer:     r.RisicoHuisnummer,
		RisicoHuisnummerToev: r.RisicoHuisnummerToev,
		RisicoPostcode:       r.RisicoPostcode,
		RisicoPlaats:         r.RisicoPlaats,
		VerzekerdBedrag:      r.VerzekerdBedrag,
		EigenRisico:          r.EigenRisico,
		Voorwaarden:          database.NewJSONB(r.Voorwaarden()),
		Clausules:            database.NewJSONB(r.Clausules()),
		Details:              database.NewJSONB(r.Details()),
	}
}

func newDekking(polisID string, r models.PolisRow) models.PolisDekking {
	volgnummer := deref(r.Volgnummer)
	if volgnummer == "" {
		volgnummer = DefaultVolgnummer
	}
	return models.PolisDekking{
		PolisID:         polisID,
		Volgnummer:      volgnummer,
		DekkingNaam:     r.DekkingNaam,
		PremieNetto:     r.DekkingPremieNetto,
		Provisie:        r.DekkingProvisie,
		Incassobedrag:   r.DekkingIncassobedrag,
		VerzekerdBedrag: r.DekkingVerzekerdBedrag,
	}
}

func newPakket(id string, r models.PolisRow) models.Pakket {
	return models.Pakket{
		ID:                 id,
		RelatieID:          r.RelatieID,
		Pakketsoort:        r.Pakketsoort,
		Kortingspercentage: r.PakketKorting,
		Incassowijze:       r.PakketIncassowijze,
		IBAN:               r.PakketIBAN,
	}
}

// add sums a dekking into the totals. A total stays nil until some dekking
// carries that amount; missing amounts count as zero.
func (t *totals) add(d models.PolisDekking) {
	t.premieNetto = sum(t.premieNetto, d.PremieNetto)
	t.provisie = sum(t.provisie, d.Provisie)
	t.incasso = sum(t.incasso, d.Incassobedrag)
}

func sum(acc, v *decimal.Decimal) *decimal.Decimal {
	if v == nil {
		return acc
	}
	if acc == nil {
		out := *v
		return &out
	}
	out := acc.Add(*v)
	return &out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

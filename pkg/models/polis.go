package models

import (
	"time"

	"github.com/Ramsey-B/tulip/pkg/database"
	"github.com/shopspring/decimal"
)

// Polis is one policy assembled from all export rows that share a policy key.
// PremieNetto, ProvisieTotaal and PremieIncasso are derived from the dekkingen.
type Polis struct {
	ID          string  `db:"id" json:"id"`
	Polisnummer string  `db:"polisnummer" json:"polisnummer"`
	Volgnummer  *string `db:"volgnummer" json:"volgnummer"`
	RelatieID   string  `db:"relatie_id" json:"relatie_id"`
	PakketID    *string `db:"pakket_id" json:"pakket_id"`

	MaatschappijCode *string `db:"maatschappij_code" json:"maatschappij_code"`
	Maatschappij     *string `db:"maatschappij" json:"maatschappij"`
	SoortPolis       *string `db:"soort_polis" json:"soort_polis"`
	Hoofdbranche     *string `db:"hoofdbranche" json:"hoofdbranche"`
	Branche          *string `db:"branche" json:"branche"`

	Ingangsdatum        *Date   `db:"ingangsdatum" json:"ingangsdatum"`
	Wijzigingsdatum     *Date   `db:"wijzigingsdatum" json:"wijzigingsdatum"`
	WijzigingsredenCode *string `db:"wijzigingsreden_code" json:"wijzigingsreden_code"`
	Wijzigingsreden     *string `db:"wijzigingsreden" json:"wijzigingsreden"`
	Premievervaldatum   *Date   `db:"premievervaldatum" json:"premievervaldatum"`
	Termijn             *int64  `db:"termijn" json:"termijn"`

	PremieNetto    *decimal.Decimal `db:"premie_netto" json:"premie_netto"`
	ProvisieTotaal *decimal.Decimal `db:"provisie_totaal" json:"provisie_totaal"`
	PremieIncasso  *decimal.Decimal `db:"premie_incasso" json:"premie_incasso"`

	Incassowijze *string `db:"incassowijze" json:"incassowijze"`
	IBANPolis    *string `db:"iban_polis" json:"iban_polis"`

	RisicoAdres          *string `db:"risico_adres" json:"risico_adres"`
	RisicoHuisnummer     *string `db:"risico_huisnummer" json:"risico_huisnummer"`
	RisicoHuisnummerToev *string `db:"risico_huisnummer_toev" json:"risico_huisnummer_toev"`
	RisicoPostcode       *string `db:"risico_postcode" json:"risico_postcode"`
	RisicoPlaats         *string `db:"risico_plaats" json:"risico_plaats"`

	VerzekerdBedrag *decimal.Decimal `db:"verzekerd_bedrag" json:"verzekerd_bedrag"`
	EigenRisico     *decimal.Decimal `db:"eigen_risico" json:"eigen_risico"`

	Voorwaarden database.JSONB[[]string]     `db:"voorwaarden" json:"voorwaarden"`
	Clausules   database.JSONB[[]Clausule]   `db:"clausules" json:"clausules"`
	Details     database.JSONB[PolisDetails] `db:"details" json:"details"`

	CreatedAt *time.Time `db:"created_at" json:"created_at,omitempty"`
	UpdatedAt *time.Time `db:"updated_at" json:"updated_at,omitempty"`
}

func (p Polis) Key() string {
	return p.ID
}

// PolisKey is the synthesized identity of a policy within one relatie.
func PolisKey(relatieID, polisnummer string) string {
	return relatieID + "-" + polisnummer
}

type Clausule struct {
	Code         string `json:"code"`
	Omschrijving string `json:"omschrijving"`
}

// PolisDetails carries the branch specific vehicle and household attributes.
type PolisDetails struct {
	Kenteken            *string          `json:"kenteken,omitempty"`
	Merk                *string          `json:"merk,omitempty"`
	Model               *string          `json:"model,omitempty"`
	Cataloguswaarde     *decimal.Decimal `json:"cataloguswaarde,omitempty"`
	Dagwaarde           *decimal.Decimal `json:"dagwaarde,omitempty"`
	Gezinssamenstelling *string          `json:"gezinssamenstelling,omitempty"`
	Dekkingsgebied      *string          `json:"dekkingsgebied,omitempty"`
}

// PolisDekking is one coverage line. ID is assigned by the store.
type PolisDekking struct {
	ID              int64            `db:"id" json:"id,omitempty"`
	PolisID         string           `db:"polis_id" json:"polis_id"`
	Volgnummer      string           `db:"volgnummer" json:"volgnummer"`
	DekkingNaam     *string          `db:"dekking_naam" json:"dekking_naam"`
	PremieNetto     *decimal.Decimal `db:"premie_netto" json:"premie_netto"`
	Provisie        *decimal.Decimal `db:"provisie" json:"provisie"`
	Incassobedrag   *decimal.Decimal `db:"incassobedrag" json:"incassobedrag"`
	VerzekerdBedrag *decimal.Decimal `db:"verzekerd_bedrag" json:"verzekerd_bedrag"`

	CreatedAt *time.Time `db:"created_at" json:"created_at,omitempty"`
}

// Pakket is a discount package shared by one or more polissen.
type Pakket struct {
	ID                 string           `db:"id" json:"id"`
	RelatieID          *string          `db:"relatie_id" json:"relatie_id"`
	Pakketsoort        *string          `db:"pakketsoort" json:"pakketsoort"`
	Kortingspercentage *decimal.Decimal `db:"kortingspercentage" json:"kortingspercentage"`
	Incassowijze       *string          `db:"incassowijze" json:"incassowijze"`
	IBAN               *string          `db:"iban" json:"iban"`

	CreatedAt *time.Time `db:"created_at" json:"created_at,omitempty"`
	UpdatedAt *time.Time `db:"updated_at" json:"updated_at,omitempty"`
}

func (p Pakket) Key() string {
	return p.ID
}

// PolisRow is one mapped line of the polissen export, before grouping.
type PolisRow struct {
	RelatieID   *string `field:"relatie_id"`
	Polisnummer *string `field:"polisnummer"`
	Volgnummer  *string `field:"volgnummer"`

	PakketID           *string          `field:"pakket_id"`
	Pakketsoort        *string          `field:"pakketsoort"`
	PakketKorting      *decimal.Decimal `field:"pakket_korting"`
	PakketIncassowijze *string          `field:"pakket_incassowijze"`
	PakketIBAN         *string          `field:"pakket_iban"`

	MaatschappijCode    *string `field:"maatschappij_code"`
	Maatschappij        *string `field:"maatschappij"`
	SoortPolis          *string `field:"soort_polis"`
	Hoofdbranche        *string `field:"hoofdbranche"`
	Branche             *string `field:"branche"`
	Ingangsdatum        *Date   `field:"ingangsdatum"`
	Wijzigingsdatum     *Date   `field:"wijzigingsdatum"`
	WijzigingsredenCode *string `field:"wijzigingsreden_code"`
	Wijzigingsreden     *string `field:"wijzigingsreden"`
	Premievervaldatum   *Date   `field:"premievervaldatum"`
	Termijn             *int64  `field:"termijn"`

	DekkingNaam            *string          `field:"dekking_naam"`
	DekkingPremieNetto     *decimal.Decimal `field:"dekking_premie_netto"`
	DekkingProvisie        *decimal.Decimal `field:"dekking_provisie"`
	DekkingIncassobedrag   *decimal.Decimal `field:"dekking_incassobedrag"`
	DekkingVerzekerdBedrag *decimal.Decimal `field:"dekking_verzekerd_bedrag"`

	Incassowijze         *string          `field:"incassowijze"`
	IBANPolis            *string          `field:"iban_polis"`
	RisicoAdres          *string          `field:"risico_adres"`
	RisicoHuisnummer     *string          `field:"risico_huisnummer"`
	RisicoHuisnummerToev *string          `field:"risico_huisnummer_toev"`
	RisicoPostcode       *string          `field:"risico_postcode"`
	RisicoPlaats         *string          `field:"risico_plaats"`
	VerzekerdBedrag      *decimal.Decimal `field:"verzekerd_bedrag"`
	EigenRisico          *decimal.Decimal `field:"eigen_risico"`

	// Voorwaarde 4 does not exist in the export.
	Voorwaarde1 *string `field:"voorwaarde_1"`
	Voorwaarde2 *string `field:"voorwaarde_2"`
	Voorwaarde3 *string `field:"voorwaarde_3"`
	Voorwaarde5 *string `field:"voorwaarde_5"`
	Voorwaarde6 *string `field:"voorwaarde_6"`
	Voorwaarde7 *string `field:"voorwaarde_7"`
	Voorwaarde8 *string `field:"voorwaarde_8"`

	// ClausuleCodes and ClausuleOmschrijvingen are indexed 0..9 for clausule 1..10.
	ClausuleCodes          [10]*string `field:"clausule_%d_code"`
	ClausuleOmschrijvingen [10]*string `field:"clausule_%d_oms"`

	Kenteken            *string          `field:"kenteken"`
	Merk                *string          `field:"merk"`
	Model               *string          `field:"model"`
	Cataloguswaarde     *decimal.Decimal `field:"cataloguswaarde"`
	Dagwaarde           *decimal.Decimal `field:"dagwaarde"`
	Gezinssamenstelling *string          `field:"gezinssamenstelling"`
	Dekkingsgebied      *string          `field:"dekkingsgebied"`
}

// Voorwaarden returns the condition codes in export order, blanks skipped.
func (r PolisRow) Voorwaarden() []string {
	out := []string{}
	for _, v := range []*string{r.Voorwaarde1, r.Voorwaarde2, r.Voorwaarde3, r.Voorwaarde5, r.Voorwaarde6, r.Voorwaarde7, r.Voorwaarde8} {
		if v != nil && *v != "" {
			out = append(out, *v)
		}
	}
	return out
}

// Clausules returns the numbered clauses that carry a code.
func (r PolisRow) Clausules() []Clausule {
	out := []Clausule{}
	for i, code := range r.ClausuleCodes {
		if code == nil || *code == "" {
			continue
		}
		c := Clausule{Code: *code}
		if oms := r.ClausuleOmschrijvingen[i]; oms != nil {
			c.Omschrijving = *oms
		}
		out = append(out, c)
	}
	return out
}

func (r PolisRow) Details() PolisDetails {
	return PolisDetails{
		Kenteken:            r.Kenteken,
		Merk:                r.Merk,
		Model:               r.Model,
		Cataloguswaarde:     r.Cataloguswaarde,
		Dagwaarde:           r.Dagwaarde,
		Gezinssamenstelling: r.Gezinssamenstelling,
		Dekkingsgebied:      r.Dekkingsgebied,
	}
}

// HasDekking reports whether the row describes a coverage line.
func (r PolisRow) HasDekking() bool {
	return (r.DekkingNaam != nil && *r.DekkingNaam != "") || r.DekkingPremieNetto != nil
}

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Relatie is one customer record. Particulier and zakelijk exports share this
// shape; RelatieType is stamped at parse time from the export that produced it.
type Relatie struct {
	ID             string      `db:"id" json:"id"`
	RelatieType    RelatieType `db:"relatie_type" json:"relatie_type"`
	HoofdrelatieJN *string     `db:"hoofdrelatie_jn" json:"hoofdrelatie_jn"`
	HoofdrelatieNr *string     `db:"hoofdrelatie_nr" json:"hoofdrelatie_nr"`

	// Persoon / bedrijf
	Titulatuur     *string `db:"titulatuur" json:"titulatuur"`
	Aanhef         *string `db:"aanhef" json:"aanhef"`
	Voorletters    *string `db:"voorletters" json:"voorletters"`
	Voorvoegsels   *string `db:"voorvoegsels" json:"voorvoegsels"`
	Achternaam     *string `db:"achternaam" json:"achternaam"`
	NaamTweedeDeel *string `db:"naam_tweede_deel" json:"naam_tweede_deel"`
	Roepnaam       *string `db:"roepnaam" json:"roepnaam"`
	Geboortedatum  *Date   `db:"geboortedatum" json:"geboortedatum"`
	Geslacht       *string `db:"geslacht" json:"geslacht"`
	Nationaliteit  *string `db:"nationaliteit" json:"nationaliteit"`

	// Adres
	Adres                *string `db:"adres" json:"adres"`
	Huisnummer           *string `db:"huisnummer" json:"huisnummer"`
	HuisnummerToevoeging *string `db:"huisnummer_toevoeging" json:"huisnummer_toevoeging"`
	Postcode             *string `db:"postcode" json:"postcode"`
	Woonplaats           *string `db:"woonplaats" json:"woonplaats"`
	Land                 *string `db:"land" json:"land"`

	// Contact
	Email            *string `db:"email" json:"email"`
	EmailTweede      *string `db:"email_tweede" json:"email_tweede"`
	EmailPartner     *string `db:"email_partner" json:"email_partner"`
	TelefoonPrive    *string `db:"telefoon_prive" json:"telefoon_prive"`
	TelefoonMobiel   *string `db:"telefoon_mobiel" json:"telefoon_mobiel"`
	TelefoonZakelijk *string `db:"telefoon_zakelijk" json:"telefoon_zakelijk"`

	// Relatiebeheer
	Producent *string `db:"producent" json:"producent"`
	Belang    *string `db:"belang" json:"belang"`
	Herkomst  *string `db:"herkomst" json:"herkomst"`

	// Partner (particulier)
	PartnerTitulatuur   *string `db:"partner_titulatuur" json:"partner_titulatuur"`
	PartnerVoorletters  *string `db:"partner_voorletters" json:"partner_voorletters"`
	PartnerVoorvoegsels *string `db:"partner_voorvoegsels" json:"partner_voorvoegsels"`
	PartnerRoepnaam     *string `db:"partner_roepnaam" json:"partner_roepnaam"`
	PartnerAchternaam   *string `db:"partner_achternaam" json:"partner_achternaam"`

	// T.a.v. contactpersoon (zakelijk)
	TavTitulatuur   *string `db:"tav_titulatuur" json:"tav_titulatuur"`
	TavAanhef       *string `db:"tav_aanhef" json:"tav_aanhef"`
	TavVoorletters  *string `db:"tav_voorletters" json:"tav_voorletters"`
	TavVoorvoegsels *string `db:"tav_voorvoegsels" json:"tav_voorvoegsels"`
	TavAchternaam   *string `db:"tav_achternaam" json:"tav_achternaam"`
	TavRoepnaam     *string `db:"tav_roepnaam" json:"tav_roepnaam"`

	// Administratief
	BurgerlijkeStaat      *string          `db:"burgerlijke_staat" json:"burgerlijke_staat"`
	Arbeidsverhouding     *string          `db:"arbeidsverhouding" json:"arbeidsverhouding"`
	Mailing               *string          `db:"mailing" json:"mailing"`
	Incassowijze          *string          `db:"incassowijze" json:"incassowijze"`
	IBANBank              *string          `db:"iban_bank" json:"iban_bank"`
	IBANPostbank          *string          `db:"iban_postbank" json:"iban_postbank"`
	AantalKinderen        *int64           `db:"aantal_kinderen" json:"aantal_kinderen"`
	PolisbladPerEmail     *string          `db:"polisblad_per_email" json:"polisblad_per_email"`
	FactuurPerEmail       *string          `db:"factuur_per_email" json:"factuur_per_email"`
	AantalPolissen        *int64           `db:"aantal_polissen" json:"aantal_polissen"`
	IncassoprovisieTotaal *decimal.Decimal `db:"incassoprovisie_totaal" json:"incassoprovisie_totaal"`

	// Marketing (zakelijk)
	CVBiMarketing      *string `db:"cvbi_marketing" json:"cvbi_marketing"`
	TenaamstellingCVBi *string `db:"tenaamstelling_cvbi" json:"tenaamstelling_cvbi"`

	// Bedrijfsgegevens (zakelijk)
	KvKNummer          *string `db:"kvk_nummer" json:"kvk_nummer"`
	Rechtsvorm         *string `db:"rechtsvorm" json:"rechtsvorm"`
	SBIHoofdactiviteit *string `db:"sbi_hoofdactiviteit" json:"sbi_hoofdactiviteit"`
	SBINevenactiviteit *string `db:"sbi_nevenactiviteit" json:"sbi_nevenactiviteit"`
	Bedrijfstak        *string `db:"bedrijfstak" json:"bedrijfstak"`
	ZZP                *string `db:"zzp" json:"zzp"`
	CAO                *string `db:"cao" json:"cao"`
	SectorcodeUWV      *string `db:"sectorcode_uwv" json:"sectorcode_uwv"`

	// Bezoek
	LaatsteBezoekmaand  *string `db:"laatste_bezoekmaand" json:"laatste_bezoekmaand"`
	VolgendeBezoekdatum *Date   `db:"volgende_bezoekdatum" json:"volgende_bezoekdatum"`

	// Naverrekening
	NaverrekeningJN          *string `db:"naverrekening_jn" json:"naverrekening_jn"`
	NaverrekeningJaarHuidig  *int64  `db:"naverrekening_jaar_huidig" json:"naverrekening_jaar_huidig"`
	NaverrekeningJaarLaatste *int64  `db:"naverrekening_jaar_laatste" json:"naverrekening_jaar_laatste"`
	MachtigingBoekhouder     *string `db:"machtiging_boekhouder" json:"machtiging_boekhouder"`

	// Financieel
	Omzet      *decimal.Decimal `db:"omzet" json:"omzet"`
	Jaarloon   *decimal.Decimal `db:"jaarloon" json:"jaarloon"`
	Brutowinst *decimal.Decimal `db:"brutowinst" json:"brutowinst"`

	// Personeel en wagenpark
	AantalMedewerkers    *int64 `db:"aantal_medewerkers" json:"aantal_medewerkers"`
	AantalOproepkrachten *int64 `db:"aantal_oproepkrachten" json:"aantal_oproepkrachten"`
	AantalPersonenautos  *int64 `db:"aantal_personenautos" json:"aantal_personenautos"`
	AantalBestelautos    *int64 `db:"aantal_bestelautos" json:"aantal_bestelautos"`
	AantalVrachtautos    *int64 `db:"aantal_vrachtautos" json:"aantal_vrachtautos"`
	AantalWerkmaterieel  *int64 `db:"aantal_werkmaterieel" json:"aantal_werkmaterieel"`

	// Compliance
	UBOOnderzoek *string `db:"ubo_onderzoek" json:"ubo_onderzoek"`

	// Vrije velden
	VrijeTekst1     *string `db:"vrije_tekst_1" json:"vrije_tekst_1"`
	VrijeTekst2     *string `db:"vrije_tekst_2" json:"vrije_tekst_2"`
	ExtraInformatie *string `db:"extra_informatie" json:"extra_informatie"`

	CreatedAt *time.Time `db:"created_at" json:"created_at,omitempty"`
	UpdatedAt *time.Time `db:"updated_at" json:"updated_at,omitempty"`
}

func (r Relatie) Key() string {
	return r.ID
}

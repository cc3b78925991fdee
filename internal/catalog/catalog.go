// Package catalog holds the built-in German business-category list used
// for a full-market sweep, prioritized toward categories that tend to
// have an outdated or missing web presence.
package catalog

import "strings"

// Categories is the full catalog, roughly ordered by how likely a
// business in that line of work is to lack a modern website.
var Categories = []string{
	// Handwerk & Bau
	"Handwerker", "Maler", "Elektriker", "Sanitär", "Heizung", "Klempner",
	"Dachdecker", "Tischler", "Schreiner", "Fliesenleger", "Bodenleger",
	"Maurer", "Zimmermann", "Glaser", "Schlosser", "Metallbau", "Gartenbau",
	"Landschaftsbau", "Gärtner", "Bauunternehmen", "Trockenbau", "Stuckateur",
	"Gerüstbau", "Rollladen", "Jalousien", "Markisen",

	// Gesundheit & Wellness
	"Zahnarzt", "Arzt", "Hausarzt", "Orthopäde", "Physiotherapie",
	"Krankengymnastik", "Massage", "Heilpraktiker", "Ergotherapie",
	"Logopädie", "Podologe", "Fußpflege", "Chiropraktiker", "Osteopathie",
	"Psychotherapie", "Augenarzt", "HNO Arzt", "Hautarzt", "Kinderarzt",
	"Frauenarzt", "Tierarzt", "Zahntechnik", "Pflegedienst", "Seniorenbetreuung",

	// Schönheit & Körperpflege
	"Friseur", "Kosmetik", "Nagelstudio", "Kosmetikstudio", "Tattoo",
	"Piercing", "Sonnenstudio", "Barbershop", "Beautysalon", "Haarentfernung",
	"Permanent Makeup",

	// Gastronomie
	"Restaurant", "Gaststätte", "Pizzeria", "Imbiss", "Döner",
	"Asia Restaurant", "Italiener", "Grieche", "Café", "Bäckerei",
	"Konditorei", "Metzgerei", "Fleischerei", "Eisdiele", "Kneipe", "Bar",
	"Biergarten", "Catering", "Partyservice", "Lieferservice",

	// Einzelhandel
	"Blumenladen", "Florist", "Boutique", "Bekleidung", "Schuhladen",
	"Schmuck", "Uhren", "Optiker", "Hörgeräte", "Sanitätshaus", "Apotheke",
	"Reformhaus", "Bioladen", "Weinhandlung", "Getränkemarkt", "Tabak",
	"Kiosk", "Schreibwaren", "Spielwaren", "Elektrogeräte", "Haushaltsgeräte",
	"Möbel", "Küchen", "Raumausstatter", "Gardinen", "Teppiche", "Lampen",
	"Antiquitäten", "Second Hand", "Tierhandlung", "Zoofachhandel",
	"Angelbedarf", "Sportgeschäft", "Fahrradladen", "Musikinstrumente",
	"Bürobedarf", "Druckerei", "Copyshop",

	// Auto & Mobilität
	"Autowerkstatt", "KFZ Werkstatt", "Reifenservice", "Autolackierung",
	"Autoaufbereitung", "Autopflege", "Autohaus", "Autovermietung",
	"Fahrschule", "Abschleppdienst", "Motorrad", "Tankstelle",

	// Dienstleistungen
	"Schlüsseldienst", "Reinigung", "Gebäudereinigung", "Hausmeisterservice",
	"Umzug", "Entrümpelung", "Schädlingsbekämpfung", "Kammerjäger",
	"Wäscherei", "Änderungsschneiderei", "Schneider", "Schuhmacher",
	"Polsterei", "Reparaturservice", "Handy Reparatur", "Computer Reparatur",

	// Beratung & Büro
	"Steuerberater", "Rechtsanwalt", "Notar", "Wirtschaftsprüfer",
	"Unternehmensberatung", "Versicherung", "Finanzberater",
	"Immobilienmakler", "Hausverwaltung", "Buchhalter", "Übersetzer",
	"Dolmetscher", "Detektei",

	// Kreativ & Medien
	"Fotograf", "Videoproduktion", "Grafikdesign", "Werbeagentur",
	"Schilder", "Beschriftung", "Eventplanung", "DJ", "Musiker", "Künstler",

	// Bau & Architektur
	"Architekt", "Bauingenieur", "Statiker", "Vermessung", "Energieberater",
	"Sachverständiger", "Gutachter",

	// Bildung & Betreuung
	"Nachhilfe", "Musikschule", "Tanzschule", "Sprachschule", "Kindergarten",
	"Tagesmutter", "Kinderbetreuung",

	// Freizeit & Sport
	"Fitnessstudio", "Yoga", "Kampfsport", "Tanzstudio", "Reiterhof",
	"Schwimmschule", "Golfclub", "Tennisclub", "Bowling", "Billard",
	"Escape Room", "Spielhalle",

	// Haus & Garten
	"Gartenpflege", "Baumfällung", "Winterdienst", "Poolbau", "Zaunbau",
	"Terrassenbau", "Pflasterarbeiten", "Brunnen",

	// Technik & IT
	"Computer Service", "IT Service", "Telefonanlagen", "Alarmanlagen",
	"Videoüberwachung", "Elektrotechnik", "Antenne Satellit",

	// Sonstiges
	"Hotel", "Pension", "Ferienwohnung", "Campingplatz", "Bestattung",
	"Steinmetz", "Goldschmied", "Gravur", "Stempel", "Textildruck",
	"Werbemittel",
}

// Count is the size of Categories.
var Count = len(Categories)

// Bundles groups Categories into named bundles for a targeted sweep
// instead of a full-catalog run.
var Bundles = map[string][]string{
	"handwerk": {
		"Handwerker", "Maler", "Elektriker", "Sanitär", "Heizung",
		"Dachdecker", "Tischler", "Fliesenleger", "Maurer", "Glaser",
		"Schlosser", "Gartenbau", "Trockenbau",
	},
	"gesundheit": {
		"Zahnarzt", "Arzt", "Physiotherapie", "Massage", "Heilpraktiker",
		"Podologe", "Ergotherapie", "Logopädie", "Tierarzt",
	},
	"beauty": {
		"Friseur", "Kosmetik", "Nagelstudio", "Tattoo", "Barbershop",
	},
	"gastro": {
		"Restaurant", "Pizzeria", "Imbiss", "Café", "Bäckerei",
		"Metzgerei", "Bar", "Catering",
	},
	"auto": {
		"Autowerkstatt", "KFZ Werkstatt", "Reifenservice", "Autohaus",
		"Fahrschule", "Autolackierung",
	},
	"beratung": {
		"Steuerberater", "Rechtsanwalt", "Versicherung", "Immobilienmakler",
		"Finanzberater",
	},
}

// Lookup returns the named bundle's categories, or the full Categories
// list when bundle is empty or unknown.
func Lookup(bundle string) []string {
	if bundle == "" {
		return Categories
	}
	if list, ok := Bundles[strings.ToLower(bundle)]; ok {
		return list
	}
	return Categories
}

// BundleNames returns the available bundle keys.
func BundleNames() []string {
	names := make([]string, 0, len(Bundles))
	for name := range Bundles {
		names = append(names, name)
	}
	return names
}

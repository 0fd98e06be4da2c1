package entities

// FieldKey identifies one prose field of a drug label.
type FieldKey string

const (
	FieldIndicationsAndUsage      FieldKey = "indicationsAndUsage"
	FieldDosageAndAdministration  FieldKey = "dosageAndAdministration"
	FieldDosageFormsAndStrengths  FieldKey = "dosageFormsAndStrengths"
	FieldContraindications        FieldKey = "contraindications"
	FieldWarningsAndPrecautions   FieldKey = "warningsAndPrecautions"
	FieldAdverseReactions         FieldKey = "adverseReactions"
	FieldDrugInteractions         FieldKey = "drugInteractions"
	FieldUseInSpecificPopulations FieldKey = "useInSpecificPopulations"
	FieldOverdosage               FieldKey = "overdosage"
	FieldDescription              FieldKey = "description"
	FieldClinicalPharmacology     FieldKey = "clinicalPharmacology"
	FieldHowSupplied              FieldKey = "howSupplied"
)

// Section categories
const (
	CategoryUsage        = "usage"
	CategoryDosing       = "dosing"
	CategorySafety       = "safety"
	CategoryInteractions = "interactions"
	CategoryPopulations  = "populations"
	CategoryGeneral      = "general"
	CategoryPharmacology = "pharmacology"
	CategoryStorage      = "storage"
)

// LabelField describes how a label field is stored and presented.
type LabelField struct {
	Key       FieldKey
	Title     string
	Column    string
	Category  string
	Important bool
}

// labelFields is the single source for section order, titles and storage columns.
var labelFields = []LabelField{
	{FieldIndicationsAndUsage, "Indications and Usage", "indications_and_usage", CategoryUsage, true},
	{FieldDosageAndAdministration, "Dosage and Administration", "dosage_and_administration", CategoryDosing, true},
	{FieldDosageFormsAndStrengths, "Dosage Forms and Strengths", "dosage_forms_and_strengths", CategoryDosing, false},
	{FieldContraindications, "Contraindications", "contraindications", CategorySafety, true},
	{FieldWarningsAndPrecautions, "Warnings and Precautions", "warnings_and_precautions", CategorySafety, true},
	{FieldAdverseReactions, "Adverse Reactions", "adverse_reactions", CategorySafety, false},
	{FieldDrugInteractions, "Drug Interactions", "drug_interactions", CategoryInteractions, false},
	{FieldUseInSpecificPopulations, "Use in Specific Populations", "use_in_specific_populations", CategoryPopulations, false},
	{FieldOverdosage, "Overdosage", "overdosage", CategorySafety, false},
	{FieldDescription, "Description", "description", CategoryGeneral, false},
	{FieldClinicalPharmacology, "Clinical Pharmacology", "clinical_pharmacology", CategoryPharmacology, false},
	{FieldHowSupplied, "How Supplied", "how_supplied", CategoryStorage, false},
}

var (
	fieldsByKey = make(map[FieldKey]LabelField, len(labelFields))
	keysByTitle = make(map[string]FieldKey, len(labelFields))
)

func init() {
	for _, f := range labelFields {
		fieldsByKey[f.Key] = f
		keysByTitle[f.Title] = f.Key
	}
}

// LabelFields returns the label fields in display order.
func LabelFields() []LabelField {
	out := make([]LabelField, len(labelFields))
	copy(out, labelFields)
	return out
}

// LookupField returns the definition of key.
func LookupField(key FieldKey) (LabelField, bool) {
	f, ok := fieldsByKey[key]
	return f, ok
}

// FieldKeyForTitle maps a section title back to its field key.
func FieldKeyForTitle(title string) (FieldKey, bool) {
	k, ok := keysByTitle[title]
	return k, ok
}

// Title returns the display title of the field, or the raw key if it is unknown.
func (k FieldKey) Title() string {
	if f, ok := fieldsByKey[k]; ok {
		return f.Title
	}
	return string(k)
}

// Valid reports whether k is one of the known label fields.
func (k FieldKey) Valid() bool {
	_, ok := fieldsByKey[k]
	return ok
}

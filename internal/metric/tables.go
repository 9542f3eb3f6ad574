package metric

// The five follow-up statistics tables. Column sets mirror the reporting
// forms used on the wards: table one is the daily visit/adverse-reaction
// overview, table two breaks follow-up symptoms into individual counts,
// table three counts anesthesia formulations, table four tracks
// postoperative complications and table five records critical-care outcomes.

// TableOne – post-operative visit and adverse reaction overview.
var TableOne = Schema{
	Name:  "tableOne",
	Alias: "t1",
	Route: "table-1",
	Table: "table_one",
	Numeric: []Column{
		{Field: "numOfPostoperativeVisits", DB: "num_of_postoperative_visits"},
		{Field: "numOfAdverseReactionCases", DB: "num_of_adverse_reaction_cases"},
		{Field: "numOfSevereAdverseReactions", DB: "num_of_severe_adverse_reactions"},
		{Field: "numOfAdverseReactionsReported", DB: "num_of_adverse_reactions_reported"},
		{Field: "numOfUnreportedCases", DB: "num_of_unreported_cases"},
	},
	Text: []Column{
		{Field: "comments", DB: "comments"},
	},
}

// TableTwo – follow-up symptom counts. Fourteen individual symptom columns,
// no free-text fields.
var TableTwo = Schema{
	Name:  "tableTwo",
	Alias: "t2",
	Route: "table-2",
	Table: "table_two",
	Numeric: []Column{
		{Field: "numOfNausea", DB: "num_of_nausea"},
		{Field: "numOfVomiting", DB: "num_of_vomiting"},
		{Field: "numOfDizziness", DB: "num_of_dizziness"},
		{Field: "numOfHeadache", DB: "num_of_headache"},
		{Field: "numOfSoreThroat", DB: "num_of_sore_throat"},
		{Field: "numOfShivering", DB: "num_of_shivering"},
		{Field: "numOfHoarseness", DB: "num_of_hoarseness"},
		{Field: "numOfDysphagia", DB: "num_of_dysphagia"},
		{Field: "numOfUrinaryRetention", DB: "num_of_urinary_retention"},
		{Field: "numOfBackPain", DB: "num_of_back_pain"},
		{Field: "numOfMusclePain", DB: "num_of_muscle_pain"},
		{Field: "numOfDrowsiness", DB: "num_of_drowsiness"},
		{Field: "numOfPruritus", DB: "num_of_pruritus"},
		{Field: "numOfOtherSymptoms", DB: "num_of_other_symptoms"},
	},
}

// TableThree – anesthesia formulation counts.
var TableThree = Schema{
	Name:  "tableThree",
	Alias: "t3",
	Route: "table-3",
	Table: "table_three",
	Numeric: []Column{
		{Field: "numOfInhalation", DB: "num_of_inhalation"},
		{Field: "numOfIntravenous", DB: "num_of_intravenous"},
		{Field: "numOfRegionalBlock", DB: "num_of_regional_block"},
		{Field: "numOfCombined", DB: "num_of_combined"},
		{Field: "numOfLocalInfiltration", DB: "num_of_local_infiltration"},
		{Field: "numOfSedation", DB: "num_of_sedation"},
	},
	Text: []Column{
		{Field: "comments", DB: "comments"},
	},
}

// TableFour – postoperative complications.
var TableFour = Schema{
	Name:  "tableFour",
	Alias: "t4",
	Route: "table-4",
	Table: "table_four",
	Numeric: []Column{
		{Field: "numOfRespiratoryComplications", DB: "num_of_respiratory_complications"},
		{Field: "numOfCirculatoryComplications", DB: "num_of_circulatory_complications"},
		{Field: "numOfNeurologicalComplications", DB: "num_of_neurological_complications"},
		{Field: "numOfInfections", DB: "num_of_infections"},
		{Field: "numOfReoperations", DB: "num_of_reoperations"},
	},
	Text: []Column{
		{Field: "patientName", DB: "patient_name"},
		{Field: "findings", DB: "findings"},
	},
}

// TableFive – critical-care outcomes.
var TableFive = Schema{
	Name:  "tableFive",
	Alias: "t5",
	Route: "table-5",
	Table: "table_five",
	Numeric: []Column{
		{Field: "numOfIcuAdmissions", DB: "num_of_icu_admissions"},
		{Field: "numOfRescues", DB: "num_of_rescues"},
		{Field: "numOfSuccessfulRescues", DB: "num_of_successful_rescues"},
		{Field: "numOfDeaths", DB: "num_of_deaths"},
	},
	Text: []Column{
		{Field: "patientName", DB: "patient_name"},
		{Field: "comments", DB: "comments"},
	},
}

// All lists every metric table in presentation order. Routers, the joined
// view and the export tool iterate this slice rather than naming tables.
var All = []Schema{TableOne, TableTwo, TableThree, TableFour, TableFive}

// ByRoute returns the schema served under the given URL segment, or false
// when no table matches.
func ByRoute(route string) (Schema, bool) {
	for _, s := range All {
		if s.Route == route {
			return s, true
		}
	}
	return Schema{}, false
}

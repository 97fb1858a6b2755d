package normalize

import "regexp"

// expansion rewrites one abbreviation to its full form. The table is applied
// in order, longest abbreviation first, so compound forms like "DevOps" win
// before "Dev" or "Ops" get a chance.
type expansion struct {
	re   *regexp.Regexp
	full string
}

func titleExpansion(abbrev, full string) expansion {
	return expansion{
		re:   regexp.MustCompile(`(?i)\b` + abbrev + `\.?\b`),
		full: full,
	}
}

var titleExpansions = []expansion{
	titleExpansion("DevOps", "Development Operations"),
	titleExpansion("SVP", "Senior Vice President"),
	titleExpansion("EVP", "Executive Vice President"),
	titleExpansion("CTO", "Chief Technology Officer"),
	titleExpansion("CEO", "Chief Executive Officer"),
	titleExpansion("CFO", "Chief Financial Officer"),
	titleExpansion("COO", "Chief Operating Officer"),
	titleExpansion("SWE", "Software Engineer"),
	titleExpansion("SDE", "Software Development Engineer"),
	titleExpansion("SRE", "Site Reliability Engineer"),
	titleExpansion("TPM", "Technical Program Manager"),
	titleExpansion("API", "Application Programming Interface"),
	titleExpansion("Mgr", "Manager"),
	titleExpansion("Dir", "Director"),
	titleExpansion("Eng", "Engineer"),
	titleExpansion("Dev", "Developer"),
	titleExpansion("Ops", "Operations"),
	titleExpansion("Sr", "Senior"),
	titleExpansion("Jr", "Junior"),
	titleExpansion("VP", "Vice President"),
	titleExpansion("QA", "Quality Assurance"),
	titleExpansion("BA", "Business Analyst"),
	titleExpansion("PM", "Product Manager"),
	titleExpansion("EM", "Engineering Manager"),
	titleExpansion("IT", "Information Technology"),
	titleExpansion("CS", "Computer Science"),
	titleExpansion("UI", "User Interface"),
	titleExpansion("UX", "User Experience"),
	titleExpansion("ML", "Machine Learning"),
	titleExpansion("AI", "Artificial Intelligence"),
	titleExpansion("DB", "Database"),
	titleExpansion("FE", "Frontend"),
	titleExpansion("BE", "Backend"),
	titleExpansion("FS", "Full Stack"),
}

// citySynonym expands a colloquial city name. When the synonym is the whole
// location string both city and state are recognized, so the canonical
// "City, State" shape is produced.
type citySynonym struct {
	abbrev string
	city   string
	state  string
	re     *regexp.Regexp
}

func newCitySynonym(abbrev, city, state string) citySynonym {
	return citySynonym{
		abbrev: abbrev,
		city:   city,
		state:  state,
		re:     regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(abbrev) + `\b`),
	}
}

var citySynonyms = []citySynonym{
	newCitySynonym("chi-town", "Chicago", "Illinois"),
	newCitySynonym("philly", "Philadelphia", "Pennsylvania"),
	newCitySynonym("nyc", "New York", "New York"),
	newCitySynonym("chi", "Chicago", "Illinois"),
	newCitySynonym("sf", "San Francisco", "California"),
	newCitySynonym("la", "Los Angeles", "California"),
	newCitySynonym("dc", "Washington", "District of Columbia"),
}

var stateNames = map[string]string{
	"AL": "Alabama", "AK": "Alaska", "AZ": "Arizona", "AR": "Arkansas",
	"CA": "California", "CO": "Colorado", "CT": "Connecticut", "DE": "Delaware",
	"FL": "Florida", "GA": "Georgia", "HI": "Hawaii", "ID": "Idaho",
	"IL": "Illinois", "IN": "Indiana", "IA": "Iowa", "KS": "Kansas",
	"KY": "Kentucky", "LA": "Louisiana", "ME": "Maine", "MD": "Maryland",
	"MA": "Massachusetts", "MI": "Michigan", "MN": "Minnesota", "MS": "Mississippi",
	"MO": "Missouri", "MT": "Montana", "NE": "Nebraska", "NV": "Nevada",
	"NH": "New Hampshire", "NJ": "New Jersey", "NM": "New Mexico", "NY": "New York",
	"NC": "North Carolina", "ND": "North Dakota", "OH": "Ohio", "OK": "Oklahoma",
	"OR": "Oregon", "PA": "Pennsylvania", "RI": "Rhode Island", "SC": "South Carolina",
	"SD": "South Dakota", "TN": "Tennessee", "TX": "Texas", "UT": "Utah",
	"VT": "Vermont", "VA": "Virginia", "WA": "Washington", "WV": "West Virginia",
	"WI": "Wisconsin", "WY": "Wyoming", "DC": "District of Columbia",
}

// seniorityLevel ranks one seniority indicator. Ordered longest name first so
// "senior vice president" is recognized before "vice president" or "senior".
type seniorityLevel struct {
	name  string
	level int
	re    *regexp.Regexp
}

func newSeniority(name string, level int) seniorityLevel {
	return seniorityLevel{
		name:  name,
		level: level,
		re:    regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(name) + `\b`),
	}
}

var seniorityLevels = []seniorityLevel{
	newSeniority("executive vice president", 14),
	newSeniority("senior vice president", 13),
	newSeniority("vice president", 12),
	newSeniority("senior director", 11),
	newSeniority("senior manager", 9),
	newSeniority("entry level", 1),
	newSeniority("internship", 0),
	newSeniority("mid level", 4),
	newSeniority("principal", 7),
	newSeniority("associate", 3),
	newSeniority("director", 10),
	newSeniority("manager", 8),
	newSeniority("intern", 0),
	newSeniority("junior", 2),
	newSeniority("senior", 5),
	newSeniority("entry", 1),
	newSeniority("staff", 6),
	newSeniority("chief", 15),
	newSeniority("lead", 7),
	newSeniority("mid", 4),
	newSeniority("iii", 3),
	newSeniority("iv", 4),
	newSeniority("ii", 2),
	newSeniority("i", 1),
}

var stopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {}, "in": {},
	"on": {}, "at": {}, "to": {}, "for": {}, "of": {}, "with": {}, "by": {},
	"from": {}, "as": {}, "is": {}, "was": {}, "are": {}, "were": {},
	"been": {}, "be": {}, "have": {}, "has": {}, "had": {}, "do": {},
	"does": {}, "did": {}, "will": {}, "would": {}, "could": {},
	"should": {}, "may": {}, "might": {}, "must": {}, "can": {},
}

var companySuffixes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bCorporation$`),
	regexp.MustCompile(`(?i)\bLimited$`),
	regexp.MustCompile(`(?i)\bCompany$`),
	regexp.MustCompile(`(?i)\bCorp\.?$`),
	regexp.MustCompile(`(?i)\bInc\.?$`),
	regexp.MustCompile(`(?i)\bLLC\.?$`),
	regexp.MustCompile(`(?i)\bLtd\.?$`),
	regexp.MustCompile(`(?i)\bCo\.?$`),
}

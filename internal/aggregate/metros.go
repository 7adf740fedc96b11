package aggregate

// metroNames maps the dataset's metro codes to display names.
var metroNames = map[string]string{
	"ATL": "Atlanta, GA",
	"ATX": "Austin, TX",
	"BOS": "Boston, MA",
	"BWI": "Baltimore, MD",
	"CHI": "Chicago, IL",
	"CIN": "Cincinnati, OH",
	"CLT": "Charlotte, NC",
	"DAL": "Dallas, TX",
	"DC":  "Washington, DC",
	"DEN": "Denver, CO",
	"DET": "Detroit, MI",
	"HOU": "Houston, TX",
	"LA":  "Los Angeles, CA",
	"LV":  "Las Vegas, NV",
	"MIA": "Miami, FL",
	"MSP": "Minneapolis, MN",
	"NY":  "New York, NY",
	"ORL": "Orlando, FL",
	"PDX": "Portland, OR",
	"PGH": "Pittsburgh, PA",
	"PHL": "Philadelphia, PA",
	"PHX": "Phoenix, AZ",
	"RIV": "Riverside, CA",
	"SA":  "San Antonio, TX",
	"SAC": "Sacramento, CA",
	"SD":  "San Diego, CA",
	"SEA": "Seattle, WA",
	"SF":  "San Francisco, CA",
	"STL": "St. Louis, MO",
	"TPA": "Tampa, FL",
}

// DisplayName returns the human name for a metro code, or the code itself.
func DisplayName(code string) string {
	if name, ok := metroNames[code]; ok {
		return name
	}
	return code
}

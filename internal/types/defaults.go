package types

// Countries are the jurisdictions offered by the requirements form.
var Countries = []string{
	"United States",
	"United Kingdom",
	"Canada",
	"Australia",
	"India",
	"Germany",
	"Japan",
	"Brazil",
}

// DefaultRequirements mirrors the form's initial values.
func DefaultRequirements() Requirements {
	return Requirements{
		Rooms:      2,
		HasHall:    true,
		HasKitchen: true,
		HasBalcony: true,
		TotalArea:  1000,
		Country:    "United States",
	}
}

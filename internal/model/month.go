package model

// Months lists the canonical English month names accepted by the API,
// in calendar order.
var Months = []string{
	"January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December",
}

// ValidMonth reports whether s is one of the twelve canonical month names.
func ValidMonth(s string) bool {
	for _, m := range Months {
		if s == m {
			return true
		}
	}
	return false
}

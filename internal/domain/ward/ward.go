// Package ward defines the fixed hospital ward enumeration shared by the
// bed and nurse registries.
package ward

import "fmt"

// Ward is a fixed category of hospital unit used to partition beds and
// nursing staff.
type Ward string

const (
	ICU       Ward = "ICU"
	General   Ward = "General"
	Emergency Ward = "Emergency"
	Pediatric Ward = "Pediatric"
	Maternity Ward = "Maternity"
)

// All returns every ward in declaration order.
func All() []Ward {
	return []Ward{ICU, General, Emergency, Pediatric, Maternity}
}

// Valid reports whether w is one of the known wards.
func (w Ward) Valid() bool {
	switch w {
	case ICU, General, Emergency, Pediatric, Maternity:
		return true
	}
	return false
}

func (w Ward) String() string {
	return string(w)
}

// Parse converts s into a Ward. The empty string and "All" mean "no ward
// filter" and return the zero Ward with no error.
func Parse(s string) (Ward, error) {
	if s == "" || s == "All" {
		return "", nil
	}
	w := Ward(s)
	if !w.Valid() {
		return "", fmt.Errorf("invalid ward: %s", s)
	}
	return w, nil
}

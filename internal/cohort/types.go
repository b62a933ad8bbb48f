package cohort

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Sex of an individual.
type Sex int

const (
	SexUnknown Sex = iota
	SexFemale
	SexMale
)

func (s Sex) String() string {
	switch s {
	case SexFemale:
		return "FEMALE"
	case SexMale:
		return "MALE"
	default:
		return "UNKNOWN_SEX"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Sex) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Sex) UnmarshalText(b []byte) error {
	switch strings.ToUpper(string(b)) {
	case "FEMALE", "F":
		*s = SexFemale
	case "MALE", "M":
		*s = SexMale
	case "", "UNKNOWN", "UNKNOWN_SEX", "OTHER_SEX":
		*s = SexUnknown
	default:
		return fmt.Errorf("unknown sex %q", string(b))
	}
	return nil
}

// Zygosity of a variant call.
type Zygosity int

const (
	HomozygousReference Zygosity = iota
	Heterozygous
	HomozygousAlternate
	Hemizygous
)

// AlleleCount returns the number of alternate alleles for the zygosity.
func (z Zygosity) AlleleCount() int {
	switch z {
	case Heterozygous, Hemizygous:
		return 1
	case HomozygousAlternate:
		return 2
	default:
		return 0
	}
}

func (z Zygosity) String() string {
	switch z {
	case Heterozygous:
		return "HETEROZYGOUS"
	case HomozygousAlternate:
		return "HOMOZYGOUS_ALTERNATE"
	case Hemizygous:
		return "HEMIZYGOUS"
	default:
		return "HOMOZYGOUS_REFERENCE"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (z Zygosity) MarshalText() ([]byte, error) { return []byte(z.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler. GA4GH GENO labels and
// VCF-style genotype strings are accepted.
func (z *Zygosity) UnmarshalText(b []byte) error {
	switch strings.ToLower(string(b)) {
	case "heterozygous", "het", "0/1", "0|1", "1|0", "geno:0000135":
		*z = Heterozygous
	case "homozygous_alternate", "homozygous", "hom", "1/1", "1|1", "geno:0000136":
		*z = HomozygousAlternate
	case "hemizygous", "hemi", "1", "geno:0000134":
		*z = Hemizygous
	case "homozygous_reference", "ref", "0/0", "0|0", "geno:0000137":
		*z = HomozygousReference
	default:
		return fmt.Errorf("unknown zygosity %q", string(b))
	}
	return nil
}

// Status is the vital status of an individual.
type Status int

const (
	StatusUnknown Status = iota
	StatusAlive
	StatusDeceased
)

func (s Status) String() string {
	switch s {
	case StatusAlive:
		return "ALIVE"
	case StatusDeceased:
		return "DECEASED"
	default:
		return "UNKNOWN_STATUS"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(b []byte) error {
	switch strings.ToUpper(string(b)) {
	case "ALIVE":
		*s = StatusAlive
	case "DECEASED":
		*s = StatusDeceased
	case "", "UNKNOWN", "UNKNOWN_STATUS":
		*s = StatusUnknown
	default:
		return fmt.Errorf("unknown vital status %q", string(b))
	}
	return nil
}

// VitalStatus records whether an individual is alive and, if not, when they died.
type VitalStatus struct {
	Status     Status `json:"status"`
	AgeOfDeath *Age   `json:"age_of_death,omitempty"`
}

// IsDeceased returns true if the individual is known to have died.
func (v VitalStatus) IsDeceased() bool { return v.Status == StatusDeceased }

// Average Gregorian lengths used to convert ISO 8601 durations to days.
const (
	DaysPerYear  = 365.25
	DaysPerMonth = DaysPerYear / 12
	DaysPerWeek  = 7
)

// Age is a point in an individual's life measured in days since birth.
type Age struct {
	Days float64
}

// Years returns the age in years.
func (a Age) Years() float64 { return a.Days / DaysPerYear }

var reISO8601 = regexp.MustCompile(`^P(?:(\d+(?:\.\d+)?)Y)?(?:(\d+(?:\.\d+)?)M)?(?:(\d+(?:\.\d+)?)W)?(?:(\d+(?:\.\d+)?)D)?$`)

// ParseISO8601 parses an ISO 8601 duration such as P2Y3M or P10D.
func ParseISO8601(s string) (Age, error) {
	m := reISO8601.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil || s == "P" {
		return Age{}, fmt.Errorf("invalid ISO 8601 duration %q", s)
	}
	factors := []float64{DaysPerYear, DaysPerMonth, DaysPerWeek, 1}
	var days float64
	for i, f := range factors {
		if m[i+1] == "" {
			continue
		}
		v, err := strconv.ParseFloat(m[i+1], 64)
		if err != nil {
			return Age{}, fmt.Errorf("invalid ISO 8601 duration %q: %w", s, err)
		}
		days += v * f
	}
	return Age{Days: days}, nil
}

// MarshalJSON encodes the age as a number of days.
func (a Age) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatFloat(a.Days, 'f', -1, 64)), nil
}

// UnmarshalJSON accepts a number of days or an ISO 8601 duration string.
func (a *Age) UnmarshalJSON(b []byte) error {
	var days float64
	if err := json.Unmarshal(b, &days); err == nil {
		a.Days = days
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("age must be days or an ISO 8601 duration: %w", err)
	}
	parsed, err := ParseISO8601(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

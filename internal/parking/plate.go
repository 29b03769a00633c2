package parking

import "regexp"

// DefaultPlatePattern matches identifiers like MH02FM1234: two letters,
// two digits, two letters, four digits.
const DefaultPlatePattern = `^[A-Z]{2}[0-9]{2}[A-Z]{2}[0-9]{4}$`

// PlateValidator reports whether a normalized plate is well formed. The
// grammar is a site policy supplied by the caller, not a core rule.
type PlateValidator func(plate string) bool

// PlateValidatorFromPattern builds a validator from a regular expression.
func PlateValidatorFromPattern(pattern string) (PlateValidator, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	return re.MatchString, nil
}

// DefaultPlateValidator validates against DefaultPlatePattern.
func DefaultPlateValidator() PlateValidator {
	return regexp.MustCompile(DefaultPlatePattern).MatchString
}

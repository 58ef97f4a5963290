package notify

import "strings"

// NormalizeSwedishMobile converts the phone formats customers actually
// type (070-123 45 67, 0046..., 46701234567) into E.164. Returns false
// when the number cannot be read as a Swedish mobile number.
func NormalizeSwedishMobile(raw string) (string, bool) {
	var digits strings.Builder
	for _, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			digits.WriteRune(r)
		case r == '+' && digits.Len() == 0:
			digits.WriteRune(r)
		case r == ' ' || r == '-' || r == '(' || r == ')':
			// separators are ignored
		default:
			return "", false
		}
	}

	number := digits.String()
	switch {
	case strings.HasPrefix(number, "+46"):
		// already E.164
	case strings.HasPrefix(number, "0046"):
		number = "+46" + number[4:]
	case strings.HasPrefix(number, "46"):
		number = "+" + number
	case strings.HasPrefix(number, "0"):
		number = "+46" + number[1:]
	default:
		return "", false
	}

	// +46 followed by a 9-digit national number starting with 7 (mobile).
	rest := strings.TrimPrefix(number, "+46")
	if len(rest) != 9 || rest[0] != '7' {
		return "", false
	}
	return number, true
}

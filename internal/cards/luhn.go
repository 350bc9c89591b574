package cards

// CheckDigit computes the Luhn check digit for payload, a string of decimal
// digits. Counting from the right of payload, every first, third, fifth...
// digit is doubled, since the check digit will occupy the rightmost slot.
func CheckDigit(payload string) byte {
	sum := 0
	for i := len(payload) - 1; i >= 0; i-- {
		d := int(payload[i] - '0')
		if (len(payload)-1-i)%2 == 0 {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
	}
	return byte('0' + (10-sum%10)%10)
}

// ValidLuhn reports whether number is all digits and passes the Luhn checksum.
func ValidLuhn(number string) bool {
	if len(number) < 2 {
		return false
	}
	for i := 0; i < len(number); i++ {
		if number[i] < '0' || number[i] > '9' {
			return false
		}
	}
	last := len(number) - 1
	return CheckDigit(number[:last]) == number[last]
}

package core

import (
	"errors"
	"strings"
)

var ErrInvalidCPF = errors.New("invalid CPF")

// NormalizeCPF strips everything but digits ("123.456.789-09" -> "12345678909").
func NormalizeCPF(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ValidateCPF checks length, repeated-digit sequences and both check digits.
func ValidateCPF(s string) error {
	digits := NormalizeCPF(s)
	if len(digits) != 11 {
		return ErrInvalidCPF
	}
	if strings.Count(digits, digits[:1]) == 11 {
		return ErrInvalidCPF
	}
	d := make([]int, 11)
	for i := range digits {
		d[i] = int(digits[i] - '0')
	}
	if checkDigit(d[:9], 10) != d[9] {
		return ErrInvalidCPF
	}
	if checkDigit(d[:10], 11) != d[10] {
		return ErrInvalidCPF
	}
	return nil
}

func checkDigit(d []int, weight int) int {
	sum := 0
	for i, v := range d {
		sum += v * (weight - i)
	}
	rem := (sum * 10) % 11
	if rem == 10 {
		return 0
	}
	return rem
}

// FormatCPF renders a valid CPF with its mask; other input is returned unchanged.
func FormatCPF(s string) string {
	d := NormalizeCPF(s)
	if len(d) != 11 {
		return s
	}
	return d[0:3] + "." + d[3:6] + "." + d[6:9] + "-" + d[9:11]
}

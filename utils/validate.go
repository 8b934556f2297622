package utils

import (
	"regexp"
	"strings"
	"unicode"
)

var emailPattern = regexp.MustCompile(`^[A-Z0-9a-z._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)

const (
	minPasswordLength = 8
	specialCharacters = `!@#$%^&*(),.?":{}|<>`
)

func ValidateEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// ValidatePassword 返回密码不满足的全部规则，空切片表示通过
func ValidatePassword(password string) []string {
	var problems []string

	if len([]rune(password)) < minPasswordLength {
		problems = append(problems, "Password must be at least 8 characters long")
	}

	var upper, lower, digit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !upper {
		problems = append(problems, "Password must contain at least one uppercase letter")
	}
	if !lower {
		problems = append(problems, "Password must contain at least one lowercase letter")
	}
	if !digit {
		problems = append(problems, "Password must contain at least one number")
	}
	if !strings.ContainsAny(password, specialCharacters) {
		problems = append(problems, "Password must contain at least one special character")
	}

	return problems
}

// NormalizeEmail 邮箱统一小写并去掉首尾空白
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

package service

import (
	"bufio"
	_ "embed"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

//go:embed data/common_passwords.txt
var commonPasswordsList string

// guessesPerSecond models an offline attacker on modern hardware.
const guessesPerSecond = 1_000_000_000

const (
	secondsPerMinute = 60
	secondsPerHour   = 3600
	secondsPerDay    = 86400
	secondsPerMonth  = 2592000 // 30 days
	secondsPerYear   = 31536000
)

var (
	lowerRe        = regexp.MustCompile(`[a-z]`)
	upperRe        = regexp.MustCompile(`[A-Z]`)
	digitRe        = regexp.MustCompile(`[0-9]`)
	specialRe      = regexp.MustCompile(`[^a-zA-Z0-9]`)
	allDigitsRe    = regexp.MustCompile(`^[0-9]+$`)
	allLettersRe   = regexp.MustCompile(`^[a-zA-Z]+$`)
	weakPrefixRe   = regexp.MustCompile(`(?i)^(123|abc|qwe)`)
	commonPrefixRe = regexp.MustCompile(`(?i)^(123|abc|qwe|password)`)
)

// PasswordStrength is the result of a strength evaluation.
type PasswordStrength struct {
	Score     int      `json:"score"` // 0 (very weak) to 4 (very strong)
	Feedback  []string `json:"feedback"`
	IsCommon  bool     `json:"isCommon"`
	CrackTime string   `json:"crackTime"`
}

// StrengthEvaluator scores passwords. It is a pure function of its input and
// safe for concurrent use.
type StrengthEvaluator struct {
	common map[string]struct{}
}

// NewStrengthEvaluator creates an evaluator backed by the embedded common-password list.
func NewStrengthEvaluator() *StrengthEvaluator {
	return &StrengthEvaluator{
		common: parseCommonPasswords(commonPasswordsList),
	}
}

func parseCommonPasswords(list string) map[string]struct{} {
	set := make(map[string]struct{})
	sc := bufio.NewScanner(strings.NewReader(list))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		set[strings.ToLower(line)] = struct{}{}
	}
	return set
}

// Evaluate scores password and explains how to improve it.
func (e *StrengthEvaluator) Evaluate(password string) PasswordStrength {
	score := e.Score(password)
	isCommon := e.IsCommon(password)
	return PasswordStrength{
		Score:     score,
		Feedback:  e.feedback(password, score, isCommon),
		IsCommon:  isCommon,
		CrackTime: e.CrackTime(password),
	}
}

// IsCommon reports whether the lower-cased password is on the common list.
func (e *StrengthEvaluator) IsCommon(password string) bool {
	_, ok := e.common[strings.ToLower(password)]
	return ok
}

// Score returns the 0-4 strength score.
func (e *StrengthEvaluator) Score(password string) int {
	length := utf8.RuneCountInString(password)
	score := 0

	if length >= 8 {
		score++
	}
	if length >= 12 {
		score++
	}
	if length >= 16 {
		score++
	}

	if lowerRe.MatchString(password) {
		score++
	}
	if upperRe.MatchString(password) {
		score++
	}
	if digitRe.MatchString(password) {
		score++
	}
	if specialRe.MatchString(password) {
		score++
	}

	if allDigitsRe.MatchString(password) {
		score -= 2
	}
	if allLettersRe.MatchString(password) {
		score--
	}
	if hasRepeatedRun(password, 3) {
		score--
	}
	if weakPrefixRe.MatchString(password) {
		score--
	}

	// Halve with floor semantics, then clamp. Negative raw scores land on 0.
	if score < 0 {
		return 0
	}
	score /= 2
	if score > 4 {
		return 4
	}
	return score
}

func (e *StrengthEvaluator) feedback(password string, score int, isCommon bool) []string {
	var out []string
	length := utf8.RuneCountInString(password)

	if length < 8 {
		out = append(out, "Password should be at least 8 characters long")
	} else if length < 12 {
		out = append(out, "Consider using at least 12 characters for better security")
	}

	if !lowerRe.MatchString(password) {
		out = append(out, "Add lowercase letters (a-z)")
	}
	if !upperRe.MatchString(password) {
		out = append(out, "Add uppercase letters (A-Z)")
	}
	if !digitRe.MatchString(password) {
		out = append(out, "Add numbers (0-9)")
	}
	if !specialRe.MatchString(password) {
		out = append(out, "Add special characters (!@#$%^&*)")
	}

	if hasRepeatedRun(password, 3) {
		out = append(out, `Avoid repeated characters (e.g., "aaa", "111")`)
	}
	if commonPrefixRe.MatchString(password) {
		out = append(out, "Avoid common sequences and words")
	}
	if isCommon {
		out = append(out, "⚠️ This is a commonly used password - DO NOT USE IT")
	}

	switch score {
	case 4:
		out = append(out, "✅ Excellent! This is a very strong password")
	case 3:
		out = append(out, "👍 Good password strength")
	case 2:
		out = append(out, "⚠️ Moderate strength - could be improved")
	case 1:
		out = append(out, "⚠️ Weak password - please strengthen it")
	default:
		out = append(out, "❌ Very weak password - NOT RECOMMENDED")
	}

	return out
}

// CrackTime estimates how long an exhaustive search over the password's
// character space would take.
func (e *StrengthEvaluator) CrackTime(password string) string {
	space := int64(0)
	if lowerRe.MatchString(password) {
		space += 26
	}
	if upperRe.MatchString(password) {
		space += 26
	}
	if digitRe.MatchString(password) {
		space += 10
	}
	if specialRe.MatchString(password) {
		space += 32
	}

	length := int64(utf8.RuneCountInString(password))
	if space == 0 || length == 0 {
		return "Instant"
	}

	p := message.NewPrinter(language.English)
	combinations := decimal.NewFromInt(space).Pow(decimal.NewFromInt(length))
	seconds := combinations.Div(decimal.NewFromInt(guessesPerSecond))

	below := func(limit int64) bool { return seconds.LessThan(decimal.NewFromInt(limit)) }
	rounded := func(unit int64) int64 { return seconds.Div(decimal.NewFromInt(unit)).Round(0).IntPart() }

	switch {
	case below(1):
		return "Instant"
	case below(secondsPerMinute):
		return p.Sprintf("%d seconds", rounded(1))
	case below(secondsPerHour):
		return p.Sprintf("%d minutes", rounded(secondsPerMinute))
	case below(secondsPerDay):
		return p.Sprintf("%d hours", rounded(secondsPerHour))
	case below(secondsPerMonth):
		return p.Sprintf("%d days", rounded(secondsPerDay))
	case below(secondsPerYear):
		return p.Sprintf("%d months", rounded(secondsPerMonth))
	}

	years := seconds.Div(decimal.NewFromInt(secondsPerYear))
	switch {
	case years.LessThan(decimal.NewFromInt(1_000_000)):
		return p.Sprintf("%d years", years.Round(0).IntPart())
	case years.LessThan(decimal.NewFromInt(1_000_000_000)):
		return p.Sprintf("%d million years", years.Div(decimal.NewFromInt(1_000_000)).Round(0).IntPart())
	default:
		return "Centuries"
	}
}

// hasRepeatedRun reports whether any character occurs n or more times in a row.
func hasRepeatedRun(s string, n int) bool {
	var prev rune
	run := 0
	for i, r := range s {
		if i > 0 && r == prev {
			run++
		} else {
			run = 1
		}
		if run >= n {
			return true
		}
		prev = r
	}
	return false
}

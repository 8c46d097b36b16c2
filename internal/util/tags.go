// Package util provides text helpers shared by the note and media services.
package util

import (
	"regexp"
	"slices"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var (
	// Anything that is not a letter, digit, space, dash or underscore.
	tagDisallowedRe = regexp.MustCompile(`[^\p{L}\p{N}\s_-]+`)
	whitespaceRe    = regexp.MustCompile(`\s+`)
	hashtagRe       = regexp.MustCompile(`#([\p{L}\p{N}_]+)`)
)

// maxTagRunes mirrors domain.MaxTagLength without importing domain.
const maxTagRunes = 50

// NormalizeTagLabel converts user input to the canonical tag label.
// The label is the source of truth for tag identity.
//
// Normalization rules:
//  1. Decompose and strip combining marks ("Larsón" → "larson")
//  2. Trim whitespace and lowercase
//  3. Drop punctuation other than dashes and underscores
//  4. Collapse runs of whitespace
//  5. Truncate to 50 characters
//
// Examples:
//
//	"Qualifying"       → "qualifying"
//	"  Tire   Wear "   → "tire wear"
//	"#Setup!"          → "setup"
//	"Pit-Road_Speed"   → "pit-road_speed"
func NormalizeTagLabel(input string) string {
	s := norm.NFKD.String(input)
	s = strings.Map(func(r rune) rune {
		if unicode.Is(unicode.Mn, r) {
			return -1
		}
		return r
	}, s)

	s = strings.ToLower(strings.TrimSpace(s))
	s = tagDisallowedRe.ReplaceAllString(s, "")
	s = whitespaceRe.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)

	if r := []rune(s); len(r) > maxTagRunes {
		s = strings.TrimSpace(string(r[:maxTagRunes]))
	}
	return s
}

// NormalizeTagLabels normalizes, drops empties and de-duplicates while keeping first-seen order.
func NormalizeTagLabels(inputs []string) []string {
	out := make([]string, 0, len(inputs))
	for _, in := range inputs {
		label := NormalizeTagLabel(in)
		if label == "" || slices.Contains(out, label) {
			continue
		}
		out = append(out, label)
	}
	return out
}

// ExtractHashtags returns the lowercased hashtags found in text, in order, without duplicates.
func ExtractHashtags(text string) []string {
	matches := hashtagRe.FindAllStringSubmatch(text, -1)
	tags := make([]string, 0, len(matches))
	for _, m := range matches {
		tags = append(tags, m[1])
	}
	return NormalizeTagLabels(tags)
}

// racingTerms are words that commonly deserve a tag when they appear in a note.
var racingTerms = []string{
	"aero", "aerodynamics", "caution", "checkered", "crash", "debris", "draft",
	"drafting", "finish", "flag", "fuel", "green", "handling", "lap", "leader",
	"overtake", "pass", "pit", "pole", "position", "practice", "qualifying",
	"race", "restart", "session", "setup", "speed", "strategy", "tire", "tires",
	"winner", "wreck", "yellow",
}

// SuggestTags proposes tags for a note body: known racing terms that appear
// as words (or word prefixes, so "drafting" suggests "draft") plus hashtags.
// The result is sorted and free of duplicates.
func SuggestTags(text string) []string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	var out []string
	for _, term := range racingTerms {
		for _, w := range words {
			if strings.HasPrefix(w, term) {
				out = append(out, term)
				break
			}
		}
	}
	out = append(out, ExtractHashtags(text)...)

	slices.Sort(out)
	return slices.Compact(out)
}

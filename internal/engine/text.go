package engine

import (
	"regexp"
	"strconv"
	"strings"
)

// Shared lexical helpers. Handlers match against lowercased utterances,
// so every pattern here assumes lowercase input.

var (
	affirmativeRe = regexp.MustCompile(`^\s*(yes|yeah|yep|yup|sure|ok|okay|definitely|absolutely|please|sounds good|that works|perfect|correct)(\s+(please|thanks|thank you))?[\s!.]*$`)
	negativeRe    = regexp.MustCompile(`^\s*(no|nope|nah|no thanks|no thank you|not really|i'?m (good|fine|ok|okay))[\s!.]*$`)
	doneRe        = regexp.MustCompile(`\b(that'?s (it|all|everything)|i'?m (done|good|finished)|nothing else|all set|done ordering)\b`)

	emailRe = regexp.MustCompile(`[\w.+-]+@[\w.-]+\.\w+`)
	digitRe = regexp.MustCompile(`\d`)

	namePrefixRe  = regexp.MustCompile(`^(my name is|i'?m|it'?s|name is|call me|this is)\s+`)
	inlineNameRe  = regexp.MustCompile(`\b(?:my name is|name is|call me)\s+([a-z]+(?:\s+[a-z]+)?)`)
	quantityRe    = regexp.MustCompile(`\b(\d+)\b`)
	drinkWordRe   = regexp.MustCompile(`\b(coffees?|lattes?|cappuccinos?|americanos?|espresso|macchiatos?|mochas?|cold brew|tea|chai|hot chocolate|drip)\b`)
	bagelWordRe   = regexp.MustCompile(`\b(bagels?|bialys?)\b`)
	pickupWordRe  = regexp.MustCompile(`\b(pick\s*up|pickup|for pickup|come get|i'?ll (pick|come|swing by)|carry\s*out|take\s*out|to go)\b`)
	deliverWordRe = regexp.MustCompile(`\b(deliver(y|ed)?|bring (it|them)|drop (it )?off|to my (house|place|office|apartment))\b`)
)

// Multi-word phrases come first so "half dozen" is not read as "dozen".
var quantityWordRe = regexp.MustCompile(`\b(half dozen|dozen|couple|few|one|two|three|four|five|six|seven|eight|nine|ten|an|a)\b`)

var quantityWords = map[string]int{
	"a": 1, "an": 1, "one": 1, "two": 2, "three": 3, "four": 4,
	"five": 5, "six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
	"couple": 2, "few": 3, "half dozen": 6, "dozen": 12,
}

func isAffirmative(u string) bool { return affirmativeRe.MatchString(u) }
func isNegative(u string) bool    { return negativeRe.MatchString(u) }
func isDone(u string) bool        { return doneRe.MatchString(u) }

func mentionsDrink(u string) bool    { return drinkWordRe.MatchString(u) }
func mentionsBagel(u string) bool    { return bagelWordRe.MatchString(u) }
func mentionsPickup(u string) bool   { return pickupWordRe.MatchString(u) }
func mentionsDelivery(u string) bool { return deliverWordRe.MatchString(u) }

// parseQuantity finds an explicit count in the utterance, written as a
// digit or a number word. Returns 1 when nothing matches.
func parseQuantity(u string) int {
	if m := quantityRe.FindStringSubmatch(u); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 && n <= 100 {
			return n
		}
	}
	// "a dozen" should read as 12, so articles only count when no real
	// number word appears.
	article := 0
	for _, m := range quantityWordRe.FindAllStringSubmatch(u, -1) {
		if m[1] == "a" || m[1] == "an" {
			article = 1
			continue
		}
		if n, ok := quantityWords[m[1]]; ok {
			return n
		}
	}
	if article > 0 {
		return article
	}
	return 1
}

// extractEmail pulls the first email address from the utterance.
func extractEmail(u string) string {
	return emailRe.FindString(u)
}

// extractPhone pulls a phone number when the utterance carries at least
// ten digits.
func extractPhone(u string) string {
	digits := strings.Join(digitRe.FindAllString(u, -1), "")
	if len(digits) >= 10 {
		return digits
	}
	return ""
}

// cleanName strips lead-ins like "my name is" and title-cases the rest.
// Returns empty when what remains is too short to be a name.
func cleanName(u string) string {
	name := namePrefixRe.ReplaceAllString(strings.TrimSpace(u), "")
	name = strings.Trim(name, " .!,")
	if len(name) < 2 {
		return ""
	}
	words := strings.Fields(name)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// extractInlineName finds a self-introduction embedded in a longer
// utterance, e.g. "..., my name is Sam".
func extractInlineName(u string) string {
	m := inlineNameRe.FindStringSubmatch(u)
	if m == nil {
		return ""
	}
	return cleanName(m[1])
}

package engine

import "regexp"

// Intent is the classified purpose of one customer utterance.
type Intent string

const (
	IntentGreeting       Intent = "greeting"
	IntentHours          Intent = "hours"
	IntentLocation       Intent = "location"
	IntentHelp           Intent = "help"
	IntentOrderBagel     Intent = "order_bagel"
	IntentOrderDrink     Intent = "order_drink"
	IntentModifyOrder    Intent = "modify_order"
	IntentRemoveItem     Intent = "remove_item"
	IntentViewOrder      Intent = "view_order"
	IntentCheckout       Intent = "checkout"
	IntentConfirm        Intent = "confirm"
	IntentCancel         Intent = "cancel"
	IntentSetDelivery    Intent = "set_delivery"
	IntentSetPickup      Intent = "set_pickup"
	IntentProvideAddress Intent = "provide_address"
	IntentAffirmative    Intent = "affirmative"
	IntentNegative       Intent = "negative"
	IntentDone           Intent = "done"
	IntentUnknown        Intent = "unknown"
)

type intentPattern struct {
	intent Intent
	re     *regexp.Regexp
}

// intentPatterns run in order against the lowercased utterance; the first
// match wins. Item orders outrank fulfillment keywords so a compound
// utterance like "everything bagel ... pickup" lands in the bagel flow,
// which picks the fulfillment mention up separately.
var intentPatterns = []intentPattern{
	{IntentGreeting, regexp.MustCompile(`^\s*(hi|hello|hey|good\s*(morning|afternoon|evening)|howdy)[\s!.,]*$`)},
	{IntentHours, regexp.MustCompile(`\b(hours?|open|close|closing|when (are you|do you))\b`)},
	{IntentLocation, regexp.MustCompile(`\b(where|location|address of|directions|find you)\b`)},
	{IntentHelp, regexp.MustCompile(`\b(help|what can you do|how does this work|menu)\b`)},
	{IntentRemoveItem, regexp.MustCompile(`\b(remove|take off|get rid of|drop the|without the)\b`)},
	{IntentModifyOrder, regexp.MustCompile(`\b(change|actually|instead|swap|make (it|that))\b`)},
	{IntentViewOrder, regexp.MustCompile(`\b(what('?s| is) (in )?my order|show (me )?(my )?order|order so far|my cart)\b`)},
	{IntentCheckout, regexp.MustCompile(`\b(check\s*out|pay|ready to pay|done ordering|that'?ll be all)\b`)},
	{IntentCancel, regexp.MustCompile(`\b(cancel|never\s*mind|forget (it|the order)|start over)\b`)},
	{IntentOrderBagel, regexp.MustCompile(`\b(bagels?|bialys?|plain|everything|sesame|poppy|onion|cinnamon raisin|pumpernickel|salt bagel)\b`)},
	{IntentOrderDrink, regexp.MustCompile(`\b(coffees?|lattes?|cappuccinos?|americanos?|espresso|macchiatos?|mochas?|cold brew|tea|chai|hot chocolate|drip)\b`)},
	{IntentSetDelivery, regexp.MustCompile(`\b(deliver(y|ed)?|bring (it|them)|drop (it )?off)\b`)},
	{IntentSetPickup, regexp.MustCompile(`\b(pick\s*up|pickup|come get|i'?ll (pick|come|swing by)|carry\s*out|take\s*out|to go)\b`)},
	{IntentProvideAddress, regexp.MustCompile(`\d+\s+\w+\s+(st(reet)?|ave(nue)?|rd|road|blvd|dr(ive)?|ln|lane|way|ct|court|pl(ace)?|cir(cle)?)\b`)},
	{IntentConfirm, regexp.MustCompile(`\b(confirm|place (the )?order|that'?s correct|looks good)\b`)},
	{IntentDone, doneRe},
	{IntentAffirmative, affirmativeRe},
	{IntentNegative, negativeRe},
}

// intentDomains routes each actionable intent to the domain that owns
// it. Affirmative, negative, done and unknown are absent on purpose:
// they stay with whichever domain is mid-flow.
var intentDomains = map[Intent]Domain{
	IntentGreeting:       DomainGreeting,
	IntentHours:          DomainGreeting,
	IntentLocation:       DomainGreeting,
	IntentHelp:           DomainGreeting,
	IntentOrderBagel:     DomainBagel,
	IntentOrderDrink:     DomainDrink,
	IntentModifyOrder:    DomainCheckout,
	IntentRemoveItem:     DomainCheckout,
	IntentViewOrder:      DomainCheckout,
	IntentCheckout:       DomainCheckout,
	IntentConfirm:        DomainCheckout,
	IntentCancel:         DomainCheckout,
	IntentSetDelivery:    DomainDelivery,
	IntentSetPickup:      DomainDelivery,
	IntentProvideAddress: DomainDelivery,
}

// classifyByPattern runs the ordered regex table. Returns IntentUnknown
// when nothing matches.
func classifyByPattern(utterance string) Intent {
	for _, p := range intentPatterns {
		if p.re.MatchString(utterance) {
			return p.intent
		}
	}
	return IntentUnknown
}

// DomainFor resolves the owning domain for an intent. The second return
// is false for sticky intents that should stay in the current domain.
func DomainFor(intent Intent) (Domain, bool) {
	d, ok := intentDomains[intent]
	return d, ok
}

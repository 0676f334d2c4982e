package flow

import (
	"fmt"
	"strings"
)

const (
	promptGreeting      = "Hi! I can help you list a property. Let's start: what is the street address?"
	promptZip           = "Got it. What is the ZIP code?"
	promptBedrooms      = "How many bedrooms does it have?"
	promptBathrooms     = "How many bathrooms?"
	promptSize          = "What is the size in square meters?"
	promptPrice         = "What is the asking price?"
	promptAmenities     = "Any amenities? (e.g. pool, garage, garden)"
	promptImages        = "Listing saved! Now send me photos of the property one by one. Send *done* when finished."
	promptImageReceived = "Photo added. Send more, or *done* to finish."
	promptDone          = "All set, your listing is complete. Send any message to create another one."
	promptCancelled     = "Listing cancelled. Send any message to start over."
	promptRestart       = "No problem, let's start over. What is the street address?"

	repromptNumber       = "Please send a number (digits only)."
	repromptConfirmation = "Please answer *yes* or *no*."
	repromptImages       = "Send a photo, or *done* to finish."
)

func confirmationPrompt(d Draft) string {
	var b strings.Builder
	b.WriteString("Here is your listing:\n")
	fmt.Fprintf(&b, "• Address: %s\n", d.Address)
	fmt.Fprintf(&b, "• ZIP: %s\n", d.Zip)
	fmt.Fprintf(&b, "• Bedrooms: %d\n", d.Bedrooms)
	fmt.Fprintf(&b, "• Bathrooms: %d\n", d.Bathrooms)
	fmt.Fprintf(&b, "• Size: %d m²\n", d.SizeSqm)
	fmt.Fprintf(&b, "• Price: %d\n", d.Price)
	fmt.Fprintf(&b, "• Amenities: %s\n", d.Amenities)
	b.WriteString("\nShall I save it? (*yes*/*no*)")
	return b.String()
}

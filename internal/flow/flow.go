// Package flow implements the listing collection conversation as a pure
// state machine. Transition never fails and performs no I/O; everything
// fallible is returned as an EffectKind for the orchestrator to execute.
package flow

import (
	"strconv"
	"strings"
)

// Transition computes the next step for one inbound input. It is total over
// its input domain: any text in any state yields a well-defined step.
func Transition(state State, draft Draft, input Input) Step {
	text := strings.TrimSpace(input.Text)

	if isCancelCommand(text) {
		return Step{Next: StateInitial, Draft: Draft{}, Reply: promptCancelled}
	}
	if isStartCommand(text) {
		return Step{Next: StateAwaitingAddress, Draft: Draft{}, Reply: promptGreeting}
	}

	switch Normalize(state) {
	case StateInitial:
		// Any first contact, /start included, opens a fresh draft.
		return Step{Next: StateAwaitingAddress, Draft: Draft{}, Reply: promptGreeting}

	case StateAwaitingAddress:
		if text == "" {
			return Step{Next: StateAwaitingAddress, Draft: draft, Reply: promptGreeting}
		}
		draft.Address = text
		return Step{Next: StateAwaitingZip, Draft: draft, Reply: promptZip}

	case StateAwaitingZip:
		if text == "" {
			return Step{Next: StateAwaitingZip, Draft: draft, Reply: promptZip}
		}
		draft.Zip = text
		return Step{Next: StateAwaitingBedrooms, Draft: draft, Reply: promptBedrooms}

	case StateAwaitingBedrooms:
		value, ok := parseCount(text)
		if !ok {
			return Step{Next: StateAwaitingBedrooms, Draft: draft, Reply: repromptNumber}
		}
		draft.Bedrooms = value
		return Step{Next: StateAwaitingBathrooms, Draft: draft, Reply: promptBathrooms}

	case StateAwaitingBathrooms:
		value, ok := parseCount(text)
		if !ok {
			return Step{Next: StateAwaitingBathrooms, Draft: draft, Reply: repromptNumber}
		}
		draft.Bathrooms = value
		return Step{Next: StateAwaitingSize, Draft: draft, Reply: promptSize}

	case StateAwaitingSize:
		value, ok := parseCount(text)
		if !ok {
			return Step{Next: StateAwaitingSize, Draft: draft, Reply: repromptNumber}
		}
		draft.SizeSqm = value
		return Step{Next: StateAwaitingPrice, Draft: draft, Reply: promptPrice}

	case StateAwaitingPrice:
		value, ok := parseCount(text)
		if !ok {
			return Step{Next: StateAwaitingPrice, Draft: draft, Reply: repromptNumber}
		}
		draft.Price = value
		return Step{Next: StateAwaitingAmenities, Draft: draft, Reply: promptAmenities}

	case StateAwaitingAmenities:
		if text == "" {
			return Step{Next: StateAwaitingAmenities, Draft: draft, Reply: promptAmenities}
		}
		draft.Amenities = text
		return Step{Next: StateAwaitingConfirmation, Draft: draft, Reply: confirmationPrompt(draft)}

	case StateAwaitingConfirmation:
		switch strings.ToLower(text) {
		case "yes":
			return Step{Next: StateAwaitingImages, Draft: draft, Reply: promptImages, Effect: EffectPersistListing}
		case "no":
			return Step{Next: StateAwaitingAddress, Draft: Draft{}, Reply: promptRestart}
		default:
			return Step{Next: StateAwaitingConfirmation, Draft: draft, Reply: repromptConfirmation}
		}

	case StateAwaitingImages:
		if url := strings.TrimSpace(input.PhotoURL); url != "" {
			draft.ImageURLs = append(draft.ImageURLs, url)
			return Step{Next: StateAwaitingImages, Draft: draft, Reply: promptImageReceived}
		}
		if strings.EqualFold(text, "done") {
			return Step{Next: StateInitial, Draft: Draft{}, Reply: promptDone, Effect: EffectFinalize}
		}
		return Step{Next: StateAwaitingImages, Draft: draft, Reply: repromptImages}

	default:
		return Step{Next: StateAwaitingAddress, Draft: Draft{}, Reply: promptGreeting}
	}
}

func isCancelCommand(text string) bool {
	return strings.EqualFold(text, "/cancel")
}

// isStartCommand restarts the questionnaire from anywhere, dropping any
// in-progress draft.
func isStartCommand(text string) bool {
	return strings.EqualFold(text, "/start")
}

// parseCount accepts plain non-negative integers, tolerating the comma
// thousands separators users commonly type into price fields.
func parseCount(text string) (int, bool) {
	cleaned := strings.NewReplacer(",", "", " ", "").Replace(text)
	if cleaned == "" {
		return 0, false
	}
	value, err := strconv.Atoi(cleaned)
	if err != nil || value < 0 {
		return 0, false
	}
	return value, true
}

package flow

// State identifies the current point in the listing collection flow.
type State string

const (
	StateInitial              State = "initial"
	StateAwaitingAddress      State = "awaiting_address"
	StateAwaitingZip          State = "awaiting_zip"
	StateAwaitingBedrooms     State = "awaiting_bedrooms"
	StateAwaitingBathrooms    State = "awaiting_bathrooms"
	StateAwaitingSize         State = "awaiting_size"
	StateAwaitingPrice        State = "awaiting_price"
	StateAwaitingAmenities    State = "awaiting_amenities"
	StateAwaitingConfirmation State = "awaiting_confirmation"
	StateAwaitingImages       State = "awaiting_images"
)

// Normalize maps unknown or empty state values to StateInitial.
func Normalize(s State) State {
	switch s {
	case StateAwaitingAddress, StateAwaitingZip, StateAwaitingBedrooms,
		StateAwaitingBathrooms, StateAwaitingSize, StateAwaitingPrice,
		StateAwaitingAmenities, StateAwaitingConfirmation, StateAwaitingImages:
		return s
	default:
		return StateInitial
	}
}

// Draft is the listing data accumulated across a session. Fields fill in
// prompt order; a field for a question not yet asked is always zero.
type Draft struct {
	Address   string   `json:"address,omitempty"`
	Zip       string   `json:"zip,omitempty"`
	Bedrooms  int      `json:"bedrooms,omitempty"`
	Bathrooms int      `json:"bathrooms,omitempty"`
	SizeSqm   int      `json:"size_sqm,omitempty"`
	Price     int      `json:"price,omitempty"`
	Amenities string   `json:"amenities,omitempty"`
	ImageURLs []string `json:"image_urls,omitempty"`
	// ListingID is assigned by the orchestrator when the listing is
	// persisted; the transition function never sets it.
	ListingID string `json:"listing_id,omitempty"`
}

// Input is one inbound conversational event, already reduced to text by the
// orchestrator. PhotoURL is set instead of Text when a processed photo URL
// is injected during image collection.
type Input struct {
	Text     string
	PhotoURL string
}

// EffectKind names a side effect the orchestrator must execute for a step.
type EffectKind string

const (
	// EffectNone means the step has no side effect.
	EffectNone EffectKind = ""
	// EffectPersistListing persists the draft as a new listing record.
	EffectPersistListing EffectKind = "persist-listing"
	// EffectFinalize marks the end of image collection. It is a no-op hook
	// kept explicit so the orchestrator can log completion.
	EffectFinalize EffectKind = "finalize"
)

// Step is the result of one transition: the state and draft to persist, the
// reply to send, and the effect to execute.
type Step struct {
	Next   State
	Draft  Draft
	Reply  string
	Effect EffectKind
}

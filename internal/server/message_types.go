package server

// MessageType represents a WebSocket message type with type safety
type MessageType string

const (
	// Client to server messages
	MessageTypeSeat       MessageType = "seat"
	MessageTypeUnseat     MessageType = "unseat"
	MessageTypeStartRound MessageType = "start_round"
	MessageTypeDeal       MessageType = "deal"
	MessageTypePlaceCard  MessageType = "place_card"
	MessageTypeRemoveCard MessageType = "remove_card"
	MessageTypeGetState   MessageType = "get_state"
	MessageTypeClassify   MessageType = "classify"

	// Server to client messages
	MessageTypeSeated MessageType = "seated"
	MessageTypeState  MessageType = "state"
	MessageTypeHand   MessageType = "hand"
	MessageTypeError  MessageType = "error"
)

// String returns the string representation of the message type
func (mt MessageType) String() string {
	return string(mt)
}

// Error codes sent in error messages.
const (
	ErrCodeInvalidMessage  = "invalid_message"
	ErrCodeUnknownType     = "unknown_message_type"
	ErrCodeNotSeated       = "not_seated"
	ErrCodePlacementFailed = "placement_failed"
	ErrCodeDealFailed      = "deal_failed"
	ErrCodeInvalidCard     = "invalid_card"
	ErrCodeInvalidHand     = "invalid_hand"
)

package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrUnknownEvent = errors.New("unknown event")
	ErrMalformed    = errors.New("malformed message")
)

// Message is a decoded envelope with its typed payload.
type Message struct {
	ID      string
	Payload Payload
}

// Encode frames a payload into an envelope. id may be empty.
func Encode(id string, p Payload) ([]byte, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", p.Kind(), err)
	}
	return json.Marshal(Envelope{Event: p.Kind(), ID: id, Data: data})
}

// DecodeRequest decodes a client -> server frame. Only client event kinds are
// accepted.
func DecodeRequest(b []byte) (Message, error) {
	env, err := unwrap(b)
	if err != nil {
		return Message{}, err
	}

	switch env.Event {
	case EventPlaceOrder:
		var p PlaceOrder
		if err := decodeData(env, &p); err != nil {
			return Message{ID: env.ID}, err
		}
		return Message{ID: env.ID, Payload: p}, nil
	default:
		return Message{ID: env.ID}, fmt.Errorf("%w: %q", ErrUnknownEvent, env.Event)
	}
}

// DecodeEvent decodes a server -> client frame.
func DecodeEvent(b []byte) (Message, error) {
	env, err := unwrap(b)
	if err != nil {
		return Message{}, err
	}

	var p Payload
	switch env.Event {
	case EventPriceUpdate:
		var v PriceTick
		err = decodeData(env, &v)
		p = v
	case EventOrderConfirmed:
		var v OrderConfirmation
		err = decodeData(env, &v)
		p = v
	case EventOrderUpdate:
		var v OrderUpdate
		err = decodeData(env, &v)
		p = v
	case EventBalanceUpdate:
		var v BalanceUpdate
		err = decodeData(env, &v)
		p = v
	case EventError:
		var v ErrorMessage
		err = decodeData(env, &v)
		p = v
	default:
		return Message{ID: env.ID}, fmt.Errorf("%w: %q", ErrUnknownEvent, env.Event)
	}
	if err != nil {
		return Message{ID: env.ID}, err
	}
	return Message{ID: env.ID, Payload: p}, nil
}

func unwrap(b []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if env.Event == "" {
		return env, fmt.Errorf("%w: missing event", ErrMalformed)
	}
	return env, nil
}

func decodeData(env Envelope, v any) error {
	if len(env.Data) == 0 {
		return fmt.Errorf("%w: %s has no data", ErrMalformed, env.Event)
	}
	if err := json.Unmarshal(env.Data, v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformed, env.Event, err)
	}
	return nil
}

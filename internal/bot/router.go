package bot

import (
	"strings"
	"unicode"

	"lookup-bot/internal/models"
	"lookup-bot/internal/state"
)

// inputShape is what a bare text message looks like on its own, before
// any conversation state is consulted.
type inputShape int

const (
	shapeNone inputShape = iota
	shapePhone
	shapeVehicle
	shapeEmail
)

// classify recognizes the three query shapes and returns the normalized
// query. Phone: exactly 10 digits. Vehicle: a dot prefix followed by a
// registration number. Email: one @ with a dotted domain.
func classify(text string) (inputShape, string) {
	text = strings.TrimSpace(text)

	if len(text) == 10 && allDigits(text) {
		return shapePhone, text
	}

	if strings.HasPrefix(text, ".") {
		rc := strings.TrimSpace(text[1:])
		if rc != "" && !strings.ContainsAny(rc, " \t") {
			return shapeVehicle, strings.ToUpper(rc)
		}
	}

	if at := strings.Index(text, "@"); at > 0 && at == strings.LastIndex(text, "@") {
		domain := text[at+1:]
		if dot := strings.Index(domain, "."); dot > 0 && dot < len(domain)-1 && !strings.ContainsAny(text, " \t") {
			return shapeEmail, strings.ToLower(text)
		}
	}

	return shapeNone, ""
}

func allDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// resolution says which consumer gets a text message.
type resolution int

const (
	resIgnore resolution = iota
	resPhone
	resVehicle
	resEmail
	resState
)

// resolve applies the routing priority. In private chats a recognized
// query shape wins over pending state; an awaiting-lookup state then
// consumes any text as the query. In groups the pending state wins, and
// with no state only recognized shapes are routed.
func resolve(private bool, st state.State, shape inputShape) resolution {
	if private {
		switch shape {
		case shapePhone:
			return resPhone
		case shapeVehicle:
			return resVehicle
		case shapeEmail:
			return resEmail
		}
		switch st.Kind {
		case state.KindNone:
			return resIgnore
		case state.KindAwaitingPhone:
			return resPhone
		case state.KindAwaitingVehicle:
			return resVehicle
		case state.KindAwaitingEmail:
			return resEmail
		default:
			return resState
		}
	}

	switch st.Kind {
	case state.KindAwaitingPhone:
		return resPhone
	case state.KindAwaitingVehicle:
		return resVehicle
	case state.KindAwaitingEmail:
		return resEmail
	case state.KindNone:
	default:
		return resState
	}

	switch shape {
	case shapePhone:
		return resPhone
	case shapeVehicle:
		return resVehicle
	case shapeEmail:
		return resEmail
	}
	return resIgnore
}

func lookupKind(res resolution) string {
	switch res {
	case resPhone:
		return models.SearchKindPhone
	case resVehicle:
		return models.SearchKindVehicle
	case resEmail:
		return models.SearchKindEmail
	}
	return ""
}

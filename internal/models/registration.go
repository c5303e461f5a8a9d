package models

// RegistrationOutcome — итог транзакции регистрации/отмены регистрации.
// Отрицательные исходы возвращаются значением из тела транзакции, а не ошибкой.
type RegistrationOutcome int

const (
	OutcomeRegistered RegistrationOutcome = iota
	OutcomeUnregistered
	OutcomeConferenceNotFound
	OutcomeProfileNotFound
	OutcomeAlreadyRegistered
	OutcomeNoSeatsAvailable
	OutcomeNotRegistered
	OutcomeFailed
)

func (o RegistrationOutcome) String() string {
	switch o {
	case OutcomeRegistered:
		return "registered"
	case OutcomeUnregistered:
		return "unregistered"
	case OutcomeConferenceNotFound:
		return "conference_not_found"
	case OutcomeProfileNotFound:
		return "profile_not_found"
	case OutcomeAlreadyRegistered:
		return "already_registered"
	case OutcomeNoSeatsAvailable:
		return "no_seats_available"
	case OutcomeNotRegistered:
		return "not_registered"
	default:
		return "failed"
	}
}

// Success — исход означает выполненное изменение.
func (o RegistrationOutcome) Success() bool {
	return o == OutcomeRegistered || o == OutcomeUnregistered
}

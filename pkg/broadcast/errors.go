package broadcast

import "errors"

var (
	// ErrNotRegistered is returned when a service type is used before Register.
	ErrNotRegistered = errors.New("broadcast: service not registered")

	// ErrAlreadyRegistered is returned when Register is called twice for the same service type.
	ErrAlreadyRegistered = errors.New("broadcast: service already registered")

	// ErrNilBroker is returned when Register is called without a broker constructor.
	ErrNilBroker = errors.New("broadcast: broker constructor is nil")

	// ErrBrokerType is returned when a broker is requested as a type other than the registered one.
	ErrBrokerType = errors.New("broadcast: broker type mismatch")
)

package welcome

import "errors"

var (
	// ErrJoinFailure means the bot could not reach the user's channel.
	ErrJoinFailure = errors.New("join failure")
	// ErrLeaveFailure means the bot could not disconnect from the guild.
	ErrLeaveFailure = errors.New("leave failure")
	// ErrPrecondition means an event lacked fields the gateway guarantees.
	ErrPrecondition = errors.New("precondition violation")
)

package session

import "errors"

var (
	errWrongGame = errors.New("command does not match the session's game")
	errNoOpMove  = errors.New("move does not change the board")
)

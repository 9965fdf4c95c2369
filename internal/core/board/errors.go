package board

import "errors"

var (
	ErrNoSelection     = errors.New("no tile selected")
	ErrInvalidToolMode = errors.New("invalid tool mode")
	ErrHeroNotPlaced   = errors.New("hero not placed")
)

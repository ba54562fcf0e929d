package model

import (
	"fmt"
	"time"
)

type SignalKind string

const (
	// SignalKindBase marks the canonical row every item always gets, so the
	// base post is never lost from the list after a reload.
	SignalKindBase       SignalKind = "BASE"
	SignalKindImageAdded SignalKind = "IMAGE_ADDED"
	SignalKindRepost     SignalKind = "REPOST"
)

var AllSignalKind = []SignalKind{
	SignalKindBase,
	SignalKindImageAdded,
	SignalKindRepost,
}

func (e SignalKind) IsValid() bool {
	switch e {
	case SignalKindBase, SignalKindImageAdded, SignalKindRepost:
		return true
	}
	return false
}

func (e SignalKind) String() string {
	return string(e)
}

func (e *SignalKind) UnmarshalText(b []byte) error {
	*e = SignalKind(b)
	if !e.IsValid() {
		return fmt.Errorf("%s is not a valid SignalKind", string(b))
	}
	return nil
}

/*

ActivitySignal is the reason a feed row is freshly ranked

Kind: IMAGE_ADDED when a non-owner participant attached a new image, REPOST
	when a relevant actor (someone in the viewer's owner set, or the viewer
	themselves) reshared the item
ActorID: who triggered the signal
At: when, used as the row's ranking key when newer than the item itself

*/
type ActivitySignal struct {
	Kind    SignalKind `json:"kind"`
	ActorID string     `json:"actor_id"`
	At      time.Time  `json:"at"`
}

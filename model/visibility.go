package model

import "fmt"

type Visibility string

const (
	VisibilityPublic      Visibility = "PUBLIC"
	VisibilityFriendsOnly Visibility = "FRIENDS_ONLY"
)

var AllVisibility = []Visibility{
	VisibilityPublic,
	VisibilityFriendsOnly,
}

func (e Visibility) IsValid() bool {
	switch e {
	case VisibilityPublic, VisibilityFriendsOnly:
		return true
	}
	return false
}

func (e Visibility) String() string {
	return string(e)
}

func (e *Visibility) UnmarshalText(b []byte) error {
	*e = Visibility(b)
	if !e.IsValid() {
		return fmt.Errorf("%s is not a valid Visibility", string(b))
	}
	return nil
}

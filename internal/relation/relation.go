// Package relation holds the single transition table of the friendship state machine.
//
// A relationship between users A and B is two directed edges: A→B (Forward, seen from A)
// and B→A (Backward). Storage backends load both edges, run a transition from this package,
// and persist the resulting Pair as one unit.
package relation

import (
	"errors"

	"filmrate/backend/internal/models"
)

var (
	// ErrAlreadyFriends is returned when A asks B while A→B is already a friendship.
	ErrAlreadyFriends = errors.New("users are already friends")
	// ErrAlreadyRequested is returned when A asks B again while its request is pending.
	ErrAlreadyRequested = errors.New("friend request already sent")
	// ErrNoRelation is returned when A removes B but holds no edge to B.
	ErrNoRelation = errors.New("relationship not found")
)

// Pair is the state of both directions of a relationship, seen from the acting user.
type Pair struct {
	Forward  models.FriendshipStatus
	Backward models.FriendshipStatus
}

// Request applies "A asks B to be friends".
func Request(p Pair) (Pair, error) {
	switch p.Forward {
	case models.StatusFriendship:
		return p, ErrAlreadyFriends
	case models.StatusApplication:
		return p, ErrAlreadyRequested
	}

	switch p.Backward {
	case models.StatusApplication, models.StatusSubscription:
		// B already reached out to A (or still follows A after a break-up).
		return Pair{Forward: models.StatusFriendship, Backward: models.StatusFriendship}, nil
	default:
		return Pair{Forward: models.StatusApplication, Backward: models.StatusSubscription}, nil
	}
}

// Remove applies "A drops B".
// A friendship degrades to a one-way subscription of B on A instead of vanishing.
func Remove(p Pair) (Pair, error) {
	switch p.Forward {
	case models.StatusNone:
		return p, ErrNoRelation
	case models.StatusFriendship:
		return Pair{Forward: models.StatusNone, Backward: models.StatusSubscription}, nil
	default:
		return Pair{Forward: models.StatusNone, Backward: p.Backward}, nil
	}
}

// IsMutual reports whether both directions agree on a friendship.
func (p Pair) IsMutual() bool {
	return p.Forward == models.StatusFriendship && p.Backward == models.StatusFriendship
}

// Reverse returns the same pair seen from the other user.
func (p Pair) Reverse() Pair {
	return Pair{Forward: p.Backward, Backward: p.Forward}
}

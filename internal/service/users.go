package service

import (
	"context"
	"strings"

	"filmrate/backend/internal/hub"
	"filmrate/backend/internal/models"
	"filmrate/backend/internal/relation"
)

// normalizeUser trims the email to its canonical lower-case form and defaults the name to the login.
func normalizeUser(u *models.User) *models.User {
	out := *u
	out.Email = strings.ToLower(strings.TrimSpace(out.Email))
	if strings.TrimSpace(out.Name) == "" {
		out.Name = out.Login
	}
	return &out
}

func (s *Service) CreateUser(ctx context.Context, u *models.User) (*models.User, error) {
	const op = "service.CreateUser"

	if u.ID != 0 {
		return nil, fail(ctx, op, conflictf("id must not be set when creating a user"))
	}
	user := normalizeUser(u)
	if err := s.check(user); err != nil {
		return nil, fail(ctx, op, err)
	}

	created, err := s.storage.Users().CreateUser(ctx, user)
	if err != nil {
		return nil, fail(ctx, op, err)
	}
	return created, nil
}

func (s *Service) UpdateUser(ctx context.Context, u *models.User) (*models.User, error) {
	const op = "service.UpdateUser"

	user := normalizeUser(u)
	if err := s.check(user); err != nil {
		return nil, fail(ctx, op, err)
	}

	updated, err := s.storage.Users().UpdateUser(ctx, user)
	if err != nil {
		return nil, fail(ctx, op, err)
	}
	return updated, nil
}

func (s *Service) User(ctx context.Context, id uint) (*models.User, error) {
	const op = "service.User"

	user, err := s.storage.Users().UserByID(ctx, id)
	if err != nil {
		return nil, fail(ctx, op, err)
	}
	return user, nil
}

func (s *Service) Users(ctx context.Context) ([]models.User, error) {
	const op = "service.Users"

	users, err := s.storage.Users().Users(ctx)
	if err != nil {
		return nil, fail(ctx, op, err)
	}
	return users, nil
}

func (s *Service) DeleteUser(ctx context.Context, id uint) error {
	const op = "service.DeleteUser"

	if err := s.storage.Users().DeleteUser(ctx, id); err != nil {
		return fail(ctx, op, err)
	}
	// The user's likes are gone with it.
	s.invalidatePopular(ctx)
	return nil
}

func (s *Service) DeleteUsers(ctx context.Context) error {
	const op = "service.DeleteUsers"

	if err := s.storage.Users().DeleteUsers(ctx); err != nil {
		return fail(ctx, op, err)
	}
	s.invalidatePopular(ctx)
	return nil
}

// RequestFriendship lets userID ask friendID to be friends, or accept friendID's request.
func (s *Service) RequestFriendship(ctx context.Context, userID, friendID uint) (relation.Pair, error) {
	const op = "service.RequestFriendship"

	if userID == friendID {
		return relation.Pair{}, fail(ctx, op, validationf("a user cannot befriend themselves"))
	}

	pair, err := s.storage.Users().RequestFriendship(ctx, userID, friendID)
	if err != nil {
		return relation.Pair{}, fail(ctx, op, err)
	}

	if pair.IsMutual() {
		s.publish(ctx, hub.Event{Type: hub.EventFriendship, Payload: FriendEvent{UserID: userID, FriendID: friendID, Status: pair.Forward}}, friendID)
		s.publish(ctx, hub.Event{Type: hub.EventFriendship, Payload: FriendEvent{UserID: friendID, FriendID: userID, Status: pair.Reverse().Forward}}, userID)
	} else {
		s.publish(ctx, hub.Event{Type: hub.EventFriendRequest, Payload: FriendEvent{UserID: userID, FriendID: friendID, Status: pair.Forward}}, friendID)
	}
	return pair, nil
}

// RemoveFriendship drops userID's side of the relationship with friendID.
func (s *Service) RemoveFriendship(ctx context.Context, userID, friendID uint) (relation.Pair, error) {
	const op = "service.RemoveFriendship"

	if userID == friendID {
		return relation.Pair{}, fail(ctx, op, validationf("a user cannot unfriend themselves"))
	}

	pair, err := s.storage.Users().RemoveFriendship(ctx, userID, friendID)
	if err != nil {
		return relation.Pair{}, fail(ctx, op, err)
	}

	// The payload carries what is left on the friend's side.
	s.publish(ctx, hub.Event{Type: hub.EventFriendRemoved, Payload: FriendEvent{UserID: userID, FriendID: friendID, Status: pair.Reverse().Forward}}, friendID)
	return pair, nil
}

func (s *Service) Friends(ctx context.Context, userID uint) ([]models.User, error) {
	const op = "service.Friends"

	friends, err := s.storage.Users().Friends(ctx, userID)
	if err != nil {
		return nil, fail(ctx, op, err)
	}
	return friends, nil
}

// CommonFriends returns the users both a and b are friends with, ordered by id.
func (s *Service) CommonFriends(ctx context.Context, a, b uint) ([]models.User, error) {
	const op = "service.CommonFriends"

	friendsA, err := s.storage.Users().Friends(ctx, a)
	if err != nil {
		return nil, fail(ctx, op, err)
	}
	friendsB, err := s.storage.Users().Friends(ctx, b)
	if err != nil {
		return nil, fail(ctx, op, err)
	}

	ofB := make(map[uint]bool, len(friendsB))
	for _, f := range friendsB {
		ofB[f.ID] = true
	}
	common := make([]models.User, 0)
	for _, f := range friendsA {
		if ofB[f.ID] {
			common = append(common, f)
		}
	}
	return common, nil
}

// Relations returns every outgoing edge of a user.
func (s *Service) Relations(ctx context.Context, userID uint) ([]models.UserRelation, error) {
	const op = "service.Relations"

	relations, err := s.storage.Users().Relations(ctx, userID)
	if err != nil {
		return nil, fail(ctx, op, err)
	}
	return relations, nil
}

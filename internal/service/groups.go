package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/rpc"
)

// dedupeMembers trims ids, drops blanks and keeps the first of each.
func dedupeMembers(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// knownUsers fails when any of ids is not a registered user.
func (s *LedgerService) knownUsers(ctx context.Context, ids []string) (names, error) {
	users, err := s.store.GetUsersByIDs(ctx, ids)
	if err != nil {
		return nil, storeError(err)
	}
	n := make(names, len(users))
	for _, id := range ids {
		u, ok := users[id]
		if !ok {
			return nil, invalid(fmt.Errorf("unknown user %s", id))
		}
		n[id] = u.DisplayName
	}
	return n, nil
}

// CreateGroup creates a group. The caller always becomes a member.
func (s *LedgerService) CreateGroup(ctx context.Context, args rpc.Args) (rpc.Object, error) {
	userID, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(args.String("name"))
	requested, err := args.Strings("members")
	if err != nil {
		return nil, invalid(err)
	}
	s.logger.Info("CreateGroup request received", "name", name, "members_count", len(requested))

	if name == "" {
		return nil, invalid(errors.New("name required"))
	}

	members := dedupeMembers(append([]string{userID}, requested...))
	n, err := s.knownUsers(ctx, members)
	if err != nil {
		return nil, err
	}

	slices.Sort(members)

	group := &models.Group{
		Name:        name,
		Description: strings.TrimSpace(args.String("description")),
		CreatedBy:   userID,
		Members:     members,
	}
	if err := s.store.CreateGroup(ctx, group); err != nil {
		s.logger.Error("CreateGroup failed", "error", err)
		return nil, storeError(err)
	}

	s.logger.Info("Group created", "group_id", group.ID, "members_count", len(group.Members))
	return rpc.Object{"group": groupObject(group, n)}, nil
}

// GetGroup returns a group the caller belongs to.
func (s *LedgerService) GetGroup(ctx context.Context, args rpc.Args) (rpc.Object, error) {
	groupID := args.String("group_id")
	s.logger.Info("GetGroup request received", "group_id", groupID)

	group, _, err := s.memberGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	n, err := s.displayNames(ctx, group.Members)
	if err != nil {
		return nil, err
	}
	return rpc.Object{"group": groupObject(group, n)}, nil
}

// ListGroups returns the caller's groups, newest first.
func (s *LedgerService) ListGroups(ctx context.Context, args rpc.Args) (rpc.Object, error) {
	userID, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	s.logger.Info("ListGroups request received", "user_id", userID)

	groups, err := s.store.ListGroupsForMember(ctx, userID)
	if err != nil {
		s.logger.Error("ListGroups failed", "error", err)
		return nil, storeError(err)
	}

	var ids []string
	for _, g := range groups {
		ids = append(ids, g.Members...)
	}
	n, err := s.displayNames(ctx, dedupeMembers(ids))
	if err != nil {
		return nil, err
	}

	out := make([]rpc.Object, len(groups))
	for i, g := range groups {
		out[i] = groupObject(g, n)
	}
	s.logger.Info("ListGroups successful", "count", len(groups))
	return rpc.Object{"groups": out}, nil
}

// AddGroupMembers adds registered users to a group the caller belongs to.
func (s *LedgerService) AddGroupMembers(ctx context.Context, args rpc.Args) (rpc.Object, error) {
	groupID := args.String("group_id")
	requested, err := args.Strings("members")
	if err != nil {
		return nil, invalid(err)
	}
	s.logger.Info("AddGroupMembers request received", "group_id", groupID, "members_count", len(requested))

	group, _, err := s.memberGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	members := dedupeMembers(requested)
	if len(members) == 0 {
		return nil, invalid(errors.New("members required"))
	}
	if _, err := s.knownUsers(ctx, members); err != nil {
		return nil, err
	}

	if err := s.store.AddGroupMembers(ctx, group.ID, members); err != nil {
		s.logger.Error("AddGroupMembers failed", "group_id", group.ID, "error", err)
		return nil, storeError(err)
	}

	updated, err := s.store.GetGroup(ctx, group.ID)
	if err != nil {
		return nil, storeError(err)
	}
	n, err := s.displayNames(ctx, updated.Members)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Group members added", "group_id", group.ID, "members_count", len(updated.Members))
	return rpc.Object{"group": groupObject(updated, n)}, nil
}

// DeleteGroup removes a group with all its expenses and settlements.
// Only the member who created the group may delete it.
func (s *LedgerService) DeleteGroup(ctx context.Context, args rpc.Args) (rpc.Object, error) {
	groupID := args.String("group_id")
	s.logger.Info("DeleteGroup request received", "group_id", groupID)

	group, userID, err := s.memberGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if group.CreatedBy != userID {
		return nil, connect.NewError(connect.CodePermissionDenied, errors.New("only the group creator can delete it"))
	}

	if err := s.store.DeleteGroup(ctx, group.ID); err != nil {
		s.logger.Error("DeleteGroup failed", "error", err)
		return nil, storeError(err)
	}
	s.logger.Info("Group deleted", "group_id", group.ID)
	return rpc.Object{}, nil
}

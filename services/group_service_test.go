package services

import (
	"context"
	"reflect"
	"strings"
	"testing"
	"time"

	"teetime/models"
	"teetime/testutil"
)

func TestGroupCreateInvitesMembers(t *testing.T) {
	f := newFixture(t)
	svc := NewGroupService(f.db, f.notifier, testutil.NewStore())
	ctx := context.Background()
	owner := testutil.CreateUser(t, f.db, "owner")
	friend := testutil.CreateUser(t, f.db, "friend")

	group, err := svc.Create(ctx, owner.ID, CreateGroupInput{
		Name:       "  Tuesday Regulars ",
		InviteeIDs: []uint{friend.ID, friend.ID, owner.ID, 9999},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if group.Name != "Tuesday Regulars" {
		t.Errorf("name not trimmed: %q", group.Name)
	}
	if n := countRows(t, f.db, &models.GroupMember{}, "group_id = ?", group.ID); n != 1 {
		t.Errorf("expected only the creator as member, got %d", n)
	}
	if n := countRows(t, f.db, &models.GroupInvitation{}, "group_id = ?", group.ID); n != 1 {
		t.Errorf("expected one invitation, got %d", n)
	}
	notes := notificationsFor(t, f.db, friend.ID)
	if len(notes) != 1 || notes[0].Type != models.NotificationGroupInvite {
		t.Fatalf("expected group_invite, got %+v", notes)
	}
	if emails := f.mail.Emails(); len(emails) != 1 || emails[0].Category != string(models.NotificationGroupInvite) {
		t.Errorf("expected one invite email, got %+v", emails)
	}

	_, err = svc.Create(ctx, owner.ID, CreateGroupInput{Name: "x"})
	wantKind(t, err, ErrInvalid, "")
}

func TestGroupInvitationLifecycle(t *testing.T) {
	f := newFixture(t)
	svc := NewGroupService(f.db, f.notifier, testutil.NewStore())
	ctx := context.Background()
	owner := testutil.CreateUser(t, f.db, "owner")
	member := testutil.CreateUser(t, f.db, "member")
	invitee := testutil.CreateUser(t, f.db, "invitee")

	group, err := svc.Create(ctx, owner.ID, CreateGroupInput{Name: "Weekend Four"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	f.db.Create(&models.GroupMember{GroupID: group.ID, UserID: member.ID, JoinedAt: time.Now().UTC()})

	_, err = svc.Invite(ctx, member.ID, group.ID, []uint{invitee.ID})
	wantKind(t, err, ErrForbidden, "Only the group creator can invite members")

	_, err = svc.Invite(ctx, owner.ID, group.ID, nil)
	wantKind(t, err, ErrInvalid, "user_ids is required")

	res, err := svc.Invite(ctx, owner.ID, group.ID, []uint{invitee.ID, member.ID, 9999})
	if err != nil {
		t.Fatalf("invite: %v", err)
	}
	if !reflect.DeepEqual(res.Invited, []uint{invitee.ID}) {
		t.Errorf("invited = %v", res.Invited)
	}
	if !reflect.DeepEqual(res.Skipped, []uint{member.ID, 9999}) {
		t.Errorf("skipped = %v", res.Skipped)
	}

	res, err = svc.Invite(ctx, owner.ID, group.ID, []uint{invitee.ID})
	if err != nil {
		t.Fatalf("second invite: %v", err)
	}
	if len(res.Invited) != 0 || len(res.Skipped) != 1 {
		t.Errorf("pending invitation should be skipped, got %+v", res)
	}

	pending, err := svc.Invitations(ctx, invitee.ID)
	if err != nil || len(pending) != 1 {
		t.Fatalf("invitations: %d, err=%v", len(pending), err)
	}
	invID := pending[0].ID
	if pending[0].Group == nil || pending[0].Group.Name != "Weekend Four" {
		t.Errorf("invitation should carry its group")
	}

	_, err = svc.Decline(ctx, owner.ID, invID)
	wantKind(t, err, ErrForbidden, "")

	inv, err := svc.Decline(ctx, invitee.ID, invID)
	if err != nil {
		t.Fatalf("decline: %v", err)
	}
	if inv.Status != models.InvitationDeclined {
		t.Errorf("expected declined, got %s", inv.Status)
	}
	if n := countRows(t, f.db, &models.GroupMember{}, "group_id = ?", group.ID); n != 2 {
		t.Errorf("declining must not touch memberships, got %d members", n)
	}
	if ok, _ := svc.IsMember(ctx, group.ID, invitee.ID); ok {
		t.Error("invitee should not be a member after declining")
	}

	_, err = svc.Accept(ctx, invitee.ID, invID)
	wantKind(t, err, ErrInvalid, "Invitation was already declined")

	// Re-inviting reopens the same row.
	res, err = svc.Invite(ctx, owner.ID, group.ID, []uint{invitee.ID})
	if err != nil || len(res.Invited) != 1 {
		t.Fatalf("re-invite: %+v err=%v", res, err)
	}
	if n := countRows(t, f.db, &models.GroupInvitation{}, "group_id = ? AND invitee_id = ?", group.ID, invitee.ID); n != 1 {
		t.Errorf("expected a single invitation row, got %d", n)
	}

	inv, err = svc.Accept(ctx, invitee.ID, invID)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if inv.Status != models.InvitationAccepted {
		t.Errorf("expected accepted, got %s", inv.Status)
	}
	if ok, _ := svc.IsMember(ctx, group.ID, invitee.ID); !ok {
		t.Error("invitee should be a member after accepting")
	}

	var types []models.NotificationType
	for _, n := range notificationsFor(t, f.db, owner.ID) {
		types = append(types, n.Type)
	}
	want := []models.NotificationType{models.NotificationGroupInviteDeclined, models.NotificationGroupInviteAccepted}
	if !reflect.DeepEqual(types, want) {
		t.Errorf("owner notifications = %v, want %v", types, want)
	}
}

func TestGroupMembership(t *testing.T) {
	f := newFixture(t)
	store := testutil.NewStore()
	svc := NewGroupService(f.db, f.notifier, store)
	ctx := context.Background()
	owner := testutil.CreateUser(t, f.db, "owner")
	member := testutil.CreateUser(t, f.db, "member")
	outsider := testutil.CreateUser(t, f.db, "outsider")

	group, err := svc.Create(ctx, owner.ID, CreateGroupInput{Name: "Range Rats"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	f.db.Create(&models.GroupMember{GroupID: group.ID, UserID: member.ID, JoinedAt: time.Now().UTC()})

	_, err = svc.Get(ctx, outsider.ID, group.ID)
	wantKind(t, err, ErrForbidden, "Only group members can view this group")

	members, err := svc.Members(ctx, member.ID, group.ID)
	if err != nil || len(members) != 2 {
		t.Fatalf("members: %d err=%v", len(members), err)
	}
	if members[0].UserID != owner.ID || members[0].User == nil {
		t.Errorf("expected creator first with profile, got %+v", members[0])
	}

	mine, err := svc.Mine(ctx, member.ID)
	if err != nil || len(mine) != 1 {
		t.Fatalf("mine: %d err=%v", len(mine), err)
	}

	err = svc.Leave(ctx, owner.ID, group.ID)
	wantKind(t, err, ErrInvalid, "")
	err = svc.RemoveMember(ctx, owner.ID, group.ID, owner.ID)
	wantKind(t, err, ErrInvalid, "The group creator cannot be removed")
	err = svc.RemoveMember(ctx, member.ID, group.ID, owner.ID)
	wantKind(t, err, ErrForbidden, "")

	if err := svc.RemoveMember(ctx, owner.ID, group.ID, member.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	err = svc.Leave(ctx, member.ID, group.ID)
	wantKind(t, err, ErrNotFound, "You are not a member of this group")

	name := "Range Rats II"
	updated, err := svc.Update(ctx, owner.ID, group.ID, UpdateGroupInput{Name: &name})
	if err != nil || updated.Name != name {
		t.Fatalf("update: %+v err=%v", updated, err)
	}
}

func TestGroupDeleteUnlinksMatches(t *testing.T) {
	f := newFixture(t)
	store := testutil.NewStore()
	svc := NewGroupService(f.db, f.notifier, store)
	ctx := context.Background()
	owner := testutil.CreateUser(t, f.db, "owner")

	group, err := svc.Create(ctx, owner.ID, CreateGroupInput{Name: "Short Lived"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.UploadIcon(ctx, owner.ID, group.ID, pngBytes()); err != nil {
		t.Fatalf("icon: %v", err)
	}
	match := testutil.CreateMatch(t, f.db, owner, 4)
	f.db.Model(match).Updates(map[string]interface{}{"group_id": group.ID, "is_public": false})

	if err := svc.Delete(ctx, owner.ID, group.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	var m models.Match
	f.db.First(&m, match.ID)
	if m.GroupID != nil || m.IsPublic {
		t.Errorf("match should stay private without a group, got group=%v public=%v", m.GroupID, m.IsPublic)
	}
	if len(store.Deleted) != 1 || !strings.HasPrefix(store.Deleted[0], "https://cdn.test/groups/") {
		t.Errorf("expected the icon to be deleted, got %v", store.Deleted)
	}
}

func TestDedupe(t *testing.T) {
	tests := []struct {
		name    string
		in      []uint
		exclude uint
		want    []uint
	}{
		{"empty", nil, 1, []uint{}},
		{"drops excluded and zero", []uint{0, 1, 2}, 1, []uint{2}},
		{"keeps first occurrence order", []uint{3, 2, 3, 2, 4}, 1, []uint{3, 2, 4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := dedupe(tt.in, tt.exclude); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("dedupe(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

// pngBytes is the 8-byte PNG signature followed by padding.
func pngBytes() []byte {
	return append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 64)...)
}

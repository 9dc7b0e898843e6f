package services

import (
	"context"
	"testing"
	"time"

	"teetime/models"
	"teetime/testutil"
)

func TestMatchCreate(t *testing.T) {
	f := newFixture(t)
	svc := NewMatchService(f.db, f.notifier)
	ctx := context.Background()
	alice := testutil.CreateUser(t, f.db, "alice")
	bob := testutil.CreateUser(t, f.db, "bob")

	group := &models.Group{Name: "Dawn Patrol", CreatorID: alice.ID}
	f.db.Create(group)
	f.db.Create(&models.GroupMember{GroupID: group.ID, UserID: alice.ID, JoinedAt: time.Now().UTC()})

	tomorrow := time.Now().Add(24 * time.Hour)
	missing := uint(999)

	t.Run("defaults", func(t *testing.T) {
		m, err := svc.Create(ctx, alice.ID, CreateMatchInput{Title: "Early nine", CourseName: "Harding Park", Date: tomorrow})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if m.MaxPlayers != models.DefaultMaxPlayers || !m.IsPublic || m.Status != models.MatchStatusScheduled {
			t.Errorf("unexpected defaults: max=%d public=%v status=%s", m.MaxPlayers, m.IsPublic, m.Status)
		}
		if n := countRows(t, f.db, &models.ChatRoom{}, "match_id = ?", m.ID); n != 1 {
			t.Errorf("expected one chat room, got %d", n)
		}
	})

	t.Run("group match is private", func(t *testing.T) {
		public := true
		m, err := svc.Create(ctx, alice.ID, CreateMatchInput{
			Title: "Club day", CourseName: "Lincoln Park", Date: tomorrow, IsPublic: &public, GroupID: &group.ID,
		})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if m.IsPublic {
			t.Error("group match should be private")
		}
	})

	tests := []struct {
		name string
		user uint
		in   CreateMatchInput
		kind error
		msg  string
	}{
		{"past date", alice.ID, CreateMatchInput{Title: "Yesterday", CourseName: "Any", Date: time.Now().Add(-time.Hour)}, ErrInvalid, "Match date must be in the future"},
		{"too many players", alice.ID, CreateMatchInput{Title: "Crowd", CourseName: "Any", Date: tomorrow, MaxPlayers: 9}, ErrInvalid, ""},
		{"missing title", alice.ID, CreateMatchInput{CourseName: "Any", Date: tomorrow}, ErrInvalid, ""},
		{"not a group member", bob.ID, CreateMatchInput{Title: "Sneaky", CourseName: "Any", Date: tomorrow, GroupID: &group.ID}, ErrForbidden, "You must be a member of the group to create a match for it"},
		{"unknown group", alice.ID, CreateMatchInput{Title: "Ghost", CourseName: "Any", Date: tomorrow, GroupID: &missing}, ErrNotFound, "Group not found"},
		{"unknown course", alice.ID, CreateMatchInput{Title: "Nowhere", CourseName: "Any", Date: tomorrow, GolfCourseID: &missing}, ErrInvalid, "Unknown golf course"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tt.user, tt.in)
			wantKind(t, err, tt.kind, tt.msg)
		})
	}
}

func TestMatchJoinRules(t *testing.T) {
	f := newFixture(t)
	svc := NewMatchService(f.db, f.notifier)
	ctx := context.Background()
	host := testutil.CreateUser(t, f.db, "host")
	guest := testutil.CreateUser(t, f.db, "guest")
	other := testutil.CreateUser(t, f.db, "other")

	open := testutil.CreateMatch(t, f.db, host, 4)

	started := testutil.CreateMatch(t, f.db, host, 4)
	f.db.Model(started).Update("date", time.Now().Add(-time.Hour))

	cancelled := testutil.CreateMatch(t, f.db, host, 4)
	f.db.Model(cancelled).Update("status", models.MatchStatusCancelled)

	requested := testutil.CreateMatch(t, f.db, host, 4)
	testutil.AddPlayer(t, f.db, requested, guest, models.PlayerStatusPending)

	group := &models.Group{Name: "Members only", CreatorID: host.ID}
	f.db.Create(group)
	clubMatch := testutil.CreateMatch(t, f.db, host, 4)
	f.db.Model(clubMatch).Updates(map[string]interface{}{"group_id": group.ID, "is_public": false})

	full := testutil.CreateMatch(t, f.db, host, 2)
	testutil.AddPlayer(t, f.db, full, other, models.PlayerStatusAccepted)

	tests := []struct {
		name  string
		user  uint
		match uint
		kind  error
		msg   string
	}{
		{"missing match", guest.ID, 9999, ErrNotFound, "Match not found"},
		{"already started", guest.ID, started.ID, ErrInvalid, "Match has already started"},
		{"not scheduled", guest.ID, cancelled.ID, ErrInvalid, "Match is not open for joining"},
		{"own match", host.ID, open.ID, ErrInvalid, "You cannot join your own match"},
		{"duplicate request", guest.ID, requested.ID, ErrConflict, "You have already requested to join this match"},
		{"group members only", guest.ID, clubMatch.ID, ErrForbidden, "This match is only open to group members"},
		{"full", guest.ID, full.ID, ErrInvalid, "Match is full"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Join(ctx, tt.user, tt.match)
			wantKind(t, err, tt.kind, tt.msg)
		})
	}

	t.Run("pending request notifies host", func(t *testing.T) {
		row, err := svc.Join(ctx, guest.ID, open.ID)
		if err != nil {
			t.Fatalf("join: %v", err)
		}
		if row.Status != models.PlayerStatusPending {
			t.Errorf("expected pending, got %s", row.Status)
		}
		notes := notificationsFor(t, f.db, host.ID)
		if len(notes) != 1 || notes[0].Type != models.NotificationJoinRequest {
			t.Fatalf("expected one join_request notification, got %+v", notes)
		}
		emails := f.mail.Emails()
		if len(emails) != 1 || emails[0].To != "host@example.com" {
			t.Errorf("expected email to host, got %+v", emails)
		}
	})
}

func TestMatchCapacity(t *testing.T) {
	f := newFixture(t)
	svc := NewMatchService(f.db, f.notifier)
	ctx := context.Background()
	host := testutil.CreateUser(t, f.db, "host")
	a := testutil.CreateUser(t, f.db, "a")
	b := testutil.CreateUser(t, f.db, "b")
	c := testutil.CreateUser(t, f.db, "c")
	d := testutil.CreateUser(t, f.db, "d")

	// Four seats: the host plus three players.
	match := testutil.CreateMatch(t, f.db, host, 4)
	testutil.AddPlayer(t, f.db, match, a, models.PlayerStatusAccepted)
	late := testutil.AddPlayer(t, f.db, match, d, models.PlayerStatusPending)

	row, err := svc.Join(ctx, b.ID, match.ID)
	if err != nil {
		t.Fatalf("join with a free seat: %v", err)
	}
	if _, err := svc.RespondToRequest(ctx, host.ID, match.ID, row.ID, ActionAccept); err != nil {
		t.Fatalf("accept: %v", err)
	}

	// Host, a and b hold three of four seats; c can still ask.
	row, err = svc.Join(ctx, c.ID, match.ID)
	if err != nil {
		t.Fatalf("join third player: %v", err)
	}
	if _, err := svc.RespondToRequest(ctx, host.ID, match.ID, row.ID, ActionAccept); err != nil {
		t.Fatalf("accept third player: %v", err)
	}

	_, err = svc.RespondToRequest(ctx, host.ID, match.ID, late.ID, ActionAccept)
	wantKind(t, err, ErrInvalid, "Match is full")

	e := testutil.CreateUser(t, f.db, "e")
	_, err = svc.Join(ctx, e.ID, match.ID)
	wantKind(t, err, ErrInvalid, "Match is full")

	detail, err := svc.Get(ctx, host.ID, match.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if detail.AcceptedCount+1 != int64(match.MaxPlayers) {
		t.Errorf("expected %d players including host, got %d", match.MaxPlayers, detail.AcceptedCount+1)
	}
	if detail.PendingCount != 1 {
		t.Errorf("expected the late request to stay pending, got %d", detail.PendingCount)
	}
}

func TestMatchRespondToRequest(t *testing.T) {
	f := newFixture(t)
	svc := NewMatchService(f.db, f.notifier)
	ctx := context.Background()
	host := testutil.CreateUser(t, f.db, "host")
	guest := testutil.CreateUser(t, f.db, "guest")
	match := testutil.CreateMatch(t, f.db, host, 4)

	pending := testutil.AddPlayer(t, f.db, match, guest, models.PlayerStatusPending)

	_, err := svc.RespondToRequest(ctx, host.ID, match.ID, pending.ID, "maybe")
	wantKind(t, err, ErrInvalid, "Action must be accept or decline")

	_, err = svc.RespondToRequest(ctx, guest.ID, match.ID, pending.ID, ActionAccept)
	wantKind(t, err, ErrForbidden, "")

	_, err = svc.RespondToRequest(ctx, host.ID, match.ID, 9999, ActionAccept)
	wantKind(t, err, ErrNotFound, "Request not found")

	if _, err := svc.RespondToRequest(ctx, host.ID, match.ID, pending.ID, ActionDecline); err != nil {
		t.Fatalf("decline: %v", err)
	}
	if n := countRows(t, f.db, &models.MatchPlayer{}, "id = ?", pending.ID); n != 0 {
		t.Errorf("declined request should be deleted, %d rows left", n)
	}
	notes := notificationsFor(t, f.db, guest.ID)
	if len(notes) != 1 || notes[0].Type != models.NotificationRequestDeclined {
		t.Fatalf("expected request_declined, got %+v", notes)
	}

	// A declined player may ask again.
	row, err := svc.Join(ctx, guest.ID, match.ID)
	if err != nil {
		t.Fatalf("rejoin after decline: %v", err)
	}
	accepted, err := svc.RespondToRequest(ctx, host.ID, match.ID, row.ID, ActionAccept)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if accepted.Status != models.PlayerStatusAccepted {
		t.Errorf("expected accepted, got %s", accepted.Status)
	}
	_, err = svc.RespondToRequest(ctx, host.ID, match.ID, row.ID, ActionAccept)
	wantKind(t, err, ErrConflict, "")

	ok, err := svc.IsParticipant(ctx, match.ID, guest.ID)
	if err != nil || !ok {
		t.Errorf("guest should be a participant, ok=%v err=%v", ok, err)
	}
}

func TestMatchLeave(t *testing.T) {
	f := newFixture(t)
	svc := NewMatchService(f.db, f.notifier)
	ctx := context.Background()
	host := testutil.CreateUser(t, f.db, "host")
	seated := testutil.CreateUser(t, f.db, "seated")
	waiting := testutil.CreateUser(t, f.db, "waiting")
	match := testutil.CreateMatch(t, f.db, host, 4)
	testutil.AddPlayer(t, f.db, match, seated, models.PlayerStatusAccepted)
	testutil.AddPlayer(t, f.db, match, waiting, models.PlayerStatusPending)

	if err := svc.Leave(ctx, waiting.ID, match.ID); err != nil {
		t.Fatalf("withdraw request: %v", err)
	}
	if notes := notificationsFor(t, f.db, host.ID); len(notes) != 0 {
		t.Errorf("withdrawing a pending request should not notify, got %+v", notes)
	}

	if err := svc.Leave(ctx, seated.ID, match.ID); err != nil {
		t.Fatalf("leave: %v", err)
	}
	notes := notificationsFor(t, f.db, host.ID)
	if len(notes) != 1 || notes[0].Type != models.NotificationPlayerLeft {
		t.Fatalf("expected player_left, got %+v", notes)
	}

	err := svc.Leave(ctx, seated.ID, match.ID)
	wantKind(t, err, ErrNotFound, "You are not part of this match")
}

func TestMatchUpdateStatusIsOneWay(t *testing.T) {
	f := newFixture(t)
	svc := NewMatchService(f.db, f.notifier)
	ctx := context.Background()
	host := testutil.CreateUser(t, f.db, "host")
	player := testutil.CreateUser(t, f.db, "player")
	match := testutil.CreateMatch(t, f.db, host, 4)
	testutil.AddPlayer(t, f.db, match, player, models.PlayerStatusAccepted)

	_, err := svc.UpdateStatus(ctx, host.ID, match.ID, models.MatchStatusScheduled)
	wantKind(t, err, ErrInvalid, "Status must be completed or cancelled")

	_, err = svc.UpdateStatus(ctx, player.ID, match.ID, models.MatchStatusCompleted)
	wantKind(t, err, ErrForbidden, "")

	m, err := svc.UpdateStatus(ctx, host.ID, match.ID, models.MatchStatusCompleted)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if m.Status != models.MatchStatusCompleted {
		t.Errorf("expected completed, got %s", m.Status)
	}
	notes := notificationsFor(t, f.db, player.ID)
	if len(notes) != 1 || notes[0].Type != models.NotificationMatchCompleted {
		t.Errorf("expected match_completed, got %+v", notes)
	}

	_, err = svc.UpdateStatus(ctx, host.ID, match.ID, models.MatchStatusCancelled)
	wantKind(t, err, ErrInvalid, "Match is already completed")

	err = svc.Delete(ctx, host.ID, match.ID)
	wantKind(t, err, ErrInvalid, "Completed matches cannot be deleted")

	called := testutil.CreateMatch(t, f.db, host, 4)
	if _, err := svc.UpdateStatus(ctx, host.ID, called.ID, models.MatchStatusCancelled); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	_, err = svc.UpdateStatus(ctx, host.ID, called.ID, models.MatchStatusCompleted)
	wantKind(t, err, ErrInvalid, "Match is already cancelled")
}

func TestMatchUpdate(t *testing.T) {
	f := newFixture(t)
	svc := NewMatchService(f.db, f.notifier)
	ctx := context.Background()
	host := testutil.CreateUser(t, f.db, "host")
	a := testutil.CreateUser(t, f.db, "a")
	b := testutil.CreateUser(t, f.db, "b")
	match := testutil.CreateMatch(t, f.db, host, 4)
	testutil.AddPlayer(t, f.db, match, a, models.PlayerStatusAccepted)
	testutil.AddPlayer(t, f.db, match, b, models.PlayerStatusAccepted)

	two := 2
	_, err := svc.Update(ctx, host.ID, match.ID, UpdateMatchInput{MaxPlayers: &two})
	wantKind(t, err, ErrInvalid, "Max players cannot be lower than the 3 players already in the match")

	title := "Sunset nine"
	_, err = svc.Update(ctx, a.ID, match.ID, UpdateMatchInput{Title: &title})
	wantKind(t, err, ErrForbidden, "")

	m, err := svc.Update(ctx, host.ID, match.ID, UpdateMatchInput{Title: &title})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if m.Title != title {
		t.Errorf("expected title %q, got %q", title, m.Title)
	}
	for _, u := range []uint{a.ID, b.ID} {
		notes := notificationsFor(t, f.db, u)
		if len(notes) != 1 || notes[0].Type != models.NotificationMatchUpdated {
			t.Errorf("user %d: expected match_updated, got %+v", u, notes)
		}
	}
}

func TestMatchVisibility(t *testing.T) {
	f := newFixture(t)
	svc := NewMatchService(f.db, f.notifier)
	ctx := context.Background()
	host := testutil.CreateUser(t, f.db, "host")
	member := testutil.CreateUser(t, f.db, "member")
	outsider := testutil.CreateUser(t, f.db, "outsider")

	group := &models.Group{Name: "Club", CreatorID: host.ID}
	f.db.Create(group)
	f.db.Create(&models.GroupMember{GroupID: group.ID, UserID: host.ID, JoinedAt: time.Now().UTC()})
	f.db.Create(&models.GroupMember{GroupID: group.ID, UserID: member.ID, JoinedAt: time.Now().UTC()})

	public := testutil.CreateMatch(t, f.db, host, 4)
	club := testutil.CreateMatch(t, f.db, host, 4)
	f.db.Model(club).Updates(map[string]interface{}{"group_id": group.ID, "is_public": false})

	_, err := svc.Get(ctx, outsider.ID, club.ID)
	wantKind(t, err, ErrForbidden, "This match is only visible to group members")

	detail, err := svc.Get(ctx, member.ID, club.ID)
	if err != nil {
		t.Fatalf("member get: %v", err)
	}
	if detail.ViewerStatus != ViewerNone || detail.ChatRoomID == 0 {
		t.Errorf("unexpected detail: status=%s room=%d", detail.ViewerStatus, detail.ChatRoomID)
	}

	tests := []struct {
		name   string
		viewer uint
		want   int
	}{
		{"outsider sees public only", outsider.ID, 1},
		{"member sees club match", member.ID, 2},
		{"host sees both", host.ID, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			list, err := svc.List(ctx, tt.viewer, MatchFilter{})
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if len(list) != tt.want {
				t.Errorf("expected %d matches, got %d", tt.want, len(list))
			}
		})
	}

	list, err := svc.List(ctx, outsider.ID, MatchFilter{Query: "SATURDAY"})
	if err != nil || len(list) != 1 || list[0].ID != public.ID {
		t.Errorf("query filter: got %d matches, err=%v", len(list), err)
	}
	list, err = svc.List(ctx, outsider.ID, MatchFilter{ZipCode: "10001"})
	if err != nil || len(list) != 0 {
		t.Errorf("zip filter: got %d matches, err=%v", len(list), err)
	}
}

func TestMatchDeleteNotifiesPlayers(t *testing.T) {
	f := newFixture(t)
	svc := NewMatchService(f.db, f.notifier)
	ctx := context.Background()
	host := testutil.CreateUser(t, f.db, "host")
	player := testutil.CreateUser(t, f.db, "player")
	match := testutil.CreateMatch(t, f.db, host, 4)
	testutil.AddPlayer(t, f.db, match, player, models.PlayerStatusAccepted)

	err := svc.Delete(ctx, player.ID, match.ID)
	wantKind(t, err, ErrForbidden, "")

	if err := svc.Delete(ctx, host.ID, match.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if n := countRows(t, f.db, &models.Match{}, "id = ?", match.ID); n != 0 {
		t.Error("match row should be gone")
	}
	if n := countRows(t, f.db, &models.ChatRoom{}, "match_id = ?", match.ID); n != 0 {
		t.Error("chat room should be gone")
	}
	notes := notificationsFor(t, f.db, player.ID)
	if len(notes) != 1 || notes[0].Type != models.NotificationMatchCancelled {
		t.Errorf("expected match_cancelled, got %+v", notes)
	}
}

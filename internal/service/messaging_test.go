package service

import (
	"context"
	"net/http"
	"strings"
	"testing"
)

func TestSendMessage(t *testing.T) {
	f := newFixture()
	ms := NewMessagingService(fakeUsers{f.db}, fakeMessages{f.db}, fakeNotifications{memDB: f.db}, quietLogger())
	ms.now = fixedNow
	ctx := context.Background()

	m, err := ms.Send(ctx, studentID, custodianID, "  Is the water back on?  ")
	if err != nil {
		t.Fatal(err)
	}
	if m.Body != "Is the water back on?" || m.ConversationKey != "1:50" {
		t.Fatalf("message = %+v", m)
	}
	feed, err := ms.Feed(ctx, custodianID)
	if err != nil || len(feed) != 1 || feed[0].Kind != "message" {
		t.Fatalf("feed = %+v, %v", feed, err)
	}
	conv, err := ms.Conversation(ctx, custodianID, studentID)
	if err != nil || len(conv) != 1 {
		t.Fatalf("conversation = %+v, %v", conv, err)
	}

	bad := []struct {
		to   uint64
		body string
		want int
	}{
		{0, "hi", http.StatusBadRequest},
		{studentID, "hi", http.StatusBadRequest},
		{custodianID, "   ", http.StatusBadRequest},
		{custodianID, strings.Repeat("x", 4001), http.StatusBadRequest},
		{4242, "hi", http.StatusNotFound},
	}
	for _, tc := range bad {
		if _, err := ms.Send(ctx, studentID, tc.to, tc.body); statusOf(err) != tc.want {
			t.Errorf("to=%d: err = %v, want %d", tc.to, err, tc.want)
		}
	}
}

func TestSendMessageSurvivesNotificationFailure(t *testing.T) {
	f := newFixture()
	ms := NewMessagingService(fakeUsers{f.db}, fakeMessages{f.db}, fakeNotifications{memDB: f.db, err: errBoom}, quietLogger())
	if _, err := ms.Send(context.Background(), studentID, custodianID, "hello"); err != nil {
		t.Fatalf("send: %v", err)
	}
}

func TestMarkReadUnknownNotification(t *testing.T) {
	f := newFixture()
	ms := NewMessagingService(fakeUsers{f.db}, fakeMessages{f.db}, fakeNotifications{memDB: f.db}, quietLogger())
	if err := ms.MarkRead(context.Background(), studentID, "nope"); statusOf(err) != http.StatusNotFound {
		t.Fatalf("err = %v", err)
	}
}

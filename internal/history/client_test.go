package history

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/campusconnect/campuschat/internal/model"
)

func testServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL, "test-token")
}

func TestConversations(t *testing.T) {
	var gotPath, gotAuth string
	c := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"id":1,"otherUserId":7,"otherUserName":"Asha","otherUserRole":"FACULTY","lastMessage":"hi","unreadCount":2,"updatedAt":"2026-03-01T10:30:00"}
		]`))
	})

	convs, err := c.Conversations(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if gotPath != "/api/chat/conversations" {
		t.Errorf("path = %q", gotPath)
	}
	if gotAuth != "Bearer test-token" {
		t.Errorf("auth = %q", gotAuth)
	}
	if len(convs) != 1 || convs[0].OtherUserID != 7 || convs[0].UnreadCount != 2 {
		t.Errorf("conversations = %+v", convs)
	}
}

func TestMessageHistory(t *testing.T) {
	var gotPath string
	c := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(`[{"id":10,"senderId":7,"receiverId":3,"message":"hello","createdAt":"2026-03-01T09:00:00"}]`))
	})

	msgs, err := c.MessageHistory(context.Background(), 7)
	if err != nil {
		t.Fatal(err)
	}
	if gotPath != "/api/chat/messages/7" {
		t.Errorf("path = %q", gotPath)
	}
	if len(msgs) != 1 || msgs[0].Message != "hello" {
		t.Errorf("messages = %+v", msgs)
	}
}

func TestMarkRead(t *testing.T) {
	var gotMethod, gotPath string
	c := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	})

	if err := c.MarkRead(context.Background(), 5); err != nil {
		t.Fatal(err)
	}
	if gotMethod != http.MethodPost || gotPath != "/api/chat/mark-read/5" {
		t.Errorf("%s %s", gotMethod, gotPath)
	}
}

func TestGroupMessagesQuery(t *testing.T) {
	var gotPath, gotType string
	c := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotType = r.URL.Query().Get("chatType")
		_, _ = w.Write([]byte(`[]`))
	})

	if _, err := c.GroupMessages(context.Background(), 3, model.ChatTypeFacultyStudent); err != nil {
		t.Fatal(err)
	}
	if gotPath != "/api/chat/groups/3" {
		t.Errorf("path = %q", gotPath)
	}
	if gotType != "FACULTY_STUDENT_GROUP" {
		t.Errorf("chatType = %q", gotType)
	}
}

func TestGroupPermissions(t *testing.T) {
	c := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"canPost":false,"canRead":true,"facultyMonitoring":true,"chatType":"DEPARTMENT_GROUP"}`))
	})

	perms, err := c.GroupPermissions(context.Background(), 3, model.ChatTypeDepartment)
	if err != nil {
		t.Fatal(err)
	}
	if perms.CanPost || !perms.CanRead || !perms.FacultyMonitoring {
		t.Errorf("permissions = %+v", perms)
	}
}

func TestErrorStatusPropagates(t *testing.T) {
	c := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	if _, err := c.Conversations(context.Background()); err == nil {
		t.Error("expected error for HTTP 500")
	}
	if err := c.MarkRead(context.Background(), 1); err == nil {
		t.Error("expected error for HTTP 500")
	}
}

func TestBadJSONPropagates(t *testing.T) {
	c := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{not json`))
	})
	if _, err := c.ChatUsers(context.Background()); err == nil {
		t.Error("expected decode error")
	}
}

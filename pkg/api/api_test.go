package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"

	"chatrelay/pkg/ingest"
	"chatrelay/pkg/models"
	"chatrelay/pkg/registry"
	"chatrelay/pkg/store"
)

func newTestAPI(t *testing.T, openStore bool) (*httptest.Server, *registry.Registry) {
	t.Helper()
	if openStore {
		require.NoError(t, store.Open(t.TempDir()))
		t.Cleanup(func() { _ = store.Close() })
	}
	reg := registry.New()
	r := mux.NewRouter()
	Register(r.PathPrefix("/v1").Subrouter(), reg, ingest.New(reg))
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, reg
}

func postMessage(t *testing.T, srv *httptest.Server, sender, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, srv.URL+"/v1/messages", strings.NewReader(body))
	require.NoError(t, err)
	if sender != "" {
		req.Header.Set("X-Username", sender)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestCreateMessage(t *testing.T) {
	srv, _ := newTestAPI(t, true)

	resp := postMessage(t, srv, "alice", `{"content":"hello","receiver":"bob"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var m models.Message
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&m))
	require.NotZero(t, m.ID)
	require.Equal(t, "alice", m.Sender)
	require.Equal(t, "bob", m.Receiver)
	require.False(t, m.Timestamp.IsZero())

	msgs, err := store.ListHistory("bob", "alice", 0)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
}

func TestCreateMessageRequiresIdentity(t *testing.T) {
	srv, _ := newTestAPI(t, true)
	resp := postMessage(t, srv, "", `{"content":"hello","receiver":"bob"}`)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestCreateMessageRejections(t *testing.T) {
	srv, _ := newTestAPI(t, true)

	cases := []struct {
		name string
		body string
	}{
		{"invalid json", `{not json`},
		{"empty content", `{"content":"  ","receiver":"bob"}`},
		{"missing receiver", `{"content":"hi"}`},
		{"self send", `{"content":"hi","receiver":"alice"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := postMessage(t, srv, "alice", tc.body)
			require.Equal(t, http.StatusBadRequest, resp.StatusCode)
			var e map[string]string
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&e))
			require.NotEmpty(t, e["error"])
		})
	}
	require.Zero(t, store.LastMessageID())
}

func TestCreateMessageBodyTooLarge(t *testing.T) {
	srv, _ := newTestAPI(t, true)

	body := `{"content":"` + strings.Repeat("x", (1<<20)+1024) + `","receiver":"bob"}`
	resp := postMessage(t, srv, "alice", body)
	require.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
	require.Zero(t, store.LastMessageID())
}

func TestCreateMessageStoreUnavailable(t *testing.T) {
	srv, _ := newTestAPI(t, false)
	resp := postMessage(t, srv, "alice", `{"content":"hello","receiver":"bob"}`)
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestListHistoryEndpoint(t *testing.T) {
	srv, _ := newTestAPI(t, true)

	require.Equal(t, http.StatusCreated, postMessage(t, srv, "alice", `{"content":"one","receiver":"bob"}`).StatusCode)
	require.Equal(t, http.StatusCreated, postMessage(t, srv, "bob", `{"content":"two","receiver":"alice"}`).StatusCode)
	require.Equal(t, http.StatusCreated, postMessage(t, srv, "alice", `{"content":"three","receiver":"carol"}`).StatusCode)

	var out struct {
		Messages []models.Message `json:"messages"`
	}

	resp, err := http.Get(srv.URL + "/v1/messages/alice?with=bob")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Len(t, out.Messages, 2)
	require.Equal(t, "two", out.Messages[0].Content)
	require.Equal(t, "one", out.Messages[1].Content)

	resp, err = http.Get(srv.URL + "/v1/messages/alice?limit=1")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Len(t, out.Messages, 1)
	require.Equal(t, "three", out.Messages[0].Content)

	resp, err = http.Get(srv.URL + "/v1/messages/alice?limit=oops")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestOnlineUsersEndpoint(t *testing.T) {
	srv, reg := newTestAPI(t, true)
	reg.Register("bob", nopTransport{})
	reg.Register("alice", nopTransport{})

	resp, err := http.Get(srv.URL + "/v1/users/online")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Users []string `json:"users"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Equal(t, []string{"alice", "bob"}, out.Users)
}

func TestChatsEndpoint(t *testing.T) {
	srv, _ := newTestAPI(t, true)

	require.Equal(t, http.StatusCreated, postMessage(t, srv, "alice", `{"content":"hi bob","receiver":"bob"}`).StatusCode)
	require.Equal(t, http.StatusCreated, postMessage(t, srv, "carol", `{"content":"hi alice","receiver":"alice"}`).StatusCode)
	require.Equal(t, http.StatusCreated, postMessage(t, srv, "bob", `{"content":"hi again","receiver":"alice"}`).StatusCode)

	resp, err := http.Get(srv.URL + "/v1/chats/alice")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var chats []models.ChatSummary
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&chats))
	require.Len(t, chats, 2)
	// most recently active conversation first, latest message per counterpart
	require.Equal(t, "bob", chats[0].User)
	require.Equal(t, "hi again", chats[0].LastMessage)
	require.Equal(t, "carol", chats[1].User)
	require.Equal(t, "hi alice", chats[1].LastMessage)
	require.False(t, chats[0].Unread)
}

type nopTransport struct{}

func (nopTransport) TrySend(any) error { return nil }
func (nopTransport) Close() error      { return nil }

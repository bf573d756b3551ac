package stream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"drape.com/drape/config"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readOf[T any](t *testing.T, ws *websocket.Conn, kind string) T {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		_, b, err := ws.ReadMessage()
		require.NoError(t, err)
		env, err := DecodeEnvelope(b)
		require.NoError(t, err)
		if env.T != kind {
			continue
		}
		out, err := DecodePayload[T](env)
		require.NoError(t, err)
		return out
	}
}

func TestWebsocketRoundTrip(t *testing.T) {
	cfg := config.Default().Stream
	sim := NewSim(calmCloth(t, 4), cfg, quiet())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sim.Run(ctx)

	srv := httptest.NewServer(NewServer(sim, cfg, quiet()).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer ws.Close()

	w := readOf[Welcome](t, ws, MsgWelcome)
	assert.Len(t, w.Constraints, 40)

	b, err := Encode(MsgCut, CutRequest{Indices: []int{6}})
	require.NoError(t, err)
	require.NoError(t, ws.WriteMessage(websocket.TextMessage, b))

	var st State
	for len(st.Cuts) == 0 {
		st = readOf[State](t, ws, MsgState)
	}
	assert.Len(t, st.Cuts, 4)

	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte(`{"t":"fly","p":{}}`)))
	e := readOf[Error](t, ws, MsgError)
	assert.Contains(t, e.Msg, "fly")

	//Stopping the sim closes every socket
	cancel()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			break
		}
	}
}

func TestConnSendDoesNotBlock(t *testing.T) {
	c := newWSConn(nil, 2)
	require.NoError(t, c.Send([]byte("a")))
	require.NoError(t, c.Send([]byte("b")))
	assert.ErrorIs(t, c.Send([]byte("c")), ErrSlowClient)

	require.NoError(t, c.Close())
	assert.Error(t, c.Send([]byte("d")))
	assert.NoError(t, c.Close())
}

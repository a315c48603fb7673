package server

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	. "github.com/smartystreets/goconvey/convey"
)

func dialWS(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	return conn
}

func TestSimulationSocket(t *testing.T) {
	Convey("Given a running Server", t, func() {
		srv := NewServer("", "0")
		httpSrv := httptest.NewServer(srv.router)
		defer httpSrv.Close()
		wsURL := "ws" + strings.TrimPrefix(httpSrv.URL, "http") + "/ws/simulation"

		Convey("init then step returns a frame for a still-life block", func() {
			conn := dialWS(t, wsURL)
			defer conn.Close()

			seed := make([]byte, 8*8)
			seed[1*8+1] = 1
			seed[1*8+2] = 1
			seed[2*8+1] = 1
			seed[2*8+2] = 1

			initMsg := ControlMessage{Type: "init"}
			initData, _ := json.Marshal(initPayload{
				Width: 8, Height: 8, Lattice: "square", Rule: "B3/S23",
				Toroidal: false, MaxPeriod: 50, Seed: seed,
			})
			initMsg.Data = initData
			So(conn.WriteJSON(initMsg), ShouldBeNil)

			var initAck ServerMessage
			_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
			So(conn.ReadJSON(&initAck), ShouldBeNil)
			So(initAck.Type, ShouldEqual, "initialized")

			So(conn.WriteJSON(ControlMessage{Type: "step"}), ShouldBeNil)

			var frameMsg ServerMessage
			_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
			So(conn.ReadJSON(&frameMsg), ShouldBeNil)
			So(frameMsg.Type, ShouldEqual, "frame")
		})
	})
}

func TestHealthz(t *testing.T) {
	Convey("Given a running Server", t, func() {
		srv := NewServer("", "0")
		httpSrv := httptest.NewServer(srv.router)
		defer httpSrv.Close()

		Convey("/healthz returns 200", func() {
			resp, err := httpSrv.Client().Get(httpSrv.URL + "/healthz")
			So(err, ShouldBeNil)
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, 200)
		})
	})
}

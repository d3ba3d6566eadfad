package httpapi

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/collabboard/server/pkg/board"
	"github.com/collabboard/server/pkg/boardmodel"
	"github.com/collabboard/server/pkg/boardstore"
	"github.com/collabboard/server/pkg/config"
	"github.com/collabboard/server/pkg/storage"
)

func newTestServer(t *testing.T) (*httptest.Server, *Server) {
	t.Helper()
	db, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("open storage: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	store := boardstore.New()
	srv := New(board.New(db, store), store, NewTicketIssuer(), &config.Config{PerfTestAuthBypass: true}, zerolog.Nop())
	return httptest.NewServer(srv.Handler()), srv
}

func devLogin(t *testing.T, ts *httptest.Server, userID string) []*http.Cookie {
	t.Helper()
	body := strings.NewReader(`{"user_id":"` + userID + `"}`)
	resp, err := http.Post(ts.URL+"/auth/dev-login", "application/json", body)
	if err != nil {
		t.Fatalf("dev-login: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 from dev-login, got %d", resp.StatusCode)
	}
	return resp.Cookies()
}

func withCookies(req *http.Request, cookies []*http.Cookie) *http.Request {
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return req
}

func TestCreateAndListBoards(t *testing.T) {
	ts, _ := newTestServer(t)
	defer ts.Close()
	cookies := devLogin(t, ts, "user-1")

	createReq, _ := http.NewRequest(http.MethodPost, ts.URL+"/boards", strings.NewReader(`{"name":"design review"}`))
	resp, err := http.DefaultClient.Do(withCookies(createReq, cookies))
	if err != nil {
		t.Fatalf("create board: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	var created boardmodel.Board
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode created board: %v", err)
	}
	if created.Name != "design review" {
		t.Fatalf("expected the created board's name to round-trip, got %q", created.Name)
	}

	listReq, _ := http.NewRequest(http.MethodGet, ts.URL+"/boards", nil)
	resp, err = http.DefaultClient.Do(withCookies(listReq, cookies))
	if err != nil {
		t.Fatalf("list boards: %v", err)
	}
	defer resp.Body.Close()
	var boards []boardmodel.Board
	if err := json.NewDecoder(resp.Body).Decode(&boards); err != nil {
		t.Fatalf("decode board list: %v", err)
	}
	if len(boards) != 1 || boards[0].ID != created.ID {
		t.Fatalf("expected the list to contain the created board, got %+v", boards)
	}
}

func TestListBoardsRequiresAuthentication(t *testing.T) {
	ts, _ := newTestServer(t)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/boards")
	if err != nil {
		t.Fatalf("list boards: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestDevLoginDisabledWithoutBypass(t *testing.T) {
	db, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("open storage: %v", err)
	}
	defer db.Close()
	store := boardstore.New()
	srv := New(board.New(db, store), store, NewTicketIssuer(), &config.Config{}, zerolog.Nop())
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/auth/dev-login", "application/json", strings.NewReader(`{"user_id":"x"}`))
	if err != nil {
		t.Fatalf("dev-login: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 when the dev bypass is disabled, got %d", resp.StatusCode)
	}
}

func TestCreateObjectMirrorsSocketInvariants(t *testing.T) {
	ts, srv := newTestServer(t)
	defer ts.Close()
	cookies := devLogin(t, ts, "user-1")

	b, err := srv.Boards.Create("board", "user-1")
	if err != nil {
		t.Fatalf("create board: %v", err)
	}

	createReq, _ := http.NewRequest(http.MethodPost, ts.URL+"/boards/"+b.ID+"/objects",
		strings.NewReader(`{"kind":"sticky_note","x":1,"y":2,"props":{"text":"hi"}}`))
	resp, err := http.DefaultClient.Do(withCookies(createReq, cookies))
	if err != nil {
		t.Fatalf("create object: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	var obj boardmodel.Object
	if err := json.NewDecoder(resp.Body).Decode(&obj); err != nil {
		t.Fatalf("decode object: %v", err)
	}
	if obj.Version != 1 {
		t.Fatalf("expected a freshly created object to start at version 1, got %d", obj.Version)
	}
}

func TestUpdateObjectStaleRejectReturnsConflict(t *testing.T) {
	ts, srv := newTestServer(t)
	defer ts.Close()

	b, err := srv.Boards.Create("board", "user-1")
	if err != nil {
		t.Fatalf("create board: %v", err)
	}
	bs, err := srv.Boards.Hydrate(b.ID)
	if err != nil {
		t.Fatalf("hydrate: %v", err)
	}
	obj, err := func() (*boardmodel.Object, error) {
		bodyReq, _ := http.NewRequest(http.MethodPost, ts.URL+"/boards/"+b.ID+"/objects",
			strings.NewReader(`{"kind":"sticky_note","x":0,"y":0,"props":{}}`))
		resp, err := http.DefaultClient.Do(bodyReq)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		var o boardmodel.Object
		err = json.NewDecoder(resp.Body).Decode(&o)
		return &o, err
	}()
	if err != nil {
		t.Fatalf("seed object: %v", err)
	}
	_ = bs

	updateReq, _ := http.NewRequest(http.MethodPatch, ts.URL+"/boards/"+b.ID+"/objects/"+obj.ID,
		strings.NewReader(`{"version":0,"x":99}`))
	resp, err := http.DefaultClient.Do(updateReq)
	if err != nil {
		t.Fatalf("update object: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 on a stale update, got %d", resp.StatusCode)
	}
}

func TestBoardPreviewMissingIsNotFound(t *testing.T) {
	ts, srv := newTestServer(t)
	defer ts.Close()
	b, _ := srv.Boards.Create("board", "owner")

	resp, err := http.Get(ts.URL + "/boards/" + b.ID + "/preview")
	if err != nil {
		t.Fatalf("get preview: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for a board with no stored preview, got %d", resp.StatusCode)
	}
}

func TestBoardPreviewUploadAndFetchRoundTrips(t *testing.T) {
	ts, srv := newTestServer(t)
	defer ts.Close()
	b, _ := srv.Boards.Create("board", "owner")

	img := image.NewRGBA(image.Rect(0, 0, 40, 30))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode test png: %v", err)
	}

	putReq, _ := http.NewRequest(http.MethodPut, ts.URL+"/boards/"+b.ID+"/preview", bytes.NewReader(buf.Bytes()))
	putResp, err := http.DefaultClient.Do(putReq)
	if err != nil {
		t.Fatalf("put preview: %v", err)
	}
	defer putResp.Body.Close()
	if putResp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204 from preview upload, got %d", putResp.StatusCode)
	}

	getResp, err := http.Get(ts.URL + "/boards/" + b.ID + "/preview")
	if err != nil {
		t.Fatalf("get preview: %v", err)
	}
	defer getResp.Body.Close()
	if getResp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", getResp.StatusCode)
	}
	if ct := getResp.Header.Get("Content-Type"); ct != "image/png" {
		t.Fatalf("expected image/png content type, got %q", ct)
	}
	cfg, err := png.DecodeConfig(getResp.Body)
	if err != nil {
		t.Fatalf("decode fetched preview: %v", err)
	}
	if cfg.Width != 40 || cfg.Height != 30 {
		t.Fatalf("expected the small preview to round-trip unscaled, got %dx%d", cfg.Width, cfg.Height)
	}
}

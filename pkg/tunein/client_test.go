package tunein

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/zachfi/radiogo/pkg/shoutcast"
)

const tuneBody = `{
  "head": {"title": "Jazz24", "status": "200"},
  "body": [
    {"element": "audio", "url": "http://jazz.example/live.pls", "reliability": 99, "bitrate": 128,
     "media_type": "mp3", "position": 0, "playlist_type": "pls", "is_direct": false},
    {"element": "audio", "url": "http://jazz.example/live.mp3", "bitrate": 64, "media_type": "mp3", "is_direct": true}
  ]
}`

const invalidBody = `{"head": {"status": "400", "fault": "Invalid id", "fault_code": "validation.idInvalid"}}`

const searchBody = `{
  "head": {"title": "Search Results: jazz24", "status": "200"},
  "body": [
    {"element": "outline", "type": "audio", "text": "Jazz24", "URL": "http://opml.radiotime.com/Tune.ashx?id=s34804",
     "bitrate": "128", "reliability": "99", "guide_id": "s34804", "item": "station"},
    {"element": "outline", "type": "link", "text": "Jazz Shows", "guide_id": "c100"}
  ]
}`

func TestClient(t *testing.T) {
	Convey("Given a directory server", t, func() {
		var query map[string]string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			query = map[string]string{}
			for k := range r.URL.Query() {
				query[k] = r.URL.Query().Get(k)
			}

			switch {
			case r.URL.Path == "/Tune.ashx" && query["id"] == "s34804":
				_, _ = io.WriteString(w, tuneBody)
			case r.URL.Path == "/Tune.ashx" && query["id"] == "broken":
				w.WriteHeader(http.StatusBadGateway)
			case r.URL.Path == "/Tune.ashx":
				w.WriteHeader(http.StatusBadRequest)
				_, _ = io.WriteString(w, invalidBody)
			case r.URL.Path == "/Search.ashx":
				_, _ = io.WriteString(w, searchBody)
			default:
				http.NotFound(w, r)
			}
		}))
		defer srv.Close()

		c := New(srv.URL, "", "radiogo-test", srv.Client())
		ctx := context.Background()

		Convey("GetStation maps stream entries to candidates", func() {
			candidates, err := c.GetStation(ctx, "s34804")
			So(err, ShouldBeNil)
			So(candidates, ShouldHaveLength, 2)
			So(candidates[0].MediaURL, ShouldEqual, "http://jazz.example/live.pls")
			So(candidates[0].PlaylistKind, ShouldEqual, shoutcast.KindPLS)
			So(candidates[0].MediaType, ShouldEqual, "mp3")
			So(candidates[1].PlaylistKind, ShouldEqual, shoutcast.KindNone)
			So(query["render"], ShouldEqual, "json")
			So(query["formats"], ShouldEqual, DefaultFormats)
		})

		Convey("GetStation with an unknown id returns no candidates", func() {
			candidates, err := c.GetStation(ctx, "jazz24")
			So(err, ShouldBeNil)
			So(candidates, ShouldBeEmpty)
		})

		Convey("GetStation surfaces server errors", func() {
			_, err := c.GetStation(ctx, "broken")
			So(err, ShouldNotBeNil)
		})

		Convey("Search keeps result order and optional fields", func() {
			results, err := c.Search(ctx, "jazz24")
			So(err, ShouldBeNil)
			So(results, ShouldHaveLength, 2)
			So(results[0].Type, ShouldEqual, "audio")
			So(results[0].GuideID, ShouldEqual, "s34804")
			So(results[0].Text, ShouldEqual, "Jazz24")
			So(results[1].Type, ShouldEqual, "link")
			So(query["query"], ShouldEqual, "jazz24")
		})
	})

	Convey("An unreachable directory is an error", t, func() {
		c := New("http://127.0.0.1:1", "", "", nil)
		_, err := c.Search(context.Background(), "jazz")
		So(err, ShouldNotBeNil)
	})
}

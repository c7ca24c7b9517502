package client

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RyanBlaney/sonido-embed/embedding"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	r := chi.NewRouter()
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"message":"ok","embedding_dimension":38,"embedding_version":"v1"}`)
	})
	r.Post("/process-audio/", func(w http.ResponseWriter, r *http.Request) {
		file, header, err := r.FormFile("file")
		if err != nil {
			w.WriteHeader(http.StatusUnprocessableEntity)
			io.WriteString(w, `{"detail":"field required: file"}`)
			return
		}
		defer file.Close()

		data, _ := io.ReadAll(file)
		switch string(data) {
		case "short":
			w.WriteHeader(http.StatusBadRequest)
			io.WriteString(w, `{"detail":"insufficient audio: got 10 samples, need at least 2048"}`)
		case "plain":
			w.WriteHeader(http.StatusBadGateway)
			io.WriteString(w, "upstream down")
		case "garbled":
			io.WriteString(w, "{not json")
		default:
			assert.Equal(t, "song.mp3", header.Filename)
			io.WriteString(w, `{"embedding":[0,0.5,1]}`)
		}
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func TestEmbed(t *testing.T) {
	srv := newTestServer(t)
	c := New(srv.URL+"/", nil)

	vector, err := c.Embed(context.Background(), "song.mp3", strings.NewReader("audio"))
	require.NoError(t, err)
	assert.Equal(t, embedding.Vector{0, 0.5, 1}, vector)
}

func TestEmbedStatusErrors(t *testing.T) {
	c := New(newTestServer(t).URL, nil)

	_, err := c.Embed(context.Background(), "song.mp3", strings.NewReader("short"))
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusBadRequest, statusErr.StatusCode)
	assert.Equal(t, "insufficient audio: got 10 samples, need at least 2048", statusErr.Detail)

	_, err = c.Embed(context.Background(), "song.mp3", strings.NewReader("plain"))
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusBadGateway, statusErr.StatusCode)
	assert.Equal(t, "upstream down", statusErr.Detail)
	assert.Contains(t, err.Error(), "502")

	_, err = c.Embed(context.Background(), "song.mp3", strings.NewReader("garbled"))
	require.Error(t, err)
	assert.False(t, errors.As(err, &statusErr))
}

func TestEmbedHonoursContext(t *testing.T) {
	c := New(newTestServer(t).URL, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Embed(ctx, "song.mp3", strings.NewReader("audio"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestInfo(t *testing.T) {
	info, err := New(newTestServer(t).URL, nil).Info(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &Info{Message: "ok", EmbeddingDimension: 38, EmbeddingVersion: "v1"}, info)
}

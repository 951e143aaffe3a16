package x_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mechapengu/postpilot/model"
	"github.com/mechapengu/postpilot/service/publisher/x"
)

func testCredentials() x.Credentials {
	return x.Credentials{
		ConsumerKey:    "ck",
		ConsumerSecret: "cs",
		AccessToken:    "at",
		AccessSecret:   "as",
	}
}

func writeImage(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "preview.png")
	require.NoError(t, os.WriteFile(path, []byte("png bytes"), 0o644))
	return path
}

func TestPublish(t *testing.T) {
	var uploadAuth, createAuth string
	var uploadedMedia []byte
	var created struct {
		Text  string `json:"text"`
		Media *struct {
			MediaIDs []string `json:"media_ids"`
		} `json:"media"`
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/1.1/media/upload.json", func(w http.ResponseWriter, r *http.Request) {
		uploadAuth = r.Header.Get("Authorization")
		file, _, err := r.FormFile("media")
		require.NoError(t, err)
		uploadedMedia, err = io.ReadAll(file)
		require.NoError(t, err)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"media_id":710511363345354753,"media_id_string":"710511363345354753"}`))
	})
	mux.HandleFunc("/2/tweets", func(w http.ResponseWriter, r *http.Request) {
		createAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&created))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"id":"1849000000000000000","text":"Hello!"}}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client, err := x.New(testCredentials(),
		x.WithUploadURL(server.URL+"/1.1/media/upload.json"),
		x.WithCreateURL(server.URL+"/2/tweets"))
	require.NoError(t, err)

	postID, err := client.Publish(context.Background(), "Hello!", writeImage(t))
	require.NoError(t, err)
	assert.Equal(t, "1849000000000000000", postID)

	assert.True(t, strings.HasPrefix(uploadAuth, "OAuth "), "upload must carry an OAuth1 signature")
	assert.Contains(t, uploadAuth, `oauth_consumer_key="ck"`)
	assert.True(t, strings.HasPrefix(createAuth, "OAuth "))
	assert.Equal(t, []byte("png bytes"), uploadedMedia)

	assert.Equal(t, "Hello!", created.Text)
	require.NotNil(t, created.Media)
	assert.Equal(t, []string{"710511363345354753"}, created.Media.MediaIDs)
}

func TestPublishWithoutImage(t *testing.T) {
	var created struct {
		Text  string      `json:"text"`
		Media interface{} `json:"media"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&created))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"id":"42","text":"plain"}}`))
	}))
	defer server.Close()

	client, err := x.New(testCredentials(), x.WithCreateURL(server.URL))
	require.NoError(t, err)

	postID, err := client.Publish(context.Background(), "plain", "")
	require.NoError(t, err)
	assert.Equal(t, "42", postID)
	assert.Nil(t, created.Media)
}

func TestPublishUploadRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"errors":[{"message":"media type unrecognized"}]}`, http.StatusBadRequest)
	}))
	defer server.Close()

	client, err := x.New(testCredentials(), x.WithUploadURL(server.URL))
	require.NoError(t, err)

	_, err = client.Publish(context.Background(), "text", writeImage(t))
	assert.ErrorIs(t, err, model.ErrPublishFailed)
}

func TestPublishCreateRejected(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/upload", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"media_id_string":"7"}`))
	})
	mux.HandleFunc("/create", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"duplicate content"}`, http.StatusForbidden)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client, err := x.New(testCredentials(),
		x.WithUploadURL(server.URL+"/upload"),
		x.WithCreateURL(server.URL+"/create"))
	require.NoError(t, err)

	_, err = client.Publish(context.Background(), "text", writeImage(t))
	assert.ErrorIs(t, err, model.ErrPublishFailed)
}

func TestPublishMissingImage(t *testing.T) {
	client, err := x.New(testCredentials())
	require.NoError(t, err)

	_, err = client.Publish(context.Background(), "text", filepath.Join(t.TempDir(), "absent.png"))
	assert.ErrorIs(t, err, model.ErrPublishFailed)
}

func TestNewRequiresAllCredentials(t *testing.T) {
	creds := testCredentials()
	creds.AccessSecret = ""
	_, err := x.New(creds)
	assert.Error(t, err)
}

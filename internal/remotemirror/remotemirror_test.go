package remotemirror

import (
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskchain-go/taskchain/internal/datahandler"
)

func TestWrapReturnsLocalWhenClientNil(t *testing.T) {
	local := datahandler.JSONArtifact{}
	wrapped := Wrap(local, nil)
	_, isMirror := wrapped.(*Mirror)
	assert.False(t, isMirror, "Wrap with a nil client must not introduce a mirroring layer")
	assert.Equal(t, local, wrapped)
}

func TestMirrorPushesOnSaveAndPullsOnMiss(t *testing.T) {
	store := map[string][]byte{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := filepath.Base(r.URL.Path)
		switch r.Method {
		case http.MethodPut:
			buf, _ := ioutil.ReadAll(r.Body)
			store[key] = buf
			w.WriteHeader(http.StatusOK)
		case http.MethodGet:
			b, ok := store[key]
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			w.Write(b)
		}
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	mirror := Wrap(datahandler.JSONArtifact{}, client)

	dirA := t.TempDir()
	pathA := filepath.Join(dirA, "abc123.json")
	require.NoError(t, mirror.Save(pathA, map[string]interface{}{"x": 1}))

	dirB := t.TempDir()
	pathB := filepath.Join(dirB, "abc123.json")
	exists, err := mirror.Exists(pathB)
	require.NoError(t, err)
	assert.True(t, exists, "a second local handler should pull the artifact it never wrote")

	v, err := mirror.Load(pathB)
	require.NoError(t, err)
	assert.EqualValues(t, 1, v.(map[string]interface{})["x"])
}

package mock

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	taskstream "github.com/taskstream-ai/taskstream-go"
)

func TestTransportFailsThenSucceeds(t *testing.T) {
	mt := &Transport{FailuresBeforeSuccess: 2}
	ctx := context.Background()
	req := &taskstream.Request{Method: "GET", Endpoint: "/tasks"}

	for i := 0; i < 2; i++ {
		resp, err := mt.Execute(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	}

	resp, err := mt.Execute(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 3, mt.Calls())
}

func TestTransportErrorMode(t *testing.T) {
	boom := errors.New("boom")
	mt := &Transport{AlwaysFail: true, FailErr: boom}

	_, err := mt.Execute(context.Background(), &taskstream.Request{Method: "GET", Endpoint: "/x"})
	assert.ErrorIs(t, err, boom)
}

func TestTransportRecordsRequests(t *testing.T) {
	mt := &Transport{Body: []byte(`{}`)}
	ctx := context.Background()

	_, err := mt.Execute(ctx, &taskstream.Request{Method: "GET", Endpoint: "/a"})
	require.NoError(t, err)
	_, err = mt.Execute(ctx, &taskstream.Request{Method: "POST", Endpoint: "/b"})
	require.NoError(t, err)

	reqs := mt.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, "/a", reqs[0].Endpoint)
	assert.Equal(t, "POST", mt.LastRequest().Method)

	mt.Reset()
	assert.Equal(t, 0, mt.Calls())
	assert.Nil(t, mt.LastRequest())
}

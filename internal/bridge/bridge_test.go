package bridge

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artdocent/docent/internal/artwork"
	"github.com/artdocent/docent/internal/models"
)

func decodeFetch(t *testing.T, out string) FetchResponse {
	t.Helper()
	var resp FetchResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	return resp
}

func TestFetchArtworkEmptyStore(t *testing.T) {
	b := New(artwork.NewStore(), nil)

	out, err := b.Execute(context.Background(), FetchArtworkTool, nil)
	require.NoError(t, err)

	resp := decodeFetch(t, out)
	assert.False(t, resp.Success)
	assert.NotEmpty(t, resp.Error)
	assert.Nil(t, resp.Artwork)

	var raw map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &raw))
	assert.NotContains(t, raw, "artwork")
	assert.NotContains(t, raw, "message")
}

func TestFetchArtworkReturnsCurrentValue(t *testing.T) {
	store := artwork.NewStore()
	store.Write(artwork.FromIdentification(models.Identification{Name: "A", Artist: "First", Confidence: models.ConfidenceLow}))

	// The bridge is registered while A is current.
	b := New(store, nil)

	store.Write(artwork.FromIdentification(models.Identification{
		Name: "Father Hidalgo", Artist: "José Clemente Orozco", Year: "1949", Medium: "Fresco",
		Confidence: models.ConfidenceHigh, RawText: "Name: Father Hidalgo",
	}))

	out, err := b.Execute(context.Background(), FetchArtworkTool, nil)
	require.NoError(t, err)

	resp := decodeFetch(t, out)
	require.True(t, resp.Success)
	require.NotNil(t, resp.Artwork)
	assert.Equal(t, "Father Hidalgo", resp.Artwork.Name)
	assert.Equal(t, "father-hidalgo-1949", resp.Artwork.ID)
	assert.Equal(t, models.ConfidenceHigh, resp.Artwork.Confidence)
	assert.NotEmpty(t, resp.Artwork.ConversationContext)
	assert.Equal(t, `Artwork details: "Father Hidalgo" by José Clemente Orozco (1949). Medium: Fresco.`, resp.Message)
	assert.Empty(t, resp.Error)

	store.Clear()
	out, err = b.Execute(context.Background(), FetchArtworkTool, nil)
	require.NoError(t, err)
	assert.False(t, decodeFetch(t, out).Success)
}

func TestLogDiagnostic(t *testing.T) {
	var got []string
	b := New(artwork.NewStore(), nil).WithDiagnosticSink(func(_ context.Context, message string) {
		got = append(got, message)
	})

	out, err := b.ExecuteJSON(context.Background(), LogDiagnosticTool, `{"message":"user asked about brushwork"}`)
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":true}`, out)
	assert.Equal(t, []string{"user asked about brushwork"}, got)

	_, err = b.ExecuteJSON(context.Background(), LogDiagnosticTool, `{"message":42}`)
	assert.Error(t, err)
}

func TestExecuteUnknownAndBadArgs(t *testing.T) {
	b := New(artwork.NewStore(), nil)

	_, err := b.Execute(context.Background(), "paintSomething", nil)
	assert.Error(t, err)

	_, err = b.ExecuteJSON(context.Background(), FetchArtworkTool, `{not json`)
	assert.Error(t, err)

	out, err := b.ExecuteJSON(context.Background(), FetchArtworkTool, "")
	require.NoError(t, err)
	assert.False(t, decodeFetch(t, out).Success)
}

func TestList(t *testing.T) {
	b := New(artwork.NewStore(), nil)

	assert.Equal(t, []string{FetchArtworkTool, LogDiagnosticTool}, b.Names())

	defs := b.List()
	require.Len(t, defs, 2)
	fn := defs[0]["function"].(map[string]any)
	assert.Equal(t, FetchArtworkTool, fn["name"])
}

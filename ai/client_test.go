package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, output interface{}, capture *generateRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/generate", r.URL.Path)
		require.Equal(t, "POST", r.Method)
		if capture != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(capture))
		}
		raw, err := json.Marshal(output)
		require.NoError(t, err)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]json.RawMessage{"output": raw})
	}))
}

func TestTranslateRoundTrip(t *testing.T) {
	var captured generateRequest
	server := newTestServer(t, TranslateTextOutput{TranslatedText: "Hola"}, &captured)
	defer server.Close()

	c := NewClient(server.URL, "test-key", "text-small")
	out, err := c.Translate(context.Background(), TranslateTextInput{Text: "Hello", Language: "Spanish"})
	require.NoError(t, err)
	assert.Equal(t, "Hola", out.TranslatedText)
	assert.Equal(t, "text-small", captured.Model)
	assert.True(t, captured.JsonOutput)
	assert.Contains(t, captured.Prompt, `"Hello"`)
	assert.Contains(t, captured.Prompt, "Spanish")
}

func TestTranslateRejectsEmptyInput(t *testing.T) {
	c := NewClient("http://unused", "", "m")
	_, err := c.Translate(context.Background(), TranslateTextInput{Text: "", Language: "French"})
	assert.Error(t, err)
}

func TestGenerateRejectsMissingRequiredField(t *testing.T) {
	server := newTestServer(t, map[string]string{}, nil)
	defer server.Close()

	c := NewClient(server.URL, "", "m")
	_, err := c.Translate(context.Background(), TranslateTextInput{Text: "Hello", Language: "Spanish"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schema validation")
}

func TestGenerateSurfacesServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	c := NewClient(server.URL, "", "m")
	_, err := c.Translate(context.Background(), TranslateTextInput{Text: "Hello", Language: "Spanish"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
	assert.Contains(t, err.Error(), "model overloaded")
}

func TestSuggestUsernames(t *testing.T) {
	server := newTestServer(t, SuggestUsernameOutput{Suggestions: []string{"jdoe", "jane.d", "janed99"}}, nil)
	defer server.Close()

	c := NewClient(server.URL, "", "m")
	out, err := c.SuggestUsernames(context.Background(), SuggestUsernameInput{FullName: "Jane Doe"})
	require.NoError(t, err)
	assert.Len(t, out.Suggestions, 3)
}

func TestSuggestHashtagsRejectsEmptyList(t *testing.T) {
	server := newTestServer(t, SuggestHashtagsOutput{Hashtags: []string{}}, nil)
	defer server.Close()

	c := NewClient(server.URL, "", "m")
	_, err := c.SuggestHashtags(context.Background(), SuggestHashtagsInput{PostContent: "sunset at the beach"})
	assert.Error(t, err)
}

func TestAuthorizationHeader(t *testing.T) {
	var auth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		raw, _ := json.Marshal(SuggestHashtagsOutput{Hashtags: []string{"#go"}})
		json.NewEncoder(w).Encode(map[string]json.RawMessage{"output": raw})
	}))
	defer server.Close()

	c := NewClient(server.URL, "secret", "m")
	_, err := c.SuggestHashtags(context.Background(), SuggestHashtagsInput{PostContent: "code"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(auth, "Bearer "))
}

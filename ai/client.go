package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

const (
	translatePrompt = `You are a professional translator. Your task is to translate the given text into the specified language.

Text to translate: "%s"
Target language: %s

Please provide the translated text in the output format.`

	suggestUsernamePrompt = `You are a creative assistant. Your goal is to suggest unique and appealing usernames based on the user's full name.

The user's full name is: %s.

Please provide 3 username suggestions. The usernames should be in lowercase and without spaces.`

	suggestHashtagsPrompt = `You are a social media expert. Your goal is to suggest relevant hashtags for the given post content.

The post content is: %s

Please provide up to 5 hashtag suggestions, each starting with '#'.`
)

// Client is a thin pass-through to the hosted text-generation service: one
// stateless prompt per call, schema-validated JSON in and out. No retries,
// no streaming, no conversation state.
type Client struct {
	endpoint   string
	apiKey     string
	model      string
	httpClient *http.Client
	validate   *validator.Validate
}

func NewClient(endpoint string, apiKey string, model string) *Client {
	return &Client{
		endpoint:   endpoint,
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{},
		validate:   validator.New(),
	}
}

// ClientFromEnv reads TEXTGEN_ENDPOINT / TEXTGEN_API_KEY / TEXTGEN_MODEL.
func ClientFromEnv() *Client {
	return NewClient(
		os.Getenv("TEXTGEN_ENDPOINT"),
		os.Getenv("TEXTGEN_API_KEY"),
		os.Getenv("TEXTGEN_MODEL"),
	)
}

type generateRequest struct {
	Model      string `json:"model"`
	Prompt     string `json:"prompt"`
	JsonOutput bool   `json:"json"`
}

type generateResponse struct {
	Output json.RawMessage `json:"output"`
}

// generate posts one prompt and decodes the structured output into out,
// validating it against the schema tags.
func (c *Client) generate(ctx context.Context, prompt string, out interface{}) error {
	payload, err := json.Marshal(generateRequest{Model: c.model, Prompt: prompt, JsonOutput: true})
	if err != nil {
		return errors.Wrap(err, "encode generation request")
	}
	req, err := http.NewRequestWithContext(ctx, "POST", c.endpoint+"/v1/generate", bytes.NewReader(payload))
	if err != nil {
		return errors.Wrap(err, "build generation request")
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "call text-generation service")
	}
	defer res.Body.Close()

	body, err := ioutil.ReadAll(res.Body)
	if err != nil {
		return errors.Wrap(err, "read generation response")
	}
	if res.StatusCode != http.StatusOK {
		return errors.Errorf("text-generation service returned %d: %s", res.StatusCode, string(body))
	}

	var parsed generateResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return errors.Wrap(err, "decode generation response")
	}
	if err := json.Unmarshal(parsed.Output, out); err != nil {
		return errors.Wrap(err, "decode generation output")
	}
	return errors.Wrap(c.validate.Struct(out), "generation output failed schema validation")
}

func (c *Client) Translate(ctx context.Context, input TranslateTextInput) (*TranslateTextOutput, error) {
	if err := c.validate.Struct(input); err != nil {
		return nil, errors.Wrap(err, "invalid translate input")
	}
	var out TranslateTextOutput
	if err := c.generate(ctx, fmt.Sprintf(translatePrompt, input.Text, input.Language), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SuggestUsernames(ctx context.Context, input SuggestUsernameInput) (*SuggestUsernameOutput, error) {
	if err := c.validate.Struct(input); err != nil {
		return nil, errors.Wrap(err, "invalid username suggestion input")
	}
	var out SuggestUsernameOutput
	if err := c.generate(ctx, fmt.Sprintf(suggestUsernamePrompt, input.FullName), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SuggestHashtags(ctx context.Context, input SuggestHashtagsInput) (*SuggestHashtagsOutput, error) {
	if err := c.validate.Struct(input); err != nil {
		return nil, errors.Wrap(err, "invalid hashtag suggestion input")
	}
	var out SuggestHashtagsOutput
	if err := c.generate(ctx, fmt.Sprintf(suggestHashtagsPrompt, input.PostContent), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

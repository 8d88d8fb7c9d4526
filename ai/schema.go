package ai

// Request and response schemas for the three text-generation flows. Outputs
// are validated before being returned; a response missing a required field
// is rejected, never passed through half-empty.

type TranslateTextInput struct {
	Text     string `json:"text" validate:"required"`
	Language string `json:"language" validate:"required"`
}

type TranslateTextOutput struct {
	TranslatedText string `json:"translatedText" validate:"required"`
}

type SuggestUsernameInput struct {
	FullName string `json:"fullName" validate:"required"`
}

type SuggestUsernameOutput struct {
	Suggestions []string `json:"suggestions" validate:"required,min=1,dive,required"`
}

type SuggestHashtagsInput struct {
	PostContent string `json:"postContent" validate:"required"`
}

type SuggestHashtagsOutput struct {
	Hashtags []string `json:"hashtags" validate:"required,min=1,dive,required"`
}
